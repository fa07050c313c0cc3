// Package storage implements per-structure resource buffers with a shared
// capacity across resource kinds. Amounts are integers; partial transfers
// clamp rather than fail.
package storage

import (
	"sort"

	"gridstead/internal/sim/catalogs"
)

// Store holds resource amounts against a single shared capacity.
// The zero value is not usable; construct with New.
type Store struct {
	capacity int
	used     int
	amounts  map[catalogs.ResourceID]int
}

// New returns an empty store with the given capacity. Negative capacities
// clamp to zero.
func New(capacity int) *Store {
	if capacity < 0 {
		capacity = 0
	}
	return &Store{capacity: capacity, amounts: make(map[catalogs.ResourceID]int)}
}

func (s *Store) Capacity() int { return s.capacity }
func (s *Store) Used() int     { return s.used }
func (s *Store) Free() int     { return s.capacity - s.used }

// Utilization is used/capacity in [0,1]. A zero-capacity store reports 0.
func (s *Store) Utilization() float64 {
	if s.capacity == 0 {
		return 0
	}
	return float64(s.used) / float64(s.capacity)
}

// Amount reports the current count of one resource.
func (s *Store) Amount(r catalogs.ResourceID) int { return s.amounts[r] }

// Has reports whether at least amount units of r are present.
func (s *Store) Has(r catalogs.ResourceID, amount int) bool {
	return s.amounts[r] >= amount
}

// CanAccept reports whether amount more units fit. Capacity is shared, so
// the resource kind does not matter.
func (s *Store) CanAccept(amount int) bool {
	return amount <= s.Free()
}

// Add stores up to amount units of r and returns how many were actually
// stored. The overflow is the caller's to handle; Add never fails.
func (s *Store) Add(r catalogs.ResourceID, amount int) int {
	if amount <= 0 {
		return 0
	}
	n := amount
	if free := s.Free(); n > free {
		n = free
	}
	if n == 0 {
		return 0
	}
	s.amounts[r] += n
	s.used += n
	return n
}

// Remove takes up to amount units of r and returns how many were actually
// taken. A resource drained to zero drops out of the store entirely.
func (s *Store) Remove(r catalogs.ResourceID, amount int) int {
	if amount <= 0 {
		return 0
	}
	have := s.amounts[r]
	n := amount
	if n > have {
		n = have
	}
	if n == 0 {
		return 0
	}
	if n == have {
		delete(s.amounts, r)
	} else {
		s.amounts[r] = have - n
	}
	s.used -= n
	return n
}

// Entry is one resource count in a store listing.
type Entry struct {
	Resource catalogs.ResourceID
	Amount   int
}

// Entries returns the non-zero contents sorted by resource id. The sorted
// order makes the listing safe to feed into digests and snapshots.
func (s *Store) Entries() []Entry {
	out := make([]Entry, 0, len(s.amounts))
	for r, n := range s.amounts {
		out = append(out, Entry{Resource: r, Amount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Resource < out[j].Resource })
	return out
}

// Restore overwrites the store contents from a snapshot listing.
// Entries with non-positive amounts are dropped. Contents beyond capacity
// are kept as-is; snapshots are trusted over the clamp.
func (s *Store) Restore(entries []Entry) {
	s.amounts = make(map[catalogs.ResourceID]int, len(entries))
	s.used = 0
	for _, e := range entries {
		if e.Amount <= 0 {
			continue
		}
		s.amounts[e.Resource] += e.Amount
		s.used += e.Amount
	}
}
