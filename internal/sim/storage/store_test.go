package storage

import (
	"testing"

	"gridstead/internal/sim/catalogs"
)

const (
	grain catalogs.ResourceID = 0
	food  catalogs.ResourceID = 1
)

func TestAddClampsToCapacity(t *testing.T) {
	s := New(10)
	if got := s.Add(grain, 7); got != 7 {
		t.Fatalf("Add = %d, want 7", got)
	}
	if got := s.Add(food, 5); got != 3 {
		t.Fatalf("Add past capacity = %d, want 3", got)
	}
	if s.Used() != 10 || s.Free() != 0 {
		t.Fatalf("used=%d free=%d", s.Used(), s.Free())
	}
	if got := s.Add(grain, 1); got != 0 {
		t.Fatalf("Add to full store = %d, want 0", got)
	}
}

func TestCapacityIsSharedAcrossResources(t *testing.T) {
	s := New(5)
	s.Add(grain, 3)
	if s.CanAccept(3) {
		t.Fatal("CanAccept(3) with 2 free")
	}
	if !s.CanAccept(2) {
		t.Fatal("!CanAccept(2) with 2 free")
	}
}

func TestRemoveClampsAndDeletesZeroEntries(t *testing.T) {
	s := New(10)
	s.Add(grain, 4)
	if got := s.Remove(grain, 6); got != 4 {
		t.Fatalf("Remove = %d, want 4", got)
	}
	if len(s.Entries()) != 0 {
		t.Fatalf("entries after drain: %v", s.Entries())
	}
	if got := s.Remove(food, 1); got != 0 {
		t.Fatalf("Remove absent = %d, want 0", got)
	}
	if s.Used() != 0 {
		t.Fatalf("used = %d", s.Used())
	}
}

func TestEntriesSortedByResource(t *testing.T) {
	s := New(100)
	s.Add(food, 2)
	s.Add(grain, 5)
	got := s.Entries()
	if len(got) != 2 || got[0].Resource != grain || got[1].Resource != food {
		t.Fatalf("entries = %v", got)
	}
}

func TestUtilization(t *testing.T) {
	s := New(50)
	s.Add(grain, 25)
	if u := s.Utilization(); u != 0.5 {
		t.Fatalf("utilization = %v", u)
	}
	if u := New(0).Utilization(); u != 0 {
		t.Fatalf("zero-capacity utilization = %v", u)
	}
}

func TestRestore(t *testing.T) {
	s := New(50)
	s.Add(grain, 9)
	s.Restore([]Entry{{Resource: food, Amount: 4}, {Resource: grain, Amount: 1}})
	if s.Amount(grain) != 1 || s.Amount(food) != 4 || s.Used() != 5 {
		t.Fatalf("after restore: grain=%d food=%d used=%d", s.Amount(grain), s.Amount(food), s.Used())
	}
}
