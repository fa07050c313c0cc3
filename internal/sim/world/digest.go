package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"

	"gridstead/internal/sim/storage"
)

// stateDigest hashes the full simulation state in a canonical order. Two
// worlds with the same seed, catalog and command history must agree on every
// digest; determinism tests and the tick log rely on this.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	digestWriteU64(h, &tmp, uint64(w.cfg.Seed))
	h.Write([]byte(w.catalogs.Structures.Digest))

	digestWriteU64(h, &tmp, uint64(w.registry.Len()))
	for _, s := range w.registry.All() {
		h.Write([]byte(s.ID))
		h.Write([]byte(s.Def.ID))
		digestWriteI64(h, &tmp, int64(s.Anchor.X))
		digestWriteI64(h, &tmp, int64(s.Anchor.Y))
		digestWriteU64(h, &tmp, uint64(s.Rotation))
		digestWriteU64(h, &tmp, uint64(s.State))
		digestWriteU64(h, &tmp, math.Float64bits(s.Progress))
		digestWriteU64(h, &tmp, s.CycleCount)
		digestWriteU64(h, &tmp, s.LastProductionTick)
		digestStore(h, &tmp, s.Input.Entries())
		digestStore(h, &tmp, s.Output.Entries())
	}
	digestWriteU64(h, &tmp, w.registry.NextNum())

	return hex.EncodeToString(h.Sum(nil))
}

// digestStore writes a store's sorted entries: count, then (resource,
// amount) pairs. Entries are already sorted by resource id.
func digestStore(h hashWriter, tmp *[8]byte, entries []storage.Entry) {
	digestWriteU64(h, tmp, uint64(len(entries)))
	for _, e := range entries {
		digestWriteU64(h, tmp, uint64(e.Resource))
		digestWriteI64(h, tmp, int64(e.Amount))
	}
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}
