package world

import (
	"gridstead/internal/persistence/snapshot"
	"gridstead/internal/sim/storage"
)

// ExportSnapshot captures the full resumable state at nowTick. Must be
// called on the loop goroutine; the returned value shares nothing with live
// state.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: 1,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		Seed:                  w.cfg.Seed,
		TickRate:              w.cfg.TickRateHz,
		Width:                 w.cfg.Width,
		Height:                w.cfg.Height,
		DefaultInputCapacity:  w.cfg.Storage.DefaultInputCapacity,
		DefaultOutputCapacity: w.cfg.Storage.DefaultOutputCapacity,
		SnapshotEveryTicks:    w.cfg.SnapshotEveryTicks,
		StructuresDigest:      w.catalogs.Structures.Digest,
		Structures:            make([]snapshot.StructureV1, 0, w.registry.Len()),
		Counters:              snapshot.CountersV1{NextStructure: w.registry.NextNum()},
	}

	for _, s := range w.registry.All() {
		snap.Structures = append(snap.Structures, snapshot.StructureV1{
			ID:                 s.ID,
			DefID:              s.Def.ID,
			Anchor:             [2]int{s.Anchor.X, s.Anchor.Y},
			Rotation:           int(s.Rotation),
			State:              s.State.String(),
			Progress:           s.Progress,
			InputCapacity:      s.Input.Capacity(),
			OutputCapacity:     s.Output.Capacity(),
			Input:              w.exportStore(s.Input),
			Output:             w.exportStore(s.Output),
			CycleCount:         s.CycleCount,
			LastProductionTick: s.LastProductionTick,
			CreatedTick:        s.CreatedTick,
		})
	}
	return snap
}

func (w *World) exportStore(st *storage.Store) map[string]int {
	entries := st.Entries()
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]int, len(entries))
	for _, e := range entries {
		out[w.catalogs.Resources.Name(e.Resource)] = e.Amount
	}
	return out
}
