package world

import (
	"fmt"
	"sort"

	"gridstead/internal/persistence/snapshot"
	"gridstead/internal/sim/grid"
	"gridstead/internal/sim/storage"
)

// ImportSnapshot rebuilds world state from a snapshot. Must be called before
// the loop starts. Import refuses a snapshot taken against a different
// structure catalog, since interned ids would no longer line up.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.StructuresDigest != "" && snap.StructuresDigest != w.catalogs.Structures.Digest {
		return fmt.Errorf("snapshot structure catalog digest mismatch")
	}
	if w.registry.Len() != 0 {
		return fmt.Errorf("import into non-empty world")
	}

	for _, sv := range snap.Structures {
		s, err := w.restoreStructure(sv)
		if err != nil {
			return err
		}
		if err := w.registry.Adopt(s); err != nil {
			return err
		}
	}
	w.registry.SetNextNum(snap.Counters.NextStructure)
	w.tick.Store(snap.Header.Tick)
	return nil
}

func (w *World) restoreStructure(sv snapshot.StructureV1) (*Structure, error) {
	def := w.catalogs.Structures.Lookup(sv.DefID)
	if def == nil {
		return nil, fmt.Errorf("snapshot references unknown structure def %s", sv.DefID)
	}

	var state LifecycleState
	switch sv.State {
	case StateUnderConstruction.String():
		state = StateUnderConstruction
	case StateOperational.String():
		state = StateOperational
	default:
		return nil, fmt.Errorf("snapshot structure %s has unknown state %q", sv.ID, sv.State)
	}

	rot := grid.NormalizeRotation(sv.Rotation)
	anchor := grid.Cell{X: sv.Anchor[0], Y: sv.Anchor[1]}

	s := &Structure{
		ID:                 sv.ID,
		Def:                def,
		Anchor:             anchor,
		Rotation:           rot,
		Cells:              grid.Footprint(anchor, def.Size, rot),
		State:              state,
		Progress:           sv.Progress,
		Input:              storage.New(sv.InputCapacity),
		Output:             storage.New(sv.OutputCapacity),
		CycleCount:         sv.CycleCount,
		LastProductionTick: sv.LastProductionTick,
		CreatedTick:        sv.CreatedTick,
	}
	if err := w.restoreStore(s.Input, sv.Input); err != nil {
		return nil, fmt.Errorf("structure %s input: %w", sv.ID, err)
	}
	if err := w.restoreStore(s.Output, sv.Output); err != nil {
		return nil, fmt.Errorf("structure %s output: %w", sv.ID, err)
	}
	return s, nil
}

func (w *World) restoreStore(st *storage.Store, amounts map[string]int) error {
	if len(amounts) == 0 {
		return nil
	}
	names := make([]string, 0, len(amounts))
	for name := range amounts {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]storage.Entry, 0, len(names))
	for _, name := range names {
		id, ok := w.catalogs.Resources.Index[name]
		if !ok {
			return fmt.Errorf("unknown resource %q", name)
		}
		entries = append(entries, storage.Entry{Resource: id, Amount: amounts[name]})
	}
	st.Restore(entries)
	return nil
}
