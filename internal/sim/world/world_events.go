package world

import (
	"gridstead/internal/protocol"
	"gridstead/internal/sim/catalogs"
	"gridstead/internal/sim/storage"
)

// World is its own event sink: simulation notifications become protocol
// events broadcast with the tick's state message.

func (w *World) StructurePlaced(tick uint64, s *Structure) {
	w.events = append(w.events, protocol.Event{
		"t":            tick,
		"type":         "STRUCTURE_PLACED",
		"structure_id": s.ID,
		"def_id":       s.Def.ID,
		"anchor":       [2]int{s.Anchor.X, s.Anchor.Y},
		"rotation":     s.Rotation.Degrees(),
	})
}

func (w *World) StructureBecameOperational(tick uint64, s *Structure) {
	w.events = append(w.events, protocol.Event{
		"t":            tick,
		"type":         "STRUCTURE_OPERATIONAL",
		"structure_id": s.ID,
	})
}

func (w *World) ProductionCycleCompleted(tick uint64, s *Structure, report CycleReport) {
	ev := protocol.Event{
		"t":            tick,
		"type":         "PRODUCTION_CYCLE",
		"structure_id": s.ID,
		"cycle_count":  s.CycleCount,
		"consumed":     w.amountsByName(report.Consumed),
		"produced":     w.amountsByName(report.Produced),
	}
	if len(report.Discarded) > 0 {
		ev["discarded"] = w.amountsByName(report.Discarded)
	}
	w.events = append(w.events, ev)
}

func (w *World) StructureDemolished(tick uint64, s *Structure) {
	w.events = append(w.events, protocol.Event{
		"t":            tick,
		"type":         "STRUCTURE_DEMOLISHED",
		"structure_id": s.ID,
	})
}

func (w *World) amountsByName(list []catalogs.ResourceAmount) map[string]int {
	out := make(map[string]int, len(list))
	for _, ra := range list {
		out[w.catalogs.Resources.Name(ra.Resource)] += ra.Amount
	}
	return out
}

func (w *World) resourceCounts(entries []storage.Entry) []protocol.ResourceCount {
	if len(entries) == 0 {
		return nil
	}
	out := make([]protocol.ResourceCount, 0, len(entries))
	for _, e := range entries {
		out = append(out, protocol.ResourceCount{
			Resource: w.catalogs.Resources.Name(e.Resource),
			Count:    e.Amount,
		})
	}
	return out
}
