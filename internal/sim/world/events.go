package world

import "gridstead/internal/sim/catalogs"

// CycleReport describes one completed production cycle.
type CycleReport struct {
	Consumed []catalogs.ResourceAmount
	Produced []catalogs.ResourceAmount
	// Discarded is output lost to the storage capacity clamp. Reported,
	// never queued for later.
	Discarded []catalogs.ResourceAmount
}

// EventSink receives simulation notifications. Calls are synchronous, on the
// world loop goroutine, and must not mutate core state. A sink that does
// nothing is a valid sink.
type EventSink interface {
	StructurePlaced(tick uint64, s *Structure)
	StructureBecameOperational(tick uint64, s *Structure)
	ProductionCycleCompleted(tick uint64, s *Structure, report CycleReport)
	StructureDemolished(tick uint64, s *Structure)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) StructurePlaced(uint64, *Structure)                       {}
func (NopSink) StructureBecameOperational(uint64, *Structure)            {}
func (NopSink) ProductionCycleCompleted(uint64, *Structure, CycleReport) {}
func (NopSink) StructureDemolished(uint64, *Structure)                   {}
