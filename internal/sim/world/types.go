package world

import (
	"gridstead/internal/sim/catalogs"
	"gridstead/internal/sim/grid"
	"gridstead/internal/sim/storage"
)

// LifecycleState is a placed structure's lifecycle phase.
type LifecycleState uint8

const (
	StateUnderConstruction LifecycleState = iota
	StateOperational
)

func (s LifecycleState) String() string {
	switch s {
	case StateUnderConstruction:
		return "UNDER_CONSTRUCTION"
	case StateOperational:
		return "OPERATIONAL"
	default:
		return "UNKNOWN"
	}
}

// Structure is one placed structure instance. Created only by Registry.Place,
// never relocated, mutated only on the world loop goroutine.
type Structure struct {
	ID       string
	Def      *catalogs.StructureDef
	Anchor   grid.Cell
	Rotation grid.Rotation
	Cells    []grid.Cell // reserved footprint, fixed at placement

	State LifecycleState
	// Progress is construction progress in [0,1]. Monotonically
	// non-decreasing; once State reaches Operational it never reverts.
	Progress float64

	Input  *storage.Store
	Output *storage.Store

	CycleCount         uint64
	LastProductionTick uint64
	CreatedTick        uint64
}

// Operational reports whether the structure finished construction.
func (s *Structure) Operational() bool { return s.State == StateOperational }
