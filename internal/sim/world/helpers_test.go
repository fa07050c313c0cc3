package world

import (
	"testing"

	"gridstead/internal/sim/catalogs"
	"gridstead/internal/sim/grid"
	"gridstead/internal/sim/tuning"
)

func testCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	c, err := catalogs.Load("../../../configs", "../../../schemas")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return c
}

// flatTerrain is a fixed-size test oracle: one base kind everywhere, with
// optional per-cell overrides.
type flatTerrain struct {
	w, h     int
	base     catalogs.TerrainID
	override map[grid.Cell]catalogs.TerrainID
}

func (f *flatTerrain) InBounds(c grid.Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < f.w && c.Y < f.h
}

func (f *flatTerrain) TerrainAt(c grid.Cell) catalogs.TerrainID {
	if t, ok := f.override[c]; ok {
		return t
	}
	return f.base
}

func grassWorld(t *testing.T, c *catalogs.Catalogs, w, h int) *flatTerrain {
	t.Helper()
	grass, ok := c.Terrain.Index["GRASS"]
	if !ok {
		t.Fatal("GRASS not in terrain catalog")
	}
	return &flatTerrain{w: w, h: h, base: grass, override: map[grid.Cell]catalogs.TerrainID{}}
}

func defaultStorage() tuning.StorageDefaults {
	return tuning.StorageDefaults{DefaultInputCapacity: 50, DefaultOutputCapacity: 50}
}

// recordSink captures events for assertions.
type recordSink struct {
	placed      []string
	operational []string
	cycles      []CycleReport
	cycleIDs    []string
	demolished  []string
}

func (r *recordSink) StructurePlaced(_ uint64, s *Structure) {
	r.placed = append(r.placed, s.ID)
}

func (r *recordSink) StructureBecameOperational(_ uint64, s *Structure) {
	r.operational = append(r.operational, s.ID)
}

func (r *recordSink) ProductionCycleCompleted(_ uint64, s *Structure, rep CycleReport) {
	r.cycles = append(r.cycles, rep)
	r.cycleIDs = append(r.cycleIDs, s.ID)
}

func (r *recordSink) StructureDemolished(_ uint64, s *Structure) {
	r.demolished = append(r.demolished, s.ID)
}

func mustPlace(t *testing.T, r *Registry, def *catalogs.StructureDef, anchor grid.Cell, rot grid.Rotation) *Structure {
	t.Helper()
	s, res := r.Place(def, anchor, rot, 0)
	if !res.OK {
		t.Fatalf("place %s at %v: rejected %s", def.ID, anchor, res.Reason)
	}
	return s
}
