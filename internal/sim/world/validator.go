package world

import (
	"gridstead/internal/sim/catalogs"
	"gridstead/internal/sim/grid"
)

// TerrainOracle answers terrain queries. Supplied by the terrain generator;
// the core never computes terrain itself.
type TerrainOracle interface {
	TerrainAt(c grid.Cell) catalogs.TerrainID
	InBounds(c grid.Cell) bool
}

// RejectReason classifies a failed placement check. Rejections are expected
// results, not errors.
type RejectReason string

const (
	RejectRotationNotAllowed RejectReason = "ROTATION_NOT_ALLOWED"
	RejectOutOfBounds        RejectReason = "OUT_OF_BOUNDS"
	RejectCollision          RejectReason = "COLLISION"
	RejectForbiddenTerrain   RejectReason = "FORBIDDEN_TERRAIN"
	RejectTerrainNotAllowed  RejectReason = "TERRAIN_NOT_ALLOWED"
)

// PlacementResult is the outcome of one validation. On success Cells holds
// the footprint the placement would reserve.
type PlacementResult struct {
	OK     bool
	Reason RejectReason
	Cells  []grid.Cell
}

// Validator checks placements against bounds, occupancy and terrain rules.
// Validate never mutates anything; repeated calls with unchanged state
// return the same result.
type Validator struct {
	Terrain   TerrainOracle
	Occupancy *grid.OccupancyIndex
}

// Validate runs the checks in a fixed order: rotation, bounds, collision,
// forbidden terrain, allowed terrain. The first failing check wins.
func (v *Validator) Validate(def *catalogs.StructureDef, anchor grid.Cell, rot grid.Rotation) PlacementResult {
	if !def.Rotatable && rot != grid.Rot0 {
		return PlacementResult{Reason: RejectRotationNotAllowed}
	}

	cells := grid.Footprint(anchor, def.Size, rot)
	for _, c := range cells {
		if !v.Terrain.InBounds(c) {
			return PlacementResult{Reason: RejectOutOfBounds}
		}
	}
	if !v.Occupancy.IsFree(cells) {
		return PlacementResult{Reason: RejectCollision}
	}
	for _, c := range cells {
		t := v.Terrain.TerrainAt(c)
		if def.ForbiddenTerrain.Has(t) {
			return PlacementResult{Reason: RejectForbiddenTerrain}
		}
	}
	if !def.AllowedTerrain.Empty() {
		for _, c := range cells {
			if !def.AllowedTerrain.Has(v.Terrain.TerrainAt(c)) {
				return PlacementResult{Reason: RejectTerrainNotAllowed}
			}
		}
	}
	return PlacementResult{OK: true, Cells: cells}
}
