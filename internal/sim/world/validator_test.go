package world

import (
	"testing"

	"gridstead/internal/sim/grid"
)

func TestValidate_ChecksRunInFixedOrder(t *testing.T) {
	c := testCatalogs(t)
	terrain := grassWorld(t, c, 32, 32)
	water := c.Terrain.Index["WATER"]

	reg := NewRegistry(terrain, defaultStorage(), nil)
	bakery := c.Structures.Lookup("BAKERY")
	quarry := c.Structures.Lookup("QUARRY")

	// Rotation is checked before anything else, even out of bounds.
	res := reg.Validate(quarry, grid.Cell{X: -100, Y: -100}, grid.Rot90)
	if res.OK || res.Reason != RejectRotationNotAllowed {
		t.Fatalf("got %+v, want rotation rejection", res)
	}

	// Bounds before collision and terrain.
	res = reg.Validate(bakery, grid.Cell{X: 31, Y: 0}, grid.Rot0)
	if res.OK || res.Reason != RejectOutOfBounds {
		t.Fatalf("got %+v, want bounds rejection", res)
	}

	// Collision before terrain: occupy cells, then flood them.
	mustPlace(t, reg, bakery, grid.Cell{X: 4, Y: 4}, grid.Rot0)
	terrain.override[grid.Cell{X: 4, Y: 4}] = water
	res = reg.Validate(bakery, grid.Cell{X: 4, Y: 4}, grid.Rot0)
	if res.OK || res.Reason != RejectCollision {
		t.Fatalf("got %+v, want collision rejection", res)
	}

	// Forbidden terrain.
	terrain.override[grid.Cell{X: 10, Y: 10}] = water
	res = reg.Validate(bakery, grid.Cell{X: 10, Y: 10}, grid.Rot0)
	if res.OK || res.Reason != RejectForbiddenTerrain {
		t.Fatalf("got %+v, want forbidden terrain rejection", res)
	}

	// Allowed terrain: quarry requires ROCK, grass fails.
	res = reg.Validate(quarry, grid.Cell{X: 20, Y: 20}, grid.Rot0)
	if res.OK || res.Reason != RejectTerrainNotAllowed {
		t.Fatalf("got %+v, want allowed-terrain rejection", res)
	}
}

func TestValidate_SuccessReturnsFootprint(t *testing.T) {
	c := testCatalogs(t)
	reg := NewRegistry(grassWorld(t, c, 32, 32), defaultStorage(), nil)
	bakery := c.Structures.Lookup("BAKERY")

	res := reg.Validate(bakery, grid.Cell{X: 5, Y: 5}, grid.Rot0)
	if !res.OK {
		t.Fatalf("rejected: %s", res.Reason)
	}
	if len(res.Cells) != 4 {
		t.Fatalf("footprint %v, want 4 cells", res.Cells)
	}
}

func TestValidate_IsIdempotent(t *testing.T) {
	c := testCatalogs(t)
	reg := NewRegistry(grassWorld(t, c, 32, 32), defaultStorage(), nil)
	bakery := c.Structures.Lookup("BAKERY")

	first := reg.Validate(bakery, grid.Cell{X: 5, Y: 5}, grid.Rot90)
	for i := 0; i < 5; i++ {
		again := reg.Validate(bakery, grid.Cell{X: 5, Y: 5}, grid.Rot90)
		if again.OK != first.OK || again.Reason != first.Reason || len(again.Cells) != len(first.Cells) {
			t.Fatalf("validation not idempotent: %+v vs %+v", first, again)
		}
	}
	if reg.Occupancy().Len() != 0 {
		t.Fatal("validation mutated the occupancy index")
	}
}

func TestValidate_RotationSwapsFootprint(t *testing.T) {
	c := testCatalogs(t)
	// 6 wide, 2 tall: SAWMILL is 3x2, rotated 90 it is 2x3 and no longer fits.
	reg := NewRegistry(grassWorld(t, c, 6, 2), defaultStorage(), nil)
	sawmill := c.Structures.Lookup("SAWMILL")

	if res := reg.Validate(sawmill, grid.Cell{X: 0, Y: 0}, grid.Rot0); !res.OK {
		t.Fatalf("unrotated placement rejected: %s", res.Reason)
	}
	res := reg.Validate(sawmill, grid.Cell{X: 0, Y: 0}, grid.Rot90)
	if res.OK || res.Reason != RejectOutOfBounds {
		t.Fatalf("got %+v, want bounds rejection for rotated footprint", res)
	}
}
