// Package terrain generates the deterministic terrain layer of a world.
// The map is a pure function of the seed, so two worlds started with the
// same seed and catalog agree on every cell without storing the grid.
package terrain

import (
	"fmt"

	"gridstead/internal/sim/catalogs"
	"gridstead/internal/sim/grid"
)

const (
	biomeRegionSize = 24
	waterGrid       = 32
	waterRadius     = 5
	rockGrid        = 28
	rockRadius      = 4
	marshGrid       = 40
	marshRadius     = 3
)

// Map answers terrain queries for one world.
type Map struct {
	seed   int64
	width  int
	height int

	grass catalogs.TerrainID
	dirt  catalogs.TerrainID
	sand  catalogs.TerrainID
	rock  catalogs.TerrainID
	marsh catalogs.TerrainID
	water catalogs.TerrainID
}

// New builds a map for a width x height world. The catalog must define all
// terrain kinds the generator emits; a missing kind is a config error.
func New(seed int64, width, height int, tc *catalogs.TerrainCatalog) (*Map, error) {
	m := &Map{seed: seed, width: width, height: height}
	for _, bind := range []struct {
		name string
		dst  *catalogs.TerrainID
	}{
		{"GRASS", &m.grass},
		{"DIRT", &m.dirt},
		{"SAND", &m.sand},
		{"ROCK", &m.rock},
		{"MARSH", &m.marsh},
		{"WATER", &m.water},
	} {
		id, ok := tc.Index[bind.name]
		if !ok {
			return nil, fmt.Errorf("terrain catalog missing kind %s", bind.name)
		}
		*bind.dst = id
	}
	return m, nil
}

func (m *Map) Width() int  { return m.width }
func (m *Map) Height() int { return m.height }

// InBounds reports whether the cell lies inside the world rectangle.
func (m *Map) InBounds(c grid.Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < m.width && c.Y < m.height
}

// TerrainAt returns the kind at a cell. Callers must bounds-check first;
// out-of-range cells still get a deterministic answer so the function stays
// total.
func (m *Map) TerrainAt(c grid.Cell) catalogs.TerrainID {
	// Feature clusters override the biome base. Water wins over rock so
	// lakes stay contiguous where the two overlap.
	if inCluster(m.seed^0x57a7, c.X, c.Y, waterGrid, waterRadius, 420) {
		return m.water
	}
	if inCluster(m.seed^0x0c4e, c.X, c.Y, rockGrid, rockRadius, 380) {
		return m.rock
	}
	if inCluster(m.seed^0x3a25, c.X, c.Y, marshGrid, marshRadius, 250) {
		return m.marsh
	}
	rx := floorDiv(c.X, biomeRegionSize)
	ry := floorDiv(c.Y, biomeRegionSize)
	switch hash2(m.seed, rx, ry) % 4 {
	case 0, 1:
		return m.grass
	case 2:
		return m.dirt
	default:
		return m.sand
	}
}

func floorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// inCluster reports whether (x, y) falls inside a pseudo-random cluster.
// Each grid-sized region rolls a cluster with probPermille/1000 odds and a
// hashed center offset; the 3x3 neighborhood is scanned so clusters can
// straddle region edges.
func inCluster(seed int64, x, y, gridSize, radius int, probPermille uint64) bool {
	gx := floorDiv(x, gridSize)
	gy := floorDiv(y, gridSize)
	r2 := radius * radius

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgy := gy + dy
			h := hash2(seed, cgx, cgy)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(gridSize))
			oy := int((h >> 20) % uint64(gridSize))
			cx := cgx*gridSize + ox
			cy := cgy*gridSize + oy

			ddx := x - cx
			ddy := y - cy
			if ddx*ddx+ddy*ddy <= r2 {
				return true
			}
		}
	}
	return false
}
