package grid

// Cell addresses one tile on the world grid.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Size is an axis-aligned footprint in cells. W and H must be positive;
// definitions are validated at catalog load, so a non-positive size here is a
// caller bug.
type Size struct {
	W int `json:"w"`
	H int `json:"h"`
}

// Rotation is a clockwise quarter-turn count in [0,3].
type Rotation uint8

const (
	Rot0 Rotation = iota
	Rot90
	Rot180
	Rot270
)

// NormalizeRotation converts a client-provided rotation value into a stable
// quarter-turn count.
//
// We accept either quarter-turns (0..3) or degrees (multiples of 90).
func NormalizeRotation(r int) Rotation {
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	r %= 4
	if r < 0 {
		r += 4
	}
	return Rotation(r)
}

func (r Rotation) Degrees() int { return int(r) * 90 }

// Oriented returns the effective size after rotation: odd quarter-turns swap
// width and height. Only axis-aligned rectangles are supported, so the swap is
// the complete rotation model.
func (s Size) Oriented(r Rotation) Size {
	if r == Rot90 || r == Rot270 {
		return Size{W: s.H, H: s.W}
	}
	return s
}

// Footprint enumerates the absolute cells occupied by a structure anchored at
// anchor with the given size and rotation, x fastest then y. The order is
// deterministic so footprints can feed digests and reservation directly.
func Footprint(anchor Cell, size Size, rot Rotation) []Cell {
	eff := size.Oriented(rot)
	cells := make([]Cell, 0, eff.W*eff.H)
	for dy := 0; dy < eff.H; dy++ {
		for dx := 0; dx < eff.W; dx++ {
			cells = append(cells, Cell{X: anchor.X + dx, Y: anchor.Y + dy})
		}
	}
	return cells
}
