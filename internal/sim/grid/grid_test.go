package grid

import "testing"

func TestFootprint_CellCountAndBounds(t *testing.T) {
	sizes := []Size{{W: 1, H: 1}, {W: 2, H: 2}, {W: 3, H: 1}, {W: 2, H: 5}}
	rots := []Rotation{Rot0, Rot90, Rot180, Rot270}
	anchor := Cell{X: -3, Y: 7}

	for _, size := range sizes {
		for _, rot := range rots {
			cells := Footprint(anchor, size, rot)
			if len(cells) != size.W*size.H {
				t.Fatalf("size %+v rot %d: got %d cells, want %d", size, rot, len(cells), size.W*size.H)
			}
			eff := size.Oriented(rot)
			seen := map[Cell]bool{}
			for _, c := range cells {
				if c.X < anchor.X || c.X >= anchor.X+eff.W || c.Y < anchor.Y || c.Y >= anchor.Y+eff.H {
					t.Fatalf("size %+v rot %d: cell %+v outside [anchor, anchor+effective)", size, rot, c)
				}
				if seen[c] {
					t.Fatalf("size %+v rot %d: duplicate cell %+v", size, rot, c)
				}
				seen[c] = true
			}
		}
	}
}

func TestFootprint_2x2At5x5(t *testing.T) {
	cells := Footprint(Cell{X: 5, Y: 5}, Size{W: 2, H: 2}, Rot0)
	want := []Cell{{5, 5}, {6, 5}, {5, 6}, {6, 6}}
	if len(cells) != len(want) {
		t.Fatalf("got %d cells, want %d", len(cells), len(want))
	}
	for i, c := range want {
		if cells[i] != c {
			t.Fatalf("cell %d: got %+v, want %+v", i, cells[i], c)
		}
	}
}

func TestFootprint_RotationSwapsAxes(t *testing.T) {
	cells := Footprint(Cell{}, Size{W: 3, H: 1}, Rot90)
	for _, c := range cells {
		if c.X != 0 {
			t.Fatalf("90 degree footprint of 3x1 should be a column, got %+v", c)
		}
	}
	if len(cells) != 3 {
		t.Fatalf("got %d cells, want 3", len(cells))
	}
}

func TestNormalizeRotation(t *testing.T) {
	cases := []struct {
		in   int
		want Rotation
	}{
		{0, Rot0}, {1, Rot90}, {3, Rot270},
		{90, Rot90}, {180, Rot180}, {270, Rot270}, {360, Rot0},
		{-90, Rot270}, {-1, Rot270}, {450, Rot90},
	}
	for _, c := range cases {
		if got := NormalizeRotation(c.in); got != c.want {
			t.Fatalf("NormalizeRotation(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}
