package grid

import "fmt"

// OccupancyIndex is the authoritative cell -> structure id map used for
// collision. Entries are added only by a committed placement and removed only
// on demolition. Not safe for concurrent use; the world loop owns it.
type OccupancyIndex struct {
	cells map[Cell]string
}

func NewOccupancyIndex() *OccupancyIndex {
	return &OccupancyIndex{cells: map[Cell]string{}}
}

// IsFree reports whether none of the cells are reserved.
func (ix *OccupancyIndex) IsFree(cells []Cell) bool {
	for _, c := range cells {
		if _, ok := ix.cells[c]; ok {
			return false
		}
	}
	return true
}

// Reserve inserts all cells for id as a single step. If any cell is already
// reserved, nothing is inserted and an error is returned; a partial
// reservation is never observable.
func (ix *OccupancyIndex) Reserve(cells []Cell, id string) error {
	for _, c := range cells {
		if owner, ok := ix.cells[c]; ok {
			return fmt.Errorf("cell (%d,%d) already reserved by %s", c.X, c.Y, owner)
		}
	}
	for _, c := range cells {
		ix.cells[c] = id
	}
	return nil
}

// Release removes the cells from the index. Cells not present are ignored.
func (ix *OccupancyIndex) Release(cells []Cell) {
	for _, c := range cells {
		delete(ix.cells, c)
	}
}

// OwnerAt returns the structure id reserving c, if any.
func (ix *OccupancyIndex) OwnerAt(c Cell) (string, bool) {
	id, ok := ix.cells[c]
	return id, ok
}

func (ix *OccupancyIndex) Len() int { return len(ix.cells) }
