// Package grid maps world footprints onto integer cells and tracks which
// room owns each cell.
package grid

import (
	"fmt"
	"math"
	"sort"

	"github.com/lawnchairsociety/levelforge/internal/geom"
)

// Cell is an integer grid coordinate.
type Cell struct {
	X, Y int
}

// CellOf converts a world position into the cell it falls in, given the
// edge length of one cell.
func CellOf(pos geom.Vec2, unit float64) Cell {
	return Cell{
		X: int(math.Round(pos.X / unit)),
		Y: int(math.Round(pos.Z / unit)),
	}
}

// Step returns the neighbouring cell in direction d
func (c Cell) Step(d geom.Dir) Cell {
	return Cell{X: c.X + d.X, Y: c.Y + d.Y}
}

func (c Cell) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// Occupancy records the owning room of every claimed cell. Cells are never
// released once claimed.
type Occupancy struct {
	owners map[Cell]int
}

// NewOccupancy creates an empty occupancy grid
func NewOccupancy() *Occupancy {
	return &Occupancy{owners: make(map[Cell]int)}
}

// IsFree reports whether none of the cells is owned.
func (o *Occupancy) IsFree(cells []Cell) bool {
	for _, c := range cells {
		if _, ok := o.owners[c]; ok {
			return false
		}
	}
	return true
}

// TryReserve claims every cell for owner. If any cell is already owned, or
// the set names a cell twice, nothing is claimed and false is returned.
func (o *Occupancy) TryReserve(cells []Cell, owner int) bool {
	seen := make(map[Cell]struct{}, len(cells))
	for _, c := range cells {
		if _, dup := seen[c]; dup {
			return false
		}
		seen[c] = struct{}{}
	}
	if !o.IsFree(cells) {
		return false
	}
	for _, c := range cells {
		o.owners[c] = owner
	}
	return true
}

// Has reports whether c is owned
func (o *Occupancy) Has(c Cell) bool {
	_, ok := o.owners[c]
	return ok
}

// Owner returns the room owning c
func (o *Occupancy) Owner(c Cell) (int, bool) {
	id, ok := o.owners[c]
	return id, ok
}

// Len returns the number of claimed cells
func (o *Occupancy) Len() int {
	return len(o.owners)
}

// Cells returns every claimed cell sorted by Y then X.
func (o *Occupancy) Cells() []Cell {
	cells := make([]Cell, 0, len(o.owners))
	for c := range o.owners {
		cells = append(cells, c)
	}
	SortCells(cells)
	return cells
}

// CellsOf returns the cells owned by room id, sorted by Y then X.
func (o *Occupancy) CellsOf(id int) []Cell {
	var cells []Cell
	for c, owner := range o.owners {
		if owner == id {
			cells = append(cells, c)
		}
	}
	SortCells(cells)
	return cells
}

// Bounds returns the inclusive min and max corners of the claimed area.
// ok is false when nothing is claimed.
func (o *Occupancy) Bounds() (min, max Cell, ok bool) {
	first := true
	for c := range o.owners {
		if first {
			min, max = c, c
			first = false
			continue
		}
		if c.X < min.X {
			min.X = c.X
		}
		if c.Y < min.Y {
			min.Y = c.Y
		}
		if c.X > max.X {
			max.X = c.X
		}
		if c.Y > max.Y {
			max.Y = c.Y
		}
	}
	return min, max, !first
}

// SortCells sorts cells by Y then X for deterministic output
func SortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
}
