package room

import (
	"fmt"

	"github.com/lawnchairsociety/levelforge/internal/geom"
	"github.com/lawnchairsociety/levelforge/internal/grid"
)

// Unassigned is the id of a candidate room that has not been placed yet
const Unassigned = -1

// IntSource supplies integers in [min, maxExclusive).
type IntSource interface {
	Int(min, maxExclusive int) int
}

// Room is an instance of a template positioned in the world.
type Room struct {
	ID       int
	Template *Template
	Position geom.Vec2
	// Yaw is the clockwise rotation in degrees, always in [0, 360).
	Yaw int
	// FirstSpawn stays true until the room places its first neighbour; while
	// set, the room's gate attempts are forced.
	FirstSpawn bool

	Anchors []geom.Vec2
	Lights  []geom.Vec2
	Gates   []*Gate
}

// Instantiate creates an unplaced room at the origin with no rotation.
func Instantiate(t *Template) *Room {
	r := &Room{
		ID:         Unassigned,
		Template:   t,
		FirstSpawn: true,
		Anchors:    make([]geom.Vec2, len(t.Anchors)),
		Lights:     make([]geom.Vec2, len(t.Lights)),
		Gates:      make([]*Gate, len(t.Gates)),
	}
	for i, spec := range t.Gates {
		r.Gates[i] = &Gate{Index: i, MustAlwaysConnect: spec.MustAlwaysConnect}
	}
	r.refresh()
	return r
}

// Type returns the template's room type
func (r *Room) Type() Type {
	return r.Template.Type
}

// Rotate turns the room about its own position by deg degrees clockwise.
func (r *Room) Rotate(deg int) {
	r.Yaw = geom.NormalizeYaw(r.Yaw + deg)
	r.refresh()
}

// MoveTo places the room origin at pos
func (r *Room) MoveTo(pos geom.Vec2) {
	r.Position = pos
	r.refresh()
}

// AlignGate translates the room so that gate i sits exactly at target.
func (r *Room) AlignGate(i int, target geom.Vec2) {
	g := r.Gate(i)
	r.MoveTo(r.Position.Add(target.Sub(g.Position)))
}

// refresh recomputes world coordinates from the template, position and yaw.
// Gate order may have been shuffled, so gates are matched by Index.
func (r *Room) refresh() {
	for i, a := range r.Template.Anchors {
		r.Anchors[i] = r.Position.Add(a.RotateYaw(r.Yaw))
	}
	for i, l := range r.Template.Lights {
		r.Lights[i] = r.Position.Add(l.RotateYaw(r.Yaw))
	}
	for _, g := range r.Gates {
		spec := r.Template.Gates[g.Index]
		g.Position = r.Position.Add(spec.Position.RotateYaw(r.Yaw))
		g.Direction = spec.Direction.RotateYaw(r.Yaw)
	}
}

// Gate returns the gate at position i of the room's current gate order.
// An out of range index is a caller bug.
func (r *Room) Gate(i int) *Gate {
	if i < 0 || i >= len(r.Gates) {
		panic(fmt.Sprintf("room: gate index %d out of range for room %d with %d gates", i, r.ID, len(r.Gates)))
	}
	return r.Gates[i]
}

// Footprint returns the cells covered by the room's anchors.
func (r *Room) Footprint(unit float64) []grid.Cell {
	cells := make([]grid.Cell, len(r.Anchors))
	for i, a := range r.Anchors {
		cells[i] = grid.CellOf(a, unit)
	}
	return cells
}

// Fits is the pre-check run before claiming. A single-anchor room only
// probes the cell of its own position; a multi-anchor room needs every
// anchor cell free.
func (r *Room) Fits(occ *grid.Occupancy, unit float64) bool {
	if !r.Template.MultiAnchor() {
		return !occ.Has(grid.CellOf(r.Position, unit))
	}
	return occ.IsFree(r.Footprint(unit))
}

// Claim reserves the room's footprint under its id.
func (r *Room) Claim(occ *grid.Occupancy, unit float64) bool {
	return occ.TryReserve(r.Footprint(unit), r.ID)
}

// Shuffle reorders the gates by swapping each position with a random one.
func (r *Room) Shuffle(src IntSource) {
	n := len(r.Gates)
	for i := 0; i < n; i++ {
		j := src.Int(0, n)
		r.Gates[i], r.Gates[j] = r.Gates[j], r.Gates[i]
	}
}

// CellBeyond returns the grid cell on the far side of gate g.
func (r *Room) CellBeyond(g *Gate, unit float64) grid.Cell {
	return grid.CellOf(g.Position.Add(g.Direction.Vec().Scale(unit/2)), unit)
}

// FindGateNear returns the first gate closer than tolerance to pos.
func (r *Room) FindGateNear(pos geom.Vec2, tolerance float64) *Gate {
	for _, g := range r.Gates {
		if g.Position.Distance(pos) < tolerance {
			return g
		}
	}
	return nil
}

// UnconnectedGates returns the positions, in current order, of gates that
// are still unconnected.
func (r *Room) UnconnectedGates() []int {
	var idx []int
	for i, g := range r.Gates {
		if g.IsUnconnected() {
			idx = append(idx, i)
		}
	}
	return idx
}
