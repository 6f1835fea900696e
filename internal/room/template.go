// Package room describes placeable rooms: the authored templates, their
// gates, and the mechanics of rotating and aligning an instance against a
// gate on the occupancy grid.
package room

import (
	"errors"
	"fmt"
	"math"

	"github.com/lawnchairsociety/levelforge/internal/geom"
	"github.com/lawnchairsociety/levelforge/internal/grid"
)

var (
	ErrNoAnchors       = errors.New("room: template has no anchor points")
	ErrNoGates         = errors.New("room: template has no gates")
	ErrDuplicateAnchor = errors.New("room: two anchors share a grid cell")
	ErrGateMisplaced   = errors.New("room: gate is not on the edge of an anchor cell")
	ErrGateDirection   = errors.New("room: gate direction does not match its position")
)

// GateSpec is a gate as authored, in room-local coordinates.
type GateSpec struct {
	Position          geom.Vec2
	Direction         geom.Dir
	MustAlwaysConnect bool
}

// Template is the authored definition of a room. Coordinates are local to
// the room origin; the room is rotated about that origin when placed.
type Template struct {
	Name    string
	Type    Type
	Anchors []geom.Vec2
	Gates   []GateSpec
	Lights  []geom.Vec2
}

// Validate checks the template against a cell size. Every gate must sit half
// a cell from exactly one anchor along an axis, and a declared direction must
// point away from that anchor. Gates with no declared direction get the
// derived one.
func (t *Template) Validate(unit float64) error {
	if len(t.Anchors) == 0 {
		return fmt.Errorf("%s: %w", t.Name, ErrNoAnchors)
	}
	if len(t.Gates) == 0 {
		return fmt.Errorf("%s: %w", t.Name, ErrNoGates)
	}

	seen := make(map[grid.Cell]bool, len(t.Anchors))
	for _, a := range t.Anchors {
		c := grid.CellOf(a, unit)
		if seen[c] {
			return fmt.Errorf("%s: anchor %v: %w", t.Name, a, ErrDuplicateAnchor)
		}
		seen[c] = true
	}

	for i := range t.Gates {
		dir, err := t.gateDirection(i, unit)
		if err != nil {
			return fmt.Errorf("%s: gate %d: %w", t.Name, i, err)
		}
		spec := &t.Gates[i]
		if spec.Direction.IsZero() {
			spec.Direction = dir
		} else if spec.Direction != dir {
			return fmt.Errorf("%s: gate %d declared %v, position implies %v: %w",
				t.Name, i, spec.Direction, dir, ErrGateDirection)
		}
	}

	return nil
}

// gateDirection derives the facing of gate i from the anchor it borders.
func (t *Template) gateDirection(i int, unit float64) (geom.Dir, error) {
	const eps = 1e-6
	half := unit / 2
	gate := t.Gates[i].Position

	var found []geom.Dir
	for _, a := range t.Anchors {
		offset := gate.Sub(a)
		dist := offset.Length()
		if dist >= 1.1*half {
			continue
		}
		if math.Abs(dist-half) > eps {
			return geom.Dir{}, ErrGateMisplaced
		}
		dir, ok := geom.DirFromVec(offset)
		if !ok {
			return geom.Dir{}, ErrGateMisplaced
		}
		found = append(found, dir)
	}

	if len(found) != 1 {
		// No bordering anchor, or a gate wedged between two of its own anchors.
		return geom.Dir{}, ErrGateMisplaced
	}
	return found[0], nil
}

// MultiAnchor reports whether the room spans more than one cell
func (t *Template) MultiAnchor() bool {
	return len(t.Anchors) > 1
}
