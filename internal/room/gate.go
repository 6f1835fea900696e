package room

import (
	"fmt"

	"github.com/lawnchairsociety/levelforge/internal/geom"
)

// GateState is the connection state of a gate. Transitions only go from
// Unconnected to Connected or Sealed.
type GateState int

const (
	Unconnected GateState = iota
	Connected
	Sealed
)

// String returns the string representation of a GateState
func (s GateState) String() string {
	switch s {
	case Unconnected:
		return "unconnected"
	case Connected:
		return "connected"
	case Sealed:
		return "sealed"
	default:
		return "unknown"
	}
}

// ParseGateState converts a string to a GateState
func ParseGateState(s string) (GateState, error) {
	switch s {
	case "unconnected":
		return Unconnected, nil
	case "connected":
		return Connected, nil
	case "sealed":
		return Sealed, nil
	default:
		return Unconnected, fmt.Errorf("room: unknown gate state %q", s)
	}
}

// Gate is a connector on a placed room's boundary, in world coordinates.
type Gate struct {
	// Index is the gate's position in the template's gate list.
	Index             int
	Position          geom.Vec2
	Direction         geom.Dir
	MustAlwaysConnect bool

	state GateState
}

// State returns the current connection state
func (g *Gate) State() GateState {
	return g.state
}

// IsUnconnected reports whether the gate is still open for a connection
func (g *Gate) IsUnconnected() bool {
	return g.state == Unconnected
}

// Connect marks the gate as connected. Connecting a gate twice or
// connecting a sealed gate is a programming error.
func (g *Gate) Connect() {
	if g.state != Unconnected {
		panic(fmt.Sprintf("room: connect on %s gate %d", g.state, g.Index))
	}
	g.state = Connected
}

// Seal walls the gate off for good.
func (g *Gate) Seal() {
	if g.state != Unconnected {
		panic(fmt.Sprintf("room: seal on %s gate %d", g.state, g.Index))
	}
	g.state = Sealed
}

// Restore sets the state directly. It is meant for rebuilding a saved
// layout, never for generation.
func (g *Gate) Restore(s GateState) {
	g.state = s
}
