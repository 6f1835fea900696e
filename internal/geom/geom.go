// Package geom holds the small amount of plane geometry the generator needs:
// world positions on the ground plane, cardinal directions and quarter-turn
// yaw rotation.
package geom

import (
	"fmt"
	"math"
)

// Vec2 is a position on the ground plane. Z grows "north".
type Vec2 struct {
	X float64
	Z float64
}

// Add returns v + o
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Z: v.Z + o.Z}
}

// Sub returns v - o
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Z: v.Z - o.Z}
}

// Scale returns v multiplied by s
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{X: v.X * s, Z: v.Z * s}
}

// Length returns the euclidean length of v
func (v Vec2) Length() float64 {
	return math.Hypot(v.X, v.Z)
}

// Distance returns the euclidean distance between v and o
func (v Vec2) Distance(o Vec2) float64 {
	return v.Sub(o).Length()
}

// RotateYaw rotates v around the origin by deg degrees, clockwise seen from
// above. deg must be a multiple of 90; the result is exact.
func (v Vec2) RotateYaw(deg int) Vec2 {
	switch quarterTurns(deg) {
	case 1:
		return Vec2{X: v.Z, Z: -v.X}
	case 2:
		return Vec2{X: -v.X, Z: -v.Z}
	case 3:
		return Vec2{X: -v.Z, Z: v.X}
	default:
		return v
	}
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%g, %g)", v.X, v.Z)
}

// Dir is a cardinal unit vector on the grid.
type Dir struct {
	X int
	Y int
}

// Cardinal directions. North is +Y, east is +X.
var (
	North = Dir{X: 0, Y: 1}
	East  = Dir{X: 1, Y: 0}
	South = Dir{X: 0, Y: -1}
	West  = Dir{X: -1, Y: 0}
)

// AllDirections returns the four cardinal directions
func AllDirections() []Dir {
	return []Dir{North, East, South, West}
}

// IsZero reports whether d is the zero vector (an unset direction).
func (d Dir) IsZero() bool {
	return d.X == 0 && d.Y == 0
}

// IsCardinal reports whether d is one of the four unit vectors.
func (d Dir) IsCardinal() bool {
	return (d.X == 0) != (d.Y == 0) && d.X*d.X+d.Y*d.Y == 1
}

// Opposite returns the opposite direction
func (d Dir) Opposite() Dir {
	return Dir{X: -d.X, Y: -d.Y}
}

// RotateYaw rotates d by deg degrees clockwise seen from above.
func (d Dir) RotateYaw(deg int) Dir {
	switch quarterTurns(deg) {
	case 1:
		return Dir{X: d.Y, Y: -d.X}
	case 2:
		return Dir{X: -d.X, Y: -d.Y}
	case 3:
		return Dir{X: -d.Y, Y: d.X}
	default:
		return d
	}
}

// Vec returns d as a ground-plane vector of unit length.
func (d Dir) Vec() Vec2 {
	return Vec2{X: float64(d.X), Z: float64(d.Y)}
}

// String returns the compass name of d
func (d Dir) String() string {
	switch d {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return fmt.Sprintf("(%d,%d)", d.X, d.Y)
	}
}

// ParseDir converts a compass name into a direction.
func ParseDir(s string) (Dir, error) {
	switch s {
	case "north", "n":
		return North, nil
	case "east", "e":
		return East, nil
	case "south", "s":
		return South, nil
	case "west", "w":
		return West, nil
	default:
		return Dir{}, fmt.Errorf("geom: unknown direction %q", s)
	}
}

// DirFromVec snaps an axis-aligned vector to its cardinal direction.
// ok is false when v is zero or not axis aligned.
func DirFromVec(v Vec2) (d Dir, ok bool) {
	switch {
	case v.X == 0 && v.Z > 0:
		return North, true
	case v.X == 0 && v.Z < 0:
		return South, true
	case v.Z == 0 && v.X > 0:
		return East, true
	case v.Z == 0 && v.X < 0:
		return West, true
	}
	return Dir{}, false
}

// SignedAngle returns the counter-clockwise angle in degrees from a to b,
// in the range (-180, 180]. Opposite vectors yield 180.
func SignedAngle(a, b Dir) int {
	cross := a.X*b.Y - a.Y*b.X
	dot := a.X*b.X + a.Y*b.Y
	deg := int(math.Round(math.Atan2(float64(cross), float64(dot)) * 180 / math.Pi))
	if deg == -180 {
		deg = 180
	}
	return deg
}

// NormalizeYaw maps deg into [0, 360).
func NormalizeYaw(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

func quarterTurns(deg int) int {
	return NormalizeYaw(deg) / 90
}
