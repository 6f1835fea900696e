package visibility

import (
	"errors"
	"reflect"
	"testing"

	"github.com/lawnchairsociety/levelforge/internal/geom"
	"github.com/lawnchairsociety/levelforge/internal/grid"
	"github.com/lawnchairsociety/levelforge/internal/level"
	"github.com/lawnchairsociety/levelforge/internal/room"
)

// corridor is three rooms in a row going north: 0 - 1 - 2.
func corridor() *level.Layout {
	rooms := []level.RoomRecord{
		{ID: 0, Type: room.TypeStart, Cells: []grid.Cell{{X: 0, Y: 0}},
			Lights: []geom.Vec2{{X: 0, Z: 0}, {X: 0, Z: 8}}},
		{ID: 1, Type: room.TypeEmpty, Position: geom.Vec2{Z: 20}, Cells: []grid.Cell{{X: 0, Y: 1}},
			Lights: []geom.Vec2{{X: 0, Z: 20}}},
		{ID: 2, Type: room.TypeBoss, Position: geom.Vec2{Z: 40}, Cells: []grid.Cell{{X: 0, Y: 2}},
			Lights: []geom.Vec2{{X: 0, Z: 40}}},
	}
	return &level.Layout{
		UnitSize: 20,
		Rooms:    rooms,
		Graph: level.GraphFromEdges(3, []level.Edge{
			{A: 0, B: 1, Weight: level.EdgePrimary},
			{A: 1, B: 2, Weight: level.EdgePrimary},
		}),
	}
}

func litCount(lights []Light) int {
	n := 0
	for _, l := range lights {
		if l.On {
			n++
		}
	}
	return n
}

func TestActiveRooms(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want []int
	}{
		{"no optimization", Options{}, []int{0, 1, 2}},
		{"optimization", Options{Optimization: true}, []int{0}},
		{"show extra rooms", Options{Optimization: true, ShowExtraRooms: true}, []int{0, 1}},
		{"extra rooms need optimization", Options{ShowExtraRooms: true}, []int{0, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(corridor(), tt.opts)
			if got := tr.ActiveRooms(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ActiveRooms() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnterAndExit(t *testing.T) {
	tr := NewTracker(corridor(), Options{Optimization: true, ShowExtraRooms: true})

	if tr.Current() != 0 {
		t.Fatalf("Current() = %d, want spawn room 0", tr.Current())
	}

	// Crossing the gate between 0 and 1.
	if err := tr.Enter(1); err != nil {
		t.Fatal(err)
	}
	snap := tr.Snapshot()
	if snap.Current != 1 || !reflect.DeepEqual(snap.Occupied, []int{0, 1}) {
		t.Errorf("while crossing: %+v", snap)
	}

	if err := tr.Exit(0); err != nil {
		t.Fatal(err)
	}
	if got := tr.ActiveRooms(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("ActiveRooms() = %v, want [0 1 2]", got)
	}
	if tr.IsActive(2) != true || tr.Current() != 1 {
		t.Errorf("room 2 should be active next to current room 1")
	}

	if err := tr.Exit(1); err != nil {
		t.Fatal(err)
	}
	if tr.Current() != -1 || len(tr.ActiveRooms()) != 0 {
		t.Errorf("after leaving every room: current %d active %v", tr.Current(), tr.ActiveRooms())
	}

	if err := tr.Exit(1); !errors.Is(err, ErrNotInRoom) {
		t.Errorf("Exit() twice = %v, want ErrNotInRoom", err)
	}
	if err := tr.Enter(9); !errors.Is(err, ErrUnknownRoom) {
		t.Errorf("Enter(9) = %v, want ErrUnknownRoom", err)
	}
}

func TestExitCurrentFallsBackToOtherOccupied(t *testing.T) {
	tr := NewTracker(corridor(), Options{})
	tr.Enter(2)
	if err := tr.Exit(2); err != nil {
		t.Fatal(err)
	}
	if tr.Current() != 0 {
		t.Errorf("Current() = %d, want 0", tr.Current())
	}
}

func TestLights(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want int
	}{
		{"all on", Options{}, 4},
		{"only occupied room", Options{LightOptimization: true}, 2},
		{"distance", Options{LightDistanceOptimization: true, LightUpDistance: 10}, 2},
		{"occupied and close", Options{LightOptimization: true, LightDistanceOptimization: true, LightUpDistance: 5}, 1},
		{"inactive rooms report nothing", Options{Optimization: true}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(corridor(), tt.opts)
			if got := litCount(tr.Lights()); got != tt.want {
				t.Errorf("lit = %d, want %d (%+v)", got, tt.want, tr.Lights())
			}
		})
	}
}

func TestMoveTo(t *testing.T) {
	tr := NewTracker(corridor(), Options{Optimization: true, LightOptimization: true})

	id, changed := tr.MoveTo(geom.Vec2{X: 2, Z: 41})
	if id != 2 || !changed {
		t.Fatalf("MoveTo() = %d, %v; want 2, true", id, changed)
	}
	if got := tr.ActiveRooms(); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("ActiveRooms() = %v, want [2]", got)
	}
	if lights := tr.Lights(); len(lights) != 1 || !lights[0].On {
		t.Errorf("Lights() = %+v", lights)
	}

	if _, changed := tr.MoveTo(geom.Vec2{X: -3, Z: 38}); changed {
		t.Error("moving inside the same room should not change rooms")
	}
	if id, changed := tr.MoveTo(geom.Vec2{X: 200, Z: 200}); id != 2 || changed {
		t.Errorf("moving off the map = %d, %v", id, changed)
	}
	if tr.Position() != (geom.Vec2{X: 200, Z: 200}) {
		t.Errorf("Position() = %v", tr.Position())
	}
}
