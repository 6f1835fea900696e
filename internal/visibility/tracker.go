// Package visibility decides which rooms of a finished layout are active and
// which of their lights are on, following the player from room to room.
package visibility

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zyedidia/generic/mapset"

	"github.com/lawnchairsociety/levelforge/internal/geom"
	"github.com/lawnchairsociety/levelforge/internal/grid"
	"github.com/lawnchairsociety/levelforge/internal/level"
	"github.com/lawnchairsociety/levelforge/internal/logger"
)

var (
	ErrUnknownRoom = errors.New("visibility: unknown room")
	ErrNotInRoom   = errors.New("visibility: player is not in that room")
)

// Options selects the culling rules. With everything off every room is
// active and every light is on.
type Options struct {
	Optimization              bool    // only occupied rooms are active
	ShowExtraRooms            bool    // with Optimization, neighbours of occupied rooms stay active too
	LightOptimization         bool    // lights are on only in occupied rooms
	LightDistanceOptimization bool    // lights farther than LightUpDistance from the player are off
	LightUpDistance           float64 // radius for LightDistanceOptimization
}

// Light is one light of a room and whether it is on
type Light struct {
	RoomID   int       `json:"room"`
	Index    int       `json:"index"`
	Position geom.Vec2 `json:"-"`
	On       bool      `json:"on"`
}

// Snapshot is the visible state at one moment
type Snapshot struct {
	Current  int     `json:"current"`
	Occupied []int   `json:"occupied"`
	Active   []int   `json:"active"`
	Lights   []Light `json:"lights"`
}

// Tracker follows the player through a layout. It is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	layout   *level.Layout
	opts     Options
	owners   map[grid.Cell]int
	occupied mapset.Set[int]
	current  int
	position geom.Vec2
}

// NewTracker creates a tracker with the player standing at the layout's
// spawn point.
func NewTracker(l *level.Layout, opts Options) *Tracker {
	t := &Tracker{
		layout:   l,
		opts:     opts,
		owners:   make(map[grid.Cell]int),
		occupied: mapset.New[int](),
		current:  -1,
	}
	for _, r := range l.Rooms {
		for _, c := range r.Cells {
			t.owners[c] = r.ID
		}
	}

	x, _, z := l.SpawnPoint()
	t.position = geom.Vec2{X: x, Z: z}
	if l.Room(l.Spawn.RoomID) != nil {
		t.occupied.Put(l.Spawn.RoomID)
		t.current = l.Spawn.RoomID
	}
	return t
}

// Enter records the player stepping into a room. The player may be in two
// rooms at once while crossing a gate; the last room entered is current.
func (t *Tracker) Enter(roomID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enter(roomID)
}

func (t *Tracker) enter(roomID int) error {
	if t.layout.Room(roomID) == nil {
		return fmt.Errorf("%w: %d", ErrUnknownRoom, roomID)
	}
	t.occupied.Put(roomID)
	t.current = roomID
	logger.Debug("Player entered room", "room", roomID)
	return nil
}

// Exit records the player leaving a room
func (t *Tracker) Exit(roomID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exit(roomID)
}

func (t *Tracker) exit(roomID int) error {
	if !t.occupied.Has(roomID) {
		return fmt.Errorf("%w: %d", ErrNotInRoom, roomID)
	}
	t.occupied.Remove(roomID)
	if t.current == roomID {
		t.current = -1
		if ids := level.SortedIDs(t.occupied); len(ids) > 0 {
			t.current = ids[0]
		}
	}
	logger.Debug("Player left room", "room", roomID)
	return nil
}

// MoveTo updates the player position. When the position lies in a cell of
// another room the player leaves every occupied room and enters that one.
// It reports the current room and whether it changed.
func (t *Tracker) MoveTo(pos geom.Vec2) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.position = pos
	owner, ok := t.owners[grid.CellOf(pos, t.layout.UnitSize)]
	if !ok || (owner == t.current && t.occupied.Size() == 1) {
		return t.current, false
	}

	// Ids come from occupied and owners, so exit and enter cannot fail here.
	for _, id := range level.SortedIDs(t.occupied) {
		_ = t.exit(id)
	}
	_ = t.enter(owner)
	return t.current, true
}

// Current returns the room the player is in, or -1
func (t *Tracker) Current() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Position returns the last known player position
func (t *Tracker) Position() geom.Vec2 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.position
}

// IsActive reports whether a room should be shown
func (t *Tracker) IsActive(roomID int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activeSet().Has(roomID)
}

// ActiveRooms returns the rooms that should be shown, in id order
func (t *Tracker) ActiveRooms() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return level.SortedIDs(t.activeSet())
}

func (t *Tracker) activeSet() mapset.Set[int] {
	active := mapset.New[int]()
	if !t.opts.Optimization {
		for _, r := range t.layout.Rooms {
			active.Put(r.ID)
		}
		return active
	}

	t.occupied.Each(func(id int) {
		active.Put(id)
		if t.opts.ShowExtraRooms && t.layout.Graph != nil {
			for _, n := range t.layout.Graph.Neighbors(id) {
				active.Put(n)
			}
		}
	})
	return active
}

// Lights returns the state of every light in the active rooms
func (t *Tracker) Lights() []Light {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lights(t.activeSet())
}

func (t *Tracker) lights(active mapset.Set[int]) []Light {
	var out []Light
	for _, id := range level.SortedIDs(active) {
		r := t.layout.Room(id)
		roomLit := !t.opts.LightOptimization || t.occupied.Has(id)
		for i, p := range r.Lights {
			on := roomLit
			if on && t.opts.LightDistanceOptimization {
				on = p.Distance(t.position) <= t.opts.LightUpDistance
			}
			out = append(out, Light{RoomID: id, Index: i, Position: p, On: on})
		}
	}
	return out
}

// Snapshot captures the current visible state
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	active := t.activeSet()
	return Snapshot{
		Current:  t.current,
		Occupied: level.SortedIDs(t.occupied),
		Active:   level.SortedIDs(active),
		Lights:   t.lights(active),
	}
}
