package level

import (
	"github.com/lawnchairsociety/levelforge/internal/geom"
	"github.com/lawnchairsociety/levelforge/internal/room"
)

// PlacementEvent tells an instantiation collaborator where a room goes.
type PlacementEvent struct {
	RoomID   int
	ParentID int // room it was placed from; -1 for the start room
	Type     room.Type
	Template string
	Position geom.Vec2
	Yaw      int
	Fallback bool // placed as the fallback connector
}

// GateEvent reports a gate reaching a terminal state. PeerRoomID is -1 for a
// sealed gate.
type GateEvent struct {
	RoomID     int
	GateIndex  int // index in the room template
	Position   geom.Vec2
	Direction  geom.Dir
	State      room.GateState
	PeerRoomID int
	Extra      bool // opened by the secondary pass
}

// Observer receives generation events in the order they happen. Calls are
// made synchronously from Tick.
type Observer interface {
	StateChanged(from, to State)
	RoomPlaced(ev PlacementEvent)
	GateChanged(ev GateEvent)
	GenerationDone(layout *Layout)
}

// NopObserver ignores every event. Embed it to implement only some methods.
type NopObserver struct{}

func (NopObserver) StateChanged(from, to State)   {}
func (NopObserver) RoomPlaced(ev PlacementEvent)  {}
func (NopObserver) GateChanged(ev GateEvent)      {}
func (NopObserver) GenerationDone(layout *Layout) {}

// Observers fans every event out to each observer in order
type Observers []Observer

func (o Observers) StateChanged(from, to State) {
	for _, obs := range o {
		obs.StateChanged(from, to)
	}
}

func (o Observers) RoomPlaced(ev PlacementEvent) {
	for _, obs := range o {
		obs.RoomPlaced(ev)
	}
}

func (o Observers) GateChanged(ev GateEvent) {
	for _, obs := range o {
		obs.GateChanged(ev)
	}
}

func (o Observers) GenerationDone(layout *Layout) {
	for _, obs := range o {
		obs.GenerationDone(layout)
	}
}
