package server

import (
	"errors"

	"github.com/lawnchairsociety/levelforge/internal/level"
	"github.com/lawnchairsociety/levelforge/internal/visibility"
)

// ErrBadRequest is returned for messages that are not valid requests
var ErrBadRequest = errors.New("server: bad request")

// Request types sent by clients
const (
	RequestGenerate = "generate"
	RequestEnter    = "enter"
	RequestExit     = "exit"
	RequestMove     = "move"
	RequestSnapshot = "snapshot"
	RequestMap      = "map"
	RequestYAML     = "yaml"
	RequestSave     = "save"
)

// Event types sent to clients
const (
	EventState      = "state"
	EventRoom       = "room"
	EventGate       = "gate"
	EventDone       = "done"
	EventFailed     = "failed"
	EventVisibility = "visibility"
	EventMap        = "map"
	EventYAML       = "yaml"
	EventSaved      = "saved"
	EventError      = "error"
)

// maxRequestRooms caps room_amount for generations requested over the wire.
const maxRequestRooms = 500

// Request is one client message. Generation fields left out fall back to
// the server configuration.
type Request struct {
	Type string `json:"type"`

	Seed              *int64   `json:"seed,omitempty"`
	RoomAmount        *int     `json:"room_amount,omitempty"`
	LevelShape        *float64 `json:"level_shape,omitempty"`
	Interconnectivity *float64 `json:"interconnectivity,omitempty"`

	Room    int     `json:"room,omitempty"`
	X       float64 `json:"x,omitempty"`
	Z       float64 `json:"z,omitempty"`
	Details bool    `json:"details,omitempty"`
}

// Event is one server message
type Event struct {
	Type string `json:"type"`

	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	Room       *RoomMessage         `json:"room,omitempty"`
	Gate       *GateMessage         `json:"gate,omitempty"`
	Summary    *Summary             `json:"summary,omitempty"`
	Visibility *visibility.Snapshot `json:"visibility,omitempty"`

	Text     string `json:"text,omitempty"`
	LayoutID int64  `json:"layout_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RoomMessage reports a placed room
type RoomMessage struct {
	ID       int     `json:"id"`
	Parent   int     `json:"parent"`
	Type     string  `json:"type"`
	Template string  `json:"template"`
	X        float64 `json:"x"`
	Z        float64 `json:"z"`
	Yaw      int     `json:"yaw"`
	Fallback bool    `json:"fallback,omitempty"`
}

// GateMessage reports a gate reaching its final state
type GateMessage struct {
	Room      int     `json:"room"`
	Index     int     `json:"index"`
	X         float64 `json:"x"`
	Z         float64 `json:"z"`
	Direction string  `json:"direction"`
	State     string  `json:"state"`
	Peer      int     `json:"peer"`
	Extra     bool    `json:"extra,omitempty"`
}

// Summary describes a finished layout
type Summary struct {
	Fingerprint string `json:"fingerprint"`
	Seed        int64  `json:"seed"`
	Rooms       int    `json:"rooms"`
	Edges       int    `json:"edges"`
	ExtraEdges  int    `json:"extra_edges"`
	Ticks       int    `json:"ticks"`
	RetryWaves  int    `json:"retry_waves"`
	Fallbacks   int    `json:"fallbacks"`
	Draws       int    `json:"draws"`
	Wraps       int    `json:"wraps"`
}

func summarize(l *level.Layout) *Summary {
	sum := &Summary{
		Fingerprint: l.Fingerprint(),
		Seed:        l.Seed,
		Rooms:       len(l.Rooms),
		Ticks:       l.Ticks,
		RetryWaves:  l.RetryWaves,
		Fallbacks:   l.Fallbacks,
		Draws:       l.Draws,
		Wraps:       l.Wraps,
	}
	for _, e := range l.Graph.Edges() {
		sum.Edges++
		if e.Weight == level.EdgeExtra {
			sum.ExtraEdges++
		}
	}
	return sum
}

func errorEvent(err error) *Event {
	return &Event{Type: EventError, Error: err.Error()}
}
