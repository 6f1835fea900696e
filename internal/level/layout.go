package level

import (
	"encoding/hex"
	"fmt"
	"sort"

	"golang.org/x/crypto/blake2b"

	"github.com/lawnchairsociety/levelforge/internal/geom"
	"github.com/lawnchairsociety/levelforge/internal/grid"
	"github.com/lawnchairsociety/levelforge/internal/room"
)

// GateRecord is the final state of one gate. Peer is -1 unless connected.
type GateRecord struct {
	Index     int
	Position  geom.Vec2
	Direction geom.Dir
	State     room.GateState
	Peer      int
}

// RoomRecord is one placed room of a finished layout. Gates are ordered by
// template index.
type RoomRecord struct {
	ID       int
	Type     room.Type
	Template string
	Position geom.Vec2
	Yaw      int
	Cells    []grid.Cell
	Gates    []GateRecord
	Lights   []geom.Vec2
}

// Layout is the result of a finished generation
type Layout struct {
	Seed              int64
	LevelShape        float64
	Interconnectivity float64
	UnitSize          float64
	Rooms             []RoomRecord
	Graph             *Graph
	StartRoomID       int
	Spawn             Spawn

	// Run statistics, not part of the fingerprint
	Ticks      int
	RetryWaves int
	Fallbacks  int
	Draws      int
	Wraps      int
}

func (g *Generator) buildLayout() *Layout {
	l := &Layout{
		Seed:              g.params.Seed,
		LevelShape:        g.params.LevelShape,
		Interconnectivity: g.params.Interconnectivity,
		UnitSize:          g.params.UnitSize,
		Graph:             g.graph,
		StartRoomID:       0,
		Spawn:             g.params.Spawn,
		Ticks:             g.ticks,
		RetryWaves:        g.retryWaves,
		Fallbacks:         g.fallbacks,
		Draws:             g.seq.Draws(),
		Wraps:             g.seq.Wraps(),
	}

	for _, r := range g.rooms {
		rec := RoomRecord{
			ID:       r.ID,
			Type:     r.Type(),
			Template: r.Template.Name,
			Position: r.Position,
			Yaw:      r.Yaw,
			Cells:    r.Footprint(g.params.UnitSize),
			Lights:   append([]geom.Vec2(nil), r.Lights...),
		}
		for _, gate := range r.Gates {
			peer, ok := g.peers[gateKey{r.ID, gate.Index}]
			if !ok {
				peer = -1
			}
			rec.Gates = append(rec.Gates, GateRecord{
				Index:     gate.Index,
				Position:  gate.Position,
				Direction: gate.Direction,
				State:     gate.State(),
				Peer:      peer,
			})
		}
		sort.Slice(rec.Gates, func(i, j int) bool {
			return rec.Gates[i].Index < rec.Gates[j].Index
		})
		l.Rooms = append(l.Rooms, rec)
	}

	return l
}

// Room returns the record for id, or nil
func (l *Layout) Room(id int) *RoomRecord {
	if id < 0 || id >= len(l.Rooms) {
		return nil
	}
	return &l.Rooms[id]
}

// SpawnPoint returns the player start in world coordinates. The spawn offset
// is relative to the spawn room's position; Y is the height.
func (l *Layout) SpawnPoint() (x, y, z float64) {
	r := l.Room(l.Spawn.RoomID)
	if r == nil {
		return l.Spawn.X, l.Spawn.Y, l.Spawn.Z
	}
	return r.Position.X + l.Spawn.X, l.Spawn.Y, r.Position.Z + l.Spawn.Z
}

// CountType returns how many rooms have type t
func (l *Layout) CountType(t room.Type) int {
	n := 0
	for _, r := range l.Rooms {
		if r.Type == t {
			n++
		}
	}
	return n
}

// Fingerprint is a digest of everything that makes a layout what it is:
// rooms, their placement, gate states and edges. Two runs with the same
// seed, catalog and parameters share a fingerprint.
func (l *Layout) Fingerprint() string {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only returned for keys longer than 64 bytes.
		panic(err)
	}

	fmt.Fprintf(h, "unit=%g start=%d\n", l.UnitSize, l.StartRoomID)
	for _, r := range l.Rooms {
		fmt.Fprintf(h, "room %d %s %s %g %g %d\n", r.ID, r.Type, r.Template, r.Position.X, r.Position.Z, r.Yaw)
		for _, c := range r.Cells {
			fmt.Fprintf(h, " cell %d %d\n", c.X, c.Y)
		}
		for _, gr := range r.Gates {
			fmt.Fprintf(h, " gate %d %s %d\n", gr.Index, gr.State, gr.Peer)
		}
	}
	if l.Graph != nil {
		for _, e := range l.Graph.Edges() {
			fmt.Fprintf(h, "edge %d %d %d\n", e.A, e.B, e.Weight)
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

// GraphFromEdges rebuilds a graph of n rooms from an edge list
func GraphFromEdges(n int, edges []Edge) *Graph {
	g := NewGraph(n)
	for _, e := range edges {
		g.AddEdge(e.A, e.B, e.Weight)
	}
	return g
}
