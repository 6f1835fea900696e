package level

import (
	"github.com/lawnchairsociety/levelforge/internal/geom"
	"github.com/lawnchairsociety/levelforge/internal/logger"
	"github.com/lawnchairsociety/levelforge/internal/room"
)

// Outcome is the result of one placement attempt
type Outcome int

const (
	Placed Outcome = iota
	Conflict
	Abandoned // the fallback connector did not fit either
)

// String returns the string representation of an Outcome
func (o Outcome) String() string {
	switch o {
	case Placed:
		return "placed"
	case Conflict:
		return "conflict"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// PlacementResult tags the outcome of attemptPlacement. Room is set only
// when the outcome is Placed.
type PlacementResult struct {
	Outcome  Outcome
	Room     *room.Room
	Fallback bool
}

// trySpawn decides whether the queued gate gets a neighbour and, if so,
// attempts one placement through it.
func (g *Generator) trySpawn(item QueueItem) {
	src := g.rooms[item.RoomID]
	gate := src.Gate(item.GateIndex)
	if !gate.IsUnconnected() {
		return
	}

	forced := gate.MustAlwaysConnect || src.FirstSpawn
	if !forced && g.seq.Next() > g.levelShape {
		return
	}

	tpl := g.pool[g.seq.Int(0, len(g.pool))]
	res := g.attemptPlacement(src, gate, tpl, forced)

	switch res.Outcome {
	case Placed:
		logger.Debug("Room placed",
			"room", res.Room.ID,
			"template", res.Room.Template.Name,
			"from", src.ID,
			"gate", gate.Index,
			"yaw", res.Room.Yaw,
			"fallback", res.Fallback)
	default:
		logger.Debug("Placement failed",
			"from", src.ID,
			"gate", gate.Index,
			"template", tpl.Name,
			"outcome", res.Outcome.String())
	}
}

// attemptPlacement instantiates tpl, turns it so a random entrance faces the
// source gate, and claims its cells. When the candidate does not fit and
// allowFallback is set, the fallback connector is tried once in its place.
func (g *Generator) attemptPlacement(src *room.Room, gate *room.Gate, tpl *room.Template, allowFallback bool) PlacementResult {
	unit := g.params.UnitSize
	usedFallback := false

	for {
		cand := room.Instantiate(tpl)
		entrance := cand.Gate(g.seq.Int(0, len(cand.Gates)))

		cand.Rotate(geom.SignedAngle(gate.Direction.Opposite(), entrance.Direction))
		cand.AlignGate(entrance.Index, gate.Position)
		cand.ID = g.nextID

		if cand.Fits(g.occ, unit) && cand.Claim(g.occ, unit) {
			g.commit(src, gate, cand, entrance, usedFallback)
			return PlacementResult{Outcome: Placed, Room: cand, Fallback: usedFallback}
		}

		if !allowFallback {
			if usedFallback {
				return PlacementResult{Outcome: Abandoned, Fallback: true}
			}
			return PlacementResult{Outcome: Conflict}
		}
		tpl = g.catalog.Fallback
		allowFallback = false
		usedFallback = true
	}
}

// commit records a candidate whose cells are already claimed.
func (g *Generator) commit(src *room.Room, gate *room.Gate, cand *room.Room, entrance *room.Gate, fallback bool) {
	g.nextID++
	g.rooms = append(g.rooms, cand)
	if fallback {
		g.fallbacks++
	}

	gate.Connect()
	entrance.Connect()
	g.peers[gateKey{src.ID, gate.Index}] = cand.ID
	g.peers[gateKey{cand.ID, entrance.Index}] = src.ID
	g.graph.AddEdge(src.ID, cand.ID, EdgePrimary)
	src.FirstSpawn = false

	g.observer.RoomPlaced(PlacementEvent{
		RoomID:   cand.ID,
		ParentID: src.ID,
		Type:     cand.Type(),
		Template: cand.Template.Name,
		Position: cand.Position,
		Yaw:      cand.Yaw,
		Fallback: fallback,
	})
	g.observer.GateChanged(gateEvent(src, gate, cand.ID, false))
	g.observer.GateChanged(gateEvent(cand, entrance, src.ID, false))

	g.prepare(cand)
}
