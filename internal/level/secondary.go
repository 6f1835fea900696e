package level

import (
	"github.com/lawnchairsociety/levelforge/internal/logger"
	"github.com/lawnchairsociety/levelforge/internal/room"
)

// secondaryRoom gives each open gate of r a chance to join the room on the
// other side, then seals whatever is still open.
func (g *Generator) secondaryRoom(r *room.Room) {
	unit := g.params.UnitSize

	for _, gate := range r.Gates {
		if !gate.IsUnconnected() {
			continue
		}
		owner, ok := g.occ.Owner(r.CellBeyond(gate, unit))
		if !ok || owner == r.ID {
			continue
		}
		peer := g.rooms[owner]
		facing := openGateNear(peer, gate)
		if facing == nil {
			continue
		}
		if g.seq.Next() > g.params.Interconnectivity {
			continue
		}

		gate.Connect()
		facing.Connect()
		g.peers[gateKey{r.ID, gate.Index}] = peer.ID
		g.peers[gateKey{peer.ID, facing.Index}] = r.ID
		added := g.graph.AddEdge(r.ID, peer.ID, EdgeExtra)

		logger.Debug("Extra connection opened", "room", r.ID, "peer", peer.ID, "new_edge", added)
		g.observer.GateChanged(gateEvent(r, gate, peer.ID, true))
		g.observer.GateChanged(gateEvent(peer, facing, r.ID, true))
	}

	for _, gate := range r.Gates {
		if gate.IsUnconnected() {
			gate.Seal()
			g.observer.GateChanged(gateEvent(r, gate, -1, false))
		}
	}
}

// openGateNear finds an unconnected gate of peer sitting on gate's position.
func openGateNear(peer *room.Room, gate *room.Gate) *room.Gate {
	for _, pg := range peer.Gates {
		if pg.IsUnconnected() && pg.Position.Distance(gate.Position) < GateTolerance {
			return pg
		}
	}
	return nil
}
