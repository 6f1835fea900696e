// Package level generates a connected layout of rooms joined through gates.
//
// Generation is tick driven: each call to Tick does at most one placement
// attempt (or one room of the secondary pass), so an embedding loop can
// interleave it with other per-frame work. All state belongs to a single
// Generator and every draw comes from one rng.Sequence in a fixed order, so
// a seed reproduces the same level for the same catalog and parameters.
package level

import (
	"context"
	"errors"
	"fmt"

	"github.com/lawnchairsociety/levelforge/internal/grid"
	"github.com/lawnchairsociety/levelforge/internal/logger"
	"github.com/lawnchairsociety/levelforge/internal/rng"
	"github.com/lawnchairsociety/levelforge/internal/room"
)

var (
	ErrInvalidParams     = errors.New("level: invalid parameters")
	ErrInvalidCatalog    = errors.New("level: invalid room catalog")
	ErrEmptyPool         = errors.New("level: no placeable room templates")
	ErrUnreachableTarget = errors.New("level: target room amount unreachable")
	ErrTickBudget        = errors.New("level: tick budget exhausted")
	ErrNotFinished       = errors.New("level: generation not finished")
)

// GateTolerance is how far apart two gates may be and still face each other
const GateTolerance = 1.0

// State is a phase of the generation protocol
type State int

const (
	Idle State = iota
	PrimaryWave
	PrimaryComplete
	PrimaryStalled
	SecondaryPass
	Finished
	Failed
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case PrimaryWave:
		return "primary_wave"
	case PrimaryComplete:
		return "primary_complete"
	case PrimaryStalled:
		return "primary_stalled"
	case SecondaryPass:
		return "secondary_pass"
	case Finished:
		return "finished"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Done reports whether s is terminal
func (s State) Done() bool {
	return s == Finished || s == Failed
}

// QueueItem is a gate waiting for a placement attempt. GateIndex is the
// gate's position in the room's shuffled gate order.
type QueueItem struct {
	RoomID    int
	GateIndex int
}

// gateKey names a gate by room id and template gate index
type gateKey struct {
	room, gate int
}

// Generator runs one level generation.
type Generator struct {
	params   Params
	catalog  *Catalog
	pool     []*room.Template
	seq      *rng.Sequence
	occ      *grid.Occupancy
	graph    *Graph
	rooms    []*room.Room
	queue    []QueueItem
	peers    map[gateKey]int
	observer Observer

	nextID     int
	levelShape float64
	state      State
	idleTicks  int
	retryWaves int
	secondary  int // next room for the secondary pass
	ticks      int
	fallbacks  int
	err        error
	layout     *Layout
}

// New validates the inputs and prepares a generator in the Idle state.
func New(params Params, catalog *Catalog) (*Generator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: nil catalog", ErrInvalidCatalog)
	}
	if err := catalog.Validate(params.UnitSize); err != nil {
		return nil, err
	}

	return &Generator{
		params:     params,
		catalog:    catalog,
		pool:       catalog.Pool(),
		seq:        rng.ForRooms(params.Seed, params.RoomAmount),
		occ:        grid.NewOccupancy(),
		graph:      NewGraph(params.RoomAmount),
		peers:      make(map[gateKey]int),
		observer:   NopObserver{},
		levelShape: params.LevelShape,
		state:      Idle,
	}, nil
}

// SetObserver registers the collaborator that receives generation events
func (g *Generator) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	g.observer = o
}

// Start places the start room at the origin and queues its gates.
// Calling Start outside the Idle state does nothing.
func (g *Generator) Start() {
	if g.state != Idle {
		return
	}

	start := room.Instantiate(g.catalog.Start)
	start.ID = g.nextID
	g.nextID++
	if !start.Claim(g.occ, g.params.UnitSize) {
		// Validation guarantees distinct anchor cells on an empty grid.
		panic("level: start room could not claim its footprint")
	}
	g.rooms = append(g.rooms, start)

	logger.Info("Level generation started",
		"seed", g.params.Seed,
		"room_amount", g.params.RoomAmount,
		"level_shape", g.params.LevelShape,
		"interconnectivity", g.params.Interconnectivity)

	g.setState(PrimaryWave)
	g.observer.RoomPlaced(PlacementEvent{
		RoomID:   start.ID,
		ParentID: -1,
		Type:     start.Type(),
		Template: start.Template.Name,
		Position: start.Position,
		Yaw:      start.Yaw,
	})
	g.prepare(start)

	if g.RoomCount() >= g.params.RoomAmount {
		g.completePrimary()
	}
}

// Tick advances generation by one bounded step and returns the new state.
// Ticking a finished or failed generator is a no-op.
func (g *Generator) Tick() State {
	if g.state.Done() {
		return g.state
	}
	g.ticks++

	switch g.state {
	case Idle:
		g.Start()
	case PrimaryWave:
		g.tickPrimary()
	case PrimaryComplete:
		g.setState(SecondaryPass)
		g.tickSecondary()
	case SecondaryPass:
		g.tickSecondary()
	}

	return g.state
}

// Run ticks until the generator finishes, fails, exceeds MaxTicks or ctx is
// cancelled. A cancelled run leaves the generator inert but consistent.
func (g *Generator) Run(ctx context.Context) (*Layout, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch g.Tick() {
		case Finished:
			return g.layout, nil
		case Failed:
			return nil, g.err
		}
		if g.params.MaxTicks > 0 && g.ticks >= g.params.MaxTicks {
			return nil, fmt.Errorf("%w after %d ticks in %s", ErrTickBudget, g.ticks, g.state)
		}
	}
}

// Generate builds a generator and runs it to completion.
func Generate(ctx context.Context, params Params, catalog *Catalog, observers ...Observer) (*Layout, error) {
	gen, err := New(params, catalog)
	if err != nil {
		return nil, err
	}
	if len(observers) > 0 {
		gen.SetObserver(Observers(observers))
	}
	return gen.Run(ctx)
}

func (g *Generator) tickPrimary() {
	if len(g.queue) > 0 {
		g.idleTicks = 0
		item := g.queue[0]
		g.queue = g.queue[1:]
		g.trySpawn(item)
		if g.RoomCount() >= g.params.RoomAmount {
			g.completePrimary()
		}
		return
	}

	g.idleTicks++
	if g.idleTicks > g.params.IdleTickThreshold {
		g.idleTicks = 0
		g.setState(PrimaryStalled)
		g.recoverStall()
	}
}

// completePrimary drops whatever is still queued; the secondary pass starts
// on the next tick.
func (g *Generator) completePrimary() {
	g.queue = nil
	logger.Info("Primary wave complete",
		"rooms", g.RoomCount(),
		"ticks", g.ticks,
		"retry_waves", g.retryWaves,
		"fallbacks", g.fallbacks)
	g.setState(PrimaryComplete)
}

// recoverStall forces branching and queues every still-open gate again.
func (g *Generator) recoverStall() {
	g.retryWaves++
	if g.retryWaves > g.params.MaxRetryWaves {
		g.fail(fmt.Errorf("%w: %d of %d rooms after %d retry waves",
			ErrUnreachableTarget, g.RoomCount(), g.params.RoomAmount, g.retryWaves-1))
		return
	}

	g.levelShape = 1
	for _, r := range g.rooms {
		for _, i := range r.UnconnectedGates() {
			g.queue = append(g.queue, QueueItem{RoomID: r.ID, GateIndex: i})
		}
	}

	if len(g.queue) == 0 {
		g.fail(fmt.Errorf("%w: %d of %d rooms and no open gates left",
			ErrUnreachableTarget, g.RoomCount(), g.params.RoomAmount))
		return
	}

	logger.Warning("Generation stalled, retrying with forced branching",
		"rooms", g.RoomCount(),
		"target", g.params.RoomAmount,
		"wave", g.retryWaves,
		"queued_gates", len(g.queue))
	g.setState(PrimaryWave)
}

func (g *Generator) fail(err error) {
	g.err = err
	g.queue = nil
	logger.Error("Level generation failed", "error", err, "ticks", g.ticks)
	g.setState(Failed)
}

func (g *Generator) tickSecondary() {
	if g.secondary < len(g.rooms) {
		g.secondaryRoom(g.rooms[g.secondary])
		g.secondary++
	}
	if g.secondary >= len(g.rooms) {
		g.finish()
	}
}

func (g *Generator) finish() {
	g.layout = g.buildLayout()
	logger.Info("Level generation finished",
		"rooms", len(g.layout.Rooms),
		"edges", len(g.graph.Edges()),
		"ticks", g.ticks,
		"draws", g.seq.Draws(),
		"wraps", g.seq.Wraps())
	if g.seq.Wraps() > 0 {
		logger.Warning("Random budget exceeded, values were reused",
			"draws", g.seq.Draws(), "length", g.seq.Len())
	}
	g.setState(Finished)
	g.observer.GenerationDone(g.layout)
}

func (g *Generator) setState(s State) {
	if s == g.state {
		return
	}
	from := g.state
	g.state = s
	logger.Debug("Generator state changed", "from", from.String(), "to", s.String())
	g.observer.StateChanged(from, s)
}

// prepare shuffles a freshly placed room's gates and queues all of them.
func (g *Generator) prepare(r *room.Room) {
	r.Shuffle(g.seq)
	for i := range r.Gates {
		g.queue = append(g.queue, QueueItem{RoomID: r.ID, GateIndex: i})
	}
}

// RunSecondaryPass runs the interconnection and sealing pass over every room
// of a finished level and returns how many extra connections it opened. On a
// finished level every gate is already connected or sealed, so it changes
// nothing.
func (g *Generator) RunSecondaryPass() (int, error) {
	if g.state != Finished {
		return 0, fmt.Errorf("%w: state is %s", ErrNotFinished, g.state)
	}
	before := len(g.graph.Edges())
	for _, r := range g.rooms {
		g.secondaryRoom(r)
	}
	return len(g.graph.Edges()) - before, nil
}

// State returns the current phase
func (g *Generator) State() State {
	return g.state
}

// Err returns why generation failed, or nil
func (g *Generator) Err() error {
	return g.err
}

// Layout returns the finished layout, or nil before Finished
func (g *Generator) Layout() *Layout {
	return g.layout
}

// RoomCount returns how many rooms have been placed
func (g *Generator) RoomCount() int {
	return len(g.rooms)
}

// Room returns a placed room by id, or nil
func (g *Generator) Room(id int) *room.Room {
	if id < 0 || id >= len(g.rooms) {
		return nil
	}
	return g.rooms[id]
}

// Graph returns the live adjacency graph
func (g *Generator) Graph() *Graph {
	return g.graph
}

// Occupancy returns the live occupancy grid
func (g *Generator) Occupancy() *grid.Occupancy {
	return g.occ
}

// QueueLen returns the number of gates waiting for an attempt
func (g *Generator) QueueLen() int {
	return len(g.queue)
}

// Ticks returns how many ticks have been processed
func (g *Generator) Ticks() int {
	return g.ticks
}

// RetryWaves returns how many stall recoveries have run
func (g *Generator) RetryWaves() int {
	return g.retryWaves
}

// LevelShape returns the branching bias currently in force
func (g *Generator) LevelShape() float64 {
	return g.levelShape
}

// Sequence exposes the random sequence for inspection
func (g *Generator) Sequence() *rng.Sequence {
	return g.seq
}

// UnitSize returns the grid cell edge length
func (g *Generator) UnitSize() float64 {
	return g.params.UnitSize
}

// gateEvent builds a GateEvent for gate on room r
func gateEvent(r *room.Room, gate *room.Gate, peer int, extra bool) GateEvent {
	return GateEvent{
		RoomID:     r.ID,
		GateIndex:  gate.Index,
		Position:   gate.Position,
		Direction:  gate.Direction,
		State:      gate.State(),
		PeerRoomID: peer,
		Extra:      extra,
	}
}
