package level

import (
	"context"
	"errors"
	"testing"

	"github.com/lawnchairsociety/levelforge/internal/geom"
	"github.com/lawnchairsociety/levelforge/internal/grid"
	"github.com/lawnchairsociety/levelforge/internal/room"
)

func cross(name string, t room.Type) *room.Template {
	return &room.Template{
		Name:    name,
		Type:    t,
		Anchors: []geom.Vec2{{X: 0, Z: 0}},
		Gates: []room.GateSpec{
			{Position: geom.Vec2{X: 0, Z: 10}},
			{Position: geom.Vec2{X: 10, Z: 0}},
			{Position: geom.Vec2{X: 0, Z: -10}},
			{Position: geom.Vec2{X: -10, Z: 0}},
		},
		Lights: []geom.Vec2{{X: 0, Z: 0}},
	}
}

func deadEnd(name string, t room.Type) *room.Template {
	return &room.Template{
		Name:    name,
		Type:    t,
		Anchors: []geom.Vec2{{X: 0, Z: 0}},
		Gates:   []room.GateSpec{{Position: geom.Vec2{X: 0, Z: -10}}},
	}
}

func hallway() *room.Template {
	return &room.Template{
		Name:    "hallway",
		Type:    room.TypeEnemy,
		Anchors: []geom.Vec2{{X: 0, Z: 0}, {X: 20, Z: 0}},
		Gates: []room.GateSpec{
			{Position: geom.Vec2{X: -10, Z: 0}},
			{Position: geom.Vec2{X: 30, Z: 0}},
			{Position: geom.Vec2{X: 0, Z: 10}},
			{Position: geom.Vec2{X: 20, Z: -10}},
		},
	}
}

// mixedCatalog has branching, linear and two-cell rooms.
func mixedCatalog() *Catalog {
	c := &Catalog{
		Start:    cross("start", room.TypeStart),
		Fallback: deadEnd("connector", room.TypeEmpty),
	}
	c.Add(cross("junction", room.TypeEmpty))
	c.Add(hallway())
	c.Add(deadEnd("closet", room.TypeTrap))
	c.Add(cross("shrine", room.TypeHealing))
	return c
}

func crossCatalog(start *room.Template) *Catalog {
	c := &Catalog{Start: start, Fallback: deadEnd("connector", room.TypeEmpty)}
	c.Add(cross("junction", room.TypeEmpty))
	return c
}

func params(seed int64, amount int, shape, inter float64) Params {
	p := DefaultParams()
	p.Seed = seed
	p.RoomAmount = amount
	p.LevelShape = shape
	p.Interconnectivity = inter
	return p
}

func mustGenerate(t *testing.T, p Params, c *Catalog, obs ...Observer) *Layout {
	t.Helper()
	l, err := Generate(context.Background(), p, c, obs...)
	if err != nil {
		t.Fatalf("Generate(seed %d) error = %v", p.Seed, err)
	}
	return l
}

func TestDeterminism(t *testing.T) {
	for seed := int64(1); seed <= 5; seed++ {
		a := mustGenerate(t, params(seed, 20, 0.5, 0.3), mixedCatalog())
		b := mustGenerate(t, params(seed, 20, 0.5, 0.3), mixedCatalog())
		if a.Fingerprint() != b.Fingerprint() {
			t.Errorf("seed %d: fingerprints differ", seed)
		}
		if a.Draws != b.Draws || a.Ticks != b.Ticks {
			t.Errorf("seed %d: draws %d/%d ticks %d/%d", seed, a.Draws, b.Draws, a.Ticks, b.Ticks)
		}
	}
}

func TestLayoutInvariants(t *testing.T) {
	for seed := int64(1); seed <= 10; seed++ {
		l := mustGenerate(t, params(seed, 20, 0.5, 0.4), mixedCatalog())

		if len(l.Rooms) != 20 {
			t.Fatalf("seed %d: %d rooms, want 20", seed, len(l.Rooms))
		}

		// No two rooms share a cell.
		owner := make(map[grid.Cell]int)
		for _, r := range l.Rooms {
			for _, c := range r.Cells {
				if prev, ok := owner[c]; ok {
					t.Errorf("seed %d: cell %v owned by %d and %d", seed, c, prev, r.ID)
				}
				owner[c] = r.ID
			}
		}

		if !l.Graph.IsSymmetric() {
			t.Errorf("seed %d: graph not symmetric", seed)
		}

		// Primary edges alone span every room.
		if got := l.Graph.Reachable(0, EdgePrimary).Size(); got != len(l.Rooms) {
			t.Errorf("seed %d: %d rooms reachable over primary edges, want %d", seed, got, len(l.Rooms))
		}

		primary := 0
		for _, e := range l.Graph.Edges() {
			if e.Weight == EdgePrimary {
				primary++
			}
		}
		if primary != len(l.Rooms)-1 {
			t.Errorf("seed %d: %d primary edges, want %d", seed, primary, len(l.Rooms)-1)
		}

		for _, r := range l.Rooms {
			for _, g := range r.Gates {
				switch g.State {
				case room.Connected:
					if g.Peer < 0 || l.Graph.Weight(r.ID, g.Peer) == EdgeNone {
						t.Errorf("seed %d: room %d gate %d connected to %d without an edge", seed, r.ID, g.Index, g.Peer)
					}
				case room.Sealed:
					if g.Peer != -1 {
						t.Errorf("seed %d: sealed gate has peer %d", seed, g.Peer)
					}
				default:
					t.Errorf("seed %d: room %d gate %d left %s", seed, r.ID, g.Index, g.State)
				}
			}
		}

		if l.Wraps != l.Draws/(DefaultParams().RoomAmount*6) {
			t.Errorf("seed %d: wraps %d for %d draws", seed, l.Wraps, l.Draws)
		}
	}
}

func TestTerminationSmallTarget(t *testing.T) {
	start := &room.Template{
		Name:    "start",
		Type:    room.TypeStart,
		Anchors: []geom.Vec2{{X: 0, Z: 0}},
		Gates:   []room.GateSpec{{Position: geom.Vec2{X: 0, Z: 10}}},
	}
	l := mustGenerate(t, params(7, 5, 1, 0), crossCatalog(start))

	if len(l.Rooms) != 5 {
		t.Fatalf("rooms = %d, want 5", len(l.Rooms))
	}
	if l.Room(1).Cells[0] != (grid.Cell{X: 0, Y: 1}) {
		t.Errorf("first room at %v, want (0, 1)", l.Room(1).Cells[0])
	}
}

func TestLevelShapeBias(t *testing.T) {
	tests := []struct {
		name        string
		shape       float64
		startDegree int
	}{
		{"corridor", 0, 1},
		{"square", 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := int64(1); seed <= 5; seed++ {
				l := mustGenerate(t, params(seed, 5, tt.shape, 0), crossCatalog(cross("start", room.TypeStart)))
				if got := l.Graph.Degree(0); got != tt.startDegree {
					t.Errorf("seed %d: start degree = %d, want %d", seed, got, tt.startDegree)
				}
				if tt.shape == 0 {
					for _, r := range l.Rooms {
						if d := l.Graph.Degree(r.ID); d > 2 {
							t.Errorf("seed %d: room %d degree %d on a path", seed, r.ID, d)
						}
					}
				}
			}
		})
	}
}

func TestSecondaryPassIdempotent(t *testing.T) {
	gen, err := New(params(3, 15, 0.5, 0.5), mixedCatalog())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gen.RunSecondaryPass(); !errors.Is(err, ErrNotFinished) {
		t.Errorf("RunSecondaryPass before finish = %v, want ErrNotFinished", err)
	}

	l, err := gen.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	before := l.Fingerprint()
	draws := gen.Sequence().Draws()

	added, err := gen.RunSecondaryPass()
	if err != nil {
		t.Fatal(err)
	}
	if added != 0 {
		t.Errorf("second pass added %d edges", added)
	}
	if gen.Sequence().Draws() != draws {
		t.Errorf("second pass drew %d values", gen.Sequence().Draws()-draws)
	}
	if got := gen.buildLayout().Fingerprint(); got != before {
		t.Error("second pass changed the layout")
	}
}

func TestFallbackConnector(t *testing.T) {
	// The start room also owns the cell two steps north, so a two-cell room
	// through its north gate always collides and the connector is used.
	start := &room.Template{
		Name:    "start",
		Type:    room.TypeStart,
		Anchors: []geom.Vec2{{X: 0, Z: 0}, {X: 0, Z: 40}},
		Gates:   []room.GateSpec{{Position: geom.Vec2{X: 0, Z: 10}}},
	}
	long := &room.Template{
		Name:    "long",
		Type:    room.TypeEnemy,
		Anchors: []geom.Vec2{{X: 0, Z: 0}, {X: 0, Z: 20}},
		Gates:   []room.GateSpec{{Position: geom.Vec2{X: 0, Z: -10}}},
	}
	c := &Catalog{Start: start, Fallback: deadEnd("connector", room.TypeEmpty)}
	c.Add(long)

	l := mustGenerate(t, params(1, 2, 0.5, 0), c)
	if l.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1", l.Fallbacks)
	}
	if got := l.Room(1).Template; got != "connector" {
		t.Errorf("room 1 template = %q, want connector", got)
	}
	if l.Room(1).Cells[0] != (grid.Cell{X: 0, Y: 1}) {
		t.Errorf("connector at %v, want (0, 1)", l.Room(1).Cells[0])
	}
}

func TestUnreachableTargetFails(t *testing.T) {
	start := deadEnd("start", room.TypeStart)
	c := &Catalog{Start: start, Fallback: deadEnd("connector", room.TypeEmpty)}
	c.Add(deadEnd("closet", room.TypeEmpty))

	gen, err := New(params(1, 3, 0.5, 0), c)
	if err != nil {
		t.Fatal(err)
	}
	_, err = gen.Run(context.Background())
	if !errors.Is(err, ErrUnreachableTarget) {
		t.Fatalf("Run() = %v, want ErrUnreachableTarget", err)
	}
	if gen.State() != Failed || gen.Layout() != nil {
		t.Errorf("state %s layout %v", gen.State(), gen.Layout())
	}
	if gen.RoomCount() != 2 {
		t.Errorf("RoomCount() = %d, want 2", gen.RoomCount())
	}
	if gen.Tick() != Failed {
		t.Error("Tick on a failed generator should stay failed")
	}
}

func TestStallRetryForcesBranching(t *testing.T) {
	p := params(11, 12, 0, 0)
	gen, err := New(p, crossCatalog(deadEnd("start", room.TypeStart)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := gen.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if gen.RetryWaves() > 0 && gen.LevelShape() != 1 {
		t.Errorf("level shape after retry = %v, want 1", gen.LevelShape())
	}
	if gen.RetryWaves() == 0 && gen.LevelShape() != 0 {
		t.Errorf("level shape changed without a stall: %v", gen.LevelShape())
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		catalog *Catalog
		want    error
	}{
		{"zero rooms", params(1, 0, 0.5, 0.2), mixedCatalog(), ErrInvalidParams},
		{"shape above one", params(1, 5, 1.5, 0.2), mixedCatalog(), ErrInvalidParams},
		{"negative inter", params(1, 5, 0.5, -1), mixedCatalog(), ErrInvalidParams},
		{"nil catalog", params(1, 5, 0.5, 0.2), nil, ErrInvalidCatalog},
		{"no start", params(1, 5, 0.5, 0.2), &Catalog{Fallback: deadEnd("c", room.TypeEmpty)}, ErrInvalidCatalog},
		{"empty pool", params(1, 5, 0.5, 0.2), &Catalog{
			Start:    cross("s", room.TypeStart),
			Fallback: deadEnd("c", room.TypeEmpty),
		}, ErrEmptyPool},
		{"bad template", params(1, 5, 0.5, 0.2), func() *Catalog {
			c := mixedCatalog()
			c.Add(&room.Template{Name: "bad", Type: room.TypeBoss})
			return c
		}(), room.ErrNoAnchors},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.params, tt.catalog); !errors.Is(err, tt.want) {
				t.Errorf("New() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRunHonoursTickBudgetAndContext(t *testing.T) {
	p := params(1, 20, 0.5, 0.2)
	p.MaxTicks = 3
	if _, err := Generate(context.Background(), p, mixedCatalog()); !errors.Is(err, ErrTickBudget) {
		t.Errorf("Generate() = %v, want ErrTickBudget", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Generate(ctx, params(1, 20, 0.5, 0.2), mixedCatalog()); !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() = %v, want context.Canceled", err)
	}
}

func TestSingleRoomLevel(t *testing.T) {
	l := mustGenerate(t, params(1, 1, 0.5, 1), mixedCatalog())
	if len(l.Rooms) != 1 || len(l.Graph.Edges()) != 0 {
		t.Fatalf("rooms %d edges %d", len(l.Rooms), len(l.Graph.Edges()))
	}
	for _, g := range l.Rooms[0].Gates {
		if g.State != room.Sealed {
			t.Errorf("gate %d is %s, want sealed", g.Index, g.State)
		}
	}
}

type recorder struct {
	NopObserver
	states []State
	placed []PlacementEvent
	gates  []GateEvent
	done   *Layout
}

func (r *recorder) StateChanged(from, to State)   { r.states = append(r.states, to) }
func (r *recorder) RoomPlaced(ev PlacementEvent)  { r.placed = append(r.placed, ev) }
func (r *recorder) GateChanged(ev GateEvent)      { r.gates = append(r.gates, ev) }
func (r *recorder) GenerationDone(layout *Layout) { r.done = layout }

func TestObserverEvents(t *testing.T) {
	rec := &recorder{}
	l := mustGenerate(t, params(5, 12, 0.5, 0.5), mixedCatalog(), rec)

	if rec.done != l {
		t.Error("GenerationDone did not receive the layout")
	}
	if len(rec.placed) != len(l.Rooms) {
		t.Errorf("%d placement events for %d rooms", len(rec.placed), len(l.Rooms))
	}
	if rec.placed[0].ParentID != -1 {
		t.Errorf("start room parent = %d", rec.placed[0].ParentID)
	}

	// Every gate reaches a terminal state exactly once.
	gates := 0
	for _, r := range l.Rooms {
		gates += len(r.Gates)
	}
	if len(rec.gates) != gates {
		t.Errorf("%d gate events for %d gates", len(rec.gates), gates)
	}

	want := []State{PrimaryWave, PrimaryComplete, SecondaryPass, Finished}
	got := rec.states
	if len(got) < len(want) || got[0] != PrimaryWave || got[len(got)-1] != Finished {
		t.Errorf("state sequence = %v", got)
	}
}

func TestFingerprintChangesWithSeed(t *testing.T) {
	a := mustGenerate(t, params(1, 20, 0.5, 0.2), mixedCatalog())
	b := mustGenerate(t, params(2, 20, 0.5, 0.2), mixedCatalog())
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("different seeds produced the same fingerprint")
	}
}

// Overrunning the random buffer reuses earlier values. Runs that wrap must
// still be reproducible and produce a complete, connected level.
func TestWraparoundKeepsLayoutValid(t *testing.T) {
	start := cross("start", room.TypeStart)

	for seed := int64(1); seed <= 8; seed++ {
		p := params(seed, 8, 1, 1)
		a := mustGenerate(t, p, crossCatalog(start))
		b := mustGenerate(t, p, crossCatalog(start))

		if a.Fingerprint() != b.Fingerprint() {
			t.Errorf("seed %d: wrapped run not reproducible", seed)
		}
		length := p.RoomAmount * 6
		if want := a.Draws / length; a.Wraps != want {
			t.Errorf("seed %d: wraps = %d for %d draws over %d values, want %d", seed, a.Wraps, a.Draws, length, want)
		}
		if len(a.Rooms) != p.RoomAmount {
			t.Errorf("seed %d: rooms = %d, want %d", seed, len(a.Rooms), p.RoomAmount)
		}
		if got := a.Graph.Reachable(0).Size(); got != len(a.Rooms) {
			t.Errorf("seed %d: %d rooms reachable, want %d", seed, got, len(a.Rooms))
		}
		if a.Wraps == 0 {
			t.Fatalf("seed %d: %d draws never wrapped the %d-value buffer", seed, a.Draws, length)
		}
	}
}

// facingSealedPairs counts sealed gates of different rooms sitting on the
// same spot, i.e. doors the secondary pass could have opened.
func facingSealedPairs(l *Layout) int {
	pairs := 0
	for i, a := range l.Rooms {
		for _, b := range l.Rooms[i+1:] {
			for _, ga := range a.Gates {
				for _, gb := range b.Gates {
					if ga.State == room.Sealed && gb.State == room.Sealed &&
						ga.Position.Distance(gb.Position) < GateTolerance {
						pairs++
					}
				}
			}
		}
	}
	return pairs
}

func TestInterconnectivityExtremes(t *testing.T) {
	tests := []struct {
		name      string
		inter     float64
		wantExtra bool
	}{
		{"always connect", 1, true},
		{"never connect", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extra, facing := 0, 0
			for seed := int64(1); seed <= 30; seed++ {
				l := mustGenerate(t, params(seed, 25, 0.5, tt.inter), mixedCatalog())
				for _, e := range l.Graph.Edges() {
					if e.Weight == EdgeExtra {
						extra++
					}
				}
				facing += facingSealedPairs(l)
			}

			if tt.wantExtra {
				if extra == 0 {
					t.Error("no extra connection opened with interconnectivity 1")
				}
				if facing != 0 {
					t.Errorf("%d facing gate pairs left sealed with interconnectivity 1", facing)
				}
			} else if extra != 0 {
				t.Errorf("%d extra connections opened with interconnectivity 0", extra)
			}
		})
	}
}

func TestMustConnectOverridesLevelShape(t *testing.T) {
	start := cross("start", room.TypeStart)
	for i := range start.Gates {
		start.Gates[i].MustAlwaysConnect = true
	}

	for seed := int64(1); seed <= 5; seed++ {
		l := mustGenerate(t, params(seed, 5, 0, 0), crossCatalog(start))
		if got := l.Graph.Degree(0); got != 4 {
			t.Errorf("seed %d: start degree = %d, want 4", seed, got)
		}
	}
}

func TestBlockedMustConnectGateIsAbandoned(t *testing.T) {
	start := &room.Template{
		Name:    "start",
		Type:    room.TypeStart,
		Anchors: []geom.Vec2{{X: 0, Z: 0}},
		Gates: []room.GateSpec{
			{Position: geom.Vec2{X: 0, Z: 10}, MustAlwaysConnect: true},
			{Position: geom.Vec2{X: 0, Z: -10}},
		},
	}
	gen, err := New(params(3, 2, 0, 0), crossCatalog(start))
	if err != nil {
		t.Fatal(err)
	}
	gen.Start()

	// The cell north of the start room is taken, so neither the drawn
	// template nor the connector can go there.
	if !gen.Occupancy().TryReserve([]grid.Cell{{X: 0, Y: 1}}, 0) {
		t.Fatal("could not block the north cell")
	}

	src := gen.Room(0)
	var north *room.Gate
	for _, g := range src.Gates {
		if g.Index == 0 {
			north = g
		}
	}

	res := gen.attemptPlacement(src, north, gen.catalog.Pool()[0], true)
	if res.Outcome != Abandoned || res.Room != nil {
		t.Fatalf("attemptPlacement = %+v, want abandoned", res)
	}
	if gen.RoomCount() != 1 || !north.IsUnconnected() {
		t.Fatalf("rooms = %d, north gate %s after abandon", gen.RoomCount(), north.State())
	}

	l, err := gen.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Rooms) != 2 || l.Fallbacks != 0 {
		t.Errorf("rooms = %d, fallbacks = %d, want 2 and 0", len(l.Rooms), l.Fallbacks)
	}
	if g := l.Room(0).Gates[0]; g.State != room.Sealed || g.Peer != -1 {
		t.Errorf("north gate = %s peer %d, want sealed", g.State, g.Peer)
	}
	if l.Room(1).Cells[0] != (grid.Cell{X: 0, Y: -1}) {
		t.Errorf("room 1 at %v, want (0, -1)", l.Room(1).Cells[0])
	}
}

func TestNegativeSeedsAreDeterministic(t *testing.T) {
	for _, seed := range []int64{-5, -2, -1000} {
		a := mustGenerate(t, params(seed, 10, 0.5, 0.3), mixedCatalog())
		b := mustGenerate(t, params(seed, 10, 0.5, 0.3), mixedCatalog())
		if a.Fingerprint() != b.Fingerprint() {
			t.Errorf("seed %d: fingerprints differ", seed)
		}
	}
}
