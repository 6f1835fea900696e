// Package export writes finished layouts as YAML documents and ASCII maps,
// and reads the YAML form back.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/levelforge/internal/geom"
	"github.com/lawnchairsociety/levelforge/internal/grid"
	"github.com/lawnchairsociety/levelforge/internal/level"
	"github.com/lawnchairsociety/levelforge/internal/room"
)

var (
	ErrBadLayout           = errors.New("export: malformed layout document")
	ErrFingerprintMismatch = errors.New("export: fingerprint does not match layout contents")
)

// LayoutYAML represents a layout in YAML format
type LayoutYAML struct {
	Seed              int64             `yaml:"seed"`
	Fingerprint       string            `yaml:"fingerprint,omitempty"`
	UnitSize          float64           `yaml:"unit_size"`
	LevelShape        float64           `yaml:"level_shape"`
	Interconnectivity float64           `yaml:"interconnectivity"`
	StartRoom         int               `yaml:"start_room"`
	Spawn             SpawnYAML         `yaml:"spawn"`
	Stats             StatsYAML         `yaml:"stats"`
	Rooms             map[int]*RoomYAML `yaml:"rooms"`
	Edges             [][]int           `yaml:"edges,omitempty"`
}

// SpawnYAML is the player start
type SpawnYAML struct {
	Room int     `yaml:"room"`
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	Z    float64 `yaml:"z"`
}

// StatsYAML holds run statistics
type StatsYAML struct {
	Ticks      int `yaml:"ticks"`
	RetryWaves int `yaml:"retry_waves"`
	Fallbacks  int `yaml:"fallbacks"`
	Draws      int `yaml:"draws"`
	Wraps      int `yaml:"wraps"`
}

// RoomYAML represents a placed room in YAML format
type RoomYAML struct {
	Type     string      `yaml:"type"`
	Template string      `yaml:"template"`
	Position []float64   `yaml:"position,flow"`
	Yaw      int         `yaml:"yaw"`
	Cells    [][]int     `yaml:"cells,flow"`
	Lights   [][]float64 `yaml:"lights,flow,omitempty"`
	Gates    []GateYAML  `yaml:"gates"`
}

// GateYAML represents a gate in YAML format
type GateYAML struct {
	Index     int       `yaml:"index"`
	At        []float64 `yaml:"at,flow"`
	Direction string    `yaml:"direction"`
	State     string    `yaml:"state"`
	Peer      int       `yaml:"peer"`
}

// orderedLayoutYAML is used for serialization with rooms sorted by id
type orderedLayoutYAML struct {
	Seed              int64     `yaml:"seed"`
	Fingerprint       string    `yaml:"fingerprint,omitempty"`
	UnitSize          float64   `yaml:"unit_size"`
	LevelShape        float64   `yaml:"level_shape"`
	Interconnectivity float64   `yaml:"interconnectivity"`
	StartRoom         int       `yaml:"start_room"`
	Spawn             SpawnYAML `yaml:"spawn"`
	Stats             StatsYAML `yaml:"stats"`
	Rooms             yaml.Node `yaml:"rooms"`
	Edges             yaml.Node `yaml:"edges"`
}

// FromLayout converts a layout into its YAML form
func FromLayout(l *level.Layout) *LayoutYAML {
	doc := &LayoutYAML{
		Seed:              l.Seed,
		Fingerprint:       l.Fingerprint(),
		UnitSize:          l.UnitSize,
		LevelShape:        l.LevelShape,
		Interconnectivity: l.Interconnectivity,
		StartRoom:         l.StartRoomID,
		Spawn:             SpawnYAML{Room: l.Spawn.RoomID, X: l.Spawn.X, Y: l.Spawn.Y, Z: l.Spawn.Z},
		Stats: StatsYAML{
			Ticks:      l.Ticks,
			RetryWaves: l.RetryWaves,
			Fallbacks:  l.Fallbacks,
			Draws:      l.Draws,
			Wraps:      l.Wraps,
		},
		Rooms: make(map[int]*RoomYAML, len(l.Rooms)),
	}

	for _, r := range l.Rooms {
		ry := &RoomYAML{
			Type:     r.Type.String(),
			Template: r.Template,
			Position: []float64{r.Position.X, r.Position.Z},
			Yaw:      r.Yaw,
		}
		for _, c := range r.Cells {
			ry.Cells = append(ry.Cells, []int{c.X, c.Y})
		}
		for _, p := range r.Lights {
			ry.Lights = append(ry.Lights, []float64{p.X, p.Z})
		}
		for _, g := range r.Gates {
			ry.Gates = append(ry.Gates, GateYAML{
				Index:     g.Index,
				At:        []float64{g.Position.X, g.Position.Z},
				Direction: g.Direction.String(),
				State:     g.State.String(),
				Peer:      g.Peer,
			})
		}
		doc.Rooms[r.ID] = ry
	}

	if l.Graph != nil {
		for _, e := range l.Graph.Edges() {
			doc.Edges = append(doc.Edges, []int{e.A, e.B, e.Weight})
		}
	}

	return doc
}

// WriteLayout writes a layout as a YAML document with a short header
func WriteLayout(w io.Writer, l *level.Layout) error {
	doc := FromLayout(l)

	fmt.Fprintf(w, "# Layout generated with seed: %d\n", doc.Seed)
	fmt.Fprintf(w, "# Room count: %d (%d extra connections)\n\n", len(doc.Rooms), countExtra(doc.Edges))

	rooms, err := sortRooms(doc.Rooms)
	if err != nil {
		return err
	}

	ordered := &orderedLayoutYAML{
		Seed:              doc.Seed,
		Fingerprint:       doc.Fingerprint,
		UnitSize:          doc.UnitSize,
		LevelShape:        doc.LevelShape,
		Interconnectivity: doc.Interconnectivity,
		StartRoom:         doc.StartRoom,
		Spawn:             doc.Spawn,
		Stats:             doc.Stats,
		Rooms:             rooms,
		Edges:             edgeList(doc.Edges),
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(ordered); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// WriteLayoutFile writes a layout to a YAML file
func WriteLayoutFile(path string, l *level.Layout) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := WriteLayout(f, l); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func countExtra(edges [][]int) int {
	n := 0
	for _, e := range edges {
		if len(e) == 3 && e[2] == level.EdgeExtra {
			n++
		}
	}
	return n
}

// sortRooms returns rooms as an ordered YAML node
func sortRooms(rooms map[int]*RoomYAML) (yaml.Node, error) {
	ids := make([]int, 0, len(rooms))
	for id := range rooms {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	node := yaml.Node{Kind: yaml.MappingNode}
	for _, id := range ids {
		keyNode := yaml.Node{Kind: yaml.ScalarNode, Value: strconv.Itoa(id)}

		var valueNode yaml.Node
		if err := valueNode.Encode(rooms[id]); err != nil {
			return yaml.Node{}, fmt.Errorf("failed to encode room %d: %w", id, err)
		}

		node.Content = append(node.Content, &keyNode, &valueNode)
	}
	return node, nil
}

// edgeList renders each edge as a flow triple on its own line
func edgeList(edges [][]int) yaml.Node {
	seqNode := yaml.Node{Kind: yaml.SequenceNode}
	for _, e := range edges {
		item := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, v := range e {
			item.Content = append(item.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.Itoa(v)})
		}
		seqNode.Content = append(seqNode.Content, item)
	}
	return seqNode
}

// ReadLayout decodes a YAML layout document. When the document carries a
// fingerprint it must match the rebuilt layout.
func ReadLayout(r io.Reader) (*level.Layout, error) {
	var doc LayoutYAML
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse layout YAML: %w", err)
	}

	l, err := doc.ToLayout()
	if err != nil {
		return nil, err
	}

	if doc.Fingerprint != "" && doc.Fingerprint != l.Fingerprint() {
		return nil, ErrFingerprintMismatch
	}
	return l, nil
}

// ReadLayoutFile reads a layout from a YAML file
func ReadLayoutFile(path string) (*level.Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open layout file: %w", err)
	}
	defer f.Close()
	return ReadLayout(f)
}

// ToLayout rebuilds a layout. Room ids must run from 0 without gaps.
func (doc *LayoutYAML) ToLayout() (*level.Layout, error) {
	l := &level.Layout{
		Seed:              doc.Seed,
		LevelShape:        doc.LevelShape,
		Interconnectivity: doc.Interconnectivity,
		UnitSize:          doc.UnitSize,
		StartRoomID:       doc.StartRoom,
		Spawn:             level.Spawn{RoomID: doc.Spawn.Room, X: doc.Spawn.X, Y: doc.Spawn.Y, Z: doc.Spawn.Z},
		Ticks:             doc.Stats.Ticks,
		RetryWaves:        doc.Stats.RetryWaves,
		Fallbacks:         doc.Stats.Fallbacks,
		Draws:             doc.Stats.Draws,
		Wraps:             doc.Stats.Wraps,
	}

	for id := 0; id < len(doc.Rooms); id++ {
		ry, ok := doc.Rooms[id]
		if !ok || ry == nil {
			return nil, fmt.Errorf("%w: room ids must run 0..%d, missing %d", ErrBadLayout, len(doc.Rooms)-1, id)
		}
		rec, err := ry.record(id)
		if err != nil {
			return nil, err
		}
		l.Rooms = append(l.Rooms, rec)
	}

	edges := make([]level.Edge, 0, len(doc.Edges))
	for i, e := range doc.Edges {
		if len(e) != 3 {
			return nil, fmt.Errorf("%w: edge %d must be [a, b, weight]", ErrBadLayout, i)
		}
		if e[0] < 0 || e[1] < 0 || e[0] >= len(l.Rooms) || e[1] >= len(l.Rooms) {
			return nil, fmt.Errorf("%w: edge %d references unknown room", ErrBadLayout, i)
		}
		edges = append(edges, level.Edge{A: e[0], B: e[1], Weight: e[2]})
	}
	l.Graph = level.GraphFromEdges(len(l.Rooms), edges)

	return l, nil
}

func (ry *RoomYAML) record(id int) (level.RoomRecord, error) {
	rec := level.RoomRecord{ID: id, Template: ry.Template, Yaw: ry.Yaw}

	t, err := room.ParseType(ry.Type)
	if err != nil {
		return rec, fmt.Errorf("%w: room %d: %v", ErrBadLayout, id, err)
	}
	rec.Type = t

	if rec.Position, err = vec(ry.Position); err != nil {
		return rec, fmt.Errorf("room %d position: %w", id, err)
	}

	for _, c := range ry.Cells {
		if len(c) != 2 {
			return rec, fmt.Errorf("%w: room %d cell %v", ErrBadLayout, id, c)
		}
		rec.Cells = append(rec.Cells, grid.Cell{X: c[0], Y: c[1]})
	}

	for _, p := range ry.Lights {
		v, err := vec(p)
		if err != nil {
			return rec, fmt.Errorf("room %d light: %w", id, err)
		}
		rec.Lights = append(rec.Lights, v)
	}

	for _, g := range ry.Gates {
		pos, err := vec(g.At)
		if err != nil {
			return rec, fmt.Errorf("room %d gate %d: %w", id, g.Index, err)
		}
		dir, err := geom.ParseDir(g.Direction)
		if err != nil {
			return rec, fmt.Errorf("%w: room %d gate %d: %v", ErrBadLayout, id, g.Index, err)
		}
		state, err := room.ParseGateState(g.State)
		if err != nil {
			return rec, fmt.Errorf("%w: room %d gate %d: %v", ErrBadLayout, id, g.Index, err)
		}
		rec.Gates = append(rec.Gates, level.GateRecord{
			Index:     g.Index,
			Position:  pos,
			Direction: dir,
			State:     state,
			Peer:      g.Peer,
		})
	}

	return rec, nil
}

func vec(v []float64) (geom.Vec2, error) {
	if len(v) != 2 {
		return geom.Vec2{}, fmt.Errorf("%w: point must be [x, z], got %v", ErrBadLayout, v)
	}
	return geom.Vec2{X: v[0], Z: v[1]}, nil
}
