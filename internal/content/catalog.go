// Package content loads room catalogs from YAML.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/levelforge/internal/geom"
	"github.com/lawnchairsociety/levelforge/internal/level"
	"github.com/lawnchairsociety/levelforge/internal/room"
)

//go:embed default_rooms.yaml
var defaultRooms []byte

var (
	ErrUnknownRoom   = errors.New("content: unknown room")
	ErrDuplicateRoom = errors.New("content: duplicate room name")
	ErrBadPoint      = errors.New("content: point must be [x, z]")
	ErrUnitMismatch  = errors.New("content: catalog authored for a different unit size")
)

// CatalogFile represents the structure of a room catalog YAML file
type CatalogFile struct {
	// UnitSize is the cell size the catalog was authored for. 0 skips the check.
	UnitSize float64          `yaml:"unit_size,omitempty"`
	Start    string           `yaml:"start"`
	Fallback string           `yaml:"fallback"`
	Rooms    []RoomDefinition `yaml:"rooms"`
}

// RoomDefinition is one room template as authored
type RoomDefinition struct {
	Name    string           `yaml:"name"`
	Type    string           `yaml:"type"`
	Anchors [][]float64      `yaml:"anchors"`
	Gates   []GateDefinition `yaml:"gates"`
	Lights  [][]float64      `yaml:"lights,omitempty"`
}

// GateDefinition is one gate as authored
type GateDefinition struct {
	At          []float64 `yaml:"at"`
	Direction   string    `yaml:"direction,omitempty"` // Derived from the nearest anchor when empty
	MustConnect bool      `yaml:"must_connect,omitempty"`
}

// LoadCatalog reads a catalog file and builds a validated catalog for unit.
func LoadCatalog(filename string, unit float64) (*level.Catalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data, unit)
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog(unit float64) (*level.Catalog, error) {
	return ParseCatalog(defaultRooms, unit)
}

// ParseCatalog decodes YAML catalog data
func ParseCatalog(data []byte, unit float64) (*level.Catalog, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	return BuildCatalog(&file, unit)
}

// BuildCatalog converts a catalog file into templates. The start and
// fallback rooms are taken out of the pool; every other room joins the pool
// of its type in file order.
func BuildCatalog(file *CatalogFile, unit float64) (*level.Catalog, error) {
	if file.UnitSize != 0 && file.UnitSize != unit {
		return nil, fmt.Errorf("%w: file uses %v, generator uses %v", ErrUnitMismatch, file.UnitSize, unit)
	}

	byName := make(map[string]*room.Template, len(file.Rooms))
	var order []*room.Template
	for _, def := range file.Rooms {
		if _, dup := byName[def.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateRoom, def.Name)
		}
		tpl, err := buildTemplate(def)
		if err != nil {
			return nil, err
		}
		byName[def.Name] = tpl
		order = append(order, tpl)
	}

	start, ok := byName[file.Start]
	if !ok {
		return nil, fmt.Errorf("%w: start room %q", ErrUnknownRoom, file.Start)
	}
	fallback, ok := byName[file.Fallback]
	if !ok {
		return nil, fmt.Errorf("%w: fallback room %q", ErrUnknownRoom, file.Fallback)
	}

	catalog := &level.Catalog{Start: start, Fallback: fallback}
	for _, tpl := range order {
		if tpl == start || tpl == fallback {
			continue
		}
		catalog.Add(tpl)
	}

	if err := catalog.Validate(unit); err != nil {
		return nil, err
	}
	return catalog, nil
}

func buildTemplate(def RoomDefinition) (*room.Template, error) {
	t, err := room.ParseType(def.Type)
	if err != nil {
		return nil, fmt.Errorf("room %q: %w", def.Name, err)
	}

	tpl := &room.Template{Name: def.Name, Type: t}

	for i, a := range def.Anchors {
		p, err := point(a)
		if err != nil {
			return nil, fmt.Errorf("room %q anchor %d: %w", def.Name, i, err)
		}
		tpl.Anchors = append(tpl.Anchors, p)
	}

	for i, g := range def.Gates {
		p, err := point(g.At)
		if err != nil {
			return nil, fmt.Errorf("room %q gate %d: %w", def.Name, i, err)
		}
		spec := room.GateSpec{Position: p, MustAlwaysConnect: g.MustConnect}
		if g.Direction != "" {
			if spec.Direction, err = geom.ParseDir(g.Direction); err != nil {
				return nil, fmt.Errorf("room %q gate %d: %w", def.Name, i, err)
			}
		}
		tpl.Gates = append(tpl.Gates, spec)
	}

	for i, l := range def.Lights {
		p, err := point(l)
		if err != nil {
			return nil, fmt.Errorf("room %q light %d: %w", def.Name, i, err)
		}
		tpl.Lights = append(tpl.Lights, p)
	}

	return tpl, nil
}

func point(v []float64) (geom.Vec2, error) {
	if len(v) != 2 {
		return geom.Vec2{}, fmt.Errorf("%w, got %v", ErrBadPoint, v)
	}
	return geom.Vec2{X: v[0], Z: v[1]}, nil
}
