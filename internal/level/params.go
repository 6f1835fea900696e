package level

import (
	"fmt"

	"github.com/lawnchairsociety/levelforge/internal/room"
)

// Spawn is where the player-placement collaborator should put the player
// once the level is finished.
type Spawn struct {
	RoomID int
	X      float64
	Y      float64
	Z      float64
}

// Params contains the inputs for one generation run
type Params struct {
	Seed              int64   // rng.NoSeed for a non-deterministic run
	RoomAmount        int     // Target number of rooms, start room included
	LevelShape        float64 // 0 = corridor shaped, 1 = square shaped
	Interconnectivity float64 // Chance of opening an extra door between neighbours
	UnitSize          float64 // Edge length of one grid cell in world units
	IdleTickThreshold int     // Empty-queue ticks tolerated before a wave counts as stalled
	MaxRetryWaves     int     // Forced-branching waves allowed before giving up
	MaxTicks          int     // Run gives up after this many ticks; 0 means no limit
	Spawn             Spawn
}

// DefaultParams returns the stock generation settings
func DefaultParams() Params {
	return Params{
		Seed:              123,
		RoomAmount:        20,
		LevelShape:        0.5,
		Interconnectivity: 0.2,
		UnitSize:          20,
		IdleTickThreshold: 20,
		MaxRetryWaves:     32,
		Spawn:             Spawn{RoomID: 0, X: 0, Y: 1.28, Z: 0},
	}
}

// Validate rejects parameters a run cannot start from
func (p Params) Validate() error {
	switch {
	case p.RoomAmount < 1:
		return fmt.Errorf("%w: room amount %d must be positive", ErrInvalidParams, p.RoomAmount)
	case p.LevelShape < 0 || p.LevelShape > 1:
		return fmt.Errorf("%w: level shape %v outside [0,1]", ErrInvalidParams, p.LevelShape)
	case p.Interconnectivity < 0 || p.Interconnectivity > 1:
		return fmt.Errorf("%w: interconnectivity %v outside [0,1]", ErrInvalidParams, p.Interconnectivity)
	case p.UnitSize <= 0:
		return fmt.Errorf("%w: unit size %v must be positive", ErrInvalidParams, p.UnitSize)
	case p.IdleTickThreshold < 0:
		return fmt.Errorf("%w: idle tick threshold %d is negative", ErrInvalidParams, p.IdleTickThreshold)
	case p.MaxRetryWaves < 0:
		return fmt.Errorf("%w: max retry waves %d is negative", ErrInvalidParams, p.MaxRetryWaves)
	case p.MaxTicks < 0:
		return fmt.Errorf("%w: max ticks %d is negative", ErrInvalidParams, p.MaxTicks)
	case p.Spawn.RoomID < 0 || p.Spawn.RoomID >= p.RoomAmount:
		return fmt.Errorf("%w: spawn room %d outside 0..%d", ErrInvalidParams, p.Spawn.RoomID, p.RoomAmount-1)
	}
	return nil
}

// Catalog holds the room templates a run may place.
type Catalog struct {
	Start    *room.Template
	Fallback *room.Template
	Pools    map[room.Type][]*room.Template
}

// Validate checks every template against the cell size. Templates without a
// declared gate direction get it filled in.
func (c *Catalog) Validate(unit float64) error {
	if c.Start == nil {
		return fmt.Errorf("%w: no start room", ErrInvalidCatalog)
	}
	if c.Fallback == nil {
		return fmt.Errorf("%w: no fallback connector", ErrInvalidCatalog)
	}
	if err := c.Start.Validate(unit); err != nil {
		return fmt.Errorf("%w: start room: %w", ErrInvalidCatalog, err)
	}
	if err := c.Fallback.Validate(unit); err != nil {
		return fmt.Errorf("%w: fallback connector: %w", ErrInvalidCatalog, err)
	}
	for _, t := range room.PoolTypes() {
		for _, tpl := range c.Pools[t] {
			if err := tpl.Validate(unit); err != nil {
				return fmt.Errorf("%w: %s pool: %w", ErrInvalidCatalog, t, err)
			}
		}
	}
	if len(c.Pool()) == 0 {
		return ErrEmptyPool
	}
	return nil
}

// Pool returns every placeable template, pools concatenated in the order of
// room.PoolTypes.
func (c *Catalog) Pool() []*room.Template {
	var all []*room.Template
	for _, t := range room.PoolTypes() {
		all = append(all, c.Pools[t]...)
	}
	return all
}

// Add appends a template to the pool of its type
func (c *Catalog) Add(tpl *room.Template) {
	if c.Pools == nil {
		c.Pools = make(map[room.Type][]*room.Template)
	}
	c.Pools[tpl.Type] = append(c.Pools[tpl.Type], tpl)
}
