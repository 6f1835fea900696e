package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/levelforge/internal/level"
	"github.com/lawnchairsociety/levelforge/internal/storage"
	"github.com/lawnchairsociety/levelforge/internal/visibility"
)

// ErrInvalid is wrapped by every Validate failure
var ErrInvalid = errors.New("config: invalid configuration")

// Config holds levelgen configuration settings.
type Config struct {
	Generation  GenerationConfig  `yaml:"generation"`
	Content     ContentConfig     `yaml:"content"`
	Visibility  VisibilityConfig  `yaml:"visibility"`
	Storage     StorageConfig     `yaml:"storage"`
	WebSocket   WebSocketConfig   `yaml:"websocket"`
	Connections ConnectionsConfig `yaml:"connections"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Throttle    ThrottleConfig    `yaml:"throttle"`
}

// GenerationConfig holds the level generation parameters.
type GenerationConfig struct {
	// Seed drives every random choice. -1 picks a seed from the clock.
	Seed int64 `yaml:"seed"`

	// RoomAmount is the target number of rooms, start room included.
	RoomAmount int `yaml:"room_amount"`

	// LevelShape biases toward corridors (0) or wide branching levels (1).
	LevelShape float64 `yaml:"level_shape"`

	// Interconnectivity is the chance an extra door opens between two
	// neighbouring rooms whose gates face each other.
	Interconnectivity float64 `yaml:"interconnectivity"`

	// UnitSize is the edge length of one grid cell in world units.
	UnitSize float64 `yaml:"unit_size"`

	IdleTickThreshold int `yaml:"idle_tick_threshold"`
	MaxRetryWaves     int `yaml:"max_retry_waves"`

	// MaxTicks aborts a run after this many ticks. 0 means unlimited.
	MaxTicks int `yaml:"max_ticks"`

	Spawn SpawnConfig `yaml:"spawn"`
}

// SpawnConfig is where the player starts once the level is built.
type SpawnConfig struct {
	RoomID int     `yaml:"room_id"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Z      float64 `yaml:"z"`
}

// ContentConfig points at the room catalog.
type ContentConfig struct {
	// CatalogPath is the YAML file describing room templates.
	CatalogPath string `yaml:"catalog_path"`
}

// VisibilityConfig controls which rooms and lights are active while the
// player walks the level.
type VisibilityConfig struct {
	// Optimization keeps only the occupied room active.
	Optimization bool `yaml:"optimization"`

	// ShowExtraRooms also keeps the occupied room's neighbours active.
	ShowExtraRooms bool `yaml:"show_extra_rooms"`

	// LightOptimization turns lights on only in the occupied room.
	LightOptimization bool `yaml:"light_optimization"`

	// LightDistanceOptimization turns on lights within LightUpDistance of
	// the player instead.
	LightDistanceOptimization bool    `yaml:"light_distance_optimization"`
	LightUpDistance           float64 `yaml:"light_up_distance"`
}

// StorageConfig selects where finished layouts are saved.
type StorageConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver     string         `yaml:"driver"`
	SQLitePath string         `yaml:"sqlite_path"`
	Postgres   PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// WebSocketConfig holds WebSocket-specific settings.
type WebSocketConfig struct {
	// Address the event server listens on.
	Address string `yaml:"address"`

	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket message size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`

	// TickIntervalMs paces streamed generation. 0 streams as fast as the
	// client reads.
	TickIntervalMs int `yaml:"tick_interval_ms"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxTotal is the maximum number of concurrent generation streams.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`

	// MaxPerIP is the maximum number of streams from a single IP address.
	// 0 means unlimited.
	MaxPerIP int `yaml:"max_per_ip"`
}

// RateLimitConfig holds lockout settings for clients sending rejected
// requests.
type RateLimitConfig struct {
	// MaxRejections is the number of rejected requests before lockout.
	MaxRejections int `yaml:"max_rejections"`

	// LockoutSeconds is the initial lockout duration in seconds.
	LockoutSeconds int `yaml:"lockout_seconds"`

	// MaxLockoutSeconds caps the doubling lockout.
	MaxLockoutSeconds int `yaml:"max_lockout_seconds"`
}

// ThrottleConfig limits how often one connection may start a generation.
type ThrottleConfig struct {
	Enabled        bool `yaml:"enabled"`
	MaxGenerations int  `yaml:"max_generations"`
	WindowSeconds  int  `yaml:"window_seconds"`
}

// DefaultConfig returns a Config with the stock generation settings.
func DefaultConfig() *Config {
	return &Config{
		Generation: GenerationConfig{
			Seed:              123,
			RoomAmount:        20,
			LevelShape:        0.5,
			Interconnectivity: 0.2,
			UnitSize:          20,
			IdleTickThreshold: 20,
			MaxRetryWaves:     32,
			Spawn:             SpawnConfig{RoomID: 0, X: 0, Y: 1.28, Z: 0},
		},
		Content: ContentConfig{
			CatalogPath: "data/rooms.yaml",
		},
		Visibility: VisibilityConfig{
			Optimization:    true,
			ShowExtraRooms:  true,
			LightUpDistance: 10,
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "data/levels.db",
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
			},
		},
		WebSocket: WebSocketConfig{
			Address:        ":8080",
			AllowedOrigins: []string{}, // Same-origin only by default
			MaxMessageSize: 4096,
		},
		Connections: ConnectionsConfig{
			MaxTotal: 16,
			MaxPerIP: 4,
		},
		RateLimit: RateLimitConfig{
			MaxRejections:     5,
			LockoutSeconds:    30,
			MaxLockoutSeconds: 300,
		},
		Throttle: ThrottleConfig{
			Enabled:        true,
			MaxGenerations: 10,
			WindowSeconds:  10,
		},
	}
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, returns default config.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("config: parse %s: %w", path, err)
	}

	return config, nil
}

// Validate checks the settings that generation and storage depend on.
func (c *Config) Validate() error {
	if err := c.Generation.Params().Validate(); err != nil {
		return fmt.Errorf("%w: generation: %w", ErrInvalid, err)
	}
	if c.Content.CatalogPath == "" {
		return fmt.Errorf("%w: content.catalog_path is empty", ErrInvalid)
	}
	if c.Visibility.LightUpDistance < 0 {
		return fmt.Errorf("%w: visibility.light_up_distance %v is negative", ErrInvalid, c.Visibility.LightUpDistance)
	}
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: storage.sqlite_path is empty", ErrInvalid)
		}
	case "postgres":
		if c.Storage.Postgres.Database == "" {
			return fmt.Errorf("%w: storage.postgres.database is empty", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalid, c.Storage.Driver)
	}
	if c.WebSocket.TickIntervalMs < 0 {
		return fmt.Errorf("%w: websocket.tick_interval_ms is negative", ErrInvalid)
	}
	return nil
}

// Options converts the visibility section into tracker options
func (v VisibilityConfig) Options() visibility.Options {
	return visibility.Options{
		Optimization:              v.Optimization,
		ShowExtraRooms:            v.ShowExtraRooms,
		LightOptimization:         v.LightOptimization,
		LightDistanceOptimization: v.LightDistanceOptimization,
		LightUpDistance:           v.LightUpDistance,
	}
}

// Store converts the storage section into database settings, with the
// recommended pool settings for PostgreSQL.
func (s StorageConfig) Store() storage.Config {
	pg := storage.DefaultPostgresConfig()
	pg.Host = s.Postgres.Host
	pg.Port = s.Postgres.Port
	pg.User = s.Postgres.User
	pg.Password = s.Postgres.Password
	pg.Database = s.Postgres.Database
	pg.SSLMode = s.Postgres.SSLMode

	return storage.Config{
		Driver:     s.Driver,
		SQLitePath: s.SQLitePath,
		Postgres:   pg,
	}
}

// Params converts the generation section into generator parameters.
func (g GenerationConfig) Params() level.Params {
	return level.Params{
		Seed:              g.Seed,
		RoomAmount:        g.RoomAmount,
		LevelShape:        g.LevelShape,
		Interconnectivity: g.Interconnectivity,
		UnitSize:          g.UnitSize,
		IdleTickThreshold: g.IdleTickThreshold,
		MaxRetryWaves:     g.MaxRetryWaves,
		MaxTicks:          g.MaxTicks,
		Spawn: level.Spawn{
			RoomID: g.Spawn.RoomID,
			X:      g.Spawn.X,
			Y:      g.Spawn.Y,
			Z:      g.Spawn.Z,
		},
	}
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *WebSocketConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host (same-origin policy).
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // No origin header means a non-browser client
	}

	// "http://localhost:3000" -> "localhost:3000"
	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
