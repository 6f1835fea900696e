// Package storage persists finished layouts in SQLite or PostgreSQL.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lawnchairsociety/levelforge/internal/logger"
)

// Store wraps the database connection and provides layout persistence.
type Store struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*Store, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig connects to the configured database and runs migrations.
func OpenWithConfig(cfg Config) (*Store, error) {
	dialect := NewDialect(DialectType(cfg.Driver))

	var dsn string
	switch DialectType(cfg.Driver) {
	case DialectPostgres:
		dsn = cfg.Postgres.DSN()
	case DialectSQLite, "":
		dir := filepath.Dir(cfg.SQLitePath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = cfg.SQLitePath
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == string(DialectPostgres) {
		db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run %q: %w", stmt, err)
		}
	}

	s := &Store{db: db, dialect: dialect, qb: NewQueryBuilder(dialect)}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("Layout store opened", "driver", dialect.DriverName())
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema if it doesn't exist.
func (s *Store) migrate() error {
	float := s.dialect.FloatType()
	r := strings.NewReplacer("{serial}", s.dialect.SerialPrimaryKey(), "{float}", float)

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS layouts (
			id {serial},
			fingerprint TEXT UNIQUE NOT NULL,
			seed BIGINT NOT NULL,
			room_amount INTEGER NOT NULL,
			level_shape {float} NOT NULL,
			interconnectivity {float} NOT NULL,
			unit_size {float} NOT NULL,
			start_room INTEGER NOT NULL DEFAULT 0,
			spawn_room INTEGER NOT NULL DEFAULT 0,
			spawn_x {float} NOT NULL DEFAULT 0,
			spawn_y {float} NOT NULL DEFAULT 0,
			spawn_z {float} NOT NULL DEFAULT 0,
			ticks INTEGER NOT NULL DEFAULT 0,
			retry_waves INTEGER NOT NULL DEFAULT 0,
			fallbacks INTEGER NOT NULL DEFAULT 0,
			draws INTEGER NOT NULL DEFAULT 0,
			wraps INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS layout_rooms (
			layout_id INTEGER NOT NULL REFERENCES layouts(id) ON DELETE CASCADE,
			room_id INTEGER NOT NULL,
			room_type TEXT NOT NULL,
			template TEXT NOT NULL,
			x {float} NOT NULL,
			z {float} NOT NULL,
			yaw INTEGER NOT NULL,
			cells TEXT NOT NULL DEFAULT '[]',
			lights TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY (layout_id, room_id)
		)`,

		`CREATE TABLE IF NOT EXISTS layout_gates (
			layout_id INTEGER NOT NULL REFERENCES layouts(id) ON DELETE CASCADE,
			room_id INTEGER NOT NULL,
			gate_index INTEGER NOT NULL,
			x {float} NOT NULL,
			z {float} NOT NULL,
			direction TEXT NOT NULL,
			state TEXT NOT NULL,
			peer INTEGER NOT NULL DEFAULT -1,
			PRIMARY KEY (layout_id, room_id, gate_index)
		)`,

		`CREATE TABLE IF NOT EXISTS layout_edges (
			layout_id INTEGER NOT NULL REFERENCES layouts(id) ON DELETE CASCADE,
			room_a INTEGER NOT NULL,
			room_b INTEGER NOT NULL,
			weight INTEGER NOT NULL,
			PRIMARY KEY (layout_id, room_a, room_b)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_layouts_seed ON layouts(seed)`,
	}

	for _, m := range migrations {
		m = r.Replace(m)
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	return nil
}

// DB returns the underlying sql.DB for advanced operations.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect in use
func (s *Store) Dialect() Dialect {
	return s.dialect
}
