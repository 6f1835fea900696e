package storage

import (
	"fmt"
	"os"
	"testing"
	"time"
)

// postgresTestConfig returns PostgreSQL config if testing against it is enabled.
// Set these environment variables to run PostgreSQL tests:
//
//	LEVELFORGE_TEST_POSTGRES (any value enables the tests)
//	LEVELFORGE_TEST_POSTGRES_HOST (default: localhost)
//	LEVELFORGE_TEST_POSTGRES_PORT (default: 5432)
//	LEVELFORGE_TEST_POSTGRES_USER (default: levelforge)
//	LEVELFORGE_TEST_POSTGRES_PASSWORD (default: levelforge)
//	LEVELFORGE_TEST_POSTGRES_DATABASE (default: levelforge_test)
func postgresTestConfig() *Config {
	if os.Getenv("LEVELFORGE_TEST_POSTGRES") == "" {
		return nil
	}

	env := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}

	port := 5432
	if portStr := os.Getenv("LEVELFORGE_TEST_POSTGRES_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &port)
	}

	return &Config{
		Driver: "postgres",
		Postgres: PostgresConfig{
			Host:            env("LEVELFORGE_TEST_POSTGRES_HOST", "localhost"),
			Port:            port,
			User:            env("LEVELFORGE_TEST_POSTGRES_USER", "levelforge"),
			Password:        env("LEVELFORGE_TEST_POSTGRES_PASSWORD", "levelforge"),
			Database:        env("LEVELFORGE_TEST_POSTGRES_DATABASE", "levelforge_test"),
			SSLMode:         "disable",
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Minute,
		},
	}
}

func setupPostgresTestDB(t *testing.T) *Store {
	t.Helper()
	cfg := postgresTestConfig()
	if cfg == nil {
		t.Skip("Skipping PostgreSQL test: LEVELFORGE_TEST_POSTGRES not set")
	}

	s, err := OpenWithConfig(*cfg)
	if err != nil {
		t.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	for _, table := range []string{"layout_edges", "layout_gates", "layout_rooms", "layouts"} {
		if _, err := s.DB().Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("Failed to clear %s: %v", table, err)
		}
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgres_SaveAndLoadLayout(t *testing.T) {
	s := setupPostgresTestDB(t)
	l := generate(t, 5)

	id, err := s.SaveLayout(l)
	if err != nil {
		t.Fatalf("SaveLayout() error = %v", err)
	}
	if id <= 0 {
		t.Errorf("SaveLayout() id = %d", id)
	}

	loaded, err := s.LoadLayout(id)
	if err != nil {
		t.Fatalf("LoadLayout() error = %v", err)
	}
	if loaded.Fingerprint() != l.Fingerprint() {
		t.Error("loaded layout fingerprint differs from the saved one")
	}

	if err := s.DeleteLayout(id); err != nil {
		t.Errorf("DeleteLayout() error = %v", err)
	}
}
