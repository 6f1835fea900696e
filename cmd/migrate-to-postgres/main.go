// migrate-to-postgres copies stored layouts from SQLite to PostgreSQL.
// Layouts already present in PostgreSQL (same fingerprint) are skipped, so
// the tool can be re-run safely.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/levels.db \
//	    -pg-host localhost \
//	    -pg-port 5435 \
//	    -pg-user levelforge \
//	    -pg-password levelforge \
//	    -pg-database levelforge
package main

import (
	"errors"
	"flag"
	"log"

	"github.com/lawnchairsociety/levelforge/internal/storage"
)

func main() {
	// Parse command-line flags
	sqlitePath := flag.String("sqlite", "data/levels.db", "Path to SQLite database")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5435, "PostgreSQL port")
	pgUser := flag.String("pg-user", "levelforge", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "levelforge", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "levelforge", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	flag.Parse()

	log.Println("SQLite to PostgreSQL Migration Tool")
	log.Println("====================================")

	log.Printf("Opening SQLite database: %s", *sqlitePath)
	src, err := storage.Open(*sqlitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer src.Close()

	pg := storage.DefaultPostgresConfig()
	pg.Host = *pgHost
	pg.Port = *pgPort
	pg.User = *pgUser
	pg.Password = *pgPassword
	pg.Database = *pgDatabase
	pg.SSLMode = *pgSSLMode

	// Opening runs the schema migrations on PostgreSQL
	log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", *pgUser, *pgHost, *pgPort, *pgDatabase)
	dst, err := storage.OpenWithConfig(storage.Config{Driver: string(storage.DialectPostgres), Postgres: pg})
	if err != nil {
		log.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	defer dst.Close()

	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
	}

	layouts, err := src.ListLayouts(0)
	if err != nil {
		log.Fatalf("Failed to list layouts: %v", err)
	}

	var migrated, skipped int
	// Listing is newest first; copy oldest first to keep the order
	for i := len(layouts) - 1; i >= 0; i-- {
		summary := layouts[i]

		if id, err := dst.FindByFingerprint(summary.Fingerprint); err == nil {
			log.Printf("  Layout %d already present as %d, skipping", summary.ID, id)
			skipped++
			continue
		} else if !errors.Is(err, storage.ErrLayoutNotFound) {
			log.Fatalf("Failed to look up layout %d: %v", summary.ID, err)
		}

		if *dryRun {
			log.Printf("  Would migrate layout %d (seed %d, %d rooms)", summary.ID, summary.Seed, summary.RoomAmount)
			migrated++
			continue
		}

		layout, err := src.LoadLayout(summary.ID)
		if err != nil {
			log.Fatalf("Failed to load layout %d: %v", summary.ID, err)
		}
		id, err := dst.SaveLayout(layout)
		if err != nil && !errors.Is(err, storage.ErrLayoutExists) {
			log.Fatalf("Failed to save layout %d: %v", summary.ID, err)
		}
		log.Printf("  Migrated layout %d -> %d", summary.ID, id)
		migrated++
	}

	log.Println("====================================")
	log.Printf("Migration complete! Layouts migrated: %d, skipped: %d", migrated, skipped)
	if *dryRun {
		log.Println("(DRY RUN - No actual changes were made)")
	}
}
