// levelgen generates dungeon layouts from a room catalog.
//
// Usage:
//
//	go run ./cmd/levelgen -seed 42 -rooms 30 -out level.yaml
//	go run ./cmd/levelgen -save             # store the layout in the database
//	go run ./cmd/levelgen -list 10          # list stored layouts
//	go run ./cmd/levelgen -serve            # stream generation over WebSocket
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
	"golang.org/x/term"

	"github.com/lawnchairsociety/levelforge/internal/config"
	"github.com/lawnchairsociety/levelforge/internal/content"
	"github.com/lawnchairsociety/levelforge/internal/export"
	"github.com/lawnchairsociety/levelforge/internal/level"
	"github.com/lawnchairsociety/levelforge/internal/logger"
	"github.com/lawnchairsociety/levelforge/internal/room"
	"github.com/lawnchairsociety/levelforge/internal/server"
	"github.com/lawnchairsociety/levelforge/internal/storage"
)

func main() {
	// Parse command-line flags
	configFile := flag.String("config", "data/levelgen.yaml", "Path to levelgen config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	seed := flag.Int64("seed", 0, "Generation seed (-1 for a random run)")
	rooms := flag.Int("rooms", 0, "Target room amount, start room included")
	shape := flag.Float64("shape", 0, "Level shape: 0 corridor, 1 square")
	inter := flag.Float64("inter", 0, "Interconnectivity: chance of extra doors between neighbours")
	catalogFile := flag.String("catalog", "", "Path to room catalog YAML file")
	outFile := flag.String("out", "", "Write the layout to this YAML file")
	showMap := flag.Bool("map", true, "Print an ASCII map of the layout")
	details := flag.Bool("details", false, "List rooms and connections below the map")
	colorMode := flag.String("color", "auto", "Colour the map: auto, always or never")
	save := flag.Bool("save", false, "Store the layout in the database")
	list := flag.Int("list", 0, "List the most recent stored layouts and exit")
	serve := flag.Bool("serve", false, "Run the WebSocket generation server")
	addr := flag.String("addr", "", "WebSocket listen address (overrides config)")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(*loggingConfig)
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags given on the command line win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Generation.Seed = *seed
		case "rooms":
			cfg.Generation.RoomAmount = *rooms
		case "shape":
			cfg.Generation.LevelShape = *shape
		case "inter":
			cfg.Generation.Interconnectivity = *inter
		case "catalog":
			cfg.Content.CatalogPath = *catalogFile
		case "addr":
			cfg.WebSocket.Address = *addr
		}
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *list > 0 {
		listLayouts(cfg, *list)
		return
	}

	catalog := loadCatalog(cfg)

	if *serve {
		runServer(cfg, catalog)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	layout, err := level.Generate(ctx, cfg.Generation.Params(), catalog)
	if err != nil {
		log.Fatalf("Generation failed: %v", err)
	}

	logger.Info("Layout ready",
		"rooms", len(layout.Rooms),
		"boss_rooms", layout.CountType(room.TypeBoss),
		"fingerprint", layout.Fingerprint())

	if *showMap {
		opts := export.MapOptions{Color: useColor(*colorMode), Details: *details}
		if err := export.RenderMap(os.Stdout, layout, opts); err != nil {
			log.Fatalf("Failed to render map: %v", err)
		}
	}

	if *outFile != "" {
		if err := export.WriteLayoutFile(*outFile, layout); err != nil {
			log.Fatalf("Failed to write layout: %v", err)
		}
		logger.Info("Layout written", "path", *outFile)
	}

	if *save {
		saveLayout(cfg, layout)
	}
}

// loadCatalog reads the configured catalog, falling back to the built-in
// one when the file does not exist.
func loadCatalog(cfg *config.Config) *level.Catalog {
	unit := cfg.Generation.UnitSize

	catalog, err := content.LoadCatalog(cfg.Content.CatalogPath, unit)
	if err == nil {
		logger.Info("Room catalog loaded", "path", cfg.Content.CatalogPath, "templates", len(catalog.Pool()))
		return catalog
	}
	if !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load room catalog: %v", err)
	}

	logger.Warning("Room catalog not found, using built-in catalog", "path", cfg.Content.CatalogPath)
	catalog, err = content.DefaultCatalog(unit)
	if err != nil {
		log.Fatalf("Failed to load built-in catalog: %v", err)
	}
	return catalog
}

// useColor decides whether the map gets ANSI colours
func useColor(mode string) bool {
	switch mode {
	case "always":
		color.ForceOpenColor()
		return true
	case "never":
		return false
	default:
		return term.IsTerminal(int(os.Stdout.Fd()))
	}
}

func openStore(cfg *config.Config) *storage.Store {
	store, err := storage.OpenWithConfig(cfg.Storage.Store())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	return store
}

func saveLayout(cfg *config.Config, layout *level.Layout) {
	store := openStore(cfg)
	defer store.Close()

	id, err := store.SaveLayout(layout)
	switch {
	case errors.Is(err, storage.ErrLayoutExists):
		logger.Info("Layout already stored", "id", id)
	case err != nil:
		log.Fatalf("Failed to save layout: %v", err)
	default:
		logger.Info("Layout stored", "id", id)
	}
}

func listLayouts(cfg *config.Config, limit int) {
	store := openStore(cfg)
	defer store.Close()

	layouts, err := store.ListLayouts(limit)
	if err != nil {
		log.Fatalf("Failed to list layouts: %v", err)
	}
	if len(layouts) == 0 {
		fmt.Println("No stored layouts.")
		return
	}

	fmt.Printf("%-6s %-12s %-6s %-6s %-20s %s\n", "ID", "SEED", "ROOMS", "SHAPE", "CREATED", "FINGERPRINT")
	for _, l := range layouts {
		fmt.Printf("%-6d %-12d %-6d %-6.2f %-20s %.16s\n",
			l.ID, l.Seed, l.RoomAmount, l.LevelShape, l.CreatedAt.Format("2006-01-02 15:04:05"), l.Fingerprint)
	}
}

func runServer(cfg *config.Config, catalog *level.Catalog) {
	// Saving over the wire is optional; a broken database only disables it.
	store, err := storage.OpenWithConfig(cfg.Storage.Store())
	if err != nil {
		logger.Warning("Layout store unavailable, saving disabled", "error", err)
		store = nil
	} else {
		defer store.Close()
	}

	srv := server.New(cfg, catalog, store)

	go func() {
		if err := srv.Start(cfg.WebSocket.Address); err != nil {
			log.Fatalf("WebSocket server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down")
	srv.Shutdown()
}
