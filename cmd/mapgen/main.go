// mapgen renders a saved layout as an ASCII map and checks that every room
// can be reached from the start room.
//
// Usage:
//
//	go run ./cmd/mapgen -input level.yaml
//	go run ./cmd/mapgen -id 3 -db data/levels.db -details
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/lawnchairsociety/levelforge/internal/export"
	"github.com/lawnchairsociety/levelforge/internal/level"
	"github.com/lawnchairsociety/levelforge/internal/storage"
)

func main() {
	inputFile := flag.String("input", "", "Path to a layout YAML file")
	layoutID := flag.Int64("id", 0, "Stored layout id (read from -db)")
	dbPath := flag.String("db", "data/levels.db", "Path to SQLite database")
	outputFile := flag.String("output", "", "Output file (empty for stdout)")
	details := flag.Bool("details", false, "Show room details, connections and legend")
	flag.Parse()

	if (*inputFile == "") == (*layoutID == 0) {
		fmt.Fprintln(os.Stderr, "Exactly one of -input or -id is required")
		flag.Usage()
		os.Exit(2)
	}

	layout, err := readLayout(*inputFile, *dbPath, *layoutID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading layout: %v\n", err)
		os.Exit(1)
	}

	var output strings.Builder

	output.WriteString(fmt.Sprintf("Level Map (Seed: %d, Rooms: %d)\n", layout.Seed, len(layout.Rooms)))
	output.WriteString(fmt.Sprintf("Fingerprint: %s\n", layout.Fingerprint()))
	output.WriteString(strings.Repeat("=", 60) + "\n\n")

	writeConnectivity(&output, layout)
	output.WriteString(export.MapString(layout, export.MapOptions{Details: *details}))

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output.String()), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Map written to %s\n", *outputFile)
	} else {
		fmt.Print(output.String())
	}
}

func readLayout(inputFile, dbPath string, id int64) (*level.Layout, error) {
	if inputFile != "" {
		return export.ReadLayoutFile(inputFile)
	}

	store, err := storage.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.LoadLayout(id)
}

// writeConnectivity reports rooms that the start room cannot reach, over
// primary connections alone and over every connection.
func writeConnectivity(output *strings.Builder, l *level.Layout) {
	if len(l.Rooms) == 0 || l.Graph == nil {
		return
	}

	reachable := l.Graph.Reachable(l.StartRoomID)
	var unreachable []int
	for _, r := range l.Rooms {
		if !reachable.Has(r.ID) {
			unreachable = append(unreachable, r.ID)
		}
	}

	if len(unreachable) > 0 {
		output.WriteString("WARNING: Unreachable rooms detected!\n")
		for _, id := range unreachable {
			r := l.Room(id)
			output.WriteString(fmt.Sprintf("  - room %d (%s, %s)\n", id, r.Type, r.Template))
		}
		output.WriteString("\n")
		return
	}

	tree := l.Graph.Reachable(l.StartRoomID, level.EdgePrimary)
	output.WriteString(fmt.Sprintf("All %d rooms are connected", len(l.Rooms)))
	if tree.Size() != len(l.Rooms) {
		output.WriteString(fmt.Sprintf(" (%d through primary connections only)", tree.Size()))
	}
	output.WriteString(".\n\n")
}
