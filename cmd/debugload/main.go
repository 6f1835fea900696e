package main

import (
	"flag"
	"fmt"

	"github.com/lawnchairsociety/levelforge/internal/content"
	"github.com/lawnchairsociety/levelforge/internal/level"
	"github.com/lawnchairsociety/levelforge/internal/room"
)

func main() {
	catalogFile := flag.String("catalog", "data/rooms.yaml", "Path to room catalog YAML file")
	unit := flag.Float64("unit", 20, "Grid cell size the catalog is checked against")
	builtin := flag.Bool("builtin", false, "Load the built-in catalog instead of -catalog")
	flag.Parse()

	source := *catalogFile
	var catalog *level.Catalog
	var err error
	if *builtin {
		source = "built-in catalog"
		catalog, err = content.DefaultCatalog(*unit)
	} else {
		catalog, err = content.LoadCatalog(*catalogFile, *unit)
	}
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	fmt.Printf("Loaded %s: %d placeable templates\n", source, len(catalog.Pool()))

	printTemplate("start", catalog.Start)
	printTemplate("fallback", catalog.Fallback)

	for _, t := range room.PoolTypes() {
		pool := catalog.Pools[t]
		fmt.Printf("\n%s pool (%d):\n", t, len(pool))
		for _, tpl := range pool {
			printTemplate("  -", tpl)
		}
	}
}

func printTemplate(label string, tpl *room.Template) {
	fmt.Printf("%s %s: %d cells, %d gates, %d lights\n", label, tpl.Name, len(tpl.Anchors), len(tpl.Gates), len(tpl.Lights))
	for i, g := range tpl.Gates {
		always := ""
		if g.MustAlwaysConnect {
			always = " (must connect)"
		}
		fmt.Printf("      gate %d at %s facing %s%s\n", i, g.Position, g.Direction, always)
	}
}
