package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"

	"github.com/lawnchairsociety/levelforge/internal/geom"
	"github.com/lawnchairsociety/levelforge/internal/grid"
	"github.com/lawnchairsociety/levelforge/internal/level"
	"github.com/lawnchairsociety/levelforge/internal/room"
)

// MapOptions controls ASCII map rendering
type MapOptions struct {
	Color   bool // colour room symbols by type
	Details bool // list rooms and connections below the map
}

// link is what joins a cell to its neighbour on one side
type link int

const (
	linkNone link = iota
	linkPrimary
	linkExtra
	linkInterior
)

var typeStyles = map[room.Type]color.Style{
	room.TypeStart:    {color.FgBlack, color.BgWhite},
	room.TypeEmpty:    {color.FgWhite},
	room.TypeEnemy:    {color.FgRed},
	room.TypeTrap:     {color.FgMagenta},
	room.TypeFragment: {color.FgCyan},
	room.TypeBoss:     {color.FgYellow, color.OpBold},
	room.TypeHealing:  {color.FgGreen},
}

// Symbol returns the single-letter map symbol for a room type
func Symbol(t room.Type) string {
	switch t {
	case room.TypeStart:
		return "S"
	case room.TypeEnemy:
		return "E"
	case room.TypeTrap:
		return "T"
	case room.TypeFragment:
		return "F"
	case room.TypeBoss:
		return "B"
	case room.TypeHealing:
		return "H"
	default:
		return "."
	}
}

// RenderMap draws the layout one cell at a time, north at the top.
// Each cell is 5 chars wide and 3 chars tall:
//
//	  |     (north link)
//	-[E]-   (west, room, east)
//	  |     (south link)
//
// Primary connections use | and -, extra ones : and ~, and cells of the same
// room are joined with #.
func RenderMap(w io.Writer, l *level.Layout, opts MapOptions) error {
	var output strings.Builder
	renderCells(&output, l, opts)

	if opts.Details {
		renderDetails(&output, l, opts)
	}

	_, err := io.WriteString(w, output.String())
	return err
}

// MapString is RenderMap into a string
func MapString(l *level.Layout, opts MapOptions) string {
	var b strings.Builder
	RenderMap(&b, l, opts)
	return b.String()
}

func renderCells(output *strings.Builder, l *level.Layout, opts MapOptions) {
	owners := make(map[grid.Cell]int)
	for _, r := range l.Rooms {
		for _, c := range r.Cells {
			owners[c] = r.ID
		}
	}
	if len(owners) == 0 {
		output.WriteString("  (No rooms to display)\n")
		return
	}

	links := cellLinks(l, owners)

	// Find bounds
	first := true
	var minX, maxX, minY, maxY int
	for c := range owners {
		if first {
			minX, maxX, minY, maxY = c.X, c.X, c.Y, c.Y
			first = false
			continue
		}
		minX, maxX = min(minX, c.X), max(maxX, c.X)
		minY, maxY = min(minY, c.Y), max(maxY, c.Y)
	}

	for y := maxY; y >= minY; y-- {
		// Top row (north links)
		for x := minX; x <= maxX; x++ {
			c := grid.Cell{X: x, Y: y}
			output.WriteString("  " + verticalChar(links[c][geom.North]) + "  ")
		}
		output.WriteString("\n")

		// Middle row (west-room-east)
		for x := minX; x <= maxX; x++ {
			c := grid.Cell{X: x, Y: y}
			id, ok := owners[c]
			if !ok {
				output.WriteString("     ")
				continue
			}
			output.WriteString(horizontalChar(links[c][geom.West]))
			output.WriteString("[")
			output.WriteString(symbolFor(l.Rooms[id].Type, opts.Color))
			output.WriteString("]")
			output.WriteString(horizontalChar(links[c][geom.East]))
		}
		output.WriteString("\n")

		// Bottom row (south links)
		for x := minX; x <= maxX; x++ {
			c := grid.Cell{X: x, Y: y}
			output.WriteString("  " + verticalChar(links[c][geom.South]) + "  ")
		}
		output.WriteString("\n")
	}
}

// cellLinks works out, for each occupied cell, what lies across each side
func cellLinks(l *level.Layout, owners map[grid.Cell]int) map[grid.Cell]map[geom.Dir]link {
	links := make(map[grid.Cell]map[geom.Dir]link, len(owners))
	set := func(c grid.Cell, d geom.Dir, k link) {
		if links[c] == nil {
			links[c] = make(map[geom.Dir]link, 4)
		}
		links[c][d] = k
	}

	for c, id := range owners {
		for _, d := range geom.AllDirections() {
			if other, ok := owners[c.Step(d)]; ok && other == id {
				set(c, d, linkInterior)
			}
		}
	}

	for _, r := range l.Rooms {
		for _, g := range r.Gates {
			if g.State != room.Connected || g.Peer < 0 {
				continue
			}
			k := linkPrimary
			if l.Graph != nil && l.Graph.Weight(r.ID, g.Peer) == level.EdgeExtra {
				k = linkExtra
			}
			inside := g.Position.Sub(g.Direction.Vec().Scale(l.UnitSize / 2))
			set(grid.CellOf(inside, l.UnitSize), g.Direction, k)
		}
	}

	return links
}

func verticalChar(k link) string {
	switch k {
	case linkPrimary:
		return "|"
	case linkExtra:
		return ":"
	case linkInterior:
		return "#"
	default:
		return " "
	}
}

func horizontalChar(k link) string {
	switch k {
	case linkPrimary:
		return "-"
	case linkExtra:
		return "~"
	case linkInterior:
		return "#"
	default:
		return " "
	}
}

func symbolFor(t room.Type, colored bool) string {
	s := Symbol(t)
	if !colored {
		return s
	}
	return typeStyles[t].Sprint(s)
}

func renderDetails(output *strings.Builder, l *level.Layout, opts MapOptions) {
	output.WriteString("\nRoom Details:\n")
	for _, r := range l.Rooms {
		details := fmt.Sprintf("  [%s] %3d %-14s %-9s at %v yaw %3d",
			symbolFor(r.Type, opts.Color), r.ID, truncate(r.Template, 14), r.Type, r.Position, r.Yaw)
		if r.ID == l.StartRoomID {
			details += " (start)"
		}
		if r.ID == l.Spawn.RoomID {
			details += " (spawn)"
		}
		output.WriteString(details + "\n")
	}

	output.WriteString("\nConnections:\n")
	if l.Graph == nil {
		output.WriteString("  (none)\n")
	} else {
		for _, e := range l.Graph.Edges() {
			kind := "primary"
			if e.Weight == level.EdgeExtra {
				kind = "extra"
			}
			output.WriteString(fmt.Sprintf("  %3d <-> %-3d %s\n", e.A, e.B, kind))
		}
	}

	output.WriteString("\nLegend:\n")
	for _, t := range append([]room.Type{room.TypeStart}, room.PoolTypes()...) {
		output.WriteString(fmt.Sprintf("  [%s] %s\n", symbolFor(t, opts.Color), t))
	}
	output.WriteString("  | -  primary connection\n")
	output.WriteString("  : ~  extra connection\n")
	output.WriteString("  #    same room\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
