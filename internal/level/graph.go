package level

import (
	"fmt"
	"sort"

	"github.com/zyedidia/generic/mapset"
)

// Edge weights stored in the adjacency graph
const (
	EdgeNone    = 0
	EdgePrimary = 1 // placed through a gate during the primary wave
	EdgeExtra   = 2 // opened by the secondary pass
)

// Edge is one undirected connection between two rooms, with A < B.
type Edge struct {
	A, B   int
	Weight int
}

// Graph is a symmetric adjacency matrix over room ids. Edges are only ever
// added; an existing edge keeps its weight.
type Graph struct {
	n int
	w []int
}

// NewGraph creates an empty graph for rooms 0..n-1
func NewGraph(n int) *Graph {
	return &Graph{n: n, w: make([]int, n*n)}
}

// Size returns the number of room slots
func (g *Graph) Size() int {
	return g.n
}

func (g *Graph) check(a, b int) {
	if a < 0 || a >= g.n || b < 0 || b >= g.n {
		panic(fmt.Sprintf("level: edge (%d,%d) outside graph of size %d", a, b, g.n))
	}
}

// AddEdge connects a and b with the given weight if they are not connected
// yet. It reports whether a new edge was recorded.
func (g *Graph) AddEdge(a, b, weight int) bool {
	g.check(a, b)
	if a == b || weight == EdgeNone || g.w[a*g.n+b] != EdgeNone {
		return false
	}
	g.w[a*g.n+b] = weight
	g.w[b*g.n+a] = weight
	return true
}

// Weight returns the weight of the edge between a and b
func (g *Graph) Weight(a, b int) int {
	g.check(a, b)
	return g.w[a*g.n+b]
}

// Matrix returns a copy of the adjacency matrix
func (g *Graph) Matrix() [][]int {
	m := make([][]int, g.n)
	for i := range m {
		m[i] = make([]int, g.n)
		copy(m[i], g.w[i*g.n:(i+1)*g.n])
	}
	return m
}

// Edges returns every edge once, sorted by A then B.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for a := 0; a < g.n; a++ {
		for b := a + 1; b < g.n; b++ {
			if w := g.w[a*g.n+b]; w != EdgeNone {
				edges = append(edges, Edge{A: a, B: b, Weight: w})
			}
		}
	}
	return edges
}

// Neighbors returns the rooms connected to a, in id order.
func (g *Graph) Neighbors(a int) []int {
	g.check(a, a)
	var out []int
	for b := 0; b < g.n; b++ {
		if g.w[a*g.n+b] != EdgeNone {
			out = append(out, b)
		}
	}
	return out
}

// Degree returns how many rooms a is connected to
func (g *Graph) Degree(a int) int {
	return len(g.Neighbors(a))
}

// IsSymmetric reports whether edge(i,j) == edge(j,i) for every pair
func (g *Graph) IsSymmetric() bool {
	for a := 0; a < g.n; a++ {
		for b := a + 1; b < g.n; b++ {
			if g.w[a*g.n+b] != g.w[b*g.n+a] {
				return false
			}
		}
	}
	return true
}

// Reachable returns every room reachable from start through edges whose
// weight is one of weights. With no weights every edge counts.
func (g *Graph) Reachable(start int, weights ...int) mapset.Set[int] {
	g.check(start, start)
	allowed := func(w int) bool {
		if w == EdgeNone {
			return false
		}
		if len(weights) == 0 {
			return true
		}
		for _, ok := range weights {
			if w == ok {
				return true
			}
		}
		return false
	}

	visited := mapset.New[int]()
	queue := []int{start}
	visited.Put(start)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for b := 0; b < g.n; b++ {
			if !allowed(g.w[current*g.n+b]) || visited.Has(b) {
				continue
			}
			visited.Put(b)
			queue = append(queue, b)
		}
	}

	return visited
}

// SortedIDs flattens a set of room ids into ascending order
func SortedIDs(set mapset.Set[int]) []int {
	ids := make([]int, 0, set.Size())
	set.Each(func(id int) {
		ids = append(ids, id)
	})
	sort.Ints(ids)
	return ids
}
