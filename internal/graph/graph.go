// Package graph implements the directed reference graph between documents,
// with cycle and orphan detection.
package graph

import (
	"sort"
	"strings"

	"github.com/starford/ansuz/internal/models"
)

// dfs colors for cycle detection.
const (
	white = iota // unvisited
	gray         // on the current DFS stack
	black        // fully explored
)

// ReferenceGraph is a directed graph keyed by canonical root-relative
// document path. Outgoing edges are the source of truth; the incoming index
// is a derived view rebuilt lazily on the first read after a mutation, so
// Incoming(x) is always consistent with the current outgoing edge set.
type ReferenceGraph struct {
	outgoing map[string][]models.Reference
	incoming map[string][]models.Reference
	files    map[string]struct{}
	dirty    bool
}

// New creates an empty reference graph.
func New() *ReferenceGraph {
	return &ReferenceGraph{
		outgoing: make(map[string][]models.Reference),
		incoming: make(map[string][]models.Reference),
		files:    make(map[string]struct{}),
	}
}

// AddFile registers a path in the known-files set without adding edges.
func (g *ReferenceGraph) AddFile(path string) {
	g.files[path] = struct{}{}
}

// AddReference appends ref to its source's outgoing list and invalidates the
// incoming index. Unresolved targets are recorded on the edge but do not
// create a node.
func (g *ReferenceGraph) AddReference(ref models.Reference) {
	g.outgoing[ref.Source] = append(g.outgoing[ref.Source], ref)
	g.files[ref.Source] = struct{}{}
	if ref.ResolvedTarget != "" {
		g.files[ref.ResolvedTarget] = struct{}{}
	}
	g.dirty = true
}

// Outgoing returns the outgoing references of path. Unknown paths yield an
// empty slice, never an error.
func (g *ReferenceGraph) Outgoing(path string) []models.Reference {
	return g.outgoing[path]
}

// Incoming returns the references pointing at path. Unknown paths yield an
// empty slice, never an error.
func (g *ReferenceGraph) Incoming(path string) []models.Reference {
	g.rebuildIncoming()
	return g.incoming[path]
}

// AllFiles returns the union of every source and resolved target seen,
// sorted for deterministic iteration.
func (g *ReferenceGraph) AllFiles() []string {
	out := make([]string, 0, len(g.files))
	for p := range g.files {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// TotalReferences returns the number of edges in the graph.
func (g *ReferenceGraph) TotalReferences() int {
	n := 0
	for _, refs := range g.outgoing {
		n += len(refs)
	}
	return n
}

func (g *ReferenceGraph) rebuildIncoming() {
	if !g.dirty && g.incoming != nil {
		return
	}
	g.incoming = make(map[string][]models.Reference)
	for _, refs := range g.outgoing {
		for _, ref := range refs {
			if ref.ResolvedTarget == "" {
				continue
			}
			g.incoming[ref.ResolvedTarget] = append(g.incoming[ref.ResolvedTarget], ref)
		}
	}
	g.dirty = false
}

// FindCycles runs three-color DFS over the graph and returns every discovered
// cycle as a path sequence. A back-edge to a gray node yields one cycle,
// reconstructed by walking the DFS stack from the back-edge target to the
// top. A document referencing itself is a one-node cycle. A node on more
// than one discovered cycle appears once per distinct cycle. Parallel edges
// between the same pair of documents rediscover the same loop; cycles are
// deduplicated under rotation so each loop is reported once.
func (g *ReferenceGraph) FindCycles() [][]string {
	color := make(map[string]int, len(g.files))
	seen := make(map[string]struct{})
	var stack []string
	var cycles [][]string

	var visit func(node string)
	visit = func(node string) {
		color[node] = gray
		stack = append(stack, node)

		for _, ref := range g.outgoing[node] {
			next := ref.ResolvedTarget
			if next == "" {
				continue
			}
			switch color[next] {
			case white:
				visit(next)
			case gray:
				// Back edge: the cycle is the stack segment from next to top.
				for i, p := range stack {
					if p == next {
						cycle := make([]string, len(stack)-i)
						copy(cycle, stack[i:])
						key := cycleKey(cycle)
						if _, dup := seen[key]; !dup {
							seen[key] = struct{}{}
							cycles = append(cycles, cycle)
						}
						break
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[node] = black
	}

	for _, node := range g.AllFiles() {
		if color[node] == white {
			visit(node)
		}
	}
	return cycles
}

// cycleKey canonicalizes a cycle by rotating its lexicographically smallest
// path to the front, so the same loop discovered through different back
// edges compares equal.
func cycleKey(cycle []string) string {
	min := 0
	for i, p := range cycle {
		if p < cycle[min] {
			min = i
		}
	}
	parts := make([]string, 0, len(cycle))
	parts = append(parts, cycle[min:]...)
	parts = append(parts, cycle[:min]...)
	return strings.Join(parts, "\x00")
}

// FindOrphans returns every known file with zero incoming edges, excluding
// the caller-supplied entry points. The result is sorted.
func (g *ReferenceGraph) FindOrphans(entryPoints map[string]struct{}) []string {
	g.rebuildIncoming()

	var out []string
	for _, p := range g.AllFiles() {
		if _, entry := entryPoints[p]; entry {
			continue
		}
		if len(g.incoming[p]) == 0 {
			out = append(out, p)
		}
	}
	return out
}
