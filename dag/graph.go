package dag

import (
	"fmt"
	"slices"
	"strings"
)

// Graph declares nodes and edges (dependency relationships).
type Graph struct {
	Nodes []string
	Edges []Edge
}

// Edge represents a dependency: To depends on From.
type Edge struct {
	From string
	To   string
}

// NewGraph creates a graph over the given node names.
func NewGraph(nodes ...string) *Graph {
	return &Graph{Nodes: append([]string(nil), nodes...)}
}

// AddEdge records that to depends on from.
func (g *Graph) AddEdge(from, to string) {
	g.Edges = append(g.Edges, Edge{From: from, To: to})
}

// CycleError reports a dependency cycle. Path starts and ends with the
// same node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dag: cycle detected: %s", strings.Join(e.Path, " -> "))
}

// UnknownNodeError reports an edge endpoint that is not a node of the graph.
type UnknownNodeError struct {
	Node string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("dag: edge references unknown node %q", e.Node)
}

type adjacency struct {
	inDegree   map[string]int
	dependents map[string][]string // from -> [to...]
	upstream   map[string][]string // to -> [from...]
}

func (g *Graph) adjacency() (*adjacency, error) {
	adj := &adjacency{
		inDegree:   make(map[string]int, len(g.Nodes)),
		dependents: make(map[string][]string),
		upstream:   make(map[string][]string),
	}
	for _, name := range g.Nodes {
		adj.inDegree[name] = 0
	}
	for _, e := range g.Edges {
		if _, ok := adj.inDegree[e.From]; !ok {
			return nil, &UnknownNodeError{Node: e.From}
		}
		if _, ok := adj.inDegree[e.To]; !ok {
			return nil, &UnknownNodeError{Node: e.To}
		}
		adj.inDegree[e.To]++
		adj.dependents[e.From] = append(adj.dependents[e.From], e.To)
		adj.upstream[e.To] = append(adj.upstream[e.To], e.From)
	}
	return adj, nil
}

// BuildLevels uses Kahn's algorithm to group nodes by dependency level.
// Every node depends only on nodes of earlier levels. Names within a level
// are sorted. Returns a *CycleError if the graph is not acyclic.
func BuildLevels(g *Graph) ([][]string, error) {
	adj, err := g.adjacency()
	if err != nil {
		return nil, err
	}

	var queue []string
	for name, deg := range adj.inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}

	var levels [][]string
	visited := 0
	for len(queue) > 0 {
		slices.Sort(queue)
		levels = append(levels, queue)
		visited += len(queue)

		var next []string
		for _, name := range queue {
			for _, dep := range adj.dependents[name] {
				adj.inDegree[dep]--
				if adj.inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		queue = next
	}

	if visited != len(adj.inDegree) {
		return nil, &CycleError{Path: FindCycle(g)}
	}
	return levels, nil
}

// TopologicalOrder flattens BuildLevels into a single ordering.
func TopologicalOrder(g *Graph) ([]string, error) {
	levels, err := BuildLevels(g)
	if err != nil {
		return nil, err
	}
	order := make([]string, 0, len(g.Nodes))
	for _, level := range levels {
		order = append(order, level...)
	}
	return order, nil
}

// FindCycle returns one dependency cycle as a path that starts and ends
// with the same node, or nil when the graph is acyclic. Unknown edge
// endpoints are ignored.
func FindCycle(g *Graph) []string {
	const (
		unvisited = iota
		inProgress
		done
	)
	dependents := make(map[string][]string)
	known := make(map[string]bool, len(g.Nodes))
	for _, name := range g.Nodes {
		known[name] = true
	}
	for _, e := range g.Edges {
		if known[e.From] && known[e.To] {
			dependents[e.From] = append(dependents[e.From], e.To)
		}
	}
	for _, deps := range dependents {
		slices.Sort(deps)
	}

	state := make(map[string]int, len(g.Nodes))
	var stack []string
	var visit func(string) []string
	visit = func(name string) []string {
		state[name] = inProgress
		stack = append(stack, name)
		for _, dep := range dependents[name] {
			switch state[dep] {
			case inProgress:
				start := slices.Index(stack, dep)
				cycle := append([]string(nil), stack[start:]...)
				return append(cycle, dep)
			case unvisited:
				if cycle := visit(dep); cycle != nil {
					return cycle
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		return nil
	}

	nodes := append([]string(nil), g.Nodes...)
	slices.Sort(nodes)
	for _, name := range nodes {
		if state[name] == unvisited {
			if cycle := visit(name); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// Ancestors returns every node the given nodes transitively depend on,
// excluding the given nodes themselves unless reachable. depth limits the
// number of hops; a negative depth is unlimited.
func Ancestors(g *Graph, depth int, from ...string) ([]string, error) {
	adj, err := g.adjacency()
	if err != nil {
		return nil, err
	}
	return closure(adj.upstream, depth, from), nil
}

// Descendants returns every node that transitively depends on the given
// nodes. depth limits the number of hops; a negative depth is unlimited.
func Descendants(g *Graph, depth int, from ...string) ([]string, error) {
	adj, err := g.adjacency()
	if err != nil {
		return nil, err
	}
	return closure(adj.dependents, depth, from), nil
}

func closure(next map[string][]string, depth int, from []string) []string {
	seen := make(map[string]bool)
	frontier := append([]string(nil), from...)
	for hop := 0; len(frontier) > 0 && (depth < 0 || hop < depth); hop++ {
		var following []string
		for _, name := range frontier {
			for _, n := range next[name] {
				if !seen[n] {
					seen[n] = true
					following = append(following, n)
				}
			}
		}
		frontier = following
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
