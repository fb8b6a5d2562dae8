package definition

import (
	"fmt"
	"slices"
	"strings"

	"github.com/unlearnai/dagster/dag"
	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/validation"
)

// InputHandle addresses an input of a node within one graph.
type InputHandle struct {
	Node  string
	Input string
}

// String renders the handle as "node.input".
func (h InputHandle) String() string { return h.Node + "." + h.Input }

// OutputHandle addresses an output of a node within one graph.
type OutputHandle struct {
	Node   string
	Output string
}

// String renders the handle as "node.output".
func (h OutputHandle) String() string { return h.Node + "." + h.Output }

// Out returns the handle of output of node. An empty output names the
// default output.
func Out(node, output string) OutputHandle {
	if output == "" {
		output = DefaultOutputName
	}
	return OutputHandle{Node: node, Output: output}
}

// ParseOutputHandle parses "node" or "node.output".
func ParseOutputHandle(s string) (OutputHandle, error) {
	node, output, _ := strings.Cut(strings.TrimSpace(s), ".")
	if !validation.IsIdentifier(node) || (output != "" && !validation.IsIdentifier(output)) {
		return OutputHandle{}, errors.InvalidDefinition("Invalid output reference %q, expected \"node\" or \"node.output\".", s)
	}
	return Out(node, output), nil
}

// Dependency wires an input to the upstream outputs feeding it. More than
// one upstream output fans in.
type Dependency struct {
	Node     string
	Input    string
	Upstream []OutputHandle
}

// DependsOn declares that input of node consumes the given outputs.
func DependsOn(node, input string, upstream ...OutputHandle) Dependency {
	return Dependency{Node: node, Input: input, Upstream: upstream}
}

// DependencyStructure maps node inputs to their upstream outputs within one
// graph.
type DependencyStructure struct {
	upstream map[InputHandle][]OutputHandle
}

// NewDependencyStructure validates deps against nodes and builds the
// structure. Every endpoint must exist, an input may be declared once, and
// the node-level graph must be acyclic.
func NewDependencyStructure(graph string, nodes []*Node, deps []Dependency) (*DependencyStructure, error) {
	byName := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		byName[n.Name] = n
	}

	v := validation.New()
	ds := &DependencyStructure{upstream: make(map[InputHandle][]OutputHandle, len(deps))}
	for _, dep := range deps {
		in := InputHandle{Node: dep.Node, Input: dep.Input}
		node, ok := byName[dep.Node]
		switch {
		case !ok:
			v.AddError("dependencies", fmt.Sprintf("node %q is not part of the graph", dep.Node))
			continue
		case len(dep.Upstream) == 0:
			v.AddError("dependencies", fmt.Sprintf("input %s declares no upstream outputs", in))
			continue
		}
		if _, ok := node.Input(dep.Input); !ok {
			v.AddError("dependencies", fmt.Sprintf("node %q has no input %q", dep.Node, dep.Input))
			continue
		}
		if _, dup := ds.upstream[in]; dup {
			v.AddError("dependencies", fmt.Sprintf("input %s is wired more than once", in))
			continue
		}
		for _, out := range dep.Upstream {
			up, ok := byName[out.Node]
			if !ok {
				v.AddError("dependencies", fmt.Sprintf("input %s depends on unknown node %q", in, out.Node))
				continue
			}
			if _, ok := up.Output(out.Output); !ok {
				v.AddError("dependencies", fmt.Sprintf("input %s depends on unknown output %s", in, out))
			}
		}
		ds.upstream[in] = slices.Clone(dep.Upstream)
	}
	if err := collected("graph", graph, v); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(nodes))
	for _, n := range nodes {
		names = append(names, n.Name)
	}
	if _, err := dag.BuildLevels(ds.Graph(names)); err != nil {
		return nil, errors.DependencyCycle(graph, err)
	}
	return ds, nil
}

// HasUpstream reports whether input of node is fed by an upstream output.
func (d *DependencyStructure) HasUpstream(node, input string) bool {
	if d == nil {
		return false
	}
	_, ok := d.upstream[InputHandle{Node: node, Input: input}]
	return ok
}

// Upstream returns the outputs feeding input of node.
func (d *DependencyStructure) Upstream(node, input string) []OutputHandle {
	if d == nil {
		return nil
	}
	return slices.Clone(d.upstream[InputHandle{Node: node, Input: input}])
}

// Dependencies returns every wired input ordered by node then input name.
func (d *DependencyStructure) Dependencies() []Dependency {
	if d == nil {
		return nil
	}
	out := make([]Dependency, 0, len(d.upstream))
	for in, up := range d.upstream {
		out = append(out, Dependency{Node: in.Node, Input: in.Input, Upstream: slices.Clone(up)})
	}
	slices.SortFunc(out, func(a, b Dependency) int {
		if c := strings.Compare(a.Node, b.Node); c != 0 {
			return c
		}
		return strings.Compare(a.Input, b.Input)
	})
	return out
}

// Graph returns the node-level dependency graph over names. Edges whose
// endpoints are not in names are dropped.
func (d *DependencyStructure) Graph(names []string) *dag.Graph {
	g := dag.NewGraph(names...)
	for _, dep := range d.Dependencies() {
		if !slices.Contains(names, dep.Node) {
			continue
		}
		for _, up := range dep.Upstream {
			if slices.Contains(names, up.Node) && !slices.ContainsFunc(g.Edges, func(e dag.Edge) bool {
				return e.From == up.Node && e.To == dep.Node
			}) {
				g.AddEdge(up.Node, dep.Node)
			}
		}
	}
	return g
}

// Restrict returns the structure limited to the named nodes. Inputs whose
// upstream outputs all belong to other nodes become unconnected.
func (d *DependencyStructure) Restrict(names []string) *DependencyStructure {
	out := &DependencyStructure{upstream: make(map[InputHandle][]OutputHandle)}
	if d == nil {
		return out
	}
	for in, up := range d.upstream {
		if !slices.Contains(names, in.Node) {
			continue
		}
		kept := slices.DeleteFunc(slices.Clone(up), func(h OutputHandle) bool {
			return !slices.Contains(names, h.Node)
		})
		if len(kept) > 0 {
			out.upstream[in] = kept
		}
	}
	return out
}
