package definition

import (
	"fmt"
	"slices"

	"github.com/unlearnai/dagster/dag"
	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/schema"
	"github.com/unlearnai/dagster/validation"
)

// ConfigMapping collapses the config of everything below it into a single
// schema. Fn receives the validated config and returns the config of the
// wrapped nodes: the inner node dictionary for a graph, a run config
// document for a job.
type ConfigMapping struct {
	Description string
	Schema      *schema.Field                            `validate:"required"`
	Fn          func(config any) (map[string]any, error) `validate:"required"`
}

// ConfigField returns the mapping's schema.
func (m *ConfigMapping) ConfigField() *schema.Field { return m.Schema }

// Apply runs the mapping function.
func (m *ConfigMapping) Apply(config any) (map[string]any, error) {
	out, err := m.Fn(config)
	if err != nil {
		return nil, errors.InvalidInput("config", fmt.Sprintf("config mapping failed: %v", err)).WithCause(err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// InputMapping exposes an inner node input as a graph input. Several
// mappings may share one graph input.
type InputMapping struct {
	GraphInput string `validate:"required,identifier"`
	Node       string `validate:"required"`
	Input      string `validate:"required"`
}

// OutputMapping exposes an inner node output as a graph output.
type OutputMapping struct {
	GraphOutput string `validate:"required,identifier"`
	Node        string `validate:"required"`
	Output      string `validate:"required"`
}

// GraphConfig describes a graph to NewGraph.
type GraphConfig struct {
	Name           string `validate:"required,identifier"`
	Description    string
	Nodes          []*Node `validate:"dive,required"`
	Dependencies   []Dependency
	InputMappings  []InputMapping  `validate:"dive"`
	OutputMappings []OutputMapping `validate:"dive"`
	// ConfigMapping, when set, makes the graph configurable as a unit.
	ConfigMapping *ConfigMapping
}

// GraphDefinition is a set of nodes and the dependencies between them.
type GraphDefinition struct {
	name          string
	description   string
	nodes         []*Node
	deps          *DependencyStructure
	inputMappings []InputMapping
	inputs        []*InputDefinition
	outputs       []*OutputDefinition
	mapping       *ConfigMapping
}

// NewGraph validates cfg and creates a graph definition.
func NewGraph(cfg GraphConfig) (*GraphDefinition, error) {
	if err := validateDefinition("graph", cfg.Name, cfg); err != nil {
		return nil, err
	}
	if cfg.ConfigMapping != nil {
		if err := checkConfig("graph", cfg.Name, cfg.ConfigMapping.Schema); err != nil {
			return nil, err
		}
	}

	byName := make(map[string]*Node, len(cfg.Nodes))
	names := make([]string, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		byName[n.Name] = n
		names = append(names, n.Name)
	}
	v := validation.New().Unique("nodes", names)

	g := &GraphDefinition{
		name:          cfg.Name,
		description:   cfg.Description,
		nodes:         slices.Clone(cfg.Nodes),
		inputMappings: slices.Clone(cfg.InputMappings),
		mapping:       cfg.ConfigMapping,
	}
	for _, m := range cfg.InputMappings {
		in, ok := lookupInput(byName, m.Node, m.Input)
		if !ok {
			v.AddError("input_mappings", fmt.Sprintf("graph input %q maps to unknown input %s.%s", m.GraphInput, m.Node, m.Input))
			continue
		}
		if _, seen := findInput(g.inputs, m.GraphInput); seen {
			continue
		}
		exposed := *in
		exposed.Name = m.GraphInput
		g.inputs = append(g.inputs, &exposed)
	}
	for _, m := range cfg.OutputMappings {
		node, ok := byName[m.Node]
		var out *OutputDefinition
		if ok {
			out, ok = node.Output(m.Output)
		}
		if !ok {
			v.AddError("output_mappings", fmt.Sprintf("graph output %q maps to unknown output %s.%s", m.GraphOutput, m.Node, m.Output))
			continue
		}
		if _, dup := findOutput(g.outputs, m.GraphOutput); dup {
			v.AddError("output_mappings", fmt.Sprintf("graph output %q is mapped more than once", m.GraphOutput))
			continue
		}
		exposed := *out
		exposed.Name = m.GraphOutput
		g.outputs = append(g.outputs, &exposed)
	}
	if err := collected("graph", cfg.Name, v); err != nil {
		return nil, err
	}

	deps, err := NewDependencyStructure(cfg.Name, cfg.Nodes, cfg.Dependencies)
	if err != nil {
		return nil, err
	}
	g.deps = deps
	return g, nil
}

// MustGraph is like NewGraph but panics on error.
func MustGraph(cfg GraphConfig) *GraphDefinition {
	g, err := NewGraph(cfg)
	if err != nil {
		panic(err)
	}
	return g
}

func lookupInput(nodes map[string]*Node, node, input string) (*InputDefinition, bool) {
	n, ok := nodes[node]
	if !ok {
		return nil, false
	}
	return n.Input(input)
}

func (g *GraphDefinition) Name() string                 { return g.name }
func (g *GraphDefinition) Description() string          { return g.description }
func (g *GraphDefinition) Inputs() []*InputDefinition   { return g.inputs }
func (g *GraphDefinition) Outputs() []*OutputDefinition { return g.outputs }

// Kind reports KindMappedGraph when the graph has a config mapping.
func (g *GraphDefinition) Kind() NodeKind {
	if g.mapping != nil {
		return KindMappedGraph
	}
	return KindGraph
}

// ConfigField returns the config mapping schema, or nil.
func (g *GraphDefinition) ConfigField() *schema.Field {
	if g.mapping == nil {
		return nil
	}
	return g.mapping.Schema
}

// ConfigMapping returns the graph's config mapping, or nil.
func (g *GraphDefinition) ConfigMapping() *ConfigMapping { return g.mapping }

// Nodes returns the graph's nodes in declaration order.
func (g *GraphDefinition) Nodes() []*Node { return g.nodes }

// NodeNames returns the node names in declaration order.
func (g *GraphDefinition) NodeNames() []string {
	names := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		names[i] = n.Name
	}
	return names
}

// Node returns the node called name.
func (g *GraphDefinition) Node(name string) (*Node, bool) {
	for _, n := range g.nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Dependencies returns the graph's dependency structure.
func (g *GraphDefinition) Dependencies() *DependencyStructure { return g.deps }

// MapsInput reports whether a graph input feeds input of the inner node.
func (g *GraphDefinition) MapsInput(node, input string) bool {
	return slices.ContainsFunc(g.inputMappings, func(m InputMapping) bool {
		return m.Node == node && m.Input == input
	})
}

// HasUpstream reports whether input of the inner node is fed either by
// another inner node or by a graph input.
func (g *GraphDefinition) HasUpstream(node, input string) bool {
	return g.deps.HasUpstream(node, input) || g.MapsInput(node, input)
}

// Levels groups the node names by dependency level.
func (g *GraphDefinition) Levels() ([][]string, error) {
	return dag.BuildLevels(g.deps.Graph(g.NodeNames()))
}
