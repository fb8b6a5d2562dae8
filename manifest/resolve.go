package manifest

import (
	"context"
	"strings"

	"github.com/unlearnai/dagster/definition"
	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/logger"
	"github.com/unlearnai/dagster/observability"
	"github.com/unlearnai/dagster/schema"
	"github.com/unlearnai/dagster/util"
)

// Resolver turns manifests into job definitions, looking named
// definitions up in a Registry and graph manifests up through a Loader.
type Resolver struct {
	registry *Registry
	loader   Loader
	log      *logger.Logger
}

// NewResolver creates a resolver. A nil logger uses the global one.
func NewResolver(registry *Registry, loader Loader, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Resolver{registry: registry, loader: loader, log: log.WithComponent("manifest")}
}

// resolution tracks one job resolution: graphs already built, shared
// between diamond includes, and the include path for cycle detection.
type resolution struct {
	graphs map[string]*definition.GraphDefinition
	stack  map[string]bool
}

// LoadJob loads the named job manifest and resolves it.
func (r *Resolver) LoadJob(ctx context.Context, name string) (*definition.JobDefinition, error) {
	m, err := r.loader.Load(name)
	if err != nil {
		return nil, err
	}
	return r.ResolveJob(ctx, m)
}

// ResolveJob builds the job a manifest describes.
func (r *Resolver) ResolveJob(ctx context.Context, m *Manifest) (*definition.JobDefinition, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanManifestLoad)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrJob, m.Name)

	job, err := r.resolveJob(m)
	if err != nil {
		observability.SetSpanError(ctx, err)
		r.log.WithContext(ctx).Warn("manifest rejected", logger.Fields("manifest", m.Name, "error", err.Error()))
		return nil, err
	}
	r.log.WithContext(ctx).WithJob(job.Name(), "").Debug("manifest resolved", logger.Fields(
		"nodes", job.Arena().Len(),
		"modes", job.ModeNames(),
	))
	return job, nil
}

func (r *Resolver) resolveJob(m *Manifest) (*definition.JobDefinition, error) {
	if m.Kind != "" && m.Kind != KindJob {
		return nil, errors.InvalidDefinition("Manifest %q is a %s manifest, not a job.", m.Name, m.Kind)
	}
	st := &resolution{
		graphs: make(map[string]*definition.GraphDefinition),
		stack:  make(map[string]bool),
	}
	g, err := r.graph(m, st)
	if err != nil {
		return nil, err
	}
	modes, err := r.modes(m)
	if err != nil {
		return nil, err
	}
	var mapping *definition.ConfigMapping
	if m.ConfigMapping != "" {
		if mapping, err = r.registry.ConfigMapping(m.ConfigMapping); err != nil {
			return nil, err
		}
	}
	return definition.NewJob(definition.JobConfig{
		Name:          m.Name,
		Description:   m.Description,
		Graph:         g,
		Modes:         modes,
		Vocabulary:    definition.Vocabulary(m.Vocabulary),
		ConfigMapping: mapping,
		RunConfig:     m.RunConfig,
		Tags:          m.Tags,
	})
}

// graph builds the graph of m. Includes and graph nodes are resolved
// recursively; a manifest reached again through its own includes is a
// cycle.
func (r *Resolver) graph(m *Manifest, st *resolution) (*definition.GraphDefinition, error) {
	if st.stack[m.Name] {
		return nil, errors.InvalidDefinition("circular include detected for manifest %q", m.Name)
	}
	if g, ok := st.graphs[m.Name]; ok {
		return g, nil
	}
	st.stack[m.Name] = true
	defer delete(st.stack, m.Name)

	var nodes []*definition.Node
	for _, inc := range m.Includes {
		sub, err := r.subgraph(inc, st)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, definition.NewNode(inc, sub))
	}

	var deps []definition.Dependency
	for _, spec := range m.Nodes {
		def, err := r.nodeDefinition(spec, st)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, definition.NewNode(spec.Name, def))
		for _, input := range util.SortedKeys(spec.DependsOn) {
			upstream := make([]definition.OutputHandle, 0, len(spec.DependsOn[input]))
			for _, ref := range spec.DependsOn[input] {
				h, err := definition.ParseOutputHandle(ref)
				if err != nil {
					return nil, err
				}
				upstream = append(upstream, h)
			}
			deps = append(deps, definition.DependsOn(spec.Name, input, upstream...))
		}
	}

	inputs, err := inputMappings(m)
	if err != nil {
		return nil, err
	}
	outputs, err := outputMappings(m)
	if err != nil {
		return nil, err
	}
	var mapping *definition.ConfigMapping
	if m.Kind == KindGraph && m.ConfigMapping != "" {
		if mapping, err = r.registry.ConfigMapping(m.ConfigMapping); err != nil {
			return nil, err
		}
	}

	g, err := definition.NewGraph(definition.GraphConfig{
		Name:           m.Name,
		Description:    m.Description,
		Nodes:          nodes,
		Dependencies:   deps,
		InputMappings:  inputs,
		OutputMappings: outputs,
		ConfigMapping:  mapping,
	})
	if err != nil {
		return nil, err
	}
	st.graphs[m.Name] = g
	return g, nil
}

func (r *Resolver) subgraph(name string, st *resolution) (*definition.GraphDefinition, error) {
	if st.stack[name] {
		return nil, errors.InvalidDefinition("circular include detected for manifest %q", name)
	}
	sub, err := r.loader.Load(name)
	if err != nil {
		return nil, err
	}
	if sub.Kind != KindGraph {
		return nil, errors.InvalidDefinition("Manifest %q is included as a graph but is a %s manifest.", name, sub.Kind)
	}
	return r.graph(sub, st)
}

func (r *Resolver) nodeDefinition(spec NodeSpec, st *resolution) (definition.NodeDefinition, error) {
	var (
		def definition.NodeDefinition
		err error
	)
	switch {
	case spec.Op != "":
		var op *definition.OpDefinition
		op, err = r.registry.Op(spec.Op)
		def = op
	case spec.Graph != "":
		var g *definition.GraphDefinition
		g, err = r.subgraph(spec.Graph, st)
		def = g
	case spec.Definition != nil:
		var op *definition.OpDefinition
		op, err = r.inlineOp(spec.Name, spec.Definition)
		def = op
	default:
		err = errors.InvalidDefinition("Node %q declares no op, graph or definition.", spec.Name)
	}
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			appErr.WithDetail("node", spec.Name)
		}
		return nil, err
	}
	return def, nil
}

func (r *Resolver) inlineOp(name string, spec *OpSpec) (*definition.OpDefinition, error) {
	var config *schema.Field
	if spec.Config != nil {
		f, err := schema.FieldFromDSL(spec.Config)
		if err != nil {
			return nil, err
		}
		config = f
	}
	inputs := make([]*definition.InputDefinition, 0, len(spec.Inputs))
	for _, in := range spec.Inputs {
		rt, err := r.registry.Type(in.Type)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, &definition.InputDefinition{
			Name:           in.Name,
			Description:    in.Description,
			Type:           rt,
			RootManagerKey: in.RootManagerKey,
			Default:        in.Default,
			HasDefault:     in.Default != nil,
		})
	}
	outputs := make([]*definition.OutputDefinition, 0, len(spec.Outputs))
	for _, out := range spec.Outputs {
		rt, err := r.registry.Type(out.Type)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, &definition.OutputDefinition{
			Name:         out.Name,
			Description:  out.Description,
			Type:         rt,
			IOManagerKey: out.IOManagerKey,
		})
	}
	return definition.NewOp(definition.OpConfig{
		Name:                 name,
		Description:          spec.Description,
		Config:               config,
		Inputs:               inputs,
		Outputs:              outputs,
		RequiredResourceKeys: spec.RequiredResourceKeys,
		Tags:                 spec.Tags,
	})
}

func inputMappings(m *Manifest) ([]definition.InputMapping, error) {
	var out []definition.InputMapping
	for _, graphInput := range util.SortedKeys(m.Inputs) {
		for _, ref := range m.Inputs[graphInput] {
			node, input, ok := strings.Cut(ref, ".")
			if !ok {
				return nil, errors.InvalidDefinition("Invalid input reference %q for graph input %q, expected \"node.input\".", ref, graphInput)
			}
			out = append(out, definition.InputMapping{GraphInput: graphInput, Node: node, Input: input})
		}
	}
	return out, nil
}

func outputMappings(m *Manifest) ([]definition.OutputMapping, error) {
	var out []definition.OutputMapping
	for _, graphOutput := range util.SortedKeys(m.Outputs) {
		h, err := definition.ParseOutputHandle(m.Outputs[graphOutput])
		if err != nil {
			return nil, err
		}
		out = append(out, definition.OutputMapping{GraphOutput: graphOutput, Node: h.Node, Output: h.Output})
	}
	return out, nil
}

// modes builds the declared modes, or the single top-level mode.
func (r *Resolver) modes(m *Manifest) ([]*definition.ModeDefinition, error) {
	specs := m.Modes
	if len(specs) == 0 {
		specs = []ModeSpec{{
			Name:                 definition.DefaultModeName,
			Resources:            m.Resources,
			Loggers:              m.Loggers,
			Executors:            m.Executors,
			IntermediateStorages: m.IntermediateStorages,
		}}
	}
	modes := make([]*definition.ModeDefinition, 0, len(specs))
	for _, spec := range specs {
		mode, err := r.mode(spec)
		if err != nil {
			return nil, err
		}
		modes = append(modes, mode)
	}
	return modes, nil
}

func (r *Resolver) mode(spec ModeSpec) (*definition.ModeDefinition, error) {
	cfg := definition.ModeConfig{Name: spec.Name, Description: spec.Description}
	if len(spec.Resources) > 0 {
		cfg.Resources = make(map[string]*definition.ResourceDefinition, len(spec.Resources))
		for key, name := range spec.Resources {
			res, err := r.registry.Resource(name)
			if err != nil {
				return nil, err
			}
			cfg.Resources[key] = res
		}
	}
	if len(spec.Loggers) > 0 {
		cfg.Loggers = make(map[string]*definition.LoggerDefinition, len(spec.Loggers))
		for _, name := range spec.Loggers {
			l, err := r.registry.Logger(name)
			if err != nil {
				return nil, err
			}
			cfg.Loggers[name] = l
		}
	}
	for _, name := range spec.Executors {
		e, err := r.registry.Executor(name)
		if err != nil {
			return nil, err
		}
		cfg.Executors = append(cfg.Executors, e)
	}
	for _, name := range spec.IntermediateStorages {
		s, err := r.registry.Storage(name)
		if err != nil {
			return nil, err
		}
		cfg.IntermediateStorages = append(cfg.IntermediateStorages, s)
	}
	return definition.NewMode(cfg)
}
