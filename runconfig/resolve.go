package runconfig

import (
	"context"
	"fmt"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"

	"github.com/unlearnai/dagster/definition"
	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/logger"
	"github.com/unlearnai/dagster/observability"
	"github.com/unlearnai/dagster/schema"
)

// Choice is a resolved selector section: the chosen name and the value of
// its config entry.
type Choice struct {
	Name   string `json:"name"`
	Config any    `json:"config,omitempty"`
}

// ConfigEnvelope is the {config: ...} value of a resource or logger.
type ConfigEnvelope struct {
	Config any `mapstructure:"config" json:"config,omitempty"`
}

// NodeConfig is the resolved config of one node. Config is the value the
// node's config schema accepted, without the {config: ...} envelope. Nodes
// holds the inner node dictionary of graphs, with config mappings already
// applied.
type NodeConfig struct {
	Config  any                    `mapstructure:"config" json:"config,omitempty"`
	Inputs  map[string]any         `mapstructure:"inputs" json:"inputs,omitempty"`
	Outputs any                    `mapstructure:"outputs" json:"outputs,omitempty"`
	Nodes   map[string]*NodeConfig `mapstructure:"-" json:"nodes,omitempty"`
	Rest    map[string]any         `mapstructure:",remain" json:"-"`
}

// ResolvedRunConfig is the normalized run config handed to execution.
type ResolvedRunConfig struct {
	Job                 string                    `json:"job"`
	Mode                string                    `json:"mode"`
	Execution           Choice                    `json:"execution"`
	IntermediateStorage Choice                    `json:"intermediate_storage"`
	Loggers             map[string]ConfigEnvelope `json:"loggers"`
	Resources           map[string]ConfigEnvelope `json:"resources"`
	Nodes               map[string]*NodeConfig    `json:"nodes"`
	// Raw is the normalized document with every config mapping applied.
	Raw map[string]any `json:"raw"`
}

// Node returns the config of the node at handle, if the document has one.
func (r *ResolvedRunConfig) Node(h definition.NodeHandle) (*NodeConfig, bool) {
	nodes := r.Nodes
	var nc *NodeConfig
	for _, name := range h.Path() {
		var ok bool
		if nc, ok = nodes[name]; !ok || nc == nil {
			return nil, false
		}
		nodes = nc.Nodes
	}
	return nc, nc != nil
}

// Resolve merges doc over the job's default run config, validates it,
// applies the job and graph config mappings and decodes the result. Validation problems are reported together in one
// INVALID_RUN_CONFIG error whose "errors" detail lists them.
func (s *RunConfigSchema) Resolve(ctx context.Context, doc any) (*ResolvedRunConfig, error) {
	oc := observability.NewOperationContext("resolve", s.Job.Name(), s.Mode.Name(), logger.RequestIDFromContext(ctx), s.metrics)
	ctx, span := oc.StartSpanForOperation(ctx, observability.SpanResolve)

	resolved, verrs, err := s.resolve(doc)
	switch {
	case err != nil:
		oc.EndOperation(ctx, span, statusError, err)
		return nil, err
	case len(verrs) > 0:
		err = s.invalid(ctx, verrs)
		oc.EndOperation(ctx, span, statusInvalid, err)
		return nil, err
	}
	oc.EndOperation(ctx, span, statusOK, nil)
	s.log.WithContext(ctx).Debug("run config resolved", logger.Fields(
		"execution", resolved.Execution.Name,
		"nodes", len(resolved.Nodes),
	))
	return resolved, nil
}

func (s *RunConfigSchema) invalid(ctx context.Context, verrs []*schema.ValidationError) error {
	reasons := make(map[string]int)
	for _, e := range verrs {
		reasons[string(e.Reason)]++
	}
	s.metrics.RecordValidationErrors(ctx, s.Job.Name(), reasons)
	observability.SetSpanAttribute(ctx, observability.AttrErrorCount, len(verrs))
	s.log.WithContext(ctx).Debug("run config rejected", logger.Fields("errors", len(verrs)))
	return errors.InvalidRunConfig(s.Job.Name(), len(verrs), verrs)
}

// withDefaults merges doc over the job's default run config. Values in doc
// win; lists replace rather than append.
func (s *RunConfigSchema) withDefaults(doc any) (any, error) {
	defaults := s.Job.DefaultRunConfig()
	if defaults == nil {
		return doc, nil
	}
	switch d := doc.(type) {
	case nil:
		return defaults, nil
	case map[string]any:
		return MergeDocuments(defaults, d)
	default:
		return doc, nil
	}
}

func (s *RunConfigSchema) resolve(doc any) (*ResolvedRunConfig, []*schema.ValidationError, error) {
	doc, err := s.withDefaults(doc)
	if err != nil {
		return nil, nil, err
	}
	res := s.Validate(doc)
	if !res.Success {
		return nil, res.Errors, nil
	}
	normalized, _ := res.Value.(map[string]any)

	if m := s.Job.ConfigMapping(); m != nil {
		var (
			verrs []*schema.ValidationError
			err   error
		)
		normalized, verrs, err = s.applyJobMapping(m, orEmpty(doc), normalized)
		if err != nil || len(verrs) > 0 {
			return nil, verrs, err
		}
	}

	key := s.NodeDictionaryKey()
	dict, _ := normalized[key].(map[string]any)
	verrs, err := s.expand(dict, definition.NodeHandle{}, key)
	if err != nil || len(verrs) > 0 {
		return nil, verrs, err
	}

	resolved, err := s.decode(normalized)
	if err != nil {
		return nil, nil, err
	}
	return resolved, nil, nil
}

// applyJobMapping runs the job's config mapping over the validated node
// dictionary config and merges its output over the document's other
// sections. The merged document is validated against the unmapped root.
func (s *RunConfigSchema) applyJobMapping(m *definition.ConfigMapping, raw any, normalized map[string]any) (map[string]any, []*schema.ValidationError, error) {
	key := s.NodeDictionaryKey()
	var cfg any
	if env, ok := normalized[key].(map[string]any); ok {
		cfg = env["config"]
	}
	mapped, err := m.Apply(cfg)
	if err != nil {
		return nil, nil, err
	}

	merged := map[string]any{}
	if outer, ok := raw.(map[string]any); ok {
		merged = copyDocument(outer)
	}
	delete(merged, key)
	delete(merged, s.Job.Vocabulary().Alias())
	if err := mergo.Merge(&merged, mapped, mergo.WithOverride); err != nil {
		return nil, nil, errors.Internal(err)
	}

	res := schema.Process(s.unmapped.Type(), merged)
	if !res.Success {
		return nil, res.Errors, nil
	}
	out, _ := res.Value.(map[string]any)
	return out, nil, nil
}

// expand applies the config mapping of every selected mapped graph below
// parent, replacing its inner node dictionary with the mapped and
// validated one. at is the rendered path of dict.
func (s *RunConfigSchema) expand(dict map[string]any, parent definition.NodeHandle, at string) ([]*schema.ValidationError, error) {
	key := s.NodeDictionaryKey()
	arena := s.Job.Arena()
	var verrs []*schema.ValidationError
	for _, h := range arena.Children(parent) {
		entry, _ := arena.Get(h)
		if parent.IsRoot() && !s.Selection.IsSelected(h.Name()) {
			continue
		}
		nodeCfg, _ := dict[h.Name()].(map[string]any)
		path := at + "." + h.Name()

		switch entry.Node.Definition.Kind() {
		case definition.KindGraph:
			inner, _ := nodeCfg[key].(map[string]any)
			more, err := s.expand(inner, h, path+"."+key)
			if err != nil {
				return nil, err
			}
			verrs = append(verrs, more...)
		case definition.KindMappedGraph:
			innerShape, ok := s.builder.mapped[h]
			if !ok {
				continue
			}
			more, err := s.expandMapped(entry, innerShape, nodeCfg, path+"."+key)
			if err != nil {
				return nil, err
			}
			verrs = append(verrs, more...)
		}
	}
	return verrs, nil
}

func (s *RunConfigSchema) expandMapped(entry *definition.ArenaEntry, inner *schema.Shape, nodeCfg map[string]any, at string) ([]*schema.ValidationError, error) {
	g, ok := entry.Node.Definition.(*definition.GraphDefinition)
	if !ok {
		return nil, errors.UnexpectedNodeKind(entry.Handle.String(), entry.Node.Definition.Kind())
	}
	var cfg any
	if env, ok := nodeCfg["config"].(map[string]any); ok {
		cfg = env["config"]
	}
	out, err := g.ConfigMapping().Apply(cfg)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			appErr.WithDetail("node", entry.Handle.String())
		}
		return nil, err
	}

	res := schema.Process(inner, out)
	if !res.Success {
		return prefixErrors(at, res.Errors), nil
	}
	dict, _ := res.Value.(map[string]any)
	if nodeCfg != nil {
		nodeCfg[s.NodeDictionaryKey()] = dict
	}
	return s.expand(dict, entry.Handle, at)
}

func prefixErrors(prefix string, errs []*schema.ValidationError) []*schema.ValidationError {
	out := make([]*schema.ValidationError, len(errs))
	for i, e := range errs {
		c := *e
		if c.Path == "root" {
			c.Path = prefix
		} else {
			c.Path = prefix + "." + c.Path
		}
		out[i] = &c
	}
	return out
}

func (s *RunConfigSchema) decode(normalized map[string]any) (*ResolvedRunConfig, error) {
	r := &ResolvedRunConfig{
		Job:       s.Job.Name(),
		Mode:      s.Mode.Name(),
		Loggers:   map[string]ConfigEnvelope{},
		Resources: map[string]ConfigEnvelope{},
		Raw:       normalized,
	}

	var err error
	if r.Execution, err = s.executionChoice(normalized["execution"]); err != nil {
		return nil, err
	}
	r.IntermediateStorage = s.storageChoice(normalized)

	for _, key := range s.Mode.ResourceKeys() {
		r.Resources[key] = ConfigEnvelope{}
	}
	if err := decodeInto(normalized["resources"], &r.Resources); err != nil {
		return nil, err
	}
	if err := decodeInto(normalized["loggers"], &r.Loggers); err != nil {
		return nil, err
	}
	dict, _ := normalized[s.NodeDictionaryKey()].(map[string]any)
	if r.Nodes, err = decodeNodes(dict, s.NodeDictionaryKey()); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RunConfigSchema) executionChoice(v any) (Choice, error) {
	executors := s.Mode.Executors()
	if len(executors) == 1 && executors[0] == definition.ExecuteInProcessExecutor {
		return Choice{Name: executors[0].Name, Config: v}, nil
	}
	c, ok := choiceOf(v)
	if !ok {
		return Choice{}, errors.Internal(fmt.Errorf("execution section %v is not a single choice", v))
	}
	return c, nil
}

// storageChoice prefers intermediate_storage over its legacy alias
// storage. Without either, the mode's first storage applies.
func (s *RunConfigSchema) storageChoice(normalized map[string]any) Choice {
	for _, key := range []string{"intermediate_storage", "storage"} {
		if c, ok := choiceOf(normalized[key]); ok {
			return c
		}
	}
	if storages := s.Mode.IntermediateStorages(); len(storages) > 0 {
		return Choice{Name: storages[0].Name}
	}
	return Choice{}
}

func choiceOf(v any) (Choice, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return Choice{}, false
	}
	for name, raw := range m {
		c := Choice{Name: name}
		if env, ok := raw.(map[string]any); ok {
			c.Config = env["config"]
		}
		return c, true
	}
	return Choice{}, false
}

func decodeNodes(dict map[string]any, key string) (map[string]*NodeConfig, error) {
	out := make(map[string]*NodeConfig, len(dict))
	for name, raw := range dict {
		nc := &NodeConfig{}
		if err := decodeInto(raw, nc); err != nil {
			return nil, err
		}
		if inner, ok := nc.Rest[key].(map[string]any); ok {
			nodes, err := decodeNodes(inner, key)
			if err != nil {
				return nil, err
			}
			nc.Nodes = nodes
		}
		if env, ok := nc.Config.(map[string]any); ok {
			nc.Config = env["config"]
		}
		nc.Rest = nil
		out[name] = nc
	}
	return out, nil
}

func decodeInto(input, output any) error {
	if input == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  output,
		TagName: "mapstructure",
	})
	if err != nil {
		return errors.Internal(err)
	}
	if err := dec.Decode(input); err != nil {
		return errors.Internal(err).WithDetail("stage", "decode")
	}
	return nil
}
