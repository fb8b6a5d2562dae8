package runconfig

import (
	"fmt"
	"slices"

	"github.com/unlearnai/dagster/definition"
	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/schema"
	"github.com/unlearnai/dagster/util"
)

// builder synthesizes the fields of one (job, mode, selection).
type builder struct {
	job       *definition.JobDefinition
	mode      *definition.ModeDefinition
	arena     *definition.Arena
	selection *definition.Selection
	vocab     definition.Vocabulary
	// topDeps is the root graph's dependency structure restricted to the
	// selected nodes.
	topDeps *definition.DependencyStructure
	// mapped holds the inner node dictionary of every selected graph node
	// configured through a config mapping.
	mapped map[definition.NodeHandle]*schema.Shape
}

func newBuilder(job *definition.JobDefinition, mode *definition.ModeDefinition, sel *definition.Selection) *builder {
	return &builder{
		job:       job,
		mode:      mode,
		arena:     job.Arena(),
		selection: sel,
		vocab:     job.Vocabulary(),
		topDeps:   job.Graph().Dependencies().Restrict(sel.Selected),
		mapped:    make(map[definition.NodeHandle]*schema.Shape),
	}
}

// rootShape assembles the top-level sections. With mapped set, a job-level
// config mapping replaces the node dictionary.
func (b *builder) rootShape(useJobMapping bool) (*schema.Shape, error) {
	var nodes *schema.Field
	if m := b.job.ConfigMapping(); m != nil && useJobMapping {
		nodes = FieldFor(m, nil)
	} else {
		var selected, ignored []definition.NodeHandle
		for _, h := range b.arena.Roots() {
			if b.selection.IsSelected(h.Name()) {
				selected = append(selected, h)
			} else {
				ignored = append(ignored, h)
			}
		}
		dict, err := b.nodeDictionary(selected, ignored)
		if err != nil {
			return nil, err
		}
		nodes = schema.NewField(dict)
	}

	storages := b.mode.IntermediateStorages()
	fields := schema.Fields{
		"storage":              schema.NewField(storageSelector(storages), schema.IsRequired(false)),
		"intermediate_storage": storageField(storages),
		"execution":            executionField(b.mode.Executors()),
		"loggers":              schema.NewField(b.loggerDictionary()),
		"resources":            schema.NewField(b.resourceDictionary()),
		b.vocab.Key():          nodes,
	}
	return schema.NewShape(fields, b.aliases()), nil
}

func (b *builder) aliases() schema.TypeOption {
	return schema.WithFieldAliases(map[string]string{b.vocab.Key(): b.vocab.Alias()})
}

// resourceDictionary has one entry per resource with a config schema.
// Resources the selected nodes do not need are optional.
func (b *builder) resourceDictionary() *schema.Shape {
	required := b.job.RequiredResourceKeys(b.selection)
	fields := schema.Fields{}
	for key, r := range b.mode.Resources() {
		if r.ConfigField() == nil {
			continue
		}
		var override *bool
		if !slices.Contains(required, key) {
			override = util.Ptr(false)
		}
		fields[key] = FieldFor(r, override)
	}
	return schema.NewShape(fields)
}

func (b *builder) loggerDictionary() *schema.Shape {
	fields := schema.Fields{}
	for name, l := range b.mode.Loggers() {
		fields[name] = FieldFor(l, util.Ptr(false))
	}
	return schema.NewShape(fields)
}

// executionField defaults to the in-process executor when it is offered.
// A mode whose only executor is execute_in_process accepts any execution
// config. A single executor with all-optional config is selected by
// default.
func executionField(executors []*definition.ExecutorDefinition) *schema.Field {
	if slices.Contains(executors, definition.InProcessExecutor) {
		return schema.NewField(executorSelector(executors),
			schema.DefaultValue(map[string]any{definition.InProcessExecutor.Name: map[string]any{}}))
	}
	if len(executors) == 1 && executors[0] == definition.ExecuteInProcessExecutor {
		return schema.NewField(schema.NewPermissive(nil), schema.DefaultValue(map[string]any{}))
	}
	selector := executorSelector(executors)
	if len(executors) == 1 && schema.AllOptional(selector) {
		return schema.NewField(selector,
			schema.DefaultValue(map[string]any{executors[0].Name: map[string]any{}}))
	}
	return schema.NewField(selector)
}

func executorSelector(executors []*definition.ExecutorDefinition) *schema.Selector {
	fields := schema.Fields{}
	for _, e := range executors {
		fields[e.Name] = choiceField(e)
	}
	return schema.NewSelector(fields)
}

func storageSelector(storages []*definition.IntermediateStorageDefinition) *schema.Selector {
	fields := schema.Fields{}
	for _, s := range storages {
		fields[s.Name] = choiceField(s)
	}
	return schema.NewSelector(fields)
}

// storageField leaves the section optional when the mode offers exactly
// the default storages. Otherwise the selector defaults to the first
// storage if that storage needs no config.
func storageField(storages []*definition.IntermediateStorageDefinition) *schema.Field {
	selector := storageSelector(storages)
	names := util.Map(storages, func(s *definition.IntermediateStorageDefinition) string { return s.Name })
	defaults := util.Map(definition.DefaultIntermediateStorages(),
		func(s *definition.IntermediateStorageDefinition) string { return s.Name })
	if sameSet(names, defaults) {
		return schema.NewField(selector, schema.IsRequired(false))
	}
	if len(storages) > 0 {
		first, _ := selector.Field(storages[0].Name)
		if schema.AllOptional(first.Type()) {
			return schema.NewField(selector,
				schema.DefaultValue(map[string]any{storages[0].Name: map[string]any{}}))
		}
	}
	return schema.NewField(selector)
}

func sameSet(a, b []string) bool {
	a, b = util.Unique(a), util.Unique(b)
	if len(a) != len(b) {
		return false
	}
	for _, s := range a {
		if !slices.Contains(b, s) {
			return false
		}
	}
	return true
}

// nodeDictionary builds the Shape keyed by node name for the given sibling
// handles. Ignored nodes follow the selected ones.
func (b *builder) nodeDictionary(selected, ignored []definition.NodeHandle) (*schema.Shape, error) {
	fields := schema.Fields{}
	for _, group := range []struct {
		handles []definition.NodeHandle
		ignored bool
	}{{selected, false}, {ignored, true}} {
		for _, h := range group.handles {
			entry, ok := b.arena.Get(h)
			if !ok {
				return nil, errors.Internal(fmt.Errorf("node %q is not indexed", h))
			}
			f, err := b.nodeField(entry, group.ignored)
			if err != nil {
				return nil, err
			}
			fields[entry.Node.Name] = f
		}
	}
	return schema.NewShape(fields), nil
}

// nodeField builds the field of one node, or nil when the node has nothing
// to configure.
func (b *builder) nodeField(e *definition.ArenaEntry, ignored bool) (*schema.Field, error) {
	def := e.Node.Definition
	inputs, err := b.inputsField(e, ignored)
	if err != nil {
		return nil, err
	}
	outputs, err := b.outputsField(e)
	if err != nil {
		return nil, err
	}
	fields := schema.Fields{"inputs": inputs, "outputs": outputs}

	switch kind := def.Kind(); kind {
	case definition.KindOp:
		fields["config"] = FieldFor(def, nil)
	case definition.KindMappedGraph:
		fields["config"] = FieldFor(def, nil)
		if !ignored {
			inner, err := b.nodeDictionary(e.Children, nil)
			if err != nil {
				return nil, err
			}
			b.mapped[e.Handle] = inner
		}
	case definition.KindGraph:
		inner, err := b.nodeDictionary(e.Children, nil)
		if err != nil {
			return nil, err
		}
		fields[b.vocab.Key()] = schema.NewField(inner)
	default:
		return nil, errors.UnexpectedNodeKind(e.Handle.String(), kind)
	}
	return b.nodeConfigField(fields, ignored), nil
}

func (b *builder) nodeConfigField(fields schema.Fields, ignored bool) *schema.Field {
	if countFields(fields) == 0 {
		return nil
	}
	shape := schema.NewShape(fields, b.aliases())
	if ignored {
		return schema.NewField(shape, schema.IsRequired(false), schema.FieldDescription(b.ignoredDescription("config")))
	}
	return schema.NewField(shape)
}

func (b *builder) ignoredDescription(what string) string {
	word := b.nodeWord()
	return fmt.Sprintf("This %s is not present in the current %s selection, the %s values are allowed but ignored.",
		word, word, what)
}

func (b *builder) nodeWord() string {
	if b.vocab == definition.VocabularySolids {
		return "solid"
	}
	return "op"
}

func (b *builder) describeNode(e *definition.ArenaEntry) string {
	word := b.nodeWord()
	if e.Node.Definition.Kind() != definition.KindOp {
		word = "graph"
	}
	return fmt.Sprintf("%s %q", word, e.Handle.String())
}

func (b *builder) hasUpstream(e *definition.ArenaEntry, input string) bool {
	if e.Handle.Parent().IsRoot() {
		return b.topDeps.HasUpstream(e.Node.Name, input)
	}
	return e.HasUpstream(input)
}

// inputsField has one entry per input without an upstream output that can
// be supplied from config, through its input manager or its type loader.
func (b *builder) inputsField(e *definition.ArenaEntry, ignored bool) (*schema.Field, error) {
	fields := schema.Fields{}
	for _, in := range e.Node.Definition.Inputs() {
		if b.hasUpstream(e, in.Name) {
			continue
		}
		switch rt := in.RuntimeType(); {
		case in.RootManagerKey != "":
			f, err := b.inputManagerField(e, in)
			if err != nil {
				return nil, err
			}
			fields[in.Name] = f
		case rt.HasLoader():
			fields[in.Name] = schema.NewField(rt.Loader.Type(),
				schema.IsRequired(!in.HasDefault),
				schema.FieldDescription(rt.Loader.Description()))
		}
	}
	if countFields(fields) == 0 {
		return nil, nil
	}
	shape := schema.NewShape(fields)
	if ignored {
		return schema.NewField(shape, schema.IsRequired(false), schema.FieldDescription(b.ignoredDescription("input config"))), nil
	}
	return schema.NewField(shape), nil
}

func (b *builder) inputManagerField(e *definition.ArenaEntry, in *definition.InputDefinition) (*schema.Field, error) {
	subject := fmt.Sprintf("Input %q of %s", in.Name, b.describeNode(e))
	r, ok := b.mode.Resource(in.RootManagerKey)
	if !ok {
		return nil, errors.ResourceNotFound(subject, "root_manager_key", in.RootManagerKey)
	}
	if !r.IsInputManager() {
		return nil, errors.ResourceCapability(subject, "root_manager_key", in.RootManagerKey, "input manager")
	}
	return r.InputManager.InputConfig, nil
}

// outputsField prefers io manager output config. Without any, outputs
// whose type has a materializer accept a list of materializations.
func (b *builder) outputsField(e *definition.ArenaEntry) (*schema.Field, error) {
	managed := schema.Fields{}
	for _, out := range e.Node.Definition.Outputs() {
		f, err := b.outputManagerField(e, out)
		if err != nil {
			return nil, err
		}
		managed[out.Name] = f
	}
	if countFields(managed) > 0 {
		return schema.NewField(schema.NewShape(managed)), nil
	}

	materialized := schema.Fields{}
	for _, out := range e.Node.Definition.Outputs() {
		if rt := out.RuntimeType(); rt.HasMaterializer() {
			materialized[out.Name] = schema.NewField(rt.Materializer.Type(), schema.IsRequired(false))
		}
	}
	if len(materialized) > 0 {
		return schema.NewField(schema.NewArray(schema.NewShape(materialized)), schema.IsRequired(false)), nil
	}
	return nil, nil
}

func (b *builder) outputManagerField(e *definition.ArenaEntry, out *definition.OutputDefinition) (*schema.Field, error) {
	subject := fmt.Sprintf("Output %q of %s", out.Name, b.describeNode(e))
	key := out.ManagerKey()
	r, ok := b.mode.Resource(key)
	if !ok {
		return nil, errors.ResourceNotFound(subject, "io_manager_key", key)
	}
	if !r.IsOutputManager() {
		return nil, errors.ResourceCapability(subject, "io_manager_key", key, "output manager")
	}
	return r.OutputManager.OutputConfig, nil
}

func countFields(fields schema.Fields) int {
	n := 0
	for _, f := range fields {
		if f != nil {
			n++
		}
	}
	return n
}
