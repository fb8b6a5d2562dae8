package runconfig

import (
	"github.com/unlearnai/dagster/definition"
	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/schema"
	"github.com/unlearnai/dagster/util"
)

// TypeDictionary indexes every config type reachable from a run config
// schema. ByKey holds every type; ByName holds the named ones and is where
// name collisions are rejected.
type TypeDictionary struct {
	ByName map[string]schema.ConfigType
	ByKey  map[string]schema.ConfigType
}

// TypeSummary describes one named type for introspection.
type TypeSummary struct {
	Name        string `json:"name"`
	Key         string `json:"key"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
	Shape       string `json:"shape"`
}

// ConstructConfigTypeDictionary walks the builtin types, the config types
// of every node definition in the job (nested graphs and config mappings
// included), the root type, and the loader and materializer schemas of
// every runtime type the job uses plus the runtime builtins. Two distinct
// types sharing a given name fail with TYPE_NAME_COLLISION.
func ConstructConfigTypeDictionary(job *definition.JobDefinition, root schema.ConfigType) (*TypeDictionary, error) {
	d := &TypeDictionary{
		ByName: make(map[string]schema.ConfigType),
		ByKey:  make(map[string]schema.ConfigType),
	}
	for _, t := range schema.Builtins() {
		if err := d.add(t); err != nil {
			return nil, err
		}
	}
	for entry := range job.Arena().All() {
		if err := d.addField(entry.Node.Definition.ConfigField()); err != nil {
			return nil, err
		}
	}
	if m := job.ConfigMapping(); m != nil {
		if err := d.addField(m.Schema); err != nil {
			return nil, err
		}
	}
	if err := d.add(root); err != nil {
		return nil, err
	}
	for _, rt := range runtimeTypes(job) {
		if err := d.addField(rt.Loader); err != nil {
			return nil, err
		}
		if err := d.addField(rt.Materializer); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// runtimeTypes returns the runtime types of every input and output in the
// job followed by the builtins not already seen.
func runtimeTypes(job *definition.JobDefinition) []*definition.RuntimeType {
	var out []*definition.RuntimeType
	seen := make(map[*definition.RuntimeType]bool)
	add := func(rt *definition.RuntimeType) {
		if !seen[rt] {
			seen[rt] = true
			out = append(out, rt)
		}
	}
	for entry := range job.Arena().All() {
		for _, in := range entry.Node.Definition.Inputs() {
			add(in.RuntimeType())
		}
		for _, o := range entry.Node.Definition.Outputs() {
			add(o.RuntimeType())
		}
	}
	for _, rt := range definition.RuntimeBuiltins() {
		add(rt)
	}
	return out
}

func (d *TypeDictionary) addField(f *schema.Field) error {
	if f == nil {
		return nil
	}
	return d.add(f.Type())
}

func (d *TypeDictionary) add(t schema.ConfigType) error {
	for ct := range schema.Iterate(t) {
		if name := ct.GivenName(); name != "" {
			if prev, ok := d.ByName[name]; ok && prev.Key() != ct.Key() {
				return errors.TypeNameCollision(name).
					WithDetail("keys", []string{prev.Key(), ct.Key()})
			}
			d.ByName[name] = ct
		}
		d.ByKey[ct.Key()] = ct
	}
	return nil
}

// Names returns the sorted type names.
func (d *TypeDictionary) Names() []string { return util.SortedKeys(d.ByName) }

// Summaries describes every named type, sorted by name. Builtins are
// skipped unless includeBuiltins is set.
func (d *TypeDictionary) Summaries(includeBuiltins bool) []TypeSummary {
	out := make([]TypeSummary, 0, len(d.ByName))
	for _, name := range d.Names() {
		t := d.ByName[name]
		if !includeBuiltins && schema.IsBuiltin(t) {
			continue
		}
		out = append(out, TypeSummary{
			Name:        name,
			Key:         t.Key(),
			Kind:        t.Kind().String(),
			Description: t.Description(),
			Shape:       schema.Outline(t),
		})
	}
	return out
}
