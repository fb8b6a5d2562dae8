package manifest

import (
	"fmt"

	"go.yaml.in/yaml/v3"

	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/util"
	"github.com/unlearnai/dagster/validation"
)

// Manifest kinds.
const (
	KindJob   = "job"
	KindGraph = "graph"
)

// Manifest is a YAML job or graph definition.
type Manifest struct {
	// Name identifies the manifest; loaders look it up as <name>.yaml.
	Name string `yaml:"name"`
	// Kind is "job" (default) or "graph". Graph manifests are only used
	// through includes and graph nodes.
	Kind        string `yaml:"kind,omitempty"`
	Description string `yaml:"description,omitempty"`
	// Vocabulary is "ops" (default) or "solids".
	Vocabulary string `yaml:"vocabulary,omitempty"`
	// Includes lists graph manifests added as composite nodes named after
	// the included manifest.
	Includes []string `yaml:"includes,omitempty"`
	// ConfigMapping names a registered config mapping. On a job it replaces
	// the node dictionary; on a graph it makes the graph config-mapped.
	ConfigMapping string `yaml:"config_mapping,omitempty"`
	// Inputs maps graph inputs to "node.input" references.
	Inputs map[string]StringList `yaml:"inputs,omitempty"`
	// Outputs maps graph outputs to "node.output" references.
	Outputs map[string]string `yaml:"outputs,omitempty"`
	Nodes   []NodeSpec        `yaml:"nodes"`
	Tags    map[string]string `yaml:"tags,omitempty"`
	// RunConfig is the job's default run config document.
	RunConfig map[string]any `yaml:"run_config,omitempty"`

	// The top-level mode, used when Modes is empty.
	Resources            map[string]string `yaml:"resources,omitempty"`
	Loggers              []string          `yaml:"loggers,omitempty"`
	Executors            []string          `yaml:"executors,omitempty"`
	IntermediateStorages []string          `yaml:"intermediate_storages,omitempty"`
	Modes                []ModeSpec        `yaml:"modes,omitempty"`
}

// ModeSpec declares a mode by registry names.
type ModeSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Resources maps resource keys to registered resource names.
	Resources            map[string]string `yaml:"resources,omitempty"`
	Loggers              []string          `yaml:"loggers,omitempty"`
	Executors            []string          `yaml:"executors,omitempty"`
	IntermediateStorages []string          `yaml:"intermediate_storages,omitempty"`
}

// NodeSpec declares one node. Exactly one of Op, Graph and Definition is
// set.
type NodeSpec struct {
	Name string `yaml:"name"`
	// Op names a registered op.
	Op string `yaml:"op,omitempty"`
	// Graph names a graph manifest.
	Graph string `yaml:"graph,omitempty"`
	// Definition declares an op inline.
	Definition *OpSpec `yaml:"definition,omitempty"`
	// DependsOn maps each input to one or more "node.output" references.
	DependsOn map[string]StringList `yaml:"depends_on,omitempty"`
}

// OpSpec is an inline op definition. Config uses the compact config DSL.
type OpSpec struct {
	Description          string            `yaml:"description,omitempty"`
	Config               any               `yaml:"config,omitempty"`
	Inputs               []InputSpec       `yaml:"inputs,omitempty"`
	Outputs              []OutputSpec      `yaml:"outputs,omitempty"`
	RequiredResourceKeys []string          `yaml:"required_resource_keys,omitempty"`
	Tags                 map[string]string `yaml:"tags,omitempty"`
}

// InputSpec declares an inline op input.
type InputSpec struct {
	Name           string `yaml:"name"`
	Description    string `yaml:"description,omitempty"`
	Type           string `yaml:"type,omitempty"`
	RootManagerKey string `yaml:"root_manager_key,omitempty"`
	Default        any    `yaml:"default,omitempty"`
}

// OutputSpec declares an inline op output.
type OutputSpec struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description,omitempty"`
	Type         string `yaml:"type,omitempty"`
	IOManagerKey string `yaml:"io_manager_key,omitempty"`
}

// StringList accepts a single string or a list of strings.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

// Parse decodes and checks a manifest.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.InvalidInput("manifest", fmt.Sprintf("cannot parse manifest: %v", err)).WithCause(err)
	}
	if m.Kind == "" {
		m.Kind = KindJob
	}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Check reports every structural problem of the manifest at once.
// References to the registry and other manifests are checked when the
// manifest is resolved.
func (m *Manifest) Check() error {
	v := validation.New()
	v.Identifier("name", m.Name).
		OneOf("kind", m.Kind, []string{KindJob, KindGraph}).
		OneOf("vocabulary", m.Vocabulary, []string{"ops", "solids"})

	names := util.Map(m.Nodes, func(n NodeSpec) string { return n.Name })
	v.Unique("nodes", append(names, m.Includes...))
	for i, n := range m.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		v.Identifier(field+".name", n.Name)
		set := 0
		for _, s := range []bool{n.Op != "", n.Graph != "", n.Definition != nil} {
			if s {
				set++
			}
		}
		v.Custom(set == 1, field, "exactly one of op, graph and definition must be set")
		for input, refs := range n.DependsOn {
			v.Identifier(field+".depends_on", input)
			v.Custom(len(refs) > 0, field+".depends_on."+input, "needs at least one upstream output")
		}
		if n.Definition != nil {
			checkOpSpec(v, field+".definition", n.Definition)
		}
	}
	for _, inc := range m.Includes {
		v.Identifier("includes", inc)
	}
	if m.Kind == KindGraph {
		v.Custom(len(m.Modes) == 0 && len(m.Resources) == 0 && len(m.Executors) == 0,
			"modes", "graph manifests cannot declare modes")
		v.Custom(len(m.RunConfig) == 0, "run_config", "graph manifests cannot declare a run config")
	}
	for i, mode := range m.Modes {
		v.Identifier(fmt.Sprintf("modes[%d].name", i), mode.Name)
	}
	v.Unique("modes", util.Map(m.Modes, func(s ModeSpec) string { return s.Name }))

	if err := v.Validate(); err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			appErr.WithDetail("manifest", m.Name)
		}
		return err
	}
	return nil
}

func checkOpSpec(v *validation.Validator, field string, op *OpSpec) {
	for i, in := range op.Inputs {
		v.Identifier(fmt.Sprintf("%s.inputs[%d].name", field, i), in.Name)
	}
	for i, out := range op.Outputs {
		v.Identifier(fmt.Sprintf("%s.outputs[%d].name", field, i), out.Name)
	}
	v.Unique(field+".inputs", util.Map(op.Inputs, func(in InputSpec) string { return in.Name }))
	v.Unique(field+".outputs", util.Map(op.Outputs, func(out OutputSpec) string { return out.Name }))
}
