package definition

import (
	"maps"
	"slices"

	"github.com/unlearnai/dagster/schema"
	"github.com/unlearnai/dagster/util"
	"github.com/unlearnai/dagster/validation"
)

// OpConfig describes an op to NewOp.
type OpConfig struct {
	Name        string `validate:"required,identifier"`
	Description string
	// Config is the schema of the op's config. Nil means unconfigured.
	Config *schema.Field
	Inputs []*InputDefinition `validate:"dive,required"`
	// Outputs defaults to a single Any output named DefaultOutputName.
	Outputs              []*OutputDefinition `validate:"dive,required"`
	RequiredResourceKeys []string            `validate:"dive,identifier"`
	Tags                 map[string]string
}

// OpDefinition is a leaf computation.
type OpDefinition struct {
	name         string
	description  string
	config       *schema.Field
	inputs       []*InputDefinition
	outputs      []*OutputDefinition
	resourceKeys []string
	tags         map[string]string
}

// NewOp validates cfg and creates an op definition.
func NewOp(cfg OpConfig) (*OpDefinition, error) {
	outputs := cfg.Outputs
	if len(outputs) == 0 {
		outputs = []*OutputDefinition{{Name: DefaultOutputName}}
	}
	cfg.Outputs = outputs
	if err := validateDefinition("op", cfg.Name, cfg); err != nil {
		return nil, err
	}

	v := validation.New()
	v.Unique("inputs", util.Map(cfg.Inputs, func(in *InputDefinition) string { return in.Name }))
	v.Unique("outputs", util.Map(outputs, func(out *OutputDefinition) string { return out.Name }))
	for _, in := range cfg.Inputs {
		if in.RootManagerKey != "" {
			v.Identifier("inputs."+in.Name+".root_manager_key", in.RootManagerKey)
		}
	}
	for _, out := range outputs {
		if out.IOManagerKey != "" {
			v.Identifier("outputs."+out.Name+".io_manager_key", out.IOManagerKey)
		}
	}
	if err := collected("op", cfg.Name, v); err != nil {
		return nil, err
	}
	if err := checkConfig("op", cfg.Name, cfg.Config); err != nil {
		return nil, err
	}

	return &OpDefinition{
		name:         cfg.Name,
		description:  cfg.Description,
		config:       cfg.Config,
		inputs:       slices.Clone(cfg.Inputs),
		outputs:      slices.Clone(outputs),
		resourceKeys: util.Unique(cfg.RequiredResourceKeys),
		tags:         maps.Clone(cfg.Tags),
	}, nil
}

// MustOp is like NewOp but panics on error. Intended for package-level
// definitions and tests.
func MustOp(cfg OpConfig) *OpDefinition {
	op, err := NewOp(cfg)
	if err != nil {
		panic(err)
	}
	return op
}

func (d *OpDefinition) Name() string                   { return d.name }
func (d *OpDefinition) Kind() NodeKind                 { return KindOp }
func (d *OpDefinition) ConfigField() *schema.Field     { return d.config }
func (d *OpDefinition) Inputs() []*InputDefinition     { return d.inputs }
func (d *OpDefinition) Outputs() []*OutputDefinition   { return d.outputs }
func (d *OpDefinition) Description() string            { return d.description }
func (d *OpDefinition) RequiredResourceKeys() []string { return d.resourceKeys }

// Tags returns a copy of the op tags.
func (d *OpDefinition) Tags() map[string]string { return maps.Clone(d.tags) }
