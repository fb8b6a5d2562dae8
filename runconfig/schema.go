package runconfig

import (
	"context"

	"github.com/unlearnai/dagster/definition"
	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/logger"
	"github.com/unlearnai/dagster/observability"
	"github.com/unlearnai/dagster/schema"
)

const (
	statusOK      = "ok"
	statusInvalid = "invalid"
	statusError   = "error"
)

// RunConfigSchema is the synthesized config schema of one job run: the
// job, its mode and node selection, the root field and the flattened type
// dictionary. It is immutable once built.
type RunConfigSchema struct {
	Job       *definition.JobDefinition
	Mode      *definition.ModeDefinition
	Selection *definition.Selection
	Root      *schema.Field
	Types     *TypeDictionary

	// unmapped is the root a job-level config mapping produces documents
	// for. It equals Root when the job has no mapping.
	unmapped *schema.Field
	builder  *builder
	log      *logger.Logger
	metrics  *observability.Metrics
}

type options struct {
	mode      string
	selection []string
	log       *logger.Logger
	metrics   *observability.Metrics
}

// Option configures Build.
type Option func(*options)

// WithMode selects the mode by name. The job's first mode is used otherwise.
func WithMode(name string) Option {
	return func(o *options) { o.mode = name }
}

// WithSelection restricts the run to the nodes matched by the queries,
// e.g. "extract+" or "*load".
func WithSelection(queries ...string) Option {
	return func(o *options) { o.selection = queries }
}

// WithLogger sets the logger used by the schema and its resolutions.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records build, validation and resolution metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logger.GetGlobalLogger()
	}
	o.log = o.log.WithComponent("runconfig")
	return o
}

// Build synthesizes the run config schema of job. Definition errors abort
// the build; no partial schema is returned.
func Build(ctx context.Context, job *definition.JobDefinition, opts ...Option) (*RunConfigSchema, error) {
	if job == nil {
		return nil, errors.InvalidInput("job", "job is required")
	}
	o := buildOptions(opts)
	log := o.log.WithJob(job.Name(), o.mode)

	oc := observability.NewOperationContext("build", job.Name(), o.mode, logger.RequestIDFromContext(ctx), o.metrics)
	ctx, span := oc.StartSpanForOperation(ctx, observability.SpanSchemaBuild)

	rcs, err := build(ctx, job, o)
	if err != nil {
		oc.EndOperation(ctx, span, statusError, err)
		if appErr, ok := errors.AsAppError(err); ok && errors.IsDefinitionCode(appErr.Code) {
			log.Warn("run config schema rejected", logger.ErrorFields("build", err))
		}
		return nil, err
	}
	observability.SetSpanAttribute(ctx, observability.AttrTypeCount, len(rcs.Types.ByKey))
	observability.SetSpanAttribute(ctx, observability.AttrSelection, rcs.Selection.String())
	oc.EndOperation(ctx, span, statusOK, nil)

	log.Debug("run config schema built", logger.Fields(
		"mode", rcs.Mode.Name(),
		"root_key", rcs.Root.Type().Key(),
		"types", len(rcs.Types.ByName),
		"duration_ms", oc.Duration().Milliseconds(),
	))
	return rcs, nil
}

func build(ctx context.Context, job *definition.JobDefinition, o *options) (*RunConfigSchema, error) {
	mode, err := job.Mode(o.mode)
	if err != nil {
		return nil, err
	}
	sel, err := job.Select(o.selection)
	if err != nil {
		return nil, err
	}

	b := newBuilder(job, mode, sel)
	unmappedShape, err := b.rootShape(false)
	if err != nil {
		return nil, err
	}
	unmapped := schema.NewField(unmappedShape)
	if defaults := job.DefaultRunConfig(); defaults != nil {
		if res := schema.Process(unmapped.Type(), defaults); !res.Success {
			return nil, errors.InvalidDefinition("Default run config of job %q is invalid for mode %q: %d error(s) found.",
				job.Name(), mode.Name(), len(res.Errors)).
				WithDetail("job", job.Name()).
				WithDetail("errors", res.Errors)
		}
	}
	root := unmapped
	if job.ConfigMapping() != nil {
		shape, err := b.rootShape(true)
		if err != nil {
			return nil, err
		}
		root = schema.NewField(shape)
	}
	if err := schema.Check(root.Type()); err != nil {
		return nil, err
	}

	_, span := observability.StartSpan(ctx, observability.SpanTypeDictionary)
	types, err := ConstructConfigTypeDictionary(job, root.Type())
	if err == nil && root != unmapped {
		err = types.add(unmapped.Type())
	}
	span.End()
	if err != nil {
		return nil, err
	}

	return &RunConfigSchema{
		Job:       job,
		Mode:      mode,
		Selection: sel,
		Root:      root,
		Types:     types,
		unmapped:  unmapped,
		builder:   b,
		log:       o.log.WithJob(job.Name(), mode.Name()),
		metrics:   o.metrics,
	}, nil
}

// RootType returns the type of the root field.
func (s *RunConfigSchema) RootType() schema.ConfigType { return s.Root.Type() }

// NodeDictionaryKey returns the canonical key of the node dictionary,
// "ops" or "solids".
func (s *RunConfigSchema) NodeDictionaryKey() string { return s.Job.Vocabulary().Key() }

// ConfigType looks up a named type in the type dictionary.
func (s *RunConfigSchema) ConfigType(name string) (schema.ConfigType, bool) {
	t, ok := s.Types.ByName[name]
	return t, ok
}

// Scaffold returns an example document that validates against the root.
func (s *RunConfigSchema) Scaffold(includeOptional bool) map[string]any {
	doc, _ := schema.Scaffold(s.RootType(), includeOptional).(map[string]any)
	if doc == nil {
		doc = map[string]any{}
	}
	return doc
}

// JSONSchema exports the root type as a JSON Schema document.
func (s *RunConfigSchema) JSONSchema() map[string]any {
	return schema.JSONSchema(s.RootType())
}

// Validate type-checks and normalizes doc against the root. It never
// fails for a definition reason; every problem is listed in the result.
// The job's default run config is not applied; Resolve does that.
func (s *RunConfigSchema) Validate(doc any) *schema.Result {
	return schema.Process(s.RootType(), orEmpty(doc))
}

func orEmpty(doc any) any {
	if doc == nil {
		return map[string]any{}
	}
	return doc
}
