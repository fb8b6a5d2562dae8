package definition

import (
	"maps"
	"slices"

	"github.com/mohae/deepcopy"

	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/util"
)

// Vocabulary selects the key of the node dictionary in run config. The
// other key is accepted as an alias.
type Vocabulary string

const (
	VocabularyOps    Vocabulary = "ops"
	VocabularySolids Vocabulary = "solids"
)

// Key returns the canonical node dictionary key.
func (v Vocabulary) Key() string {
	if v == VocabularySolids {
		return string(VocabularySolids)
	}
	return string(VocabularyOps)
}

// Alias returns the alternate node dictionary key.
func (v Vocabulary) Alias() string {
	if v == VocabularySolids {
		return string(VocabularyOps)
	}
	return string(VocabularySolids)
}

// JobConfig describes a job to NewJob.
type JobConfig struct {
	Name        string `validate:"required,identifier"`
	Description string
	Graph       *GraphDefinition `validate:"required"`
	// Modes defaults to a single DefaultMode.
	Modes []*ModeDefinition `validate:"dive,required"`
	// Vocabulary defaults to VocabularyOps.
	Vocabulary Vocabulary `validate:"omitempty,oneof=ops solids"`
	// ConfigMapping, when set, replaces the node dictionary of the run
	// config with the mapping's schema.
	ConfigMapping *ConfigMapping
	// RunConfig is a default run config document, validated when the run
	// config schema is built. Documents submitted for a run are merged over
	// it. It cannot be combined with ConfigMapping.
	RunConfig map[string]any
	Tags      map[string]string
}

// JobDefinition is a graph bound to the modes it can run in.
type JobDefinition struct {
	name        string
	description string
	graph       *GraphDefinition
	modes       []*ModeDefinition
	vocabulary  Vocabulary
	mapping     *ConfigMapping
	runConfig   map[string]any
	tags        map[string]string
	arena       *Arena
}

// NewJob validates cfg and creates a job.
func NewJob(cfg JobConfig) (*JobDefinition, error) {
	if err := validateDefinition("job", cfg.Name, cfg); err != nil {
		return nil, err
	}
	if cfg.Vocabulary == "" {
		cfg.Vocabulary = VocabularyOps
	}
	modes := slices.Clone(cfg.Modes)
	if len(modes) == 0 {
		modes = []*ModeDefinition{DefaultMode()}
	}
	if dup := duplicateModes(modes); len(dup) > 0 {
		return nil, errors.InvalidDefinition("Invalid job definition %q: duplicate mode names %v", cfg.Name, dup)
	}
	if cfg.ConfigMapping != nil && len(cfg.RunConfig) > 0 {
		return nil, errors.InvalidDefinition("Invalid job definition %q: run_config and config_mapping cannot both be set", cfg.Name)
	}
	if cfg.ConfigMapping != nil {
		if err := checkConfig("job", cfg.Name, cfg.ConfigMapping.Schema); err != nil {
			return nil, err
		}
	}
	return &JobDefinition{
		name:        cfg.Name,
		description: cfg.Description,
		graph:       cfg.Graph,
		modes:       modes,
		vocabulary:  cfg.Vocabulary,
		mapping:     cfg.ConfigMapping,
		runConfig:   copyRunConfig(cfg.RunConfig),
		tags:        maps.Clone(cfg.Tags),
		arena:       NewArena(cfg.Graph),
	}, nil
}

// MustJob is like NewJob but panics on error.
func MustJob(cfg JobConfig) *JobDefinition {
	j, err := NewJob(cfg)
	if err != nil {
		panic(err)
	}
	return j
}

func duplicateModes(modes []*ModeDefinition) []string {
	seen := make(map[string]int, len(modes))
	var dup []string
	for _, m := range modes {
		seen[m.Name()]++
		if seen[m.Name()] == 2 {
			dup = append(dup, m.Name())
		}
	}
	return dup
}

func copyRunConfig(doc map[string]any) map[string]any {
	if len(doc) == 0 {
		return nil
	}
	return deepcopy.Copy(doc).(map[string]any)
}

func (j *JobDefinition) Name() string                  { return j.name }
func (j *JobDefinition) Description() string           { return j.description }
func (j *JobDefinition) Graph() *GraphDefinition       { return j.graph }
func (j *JobDefinition) Vocabulary() Vocabulary        { return j.vocabulary }
func (j *JobDefinition) ConfigMapping() *ConfigMapping { return j.mapping }
func (j *JobDefinition) Arena() *Arena                 { return j.arena }
func (j *JobDefinition) Modes() []*ModeDefinition      { return slices.Clone(j.modes) }
func (j *JobDefinition) Tags() map[string]string       { return maps.Clone(j.tags) }

// DefaultRunConfig returns a copy of the job's default run config, nil
// when it has none.
func (j *JobDefinition) DefaultRunConfig() map[string]any { return copyRunConfig(j.runConfig) }

// UsesOpAPIs reports whether the node dictionary is keyed "ops".
func (j *JobDefinition) UsesOpAPIs() bool { return j.vocabulary != VocabularySolids }

// ModeNames returns the mode names in declaration order.
func (j *JobDefinition) ModeNames() []string {
	return util.Map(j.modes, func(m *ModeDefinition) string { return m.Name() })
}

// Mode returns the mode called name. An empty name selects the first mode.
func (j *JobDefinition) Mode(name string) (*ModeDefinition, error) {
	if name == "" {
		return j.modes[0], nil
	}
	for _, m := range j.modes {
		if m.Name() == name {
			return m, nil
		}
	}
	return nil, errors.NotFound("mode", name).WithDetail("job", j.name)
}

// Select resolves node selection queries against the job's top-level nodes.
func (j *JobDefinition) Select(queries []string) (*Selection, error) {
	return SelectNodes(j.graph, queries)
}

// RequiredResourceKeys returns the sorted resource keys needed by the
// selected nodes and everything nested in them: declared op resources,
// input manager keys and output io manager keys. A nil selection means
// every node.
func (j *JobDefinition) RequiredResourceKeys(sel *Selection) []string {
	keys := make(map[string]struct{})
	for _, root := range j.arena.Roots() {
		if !sel.IsSelected(root.Name()) {
			continue
		}
		for entry := range j.arena.Below(root) {
			op, ok := entry.Node.Definition.(*OpDefinition)
			if !ok {
				continue
			}
			for _, key := range op.RequiredResourceKeys() {
				keys[key] = struct{}{}
			}
			for _, in := range op.Inputs() {
				if in.RootManagerKey != "" {
					keys[in.RootManagerKey] = struct{}{}
				}
			}
			for _, out := range op.Outputs() {
				keys[out.ManagerKey()] = struct{}{}
			}
		}
	}
	return util.SortedKeys(keys)
}
