package definition

import (
	"maps"
	"slices"

	"github.com/unlearnai/dagster/util"
	"github.com/unlearnai/dagster/validation"
)

// DefaultModeName is the name of the mode a job gets when it declares none.
const DefaultModeName = "default"

// ModeConfig describes a mode to NewMode.
type ModeConfig struct {
	// Name defaults to DefaultModeName.
	Name                 string `validate:"omitempty,identifier"`
	Description          string
	Resources            map[string]*ResourceDefinition   `validate:"dive,keys,identifier,endkeys,required"`
	Loggers              map[string]*LoggerDefinition     `validate:"dive,keys,identifier,endkeys,required"`
	Executors            []*ExecutorDefinition            `validate:"dive,required"`
	IntermediateStorages []*IntermediateStorageDefinition `validate:"dive,required"`
}

// ModeDefinition is a named set of resources, loggers, executors and
// intermediate storages a job can run with.
type ModeDefinition struct {
	name        string
	description string
	resources   map[string]*ResourceDefinition
	loggers     map[string]*LoggerDefinition
	executors   []*ExecutorDefinition
	storages    []*IntermediateStorageDefinition
}

// NewMode validates cfg and creates a mode. A mode always has an io_manager
// resource, at least one logger, executor and intermediate storage; the
// builtins fill in what cfg leaves out.
func NewMode(cfg ModeConfig) (*ModeDefinition, error) {
	if cfg.Name == "" {
		cfg.Name = DefaultModeName
	}
	if err := validateDefinition("mode", cfg.Name, cfg); err != nil {
		return nil, err
	}

	m := &ModeDefinition{
		name:        cfg.Name,
		description: cfg.Description,
		resources:   maps.Clone(cfg.Resources),
		loggers:     maps.Clone(cfg.Loggers),
		executors:   slices.Clone(cfg.Executors),
		storages:    slices.Clone(cfg.IntermediateStorages),
	}
	if m.resources == nil {
		m.resources = make(map[string]*ResourceDefinition)
	}
	if _, ok := m.resources[DefaultIOManagerKey]; !ok {
		m.resources[DefaultIOManagerKey] = FSIOManager
	}
	if len(m.loggers) == 0 {
		m.loggers = map[string]*LoggerDefinition{"console": ConsoleLogger}
	}
	if len(m.executors) == 0 {
		m.executors = DefaultExecutors()
	}
	if len(m.storages) == 0 {
		m.storages = DefaultIntermediateStorages()
	}

	v := validation.New()
	v.Unique("executors", util.Map(m.executors, func(e *ExecutorDefinition) string { return e.Name }))
	v.Unique("intermediate_storages", util.Map(m.storages, func(s *IntermediateStorageDefinition) string { return s.Name }))
	if err := collected("mode", cfg.Name, v); err != nil {
		return nil, err
	}
	for key, r := range m.resources {
		if err := checkConfig("resource", key, r.Config); err != nil {
			return nil, err
		}
	}
	for key, l := range m.loggers {
		if err := checkConfig("logger", key, l.Config); err != nil {
			return nil, err
		}
	}
	for _, e := range m.executors {
		if err := checkConfig("executor", e.Name, e.Config); err != nil {
			return nil, err
		}
	}
	for _, s := range m.storages {
		if err := checkConfig("intermediate storage", s.Name, s.Config); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// DefaultMode returns a mode built entirely from builtins.
func DefaultMode() *ModeDefinition {
	m, err := NewMode(ModeConfig{})
	if err != nil {
		panic(err)
	}
	return m
}

func (m *ModeDefinition) Name() string        { return m.name }
func (m *ModeDefinition) Description() string { return m.description }

// Resource returns the resource provided under key.
func (m *ModeDefinition) Resource(key string) (*ResourceDefinition, bool) {
	r, ok := m.resources[key]
	return r, ok
}

// Resources returns a copy of the resources keyed by resource key.
func (m *ModeDefinition) Resources() map[string]*ResourceDefinition { return maps.Clone(m.resources) }

// ResourceKeys returns the sorted resource keys.
func (m *ModeDefinition) ResourceKeys() []string { return util.SortedKeys(m.resources) }

// Loggers returns a copy of the loggers keyed by name.
func (m *ModeDefinition) Loggers() map[string]*LoggerDefinition { return maps.Clone(m.loggers) }

// Executors returns the executors in declaration order.
func (m *ModeDefinition) Executors() []*ExecutorDefinition { return slices.Clone(m.executors) }

// IntermediateStorages returns the storages in declaration order.
func (m *ModeDefinition) IntermediateStorages() []*IntermediateStorageDefinition {
	return slices.Clone(m.storages)
}
