package manifest

import (
	"sync"

	"github.com/unlearnai/dagster/definition"
	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/util"
)

// Kind names one namespace of the registry.
type Kind string

const (
	KindOp            Kind = "op"
	KindResource      Kind = "resource"
	KindLogger        Kind = "logger"
	KindExecutor      Kind = "executor"
	KindStorage       Kind = "intermediate_storage"
	KindRuntimeType   Kind = "runtime_type"
	KindConfigMapping Kind = "config_mapping"
)

// Registry holds the Go definitions manifests refer to by name. It is safe
// for concurrent use; registering a name twice replaces the definition.
type Registry struct {
	mu        sync.RWMutex
	ops       map[string]*definition.OpDefinition
	resources map[string]*definition.ResourceDefinition
	loggers   map[string]*definition.LoggerDefinition
	executors map[string]*definition.ExecutorDefinition
	storages  map[string]*definition.IntermediateStorageDefinition
	types     map[string]*definition.RuntimeType
	mappings  map[string]*definition.ConfigMapping
}

// NewRegistry creates a registry holding the builtin executors, storages,
// console logger, io managers ("fs_io_manager", "mem_io_manager") and
// runtime types.
func NewRegistry() *Registry {
	r := &Registry{
		ops:       make(map[string]*definition.OpDefinition),
		resources: make(map[string]*definition.ResourceDefinition),
		loggers:   make(map[string]*definition.LoggerDefinition),
		executors: make(map[string]*definition.ExecutorDefinition),
		storages:  make(map[string]*definition.IntermediateStorageDefinition),
		types:     make(map[string]*definition.RuntimeType),
		mappings:  make(map[string]*definition.ConfigMapping),
	}
	for _, e := range append(definition.DefaultExecutors(), definition.ExecuteInProcessExecutor) {
		r.executors[e.Name] = e
	}
	for _, s := range definition.DefaultIntermediateStorages() {
		r.storages[s.Name] = s
	}
	for _, t := range definition.RuntimeBuiltins() {
		r.types[t.Name] = t
	}
	r.loggers["console"] = definition.ConsoleLogger
	r.resources["fs_io_manager"] = definition.FSIOManager
	r.resources["mem_io_manager"] = definition.MemIOManager
	return r
}

// RegisterOp registers an op under name. An empty name uses the op's own.
func (r *Registry) RegisterOp(name string, op *definition.OpDefinition) {
	if name == "" {
		name = op.Name()
	}
	register(r, r.ops, name, op)
}

// RegisterResource registers a resource definition.
func (r *Registry) RegisterResource(name string, res *definition.ResourceDefinition) {
	register(r, r.resources, name, res)
}

// RegisterLogger registers a logger definition.
func (r *Registry) RegisterLogger(name string, l *definition.LoggerDefinition) {
	register(r, r.loggers, name, l)
}

// RegisterExecutor registers an executor under its name.
func (r *Registry) RegisterExecutor(e *definition.ExecutorDefinition) {
	register(r, r.executors, e.Name, e)
}

// RegisterStorage registers an intermediate storage under its name.
func (r *Registry) RegisterStorage(s *definition.IntermediateStorageDefinition) {
	register(r, r.storages, s.Name, s)
}

// RegisterType registers a runtime type under its name.
func (r *Registry) RegisterType(t *definition.RuntimeType) {
	register(r, r.types, t.Name, t)
}

// RegisterConfigMapping registers a config mapping.
func (r *Registry) RegisterConfigMapping(name string, m *definition.ConfigMapping) {
	register(r, r.mappings, name, m)
}

// Op looks up a registered op.
func (r *Registry) Op(name string) (*definition.OpDefinition, error) {
	return lookup(r, r.ops, KindOp, name)
}

// Resource looks up a registered resource.
func (r *Registry) Resource(name string) (*definition.ResourceDefinition, error) {
	return lookup(r, r.resources, KindResource, name)
}

// Logger looks up a registered logger.
func (r *Registry) Logger(name string) (*definition.LoggerDefinition, error) {
	return lookup(r, r.loggers, KindLogger, name)
}

// Executor looks up a registered executor.
func (r *Registry) Executor(name string) (*definition.ExecutorDefinition, error) {
	return lookup(r, r.executors, KindExecutor, name)
}

// Storage looks up a registered intermediate storage.
func (r *Registry) Storage(name string) (*definition.IntermediateStorageDefinition, error) {
	return lookup(r, r.storages, KindStorage, name)
}

// Type looks up a registered runtime type. The empty name is Any.
func (r *Registry) Type(name string) (*definition.RuntimeType, error) {
	if name == "" {
		return definition.AnyType, nil
	}
	return lookup(r, r.types, KindRuntimeType, name)
}

// ConfigMapping looks up a registered config mapping.
func (r *Registry) ConfigMapping(name string) (*definition.ConfigMapping, error) {
	return lookup(r, r.mappings, KindConfigMapping, name)
}

// List returns the sorted names registered under kind.
func (r *Registry) List(kind Kind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch kind {
	case KindOp:
		return util.SortedKeys(r.ops)
	case KindResource:
		return util.SortedKeys(r.resources)
	case KindLogger:
		return util.SortedKeys(r.loggers)
	case KindExecutor:
		return util.SortedKeys(r.executors)
	case KindStorage:
		return util.SortedKeys(r.storages)
	case KindRuntimeType:
		return util.SortedKeys(r.types)
	case KindConfigMapping:
		return util.SortedKeys(r.mappings)
	default:
		return nil
	}
}

func register[T any](r *Registry, m map[string]T, name string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m[name] = v
}

func lookup[T any](r *Registry, m map[string]T, kind Kind, name string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := m[name]
	if !ok {
		var zero T
		return zero, errors.NotFound(string(kind), name)
	}
	return v, nil
}
