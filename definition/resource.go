package definition

import "github.com/unlearnai/dagster/schema"

// InputManager is the capability of a resource to load op inputs that have
// no upstream output. InputConfig, when set, is the per-input config schema.
type InputManager struct {
	InputConfig *schema.Field
}

// OutputManager is the capability of a resource to store op outputs.
// OutputConfig, when set, is the per-output config schema.
type OutputManager struct {
	OutputConfig *schema.Field
}

// ResourceDefinition describes a resource provided to a job's nodes under
// a resource key.
type ResourceDefinition struct {
	Description string
	Config      *schema.Field
	// InputManager is non-nil when the resource can serve root_manager_key
	// inputs.
	InputManager *InputManager
	// OutputManager is non-nil when the resource can serve io_manager_key
	// outputs.
	OutputManager *OutputManager
}

// ConfigField returns the resource config schema.
func (r *ResourceDefinition) ConfigField() *schema.Field { return r.Config }

// IsInputManager reports whether the resource implements the input-manager
// capability.
func (r *ResourceDefinition) IsInputManager() bool { return r != nil && r.InputManager != nil }

// IsOutputManager reports whether the resource implements the io-manager
// capability.
func (r *ResourceDefinition) IsOutputManager() bool { return r != nil && r.OutputManager != nil }

// Builtin io managers. Modes without an io_manager resource get
// FSIOManager under DefaultIOManagerKey.
var (
	FSIOManager = &ResourceDefinition{
		Description: "Stores outputs as files below base_dir, the run's storage directory when unset.",
		Config: schema.NewField(schema.NewShape(schema.Fields{
			"base_dir": schema.NewField(schema.String, schema.IsRequired(false)),
		})),
		InputManager:  &InputManager{},
		OutputManager: &OutputManager{},
	}
	MemIOManager = &ResourceDefinition{
		Description:   "Stores outputs in memory for the duration of the run.",
		InputManager:  &InputManager{},
		OutputManager: &OutputManager{},
	}
)

// LoggerDefinition describes a logger a run may enable.
type LoggerDefinition struct {
	Description string
	Config      *schema.Field
}

// ConfigField returns the logger config schema.
func (l *LoggerDefinition) ConfigField() *schema.Field { return l.Config }

// ConsoleLogger is the logger modes get when they declare none.
var ConsoleLogger = &LoggerDefinition{
	Description: "The default colored console logger.",
	Config: schema.NewField(schema.NewShape(schema.Fields{
		"log_level": schema.NewField(schema.String, schema.DefaultValue("INFO")),
		"name":      schema.NewField(schema.String, schema.DefaultValue("dagster")),
	})),
}

// ExecutorDefinition describes an executor a run may select.
type ExecutorDefinition struct {
	Name        string `validate:"required,identifier"`
	Description string
	Config      *schema.Field
}

// ConfigField returns the executor config schema.
func (e *ExecutorDefinition) ConfigField() *schema.Field { return e.Config }

func retriesField() *schema.Field {
	return schema.NewField(
		schema.NewSelector(schema.Fields{
			"enabled":  schema.NewField(schema.NewShape(nil)),
			"disabled": schema.NewField(schema.NewShape(nil)),
		}),
		schema.DefaultValue(map[string]any{"enabled": map[string]any{}}),
	)
}

// Builtin executors. Executor identity is by pointer: a mode offering
// InProcessExecutor gets it as the default execution choice.
var (
	InProcessExecutor = &ExecutorDefinition{
		Name:        "in_process",
		Description: "Executes all steps in a single process.",
		Config: schema.NewField(schema.NewShape(schema.Fields{
			"retries":         retriesField(),
			"marker_to_close": schema.NewField(schema.String, schema.IsRequired(false)),
		})),
	}
	MultiprocessExecutor = &ExecutorDefinition{
		Name:        "multiprocess",
		Description: "Executes each step in its own process.",
		Config: schema.NewField(schema.NewShape(schema.Fields{
			"max_concurrent": schema.NewField(schema.Int, schema.DefaultValue(0)),
			"retries":        retriesField(),
		})),
	}
	// ExecuteInProcessExecutor runs ad hoc in-memory executions. It takes no
	// config and, when it is a mode's only executor, the execution section
	// accepts arbitrary keys.
	ExecuteInProcessExecutor = &ExecutorDefinition{
		Name:        "execute_in_process",
		Description: "Executes the job in the calling process, for tests and ad hoc runs.",
	}
)

// DefaultExecutors returns the executors a mode gets when it declares none.
func DefaultExecutors() []*ExecutorDefinition {
	return []*ExecutorDefinition{InProcessExecutor, MultiprocessExecutor}
}

// IntermediateStorageDefinition describes where intermediate values live
// between steps.
type IntermediateStorageDefinition struct {
	Name        string `validate:"required,identifier"`
	Description string
	Config      *schema.Field
}

// ConfigField returns the storage config schema.
func (s *IntermediateStorageDefinition) ConfigField() *schema.Field { return s.Config }

// Builtin intermediate storages. Together they form the default set.
var (
	InMemoryStorage = &IntermediateStorageDefinition{
		Name:        "in_memory",
		Description: "Keeps intermediate values in memory.",
	}
	FilesystemStorage = &IntermediateStorageDefinition{
		Name:        "filesystem",
		Description: "Writes intermediate values below a base directory.",
		Config: schema.NewField(schema.NewShape(schema.Fields{
			"base_dir": schema.NewField(schema.String, schema.IsRequired(false)),
		})),
	}
)

// DefaultIntermediateStorages returns the canonical default storage set.
func DefaultIntermediateStorages() []*IntermediateStorageDefinition {
	return []*IntermediateStorageDefinition{InMemoryStorage, FilesystemStorage}
}
