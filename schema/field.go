package schema

// Field wraps a config type with requiredness, a default value and a
// description. Fields are immutable once built.
type Field struct {
	configType   ConfigType
	required     bool
	requiredSet  bool
	defaultValue any
	hasDefault   bool
	description  string
}

// FieldOption configures a Field.
type FieldOption func(*Field)

// IsRequired states the requiredness of a field explicitly. Without it,
// requiredness is inferred from the type.
func IsRequired(required bool) FieldOption {
	return func(f *Field) {
		f.required = required
		f.requiredSet = true
	}
}

// DefaultValue sets the value used when a document omits the field.
// A field with a default is never required.
func DefaultValue(v any) FieldOption {
	return func(f *Field) {
		f.defaultValue = v
		f.hasDefault = true
	}
}

// FieldDescription sets the field description.
func FieldDescription(description string) FieldOption {
	return func(f *Field) { f.description = description }
}

// NewField creates a field for t.
func NewField(t ConfigType, opts ...FieldOption) *Field {
	f := &Field{configType: t}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Type returns the field's config type.
func (f *Field) Type() ConfigType { return f.configType }

// IsRequired reports whether documents must provide the field.
func (f *Field) IsRequired() bool {
	if f.hasDefault {
		return false
	}
	if f.requiredSet {
		return f.required
	}
	return !AllOptional(f.configType)
}

// DefaultValue returns the default and whether one was provided.
func (f *Field) DefaultValue() (any, bool) {
	return f.defaultValue, f.hasDefault
}

// HasDefault reports whether a default value was provided.
func (f *Field) HasDefault() bool { return f.hasDefault }

// Description returns the field description.
func (f *Field) Description() string { return f.description }
