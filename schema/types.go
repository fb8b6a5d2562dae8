package schema

import (
	"fmt"
	"slices"
)

type anyType struct{}

func (anyType) Kind() Kind               { return KindAny }
func (anyType) Key() string              { return "Any" }
func (anyType) GivenName() string        { return "Any" }
func (anyType) Description() string      { return "" }
func (anyType) TypeParams() []ConfigType { return nil }

// Scalar is one of the builtin scalar types.
type Scalar struct {
	name string
}

func (s *Scalar) Kind() Kind               { return KindScalar }
func (s *Scalar) Key() string              { return s.name }
func (s *Scalar) GivenName() string        { return s.name }
func (s *Scalar) Description() string      { return "" }
func (s *Scalar) TypeParams() []ConfigType { return nil }

// Builtin types. The set is closed.
var (
	Any    ConfigType = anyType{}
	String            = &Scalar{name: "String"}
	Int               = &Scalar{name: "Int"}
	Float             = &Scalar{name: "Float"}
	Bool              = &Scalar{name: "Bool"}
	Path              = &Scalar{name: "Path"}
)

// Builtins returns every builtin config type.
func Builtins() []ConfigType {
	return []ConfigType{Any, String, Int, Float, Bool, Path}
}

// Array is a homogeneous list type.
type Array struct {
	inner       ConfigType
	description string
}

// NewArray creates an array of inner.
func NewArray(inner ConfigType, opts ...TypeOption) *Array {
	o := applyTypeOptions(opts)
	return &Array{inner: inner, description: o.description}
}

func (a *Array) Kind() Kind               { return KindArray }
func (a *Array) Key() string              { return "Array." + a.inner.Key() }
func (a *Array) GivenName() string        { return "" }
func (a *Array) Description() string      { return a.description }
func (a *Array) TypeParams() []ConfigType { return []ConfigType{a.inner} }

// Inner returns the element type.
func (a *Array) Inner() ConfigType { return a.inner }

// Map is a type with arbitrary keys of a scalar key type and values of a
// single value type.
type Map struct {
	key         ConfigType
	value       ConfigType
	name        string
	description string
}

// NewMap creates a map type. The key type must be a scalar; Check reports
// maps built with any other key type.
func NewMap(key, value ConfigType, opts ...TypeOption) *Map {
	o := applyTypeOptions(opts)
	return &Map{key: key, value: value, name: o.name, description: o.description}
}

func (m *Map) Kind() Kind { return KindMap }

func (m *Map) Key() string {
	if m.name != "" {
		return fmt.Sprintf("Map.%s.%s:name=%s", m.key.Key(), m.value.Key(), m.name)
	}
	return fmt.Sprintf("Map.%s.%s", m.key.Key(), m.value.Key())
}

func (m *Map) GivenName() string        { return m.name }
func (m *Map) Description() string      { return m.description }
func (m *Map) TypeParams() []ConfigType { return []ConfigType{m.key, m.value} }

// KeyType returns the map key type.
func (m *Map) KeyType() ConfigType { return m.key }

// ValueType returns the map value type.
func (m *Map) ValueType() ConfigType { return m.value }

// TypeOption configures optional attributes of a config type.
type TypeOption func(*typeOptions)

type typeOptions struct {
	name        string
	description string
	aliases     map[string]string
}

// WithName sets the given name of a type.
func WithName(name string) TypeOption {
	return func(o *typeOptions) { o.name = name }
}

// WithDescription sets the description of a type.
func WithDescription(description string) TypeOption {
	return func(o *typeOptions) { o.description = description }
}

// WithFieldAliases attaches an alias table to a record type. The map goes
// from canonical field name to the alternative name accepted in documents.
func WithFieldAliases(aliases map[string]string) TypeOption {
	return func(o *typeOptions) {
		if o.aliases == nil {
			o.aliases = make(map[string]string, len(aliases))
		}
		for canonical, alias := range aliases {
			o.aliases[canonical] = alias
		}
	}
}

func applyTypeOptions(opts []TypeOption) typeOptions {
	var o typeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// IsBuiltin reports whether t is one of the builtin types.
func IsBuiltin(t ConfigType) bool {
	return slices.Contains(Builtins(), t)
}
