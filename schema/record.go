package schema

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/unlearnai/dagster/util"
)

// Fields declares the entries of a record type. Nil entries are dropped, so
// callers may build the map from optional parts without filtering.
type Fields map[string]*Field

// record holds the shared state of Shape, Permissive and Selector types.
type record struct {
	kind        Kind
	name        string
	description string
	names       []string
	fields      map[string]*Field
	aliases     map[string]string // canonical -> alias
	canonical   map[string]string // alias -> canonical
	key         string
}

func newRecord(kind Kind, fields Fields, opts []TypeOption) record {
	o := applyTypeOptions(opts)
	r := record{
		kind:        kind,
		name:        o.name,
		description: o.description,
		fields:      make(map[string]*Field, len(fields)),
		aliases:     make(map[string]string, len(o.aliases)),
		canonical:   make(map[string]string, len(o.aliases)),
	}
	for name, f := range fields {
		if f != nil {
			r.fields[name] = f
		}
	}
	r.names = util.SortedKeys(r.fields)
	for canonical, alias := range o.aliases {
		r.aliases[canonical] = alias
		r.canonical[alias] = canonical
	}
	r.key = r.computeKey()
	return r
}

func (r *record) computeKey() string {
	var b strings.Builder
	fmt.Fprintf(&b, "name=%s;", r.name)
	for _, name := range r.names {
		f := r.fields[name]
		fmt.Fprintf(&b, "field=%s:%s:%t", name, f.Type().Key(), f.IsRequired())
		if def, ok := f.DefaultValue(); ok {
			fmt.Fprintf(&b, ":default=%v", def)
		}
		b.WriteByte(';')
	}
	for _, canonical := range util.SortedKeys(r.aliases) {
		fmt.Fprintf(&b, "alias=%s:%s;", canonical, r.aliases[canonical])
	}
	sum := sha1.Sum([]byte(b.String()))
	return r.kind.String() + "." + hex.EncodeToString(sum[:])
}

func (r *record) Kind() Kind          { return r.kind }
func (r *record) Key() string         { return r.key }
func (r *record) GivenName() string   { return r.name }
func (r *record) Description() string { return r.description }

func (r *record) TypeParams() []ConfigType {
	params := make([]ConfigType, 0, len(r.names))
	for _, name := range r.names {
		params = append(params, r.fields[name].Type())
	}
	return params
}

func (r *record) FieldNames() []string {
	return append([]string(nil), r.names...)
}

func (r *record) Field(name string) (*Field, bool) {
	f, ok := r.fields[name]
	return f, ok
}

func (r *record) Canonical(key string) (string, bool) {
	if _, ok := r.fields[key]; ok {
		return key, true
	}
	if canonical, ok := r.canonical[key]; ok {
		if _, declared := r.fields[canonical]; declared {
			return canonical, true
		}
	}
	return "", false
}

func (r *record) Aliases() map[string]string {
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// Len returns the number of declared fields.
func (r *record) Len() int { return len(r.names) }

// Shape is a record type with a fixed set of named fields. A permissive
// Shape additionally accepts and passes through undeclared keys.
type Shape struct {
	record
}

// NewShape creates a strict record type.
func NewShape(fields Fields, opts ...TypeOption) *Shape {
	return &Shape{record: newRecord(KindShape, fields, opts)}
}

// NewPermissive creates a record type that accepts undeclared keys.
func NewPermissive(fields Fields, opts ...TypeOption) *Shape {
	return &Shape{record: newRecord(KindPermissive, fields, opts)}
}

// Selector is a record type where a document chooses exactly one field.
type Selector struct {
	record
}

// NewSelector creates a selector over the given choices.
func NewSelector(fields Fields, opts ...TypeOption) *Selector {
	return &Selector{record: newRecord(KindSelector, fields, opts)}
}

// AllOptional reports whether a document may omit t entirely. Shapes are
// all-optional when none of their fields is required; selectors when they
// have exactly one field and that field is not required. Every other kind
// is never all-optional.
func AllOptional(t ConfigType) bool {
	switch t.Kind() {
	case KindShape, KindPermissive:
		r := t.(RecordType)
		for _, name := range r.FieldNames() {
			if f, _ := r.Field(name); f.IsRequired() {
				return false
			}
		}
		return true
	case KindSelector:
		r := t.(RecordType)
		names := r.FieldNames()
		if len(names) != 1 {
			return false
		}
		f, _ := r.Field(names[0])
		return !f.IsRequired()
	default:
		return false
	}
}
