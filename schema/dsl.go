package schema

import (
	"fmt"
	"reflect"
	"strings"

	apperrors "github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/util"
)

var dslScalars = map[string]ConfigType{
	"string":  String,
	"str":     String,
	"int":     Int,
	"integer": Int,
	"float":   Float,
	"number":  Float,
	"bool":    Bool,
	"boolean": Bool,
	"path":    Path,
	"any":     Any,
}

var fieldSpecKeys = map[string]struct{}{
	"type":        {},
	"required":    {},
	"default":     {},
	"description": {},
}

// FromDSL builds a config type from its compact manifest notation:
//
//	"int"                          scalar (string, int, float, bool, path, any)
//	["string"]                     array of the single element type
//	{host: string, port: int}      shape, one field per entry
//
// Inside a shape, an entry whose value is a mapping with a "type" key and
// only the keys type, required, default and description is a field spec.
func FromDSL(v any) (ConfigType, error) {
	return fromDSL(v, "config")
}

// FieldFromDSL builds a field from manifest notation. A top-level field
// spec sets requiredness, default and description of the field itself.
func FieldFromDSL(v any) (*Field, error) {
	return fieldFromDSL(v, "config")
}

func fromDSL(v any, at string) (ConfigType, error) {
	switch typed := v.(type) {
	case string:
		t, ok := dslScalars[strings.ToLower(strings.TrimSpace(typed))]
		if !ok {
			return nil, apperrors.InvalidDefinition("Unknown config type %q at %s.", typed, at)
		}
		return t, nil
	case nil:
		return nil, apperrors.InvalidDefinition("Missing config type at %s.", at)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() != 1 {
			return nil, apperrors.InvalidDefinition(
				"Array config type at %s must list exactly one element type, got %d.", at, rv.Len())
		}
		inner, err := fromDSL(rv.Index(0).Interface(), at+"[0]")
		if err != nil {
			return nil, err
		}
		return NewArray(inner), nil
	case reflect.Map:
		entries := stringMap(rv)
		fields := make(Fields, len(entries))
		for _, name := range util.SortedKeys(entries) {
			f, err := fieldFromDSL(entries[name], at+"."+name)
			if err != nil {
				return nil, err
			}
			fields[name] = f
		}
		return NewShape(fields), nil
	default:
		return nil, apperrors.InvalidDefinition("Cannot build a config type from %T at %s.", v, at)
	}
}

func fieldFromDSL(v any, at string) (*Field, error) {
	spec, ok := asFieldSpec(v)
	if !ok {
		t, err := fromDSL(v, at)
		if err != nil {
			return nil, err
		}
		return NewField(t), nil
	}
	t, err := fromDSL(spec["type"], at)
	if err != nil {
		return nil, err
	}
	var opts []FieldOption
	if req, ok := spec["required"]; ok {
		b, isBool := req.(bool)
		if !isBool {
			return nil, apperrors.InvalidDefinition("Field %s: required must be a boolean, got %v.", at, req)
		}
		opts = append(opts, IsRequired(b))
	}
	if def, ok := spec["default"]; ok {
		opts = append(opts, DefaultValue(def))
	}
	if desc, ok := spec["description"]; ok {
		opts = append(opts, FieldDescription(fmt.Sprint(desc)))
	}
	f := NewField(t, opts...)
	if err := checkField(at, f); err != nil {
		return nil, err
	}
	return f, nil
}

func asFieldSpec(v any) (map[string]any, bool) {
	rv := reflect.ValueOf(v)
	if v == nil || rv.Kind() != reflect.Map {
		return nil, false
	}
	entries := stringMap(rv)
	if _, ok := entries["type"]; !ok {
		return nil, false
	}
	for k := range entries {
		if _, ok := fieldSpecKeys[k]; !ok {
			return nil, false
		}
	}
	return entries, true
}

func stringMap(rv reflect.Value) map[string]any {
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
	}
	return out
}
