package schema

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// JSONSchemaDialect is the $schema URI written at the document root.
const JSONSchemaDialect = "https://json-schema.org/draft/2020-12/schema"

// JSONSchema exports t as a JSON Schema document for editor completion and
// external validation. Alias names are accepted as alternative property
// names. Map key types other than strings cannot be expressed and are
// exported as plain objects.
func JSONSchema(t ConfigType) map[string]any {
	doc := jsonSchemaFor(t)
	doc["$schema"] = JSONSchemaDialect
	return doc
}

// MarshalJSONSchema returns the JSON encoding of JSONSchema(t).
func MarshalJSONSchema(t ConfigType) ([]byte, error) {
	return json.MarshalIndent(JSONSchema(t), "", "  ")
}

// CompileJSONSchema exports t and compiles the result into a validator.
// Documents must be JSON-shaped (maps, slices, float64 or json numbers) for
// the compiled validator to judge them.
func CompileJSONSchema(t ConfigType) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(JSONSchema(t))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal json schema: %w", err)
	}
	compiled, err := jsonschema.NewCompiler().Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to compile json schema: %w", err)
	}
	return compiled, nil
}

func jsonSchemaFor(t ConfigType) map[string]any {
	var out map[string]any
	switch t.Kind() {
	case KindAny:
		out = map[string]any{}
	case KindScalar:
		out = map[string]any{"type": scalarJSONType(t)}
	case KindArray:
		out = map[string]any{"type": "array", "items": jsonSchemaFor(t.(*Array).Inner())}
	case KindMap:
		out = map[string]any{"type": "object", "additionalProperties": jsonSchemaFor(t.(*Map).ValueType())}
	case KindShape, KindPermissive:
		out = recordJSONSchema(t.(RecordType))
		out["additionalProperties"] = t.Kind() == KindPermissive
	case KindSelector:
		out = recordJSONSchema(t.(RecordType))
		delete(out, "required")
		delete(out, "allOf")
		out["additionalProperties"] = false
		out["maxProperties"] = 1
		if !AllOptional(t) {
			out["minProperties"] = 1
		}
	default:
		out = map[string]any{}
	}
	if name := t.GivenName(); name != "" && t.Kind() != KindScalar && t.Kind() != KindAny {
		out["title"] = name
	}
	if d := t.Description(); d != "" {
		out["description"] = d
	}
	return out
}

func scalarJSONType(t ConfigType) string {
	switch t.Key() {
	case Int.Key():
		return "integer"
	case Float.Key():
		return "number"
	case Bool.Key():
		return "boolean"
	default:
		return "string"
	}
}

func recordJSONSchema(r RecordType) map[string]any {
	props := make(map[string]any)
	var required []string
	var alternatives []any
	aliases := r.Aliases()
	for _, name := range r.FieldNames() {
		f, _ := r.Field(name)
		prop := jsonSchemaFor(f.Type())
		if d := f.Description(); d != "" {
			prop["description"] = d
		}
		if def, ok := f.DefaultValue(); ok {
			prop["default"] = def
		}
		props[name] = prop
		alias, hasAlias := aliases[name]
		if hasAlias {
			props[alias] = prop
		}
		if !f.IsRequired() {
			continue
		}
		if hasAlias {
			alternatives = append(alternatives, map[string]any{
				"anyOf": []any{
					map[string]any{"required": []string{name}},
					map[string]any{"required": []string{alias}},
				},
			})
			continue
		}
		required = append(required, name)
	}
	out := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	if len(alternatives) > 0 {
		out["allOf"] = alternatives
	}
	return out
}
