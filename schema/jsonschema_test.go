package schema

import (
	"encoding/json"
	"testing"
)

// jsonShaped converts a Go document into the representation produced by
// encoding/json so the compiled validator sees JSON values.
func jsonShaped(t *testing.T, v any) any {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestJSONSchema_Shape(t *testing.T) {
	doc := JSONSchema(credentials("Credentials", nil))
	if doc["$schema"] != JSONSchemaDialect {
		t.Errorf("missing dialect, got %v", doc["$schema"])
	}
	if doc["type"] != "object" || doc["title"] != "Credentials" {
		t.Errorf("unexpected header %v", doc)
	}
	if doc["additionalProperties"] != false {
		t.Error("strict shapes reject unknown properties")
	}
	required, _ := doc["required"].([]string)
	if len(required) != 1 || required[0] != "host" {
		t.Errorf("required = %v", doc["required"])
	}
	props := doc["properties"].(map[string]any)
	port := props["port"].(map[string]any)
	if port["type"] != "integer" || port["default"] != 5432 {
		t.Errorf("port = %v", port)
	}
}

func TestJSONSchema_AliasesAndSelectors(t *testing.T) {
	doc := JSONSchema(nodeDictionary())
	props := doc["properties"].(map[string]any)
	if _, ok := props["solids"]; !ok {
		t.Error("alias should be exported as a property")
	}
	if _, ok := doc["allOf"]; !ok {
		t.Error("required aliased field should be expressed as anyOf alternatives")
	}

	sel := JSONSchema(storageSelector())
	if sel["maxProperties"] != 1 || sel["minProperties"] != 1 {
		t.Errorf("selector bounds = %v/%v", sel["minProperties"], sel["maxProperties"])
	}
	single := JSONSchema(NewSelector(Fields{"in_process": NewField(NewShape(nil))}))
	if _, ok := single["minProperties"]; ok {
		t.Error("all-optional selector may be empty")
	}
}

func TestCompileJSONSchema_AgreesWithProcess(t *testing.T) {
	types := map[string]ConfigType{
		"node dictionary": nodeDictionary(),
		"selector":        storageSelector(),
		"credentials":     credentials("Credentials", nil),
		"arrays":          NewShape(Fields{"rows": NewField(NewArray(Int))}),
	}
	for name, ct := range types {
		t.Run(name, func(t *testing.T) {
			compiled, err := CompileJSONSchema(ct)
			if err != nil {
				t.Fatalf("CompileJSONSchema() error = %v", err)
			}
			doc := jsonShaped(t, Scaffold(ct, true))
			if res := compiled.Validate(doc); !res.Valid {
				t.Errorf("scaffold rejected by json schema: %v", res.Errors)
			}
		})
	}

	compiled, err := CompileJSONSchema(storageSelector())
	if err != nil {
		t.Fatalf("CompileJSONSchema() error = %v", err)
	}
	bad := jsonShaped(t, map[string]any{"local": map[string]any{}, "remote": map[string]any{"host": "h"}})
	if compiled.Validate(bad).Valid {
		t.Error("two selector choices should be rejected")
	}
	unknown := jsonShaped(t, map[string]any{"cloud": map[string]any{}})
	if compiled.Validate(unknown).Valid {
		t.Error("unknown selector choice should be rejected")
	}
}

func TestMarshalJSONSchema(t *testing.T) {
	raw, err := MarshalJSONSchema(NewArray(String))
	if err != nil {
		t.Fatalf("MarshalJSONSchema() error = %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if doc["type"] != "array" {
		t.Errorf("type = %v", doc["type"])
	}
}
