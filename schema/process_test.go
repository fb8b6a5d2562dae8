package schema

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"go.yaml.in/yaml/v3"
)

func nodeDictionary() *Shape {
	envelope := NewShape(Fields{"config": NewField(Int)})
	nodeA := NewShape(Fields{"config": NewField(envelope)})
	ops := NewShape(Fields{"A": NewField(nodeA)})
	return NewShape(Fields{"ops": NewField(ops)}, WithFieldAliases(map[string]string{"ops": "solids"}))
}

func storageSelector() *Selector {
	local := NewShape(Fields{"base_dir": NewField(String, IsRequired(false))})
	remote := NewShape(Fields{"host": NewField(String)})
	return NewSelector(Fields{"local": NewField(local), "remote": NewField(remote)})
}

func TestProcess_MissingRequiredReportsInnermostLeaf(t *testing.T) {
	res := Process(nodeDictionary(), map[string]any{})
	if res.Success {
		t.Fatal("expected failure")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected exactly 1 error, got %d: %v", len(res.Errors), res.Errors)
	}
	e := res.Errors[0]
	if e.Path != "ops.A.config.config" {
		t.Errorf("Path = %q, want ops.A.config.config", e.Path)
	}
	if e.Reason != ReasonMissingRequiredField {
		t.Errorf("Reason = %s", e.Reason)
	}
	if e.Expected != "Int" {
		t.Errorf("Expected = %q", e.Expected)
	}
}

func TestProcess_ValidNodeConfig(t *testing.T) {
	doc := map[string]any{"ops": map[string]any{"A": map[string]any{"config": map[string]any{"config": 5}}}}
	res := Process(nodeDictionary(), doc)
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Errors)
	}
	if !reflect.DeepEqual(res.Value, doc) {
		t.Errorf("Value = %#v", res.Value)
	}
}

func TestProcess_AliasResolvesToCanonical(t *testing.T) {
	doc := map[string]any{"solids": map[string]any{"A": map[string]any{"config": map[string]any{"config": 1}}}}
	res := Process(nodeDictionary(), doc)
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Errors)
	}
	out := res.Value.(map[string]any)
	if _, ok := out["ops"]; !ok {
		t.Errorf("expected canonical key ops, got %v", out)
	}
	if _, ok := out["solids"]; ok {
		t.Error("alias key should not survive normalization")
	}
}

func TestProcess_AliasCollision(t *testing.T) {
	nodes := map[string]any{"A": map[string]any{"config": map[string]any{"config": 1}}}
	res := Process(nodeDictionary(), map[string]any{"ops": nodes, "solids": nodes})
	if res.Success {
		t.Fatal("expected failure")
	}
	if len(res.Errors) != 1 || res.Errors[0].Reason != ReasonFieldAliasCollision || res.Errors[0].Path != "ops" {
		t.Errorf("unexpected errors %v", res.Errors)
	}
}

func TestProcess_SelectorDefault(t *testing.T) {
	root := NewShape(Fields{
		"storage": NewField(storageSelector(), DefaultValue(map[string]any{"local": map[string]any{}})),
	})
	res := Process(root, map[string]any{})
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Errors)
	}
	want := map[string]any{"storage": map[string]any{"local": map[string]any{}}}
	if !reflect.DeepEqual(res.Value, want) {
		t.Errorf("Value = %#v, want %#v", res.Value, want)
	}
}

func TestProcess_SelectorErrors(t *testing.T) {
	sel := storageSelector()
	tests := []struct {
		name       string
		doc        any
		wantPath   string
		wantReason ErrorReason
	}{
		{"two choices", map[string]any{"local": map[string]any{}, "remote": map[string]any{"host": "h"}}, "root", ReasonSelectorFieldError},
		{"no choice", map[string]any{}, "root", ReasonSelectorFieldError},
		{"unknown choice", map[string]any{"cloud": map[string]any{}}, "cloud", ReasonFieldNotDefined},
		{"choice missing leaf", map[string]any{"remote": nil}, "remote.host", ReasonMissingRequiredField},
		{"not a dict", "local", "root", ReasonRuntimeTypeMismatch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Process(sel, tc.doc)
			if res.Success {
				t.Fatal("expected failure")
			}
			if len(res.Errors) != 1 {
				t.Fatalf("expected 1 error, got %v", res.Errors)
			}
			if res.Errors[0].Path != tc.wantPath || res.Errors[0].Reason != tc.wantReason {
				t.Errorf("got %s at %s, want %s at %s", res.Errors[0].Reason, res.Errors[0].Path, tc.wantReason, tc.wantPath)
			}
		})
	}
}

func TestProcess_SingleOptionalSelectorDefaultsToOnlyChoice(t *testing.T) {
	sel := NewSelector(Fields{"in_process": NewField(NewShape(nil))})
	res := Process(sel, nil)
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Errors)
	}
	want := map[string]any{"in_process": map[string]any{}}
	if !reflect.DeepEqual(res.Value, want) {
		t.Errorf("Value = %#v", res.Value)
	}
}

func TestProcess_Scalars(t *testing.T) {
	tests := []struct {
		name string
		t    ConfigType
		in   any
		want any
		ok   bool
	}{
		{"int", Int, 3, 3, true},
		{"int from integral float", Int, float64(3), 3, true},
		{"int from int64", Int, int64(7), 7, true},
		{"int from json number", Int, json.Number("4"), 4, true},
		{"int rejects fraction", Int, 3.5, nil, false},
		{"int rejects string", Int, "3", nil, false},
		{"int rejects bool", Int, true, nil, false},
		{"int rejects uint64 above max int", Int, uint64(math.MaxUint64), nil, false},
		{"int from uint64 max int", Int, uint64(math.MaxInt64), math.MaxInt64, true},
		{"int rejects float above max int", Int, 1e19, nil, false},
		{"int rejects float below min int", Int, -1e19, nil, false},
		{"int rejects json number overflow", Int, json.Number("18446744073709551615"), nil, false},
		{"float from int", Float, 2, 2.0, true},
		{"float", Float, 2.5, 2.5, true},
		{"float rejects string", Float, "2.5", nil, false},
		{"bool", Bool, false, false, true},
		{"bool rejects int", Bool, 0, nil, false},
		{"string", String, "x", "x", true},
		{"string rejects int", String, 1, nil, false},
		{"path", Path, "/tmp/data", "/tmp/data", true},
		{"nil scalar", String, nil, nil, false},
		{"any passes through", Any, []any{1, "x"}, []any{1, "x"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := Process(tc.t, tc.in)
			if res.Success != tc.ok {
				t.Fatalf("Success = %v, errors %v", res.Success, res.Errors)
			}
			if !tc.ok {
				if res.Errors[0].Path != "root" || res.Errors[0].Reason != ReasonRuntimeTypeMismatch {
					t.Errorf("unexpected error %v", res.Errors[0])
				}
				return
			}
			if !reflect.DeepEqual(res.Value, tc.want) {
				t.Errorf("Value = %#v, want %#v", res.Value, tc.want)
			}
		})
	}
}

func TestProcess_IntOverflowFromYAML(t *testing.T) {
	var doc map[string]any
	if err := yaml.Unmarshal([]byte("a: 18446744073709551615\nb: 1e19\nc: 42\n"), &doc); err != nil {
		t.Fatal(err)
	}
	s := NewShape(Fields{"a": NewField(Int), "b": NewField(Int), "c": NewField(Int)})
	res := Process(s, doc)
	if res.Success {
		t.Fatalf("expected out of range integers to be rejected, got %v", res.Value)
	}
	paths := map[string]ErrorReason{}
	for _, e := range res.Errors {
		paths[e.Path] = e.Reason
	}
	if len(paths) != 2 || paths["a"] != ReasonRuntimeTypeMismatch || paths["b"] != ReasonRuntimeTypeMismatch {
		t.Errorf("expected type mismatches at a and b, got %v", res.Errors)
	}
}

func TestProcess_ArrayAndMapPaths(t *testing.T) {
	s := NewShape(Fields{
		"hosts":  NewField(NewArray(String)),
		"limits": NewField(NewMap(String, Int)),
	})
	res := Process(s, map[string]any{
		"hosts":  []any{"a", 2, "c"},
		"limits": map[string]any{"cpu": 1, "mem": "lots"},
	})
	if res.Success {
		t.Fatal("expected failure")
	}
	paths := map[string]bool{}
	for _, e := range res.Errors {
		paths[e.Path] = true
	}
	for _, want := range []string{"hosts[1]", "limits.mem"} {
		if !paths[want] {
			t.Errorf("expected error at %s, got %v", want, res.Errors)
		}
	}

	ok := Process(NewArray(Int), []int{1, 2})
	if !ok.Success || !reflect.DeepEqual(ok.Value, []any{1, 2}) {
		t.Errorf("typed slice should be accepted, got %#v %v", ok.Value, ok.Errors)
	}
}

func TestProcess_NonStringMapKeys(t *testing.T) {
	res := Process(NewMap(Int, String), map[any]any{1: "one", 2: "two"})
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Errors)
	}
	want := map[string]any{"1": "one", "2": "two"}
	if !reflect.DeepEqual(res.Value, want) {
		t.Fatalf("Value = %#v, want %#v", res.Value, want)
	}
	if _, err := json.Marshal(res); err != nil {
		t.Fatalf("normalized map should be JSON encodable: %v", err)
	}

	bad := Process(NewMap(Int, String), map[string]any{"x": "one"})
	if bad.Success || bad.Errors[0].Path != "x" || bad.Errors[0].Reason != ReasonRuntimeTypeMismatch {
		t.Errorf("expected key type mismatch at x, got %v", bad.Errors)
	}
}

func TestProcess_CollectsAllErrors(t *testing.T) {
	s := NewShape(Fields{"a": NewField(Int), "b": NewField(String)})
	res := Process(s, map[string]any{"a": "x", "c": true})
	if len(res.Errors) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(res.Errors), res.Errors)
	}
	reasons := map[ErrorReason]int{}
	for _, e := range res.Errors {
		reasons[e.Reason]++
	}
	if reasons[ReasonRuntimeTypeMismatch] != 1 || reasons[ReasonMissingRequiredField] != 1 || reasons[ReasonFieldNotDefined] != 1 {
		t.Errorf("unexpected reasons %v", reasons)
	}
}

func TestProcess_Permissive(t *testing.T) {
	p := NewPermissive(Fields{"known": NewField(Int, DefaultValue(1))})
	res := Process(p, map[string]any{"extra": "kept"})
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Errors)
	}
	want := map[string]any{"known": 1, "extra": "kept"}
	if !reflect.DeepEqual(res.Value, want) {
		t.Errorf("Value = %#v", res.Value)
	}
}

func TestProcess_MaterializesOptionalShapes(t *testing.T) {
	console := NewShape(Fields{"log_level": NewField(String, DefaultValue("INFO"))})
	root := NewShape(Fields{
		"loggers":  NewField(NewShape(Fields{"console": NewField(NewShape(Fields{"config": NewField(console)}))})),
		"optional": NewField(NewShape(Fields{"x": NewField(Int)}), IsRequired(false)),
	})
	res := Process(root, nil)
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Errors)
	}
	want := map[string]any{
		"loggers": map[string]any{"console": map[string]any{"config": map[string]any{"log_level": "INFO"}}},
	}
	if !reflect.DeepEqual(res.Value, want) {
		t.Errorf("Value = %#v, want %#v", res.Value, want)
	}
}

func TestProcess_DefaultsAreCopied(t *testing.T) {
	def := map[string]any{"tags": []any{"a"}}
	s := NewShape(Fields{"meta": NewField(Any, DefaultValue(def))})

	first := Process(s, nil).Value.(map[string]any)
	first["meta"].(map[string]any)["tags"] = []any{"mutated"}

	second := Process(s, nil).Value.(map[string]any)
	if !reflect.DeepEqual(second["meta"], map[string]any{"tags": []any{"a"}}) {
		t.Errorf("default was shared between documents: %#v", second["meta"])
	}
	if !reflect.DeepEqual(def, map[string]any{"tags": []any{"a"}}) {
		t.Error("default value was mutated")
	}
}

func TestProcess_YAMLStyleMaps(t *testing.T) {
	s := NewShape(Fields{"a": NewField(Int)})
	res := Process(s, map[any]any{"a": 1})
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Errors)
	}
}

func TestProcessField(t *testing.T) {
	f := NewField(storageSelector(), DefaultValue(map[string]any{"local": map[string]any{"base_dir": "/tmp"}}))
	res := ProcessField(f, nil, false)
	if !res.Success {
		t.Fatalf("expected success, got %v", res.Errors)
	}
	want := map[string]any{"local": map[string]any{"base_dir": "/tmp"}}
	if !reflect.DeepEqual(res.Value, want) {
		t.Errorf("Value = %#v", res.Value)
	}

	req := ProcessField(NewField(nodeDictionary()), nil, false)
	if req.Success || req.Errors[0].Path != "ops.A.config.config" {
		t.Errorf("unexpected result %v", req.Errors)
	}

	missing := ProcessField(NewField(Int), nil, false)
	if missing.Success || missing.Errors[0].Path != "root" {
		t.Errorf("unexpected result %v", missing.Errors)
	}
}

func TestValidationError_Error(t *testing.T) {
	e := &ValidationError{Path: "a.b", Reason: ReasonFieldNotDefined, Message: "boom"}
	if got := e.Error(); got != "FIELD_NOT_DEFINED at a.b: boom" {
		t.Errorf("Error() = %q", got)
	}
}
