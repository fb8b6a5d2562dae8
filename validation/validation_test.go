package validation

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/unlearnai/dagster/errors"
)

func TestIsIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"extract", true},
		{"_private", true},
		{"node_2", true},
		{"2node", false},
		{"my-node", false},
		{"a.b", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			if got := IsIdentifier(tc.in); got != tc.want {
				t.Errorf("IsIdentifier(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestValidatorIdentifier(t *testing.T) {
	v := New()
	v.Identifier("name", "extract").Identifier("alias", "bad-name").Identifier("empty", " ")
	errs := v.Errors()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if errs[0].Field != "alias" || errs[1].Message != "is required" {
		t.Errorf("unexpected errors %v", errs)
	}
}

func TestValidatorUnique(t *testing.T) {
	v := New()
	v.Unique("nodes", []string{"a", "b", "a", "a", "c", "b"})
	if len(v.Errors()) != 2 {
		t.Fatalf("expected one error per duplicated name, got %v", v.Errors())
	}
	if got := v.Errors()[0].String(); got != `nodes: duplicate name "a"` {
		t.Errorf("unexpected first error %q", got)
	}
}

func TestValidatorOneOf(t *testing.T) {
	v := New().
		OneOf("kind", "", []string{"job", "graph"}).
		OneOf("vocabulary", "ops", []string{"ops", "solids"}).
		OneOf("kind", "pipeline", []string{"job", "graph"})
	errs := v.Errors()
	if len(errs) != 1 || errs[0].String() != "kind: must be one of: job graph" {
		t.Errorf("expected one error for the unknown kind, got %v", errs)
	}
}

func TestValidatorOptionalUUID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"empty", "", false},
		{"valid", uuid.New().String(), false},
		{"nil uuid", uuid.Nil.String(), true},
		{"garbage", "not-a-uuid", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := New().OptionalUUID("run_id", tc.value).HasErrors(); got != tc.wantErr {
				t.Errorf("HasErrors() = %v, want %v", got, tc.wantErr)
			}
		})
	}
}

func TestValidatorValidate(t *testing.T) {
	if err := New().Identifier("name", "x").Validate(); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	err := New().Identifier("name", "").Custom(false, "graph", "has no nodes").Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok || appErr.Code != errors.ErrCodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT AppError, got %v", err)
	}
	if !strings.Contains(appErr.Message, "name: is required") || !strings.Contains(appErr.Message, "graph: has no nodes") {
		t.Errorf("unexpected message %q", appErr.Message)
	}
	if fields, ok := appErr.Details["fields"].([]FieldError); !ok || len(fields) != 2 {
		t.Errorf("expected field details, got %v", appErr.Details["fields"])
	}
}

type nodeSpec struct {
	Name string `yaml:"name" validate:"required,identifier"`
	Mode string `yaml:"mode" validate:"omitempty,oneof=ops solids"`
}

type jobSpec struct {
	JobName string     `mapstructure:"job_name" validate:"required,identifier"`
	Nodes   []nodeSpec `yaml:"nodes" validate:"min=1,dive"`
}

func TestValidateStruct(t *testing.T) {
	valid := jobSpec{JobName: "etl", Nodes: []nodeSpec{{Name: "extract"}}}
	if err := Validate(valid); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}

	invalid := jobSpec{JobName: "etl-job", Nodes: []nodeSpec{{Name: "", Mode: "nodes"}}}
	err := Validate(invalid)
	if err == nil {
		t.Fatal("expected error")
	}
	appErr, _ := errors.AsAppError(err)
	for _, want := range []string{"job_name: must start with a letter", "nodes[0].name: is required", "nodes[0].mode: must be one of: ops solids"} {
		if !strings.Contains(appErr.Message, want) {
			t.Errorf("message %q missing %q", appErr.Message, want)
		}
	}

	empty := jobSpec{JobName: "etl"}
	if err := Validate(empty); err == nil || !strings.Contains(err.Error(), "nodes: must contain at least 1 entries") {
		t.Errorf("expected min entries error, got %v", err)
	}
}

func TestToSnakeCase(t *testing.T) {
	if got := toSnakeCase("ManifestDirs"); got != "manifest_dirs" {
		t.Errorf("toSnakeCase() = %q", got)
	}
}
