package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unlearnai/dagster/errors"
)

const etlManifest = `
name: etl
nodes:
  - name: A
    definition:
      config: int
  - name: B
    definition:
      config: {retries: {type: int, default: 2}}
      inputs: [{name: x}]
    depends_on: {x: A}
`

func manifestDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "etl.yaml"), []byte(etlManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestSchemaCommand(t *testing.T) {
	dir := manifestDir(t)

	out, _, err := run(t, "schema", "etl", "--manifests", dir)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var js map[string]any
	if err := json.Unmarshal([]byte(out), &js); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if js["type"] != "object" {
		t.Errorf("expected an object schema, got %v", js["type"])
	}

	if _, _, err := run(t, "schema", "missing", "--manifests", dir); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND for an unknown job, got %v", err)
	}
	if _, _, err := run(t, "schema", "etl", "--manifests", dir, "--mode", "prod"); !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND for an unknown mode, got %v", err)
	}
}

func TestValidateCommand(t *testing.T) {
	dir := manifestDir(t)
	write := func(name, content string) string {
		path := filepath.Join(t.TempDir(), name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}
	base := write("base.yaml", "ops:\n  A:\n    config:\n      config: 1\n")
	override := write("override.yaml", "ops:\n  A:\n    config:\n      config: 5\n")
	empty := write("empty.yaml", "{}\n")

	tests := []struct {
		name    string
		files   []string
		wantOut []string
		wantErr string
	}{
		{"single file", []string{base}, []string{"config: 1", "retries: 2"}, ""},
		{"later files override", []string{base, override}, []string{"config: 5"}, ""},
		{"missing config", []string{empty}, nil, "ops.A.config.config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []string{"validate", "etl", "--manifests", dir}
			for _, f := range tt.files {
				args = append(args, "-c", f)
			}
			stdout, stderr, err := run(t, args...)
			if tt.wantErr != "" {
				if !errors.HasCode(err, errors.ErrCodeInvalidRunConfig) {
					t.Fatalf("expected INVALID_RUN_CONFIG, got %v", err)
				}
				if !strings.Contains(stderr, tt.wantErr) {
					t.Errorf("expected %q in %q", tt.wantErr, stderr)
				}
				return
			}
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(stdout, want) {
					t.Errorf("expected %q in output:\n%s", want, stdout)
				}
			}
		})
	}

	if _, _, err := run(t, "validate", "etl", "--manifests", dir); err == nil {
		t.Error("expected -c to be required")
	}
}

func TestScaffoldCommand(t *testing.T) {
	out, _, err := run(t, "scaffold", "etl", "--manifests", manifestDir(t), "--optional")
	if err != nil {
		t.Fatalf("scaffold: %v", err)
	}
	for _, want := range []string{"ops:", "A:", "retries: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in scaffold:\n%s", want, out)
		}
	}
}
