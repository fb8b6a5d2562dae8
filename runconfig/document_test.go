package runconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/unlearnai/dagster/errors"
)

func TestParseDocument(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
		wantErr bool
	}{
		{"empty", "", 0, false},
		{"yaml", "execution:\n  in_process: {}\nops:\n  A: {config: {config: 1}}\n", 2, false},
		{"json", `{"ops": {}}`, 1, false},
		{"malformed", "ops: [unclosed", 0, true},
		{"not a mapping", "- a\n- b\n", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.input))
			if tt.wantErr {
				if !errors.HasCode(err, errors.ErrCodeInvalidInput) {
					t.Fatalf("expected INVALID_INPUT, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDocument: %v", err)
			}
			if len(doc) != tt.wantLen {
				t.Errorf("expected %d keys, got %v", tt.wantLen, doc)
			}
		})
	}
}

func TestLoadDocuments_Merge(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}
	base := write("base.yaml", `
execution:
  multiprocess:
    config:
      max_concurrent: 2
ops:
  A:
    config:
      config: 1
    outputs:
      - result: {json: {path: a.json}}
      - result: {json: {path: b.json}}
`)
	override := write("override.yml", `
ops:
  A:
    config:
      config: 5
    outputs:
      - result: {json: {path: c.json}}
`)

	doc, err := LoadDocuments(base, override)
	if err != nil {
		t.Fatalf("LoadDocuments: %v", err)
	}
	a := doc["ops"].(map[string]any)["A"].(map[string]any)
	if a["config"].(map[string]any)["config"] != 5 {
		t.Errorf("expected later file to override, got %v", a["config"])
	}
	if outputs := a["outputs"].([]any); len(outputs) != 1 {
		t.Errorf("expected lists to be replaced, got %v", outputs)
	}
	if _, ok := doc["execution"]; !ok {
		t.Error("expected sections of earlier files to survive")
	}

	resolved, err := mustBuild(t, scenarioJob(t)).Resolve(context.Background(), doc)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Nodes["A"].Config != 5 || resolved.Execution.Name != "multiprocess" {
		t.Errorf("unexpected resolution %+v", resolved)
	}

	if _, err := LoadDocuments(filepath.Join(dir, "missing.yaml")); !errors.HasCode(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for a missing file, got %v", err)
	}
}

func TestMergeDocuments_DoesNotModifyInputs(t *testing.T) {
	a := map[string]any{"resources": map[string]any{"db": map[string]any{"config": map[string]any{"url": "a"}}}}
	b := map[string]any{"resources": map[string]any{"db": map[string]any{"config": map[string]any{"url": "b"}}}}
	out, err := MergeDocuments(a, b)
	if err != nil {
		t.Fatalf("MergeDocuments: %v", err)
	}
	url := out["resources"].(map[string]any)["db"].(map[string]any)["config"].(map[string]any)["url"]
	if url != "b" {
		t.Errorf("expected b, got %v", url)
	}
	orig := a["resources"].(map[string]any)["db"].(map[string]any)["config"].(map[string]any)["url"]
	if orig != "a" {
		t.Errorf("input document was modified: %v", orig)
	}
}
