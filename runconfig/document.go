package runconfig

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"go.yaml.in/yaml/v3"

	"github.com/unlearnai/dagster/errors"
)

// ParseDocument decodes a YAML (or JSON) run config document. Empty input
// is the empty document.
func ParseDocument(data []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.InvalidInput("run_config", fmt.Sprintf("cannot parse run config: %v", err)).WithCause(err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// LoadDocuments reads and merges run config files in order. Later files
// override earlier ones key by key; lists are replaced, not appended.
func LoadDocuments(paths ...string) (map[string]any, error) {
	docs := make([]map[string]any, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.InvalidInput("run_config", fmt.Sprintf("cannot read %s: %v", path, err)).
				WithCause(err).WithDetail("path", path)
		}
		doc, err := ParseDocument(data)
		if err != nil {
			if appErr, ok := errors.AsAppError(err); ok {
				appErr.WithDetail("path", path)
			}
			return nil, err
		}
		docs = append(docs, doc)
	}
	return MergeDocuments(docs...)
}

// MergeDocuments deep-merges docs in order into a new document. The inputs
// are not modified.
func MergeDocuments(docs ...map[string]any) (map[string]any, error) {
	out := map[string]any{}
	for _, doc := range docs {
		if err := mergo.Merge(&out, copyDocument(doc), mergo.WithOverride); err != nil {
			return nil, errors.Internal(err)
		}
	}
	return out, nil
}

func copyDocument(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if m, ok := v.(map[string]any); ok {
			out[k] = copyDocument(m)
			continue
		}
		out[k] = v
	}
	return out
}
