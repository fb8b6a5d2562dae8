package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/unlearnai/dagster/errors"
	"github.com/unlearnai/dagster/util"
)

// Loader loads manifests by name.
type Loader interface {
	Load(name string) (*Manifest, error)
	// Names lists the manifests the loader can load, sorted.
	Names() ([]string, error)
}

var extensions = []string{".yaml", ".yml"}

// FileLoader loads manifests from YAML files below a set of directories.
type FileLoader struct {
	dirs []string
}

// NewFileLoader creates a loader searching dirs, in order, for
// <name>.yaml or <name>.yml.
func NewFileLoader(dirs ...string) *FileLoader {
	return &FileLoader{dirs: dirs}
}

// Load looks for the manifest directly in each directory, then anywhere
// below it. A file whose manifest name differs from its file name is
// rejected.
func (l *FileLoader) Load(name string) (*Manifest, error) {
	for _, dir := range l.dirs {
		for _, ext := range extensions {
			path := filepath.Join(dir, name+ext)
			if _, err := os.Stat(path); err == nil {
				return loadNamed(name, path)
			}
		}
		if path, ok := findBelow(dir, name); ok {
			return loadNamed(name, path)
		}
	}
	return nil, errors.NotFound("manifest", name).WithDetail("dirs", l.dirs)
}

// Names lists every manifest file below the directories by base name.
func (l *FileLoader) Names() ([]string, error) {
	names := make(map[string]struct{})
	for _, dir := range l.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if name, ok := manifestName(d); ok {
				names[name] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, errors.InvalidInput("manifests", fmt.Sprintf("cannot list %s: %v", dir, err)).WithCause(err)
		}
	}
	return util.SortedKeys(names), nil
}

func findBelow(dir, name string) (string, bool) {
	var found string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if n, ok := manifestName(d); ok && n == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	return found, found != ""
}

func manifestName(d fs.DirEntry) (string, bool) {
	if d.IsDir() {
		return "", false
	}
	for _, ext := range extensions {
		if base, ok := strings.CutSuffix(d.Name(), ext); ok {
			return base, true
		}
	}
	return "", false
}

// LoadFile reads and parses one manifest file.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidInput("manifest", fmt.Sprintf("cannot read %s: %v", path, err)).WithCause(err)
	}
	m, err := Parse(data)
	if err != nil {
		if appErr, ok := errors.AsAppError(err); ok {
			appErr.WithDetail("path", path)
		}
		return nil, err
	}
	return m, nil
}

func loadNamed(name, path string) (*Manifest, error) {
	m, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if m.Name != name {
		return nil, errors.InvalidDefinition("Manifest %s declares name %q, expected %q.", path, m.Name, name)
	}
	return m, nil
}

// StaticLoader serves manifests held in memory, keyed by name.
type StaticLoader map[string]*Manifest

// Load implements Loader.
func (s StaticLoader) Load(name string) (*Manifest, error) {
	if m, ok := s[name]; ok {
		return m, nil
	}
	return nil, errors.NotFound("manifest", name)
}

// Names implements Loader.
func (s StaticLoader) Names() ([]string, error) { return util.SortedKeys(s), nil }
