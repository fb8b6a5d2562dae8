package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoaderConfig says where LoadConfig looks for files. Empty file paths are
// searched for in SearchDirs.
type LoaderConfig struct {
	ConfigFile string
	EnvFile    string
	SearchDirs []string
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithConfigFile skips the search for a config file.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile skips the search for a .env file.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithSearchDirs replaces the directories searched for files: the working
// directory, its config/ subdirectory and ~/.<service>.
func WithSearchDirs(dirs ...string) LoaderOption {
	return func(lc *LoaderConfig) { lc.SearchDirs = dirs }
}

func defaultSearchDirs(serviceName string) []string {
	dirs := []string{".", "config"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "."+serviceName))
	}
	return dirs
}

// locate returns the first existing file, trying every name in every dir.
func locate(dirs, names []string) string {
	for _, dir := range dirs {
		for _, name := range names {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// defaulter is implemented by configs that fill and check themselves.
type defaulter interface {
	ApplyDefaults()
	Validate() error
}

// LoadConfig fills cfg, a pointer to a struct with mapstructure tags, from
// a YAML config file, a .env file and the environment, in increasing order
// of precedence. Missing files are skipped; unreadable ones are errors.
// When cfg implements ApplyDefaults and Validate both run last.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	lc := LoaderConfig{SearchDirs: defaultSearchDirs(serviceName)}
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.ConfigFile == "" {
		lc.ConfigFile = locate(lc.SearchDirs, []string{
			serviceName + ".yml", serviceName + ".yaml", "config.yml", "config.yaml",
		})
	}
	if lc.EnvFile == "" {
		lc.EnvFile = locate(lc.SearchDirs, []string{".env." + serviceName, ".env"})
	}

	v := viper.New()
	if lc.ConfigFile != "" && exists(lc.ConfigFile) {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", lc.ConfigFile, err)
		}
	}
	if lc.EnvFile != "" && exists(lc.EnvFile) {
		if err := godotenv.Load(lc.EnvFile); err != nil {
			return fmt.Errorf("loading env file %s: %w", lc.EnvFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix(serviceName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvKeys(v, reflect.TypeOf(cfg), ""); err != nil {
		return err
	}

	// Environment values arrive as strings: "a,b" fills a list, "5s" a
	// duration.
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return fmt.Errorf("decoding config: %w", err)
	}

	if d, ok := cfg.(defaulter); ok {
		d.ApplyDefaults()
		return d.Validate()
	}
	return nil
}

// EnvPrefix returns the environment variable prefix of a service:
// "dagster-schema" becomes "DAGSTER_SCHEMA".
func EnvPrefix(serviceName string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(serviceName))
}

// bindEnvKeys registers every leaf mapstructure key of t with viper, so
// Unmarshal sees environment overrides for keys the config file omits.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	for field := range fieldsOf(t) {
		name, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		switch name {
		case "-":
			continue
		case "":
			name = strings.ToLower(field.Name)
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if field.Type.Kind() == reflect.Struct {
			if err := bindEnvKeys(v, field.Type, name); err != nil {
				return err
			}
			continue
		}
		if err := v.BindEnv(name); err != nil {
			return fmt.Errorf("binding env for %s: %w", name, err)
		}
	}
	return nil
}

func fieldsOf(t reflect.Type) func(yield func(reflect.StructField) bool) {
	return func(yield func(reflect.StructField) bool) {
		for i := range t.NumField() {
			if f := t.Field(i); f.IsExported() && !yield(f) {
				return
			}
		}
	}
}
