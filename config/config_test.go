package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dagster-schema.yml", `
name: schema-api
environment: staging
server:
  addr: "0.0.0.0:8080"
  shutdown_timeout: 30s
manifests:
  dirs: ["./jobs", "./graphs"]
logging:
  level: debug
  format: json
`)
	var cfg ServiceConfig
	if err := LoadConfig("dagster-schema", &cfg, WithConfigFile(path), WithEnvFile(filepath.Join(t.TempDir(), ".env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "schema-api" || cfg.Environment != "staging" {
		t.Errorf("unexpected identity %q/%q", cfg.Name, cfg.Environment)
	}
	if cfg.Server.Addr != "0.0.0.0:8080" || cfg.Server.Mode != "release" || cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if !slices.Equal(cfg.Manifests.Dirs, []string{"./jobs", "./graphs"}) {
		t.Errorf("unexpected manifest dirs %v", cfg.Manifests.Dirs)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging %+v", cfg.Logging)
	}
	if cfg.Cache.Size != 128 {
		t.Errorf("expected default cache size, got %d", cfg.Cache.Size)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	var cfg ServiceConfig
	err := LoadConfig("dagster-schema", &cfg,
		WithConfigFile("/nonexistent/path.yml"), WithEnvFile("/nonexistent/.env"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
	if cfg.Name != "dagster-schema" || cfg.Server.Mode != "debug" || !slices.Equal(cfg.Manifests.Dirs, []string{"./manifests"}) ||
		cfg.Server.ShutdownTimeout != 15*time.Second {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", `
server:
  addr: "127.0.0.1:1000"
`)
	t.Setenv("DAGSTER_SCHEMA_SERVER_ADDR", "0.0.0.0:9000")
	t.Setenv("DAGSTER_SCHEMA_MANIFESTS_DIRS", "a,b")

	var cfg ServiceConfig
	if err := LoadConfig("dagster-schema", &cfg, WithConfigFile(path), WithEnvFile("/nonexistent/.env")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9000" {
		t.Errorf("env should override file, got %q", cfg.Server.Addr)
	}
	if !slices.Equal(cfg.Manifests.Dirs, []string{"a", "b"}) {
		t.Errorf("expected comma separated dirs, got %v", cfg.Manifests.Dirs)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "DAGSTER_SCHEMA_CACHE_SIZE=64\n")
	t.Cleanup(func() { os.Unsetenv("DAGSTER_SCHEMA_CACHE_SIZE") })

	var cfg ServiceConfig
	if err := LoadConfig("dagster-schema", &cfg, WithConfigFile("/nonexistent/path.yml"), WithEnvFile(envPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Cache.Size != 64 {
		t.Errorf("expected cache size from .env, got %d", cfg.Cache.Size)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "server: [unclosed")
	var cfg ServiceConfig
	if err := LoadConfig("dagster-schema", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestServiceConfigValidate(t *testing.T) {
	base := func() ServiceConfig {
		var c ServiceConfig
		c.ApplyDefaults()
		return c
	}
	tests := []struct {
		name   string
		mutate func(*ServiceConfig)
		errMsg string
	}{
		{"valid", func(*ServiceConfig) {}, ""},
		{"bad environment", func(c *ServiceConfig) { c.Environment = "qa" }, "environment"},
		{"bad addr", func(c *ServiceConfig) { c.Server.Addr = "nowhere" }, "server.addr"},
		{"bad mode", func(c *ServiceConfig) { c.Server.Mode = "loud" }, "server.mode"},
		{"negative cache", func(c *ServiceConfig) { c.Cache.Size = -1 }, "cache.size"},
		{"empty manifest dir", func(c *ServiceConfig) { c.Manifests.Dirs = []string{""} }, "manifests.dirs[0]"},
		{"tracing without endpoint", func(c *ServiceConfig) { c.Tracing.Enabled = true }, "tracing.endpoint"},
		{"bad log level", func(c *ServiceConfig) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoadConfig_Search(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, second, "config.yaml", "cache:\n  size: 7\n")
	writeFile(t, second, ".env", "DAGSTER_SCHEMA_LOGGING_LEVEL=warn\n")
	writeFile(t, first, "dagster-schema.yml", "cache:\n  size: 9\n")
	t.Cleanup(func() { os.Unsetenv("DAGSTER_SCHEMA_LOGGING_LEVEL") })

	var cfg ServiceConfig
	if err := LoadConfig("dagster-schema", &cfg, WithSearchDirs(first, second)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Cache.Size != 9 {
		t.Errorf("expected the first directory to win, got cache size %d", cfg.Cache.Size)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected the .env of the second directory, got level %q", cfg.Logging.Level)
	}

	var empty ServiceConfig
	if err := LoadConfig("dagster-schema", &empty, WithSearchDirs(t.TempDir())); err != nil {
		t.Fatalf("LoadConfig with nothing to find: %v", err)
	}
	if empty.Cache.Size != 128 {
		t.Errorf("expected defaults, got %d", empty.Cache.Size)
	}
}

func TestEnvPrefix(t *testing.T) {
	if got := EnvPrefix("dagster-schema"); got != "DAGSTER_SCHEMA" {
		t.Errorf("EnvPrefix() = %q", got)
	}
}
