package config

import (
	"fmt"
	"time"

	"github.com/unlearnai/dagster/logger"
	"github.com/unlearnai/dagster/validation"
)

// ServiceConfig is the configuration of the schema server and CLI.
type ServiceConfig struct {
	Name        string         `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string         `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string         `yaml:"version" mapstructure:"version"`
	Logging     logger.Config  `yaml:"logging" mapstructure:"logging"`
	Server      ServerConfig   `yaml:"server" mapstructure:"server"`
	Manifests   ManifestConfig `yaml:"manifests" mapstructure:"manifests"`
	Cache       CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Tracing     TracingConfig  `yaml:"tracing" mapstructure:"tracing"`
}

// ServerConfig configures the introspection HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr" validate:"required,hostname_port"`
	// Mode is the gin mode.
	Mode string `yaml:"mode" mapstructure:"mode" validate:"oneof=debug release test"`
	// MaxBodyBytes caps request bodies, 1 MiB by default.
	MaxBodyBytes int64 `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"min=0"`
	// ShutdownTimeout bounds graceful shutdown, 15s by default.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"min=0"`
}

// ManifestConfig lists the directories searched for job and graph manifests.
type ManifestConfig struct {
	Dirs []string `yaml:"dirs" mapstructure:"dirs" validate:"min=1,dive,required"`
}

// CacheConfig sizes the run-config schema cache.
type CacheConfig struct {
	Size int `yaml:"size" mapstructure:"size" validate:"min=1"`
}

// TracingConfig configures OTLP trace and metric export.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Insecure bool   `yaml:"insecure" mapstructure:"insecure"`
}

// ApplyDefaults fills unset values.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "dagster-schema"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:3070"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
		if c.Environment == "development" {
			c.Server.Mode = "debug"
		}
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if len(c.Manifests.Dirs) == 0 {
		c.Manifests.Dirs = []string{"./manifests"}
	}
	if c.Cache.Size == 0 {
		c.Cache.Size = 128
	}
	c.Logging.ApplyDefaults()
}

// Validate validates the configuration.
func (c *ServiceConfig) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
