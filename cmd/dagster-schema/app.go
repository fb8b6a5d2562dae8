package main

import (
	"context"
	"errors"

	"github.com/unlearnai/dagster/config"
	"github.com/unlearnai/dagster/logger"
	"github.com/unlearnai/dagster/manifest"
	"github.com/unlearnai/dagster/observability"
	"github.com/unlearnai/dagster/runconfig"
)

// globalFlags are the flags every command accepts.
type globalFlags struct {
	serviceConfig string
	manifestDirs  []string
	logLevel      string
}

// app holds what the commands share: configuration, the logger and the
// manifest resolver.
type app struct {
	cfg      config.ServiceConfig
	log      *logger.Logger
	registry *manifest.Registry
	resolver *manifest.Resolver
	metrics  *observability.Metrics
	shutdown []func(context.Context) error
}

// newApp loads the service configuration, applies flag overrides and
// initializes the global logger.
func newApp(flags *globalFlags) (*app, error) {
	var opts []config.LoaderOption
	if flags.serviceConfig != "" {
		opts = append(opts, config.WithConfigFile(flags.serviceConfig))
	}
	var cfg config.ServiceConfig
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, err
	}
	if len(flags.manifestDirs) > 0 {
		cfg.Manifests.Dirs = flags.manifestDirs
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if cfg.Version == "" {
		cfg.Version = version
	}

	logger.Init(cfg.Logging, cfg.Name)
	registry := manifest.NewRegistry()
	return &app{
		cfg:      cfg,
		log:      logger.GetGlobalLogger().WithComponent("cli"),
		registry: registry,
		resolver: manifest.NewResolver(registry, manifest.NewFileLoader(cfg.Manifests.Dirs...), nil),
	}, nil
}

// initTelemetry starts OTLP trace and metric export when tracing is
// enabled.
func (a *app) initTelemetry(ctx context.Context) error {
	if !a.cfg.Tracing.Enabled {
		return nil
	}
	cfg := observability.NewExportConfig(a.cfg.Name)
	cfg.ServiceVersion = a.cfg.Version
	cfg.Environment = a.cfg.Environment
	cfg.Endpoint = a.cfg.Tracing.Endpoint
	cfg.Insecure = a.cfg.Tracing.Insecure
	tel, err := observability.Init(ctx, cfg)
	if err != nil {
		return err
	}
	a.metrics = tel.Metrics
	a.shutdown = append(a.shutdown, tel.Shutdown)
	a.log.Info("Telemetry enabled", logger.Fields("endpoint", a.cfg.Tracing.Endpoint))
	return nil
}

// schemaOptions are the runconfig options every build of the app uses.
func (a *app) schemaOptions() []runconfig.Option {
	return []runconfig.Option{runconfig.WithLogger(a.log), runconfig.WithMetrics(a.metrics)}
}

// buildSchema loads job and builds its run config schema.
func (a *app) buildSchema(ctx context.Context, job, mode string, selection []string) (*runconfig.RunConfigSchema, error) {
	def, err := a.resolver.LoadJob(ctx, job)
	if err != nil {
		return nil, err
	}
	opts := append(a.schemaOptions(), runconfig.WithMode(mode), runconfig.WithSelection(selection...))
	return runconfig.Build(ctx, def, opts...)
}

func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		errs = append(errs, a.shutdown[i](ctx))
	}
	return errors.Join(errs...)
}
