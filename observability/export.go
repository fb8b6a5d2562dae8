package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/unlearnai/dagster/logger"
)

// ExportConfig says where traces and metrics go and which service they
// belong to.
type ExportConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP collector, host:port.
	Endpoint string
	Insecure bool
	// SampleRate is the fraction of traces kept, 0 to 1.
	SampleRate float64
	// Interval is the metric export period. Zero uses the SDK default.
	Interval time.Duration
}

// NewExportConfig returns a config exporting every trace to a local
// collector.
func NewExportConfig(serviceName string) ExportConfig {
	return ExportConfig{
		ServiceName: serviceName,
		Environment: "development",
		Endpoint:    "localhost:4318",
		Insecure:    true,
		SampleRate:  1.0,
		Interval:    15 * time.Second,
	}
}

func (c *ExportConfig) resource() (*resource.Resource, error) {
	// Schemaless so it merges with the SDK default whatever its semconv
	// version.
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(c.ServiceVersion),
		attribute.String("environment", c.Environment),
	))
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}
	return res, nil
}

// Telemetry owns the installed providers and the metric instruments built
// on them.
type Telemetry struct {
	Traces  *sdktrace.TracerProvider
	Meters  *sdkmetric.MeterProvider
	Metrics *Metrics
}

// Init installs global trace and meter providers exporting to cfg.Endpoint
// and creates the service metrics.
func Init(ctx context.Context, cfg ExportConfig) (*Telemetry, error) {
	tp, err := InitTracer(ctx, &cfg)
	if err != nil {
		return nil, err
	}
	t := &Telemetry{Traces: tp}
	if t.Meters, err = InitMeter(ctx, &cfg); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	if t.Metrics, err = NewMetrics(Meter(cfg.ServiceName)); err != nil {
		return nil, errors.Join(err, t.Shutdown(ctx))
	}
	logger.Info("telemetry initialized", logger.Fields(
		"service", cfg.ServiceName,
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
	))
	return t, nil
}

// Shutdown flushes and stops both providers.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.Meters != nil {
		errs = append(errs, t.Meters.Shutdown(ctx))
	}
	if t.Traces != nil {
		errs = append(errs, t.Traces.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
