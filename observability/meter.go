package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeter installs a global meter provider exporting to the OTLP HTTP
// endpoint of cfg every cfg.Interval. The caller shuts it down.
func InitMeter(ctx context.Context, cfg *ExportConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	res, err := cfg.resource()
	if err != nil {
		return nil, err
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded around schema builds, run-config
// validations and HTTP requests. A nil *Metrics records nothing.
type Metrics struct {
	requestTotal      metric.Int64Counter
	requestDuration   metric.Float64Histogram
	requestActive     metric.Int64UpDownCounter
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	validationErrors  metric.Int64Counter
	cacheLookups      metric.Int64Counter
	errorTotal        metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	counter := func(dst *metric.Int64Counter, name, desc string) {
		if err == nil {
			*dst, err = meter.Int64Counter(name, metric.WithDescription(desc))
			err = wrapInstrument(name, err)
		}
	}
	seconds := func(dst *metric.Float64Histogram, name, desc string) {
		if err == nil {
			*dst, err = meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
			err = wrapInstrument(name, err)
		}
	}

	counter(&m.requestTotal, "request.total", "API requests")
	seconds(&m.requestDuration, "request.duration", "API request duration")
	if err == nil {
		m.requestActive, err = meter.Int64UpDownCounter("request.active", metric.WithDescription("API requests in flight"))
		err = wrapInstrument("request.active", err)
	}
	counter(&m.operationTotal, "operation.total", "Schema builds, validations and resolutions")
	seconds(&m.operationDuration, "operation.duration", "Schema operation duration")
	counter(&m.validationErrors, "runconfig.validation_errors", "Run config validation errors by reason")
	counter(&m.cacheLookups, "runconfig.cache_lookups", "Schema cache lookups by outcome")
	counter(&m.errorTotal, "error.total", "Errors by type and component")
	if err != nil {
		return nil, err
	}
	return m, nil
}

func wrapInstrument(name string, err error) error {
	if err != nil {
		return fmt.Errorf("creating instrument %s: %w", name, err)
	}
	return nil
}

// RecordRequestStart increments the in-flight request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements in-flight requests and records the completed
// request.
func (m *Metrics) RecordRequestEnd(ctx context.Context, service, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("route", route),
		attribute.String("status", status),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("route", route),
	))
}

// RecordOperation records a schema build, validation or resolution of job.
func (m *Metrics) RecordOperation(ctx context.Context, job, operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job", job),
		attribute.String("operation", operation),
		attribute.String("status", status),
	))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("job", job),
		attribute.String("operation", operation),
	))
}

// RecordValidationErrors counts the validation errors of one document by
// reason.
func (m *Metrics) RecordValidationErrors(ctx context.Context, job string, reasons map[string]int) {
	if m == nil {
		return
	}
	for reason, n := range reasons {
		m.validationErrors.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String("job", job),
			attribute.String("reason", reason),
		))
	}
}

// RecordCacheLookup records a schema cache hit or miss.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordError records an error by type and component.
func (m *Metrics) RecordError(ctx context.Context, errType, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", errType),
		attribute.String("component", component),
	))
}
