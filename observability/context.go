package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OperationContext times one schema operation on a job and reports it as
// a span and, when Metrics is set, as operation metrics.
type OperationContext struct {
	OperationName string
	Job           string
	Mode          string
	RequestID     string
	StartTime     time.Time
	Metrics       *Metrics
}

// NewOperationContext starts timing an operation. metrics may be nil.
func NewOperationContext(operationName, job, mode, requestID string, metrics *Metrics) *OperationContext {
	return &OperationContext{
		OperationName: operationName,
		Job:           job,
		Mode:          mode,
		RequestID:     requestID,
		StartTime:     time.Now(),
		Metrics:       metrics,
	}
}

// StartSpanForOperation starts spanName tagged with the operation, job,
// and, when known, mode and request id.
func (oc *OperationContext) StartSpanForOperation(ctx context.Context, spanName string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrOperationName, oc.OperationName),
		attribute.String(AttrJob, oc.Job),
	}
	if oc.Mode != "" {
		attrs = append(attrs, attribute.String(AttrMode, oc.Mode))
	}
	if oc.RequestID != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, oc.RequestID))
	}
	return StartSpan(ctx, spanName, trace.WithAttributes(attrs...))
}

// EndOperation ends span with status and records the operation. A non-nil
// err marks the span failed and counts as an error of the operation.
func (oc *OperationContext) EndOperation(ctx context.Context, span trace.Span, status string, err error) {
	duration := oc.Duration()
	if err != nil {
		SetSpanError(trace.ContextWithSpan(ctx, span), err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	oc.Metrics.RecordOperation(ctx, oc.Job, oc.OperationName, status, duration)
	if err != nil {
		oc.Metrics.RecordError(ctx, status, oc.OperationName)
	}
}

// Duration returns the time elapsed since the operation started.
func (oc *OperationContext) Duration() time.Duration {
	return time.Since(oc.StartTime)
}
