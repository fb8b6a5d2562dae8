package middleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/unlearnai/dagster/logger"
	"github.com/unlearnai/dagster/observability"
)

// Tracing wraps each request in a span, continuing a trace propagated by
// the caller, and stores the trace and span ids for loggers. It must run
// after RequestID.
func Tracing() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := observability.StartSpan(ctx, observability.SpanHTTPRequest,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String(observability.AttrHTTPMethod, r.Method),
					attribute.String(observability.AttrHTTPRoute, r.URL.Path),
					attribute.String(observability.AttrRequestID, logger.RequestIDFromContext(ctx)),
				))
			defer span.End()

			if sc := span.SpanContext(); sc.IsValid() {
				ctx = logger.ContextWithTrace(ctx, sc.TraceID().String(), sc.SpanID().String())
			}
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r.WithContext(ctx))

			span.SetAttributes(attribute.Int(observability.AttrHTTPStatus, sw.status))
			if sw.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(sw.status))
			}
		})
	}
}
