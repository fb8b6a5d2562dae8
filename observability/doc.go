// Package observability provides OpenTelemetry tracing and metrics for
// schema builds, run-config validation and the introspection API, plus the
// health report types the API serves.
//
// Exporting:
//
//	tel, err := observability.Init(ctx, observability.NewExportConfig("dagster-schema"))
//	defer tel.Shutdown(ctx)
//
// Operations:
//
//	oc := observability.NewOperationContext("build", job, mode, "", tel.Metrics)
//	ctx, span := oc.StartSpanForOperation(ctx, observability.SpanSchemaBuild)
//	defer oc.EndOperation(ctx, span, "ok", nil)
//
// A nil *Metrics records nothing, so code paths without telemetry pass nil.
package observability
