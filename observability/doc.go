// Package observability wires OpenTelemetry tracing and metrics for the
// injector and its HTTP surface.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("injectord"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.Tracer("injectord").Start(ctx, observability.SpanResolve)
//	inst, err := build(ctx)
//	observability.EndSpan(span, err)
//
// Metrics:
//
//	metrics, err := observability.NewMetrics(observability.Meter("injectord"))
//	metrics.RecordResolve(ctx, "demo.Logger", "ok", duration)
package observability
