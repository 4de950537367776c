package di

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/injector/observability"
)

func TestResolutionSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	inj := newTestInjector(WithTracer(tp.Tracer("test")))
	MustRegister[Logger](inj, Class(loggerCtor(&counter{})), WithLifecycle(Singleton))
	MustRegister[Worker](inj, Class(newWorker, "logger"), WithLifecycle(Transient))

	MustResolve[Worker](context.Background(), inj)

	names := map[string]int{}
	for _, s := range exporter.GetSpans() {
		names[s.Name]++
	}
	if names[observability.SpanResolve] != 1 {
		t.Errorf("expected one resolve span, got %d", names[observability.SpanResolve])
	}
	if names[observability.SpanConstruct] != 2 {
		t.Errorf("expected two construct spans, got %d", names[observability.SpanConstruct])
	}

	exporter.Reset()
	MustResolve[Logger](context.Background(), inj)
	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected only a resolve span for a cached singleton, got %d", len(spans))
	}
	hit := false
	for _, kv := range spans[0].Attributes {
		if kv.Key == attribute.Key(observability.AttrCacheHit) && kv.Value.AsBool() {
			hit = true
		}
	}
	if !hit {
		t.Error("expected cache hit attribute")
	}
}

func TestScopeSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	inj := newTestInjector(WithTracer(tp.Tracer("test")))
	MustRegister[Session](inj, Class(sessionCtor(&counter{})), WithLifecycle(Scoped))

	_ = inj.WithScope(context.Background(), func(ctx context.Context) error {
		MustResolve[Session](ctx, inj)
		return nil
	})

	spans := exporter.GetSpans()
	var scopeSpan, resolveSpan *tracetest.SpanStub
	for i := range spans {
		switch spans[i].Name {
		case observability.SpanScope:
			scopeSpan = &spans[i]
		case observability.SpanResolve:
			resolveSpan = &spans[i]
		}
	}
	if scopeSpan == nil || resolveSpan == nil {
		t.Fatalf("expected scope and resolve spans, got %d spans", len(spans))
	}
	if resolveSpan.Parent.SpanID() != scopeSpan.SpanContext.SpanID() {
		t.Error("expected resolution span to be a child of the scope span")
	}
}

func TestResolutionMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	metrics, err := observability.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	inj := newTestInjector(WithMetrics(metrics))
	MustRegister[Logger](inj, Class(loggerCtor(&counter{})), WithLifecycle(Singleton))

	ctx := context.Background()
	MustResolve[Logger](ctx, inj)
	MustResolve[Logger](ctx, inj)
	_, _ = Resolve[Worker](ctx, inj)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			}
		}
	}

	if sums[observability.MetricResolveTotal] != 3 {
		t.Errorf("expected 3 resolutions, got %d", sums[observability.MetricResolveTotal])
	}
	if sums[observability.MetricConstructTotal] != 1 {
		t.Errorf("expected 1 construction, got %d", sums[observability.MetricConstructTotal])
	}
	if sums[observability.MetricErrorTotal] != 1 {
		t.Errorf("expected 1 error, got %d", sums[observability.MetricErrorTotal])
	}
}
