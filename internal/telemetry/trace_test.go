package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs a provider that records spans in memory
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	providerMu.Lock()
	previous := globalProvider
	globalProvider = tp
	providerMu.Unlock()

	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		providerMu.Lock()
		globalProvider = previous
		providerMu.Unlock()
	})

	return exporter
}

func attrValue(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartCommandSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	ctx := context.Background()
	spanCtx, span := StartCommandSpan(ctx, "courses list")
	if spanCtx == ctx {
		t.Error("expected new context with span")
	}
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name != "command.courses list" {
		t.Errorf("span name = %q", spans[0].Name)
	}
	if v, ok := attrValue(spans[0].Attributes, "component"); !ok || v.AsString() != "cli" {
		t.Errorf("missing component attribute: %v", spans[0].Attributes)
	}
}

func TestStartRequestSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	_, span := StartRequestSpan(context.Background(), "GET", "/auth/profile")
	RecordStatus(span, 200)
	RecordSuccess(span)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name != "api.GET" {
		t.Errorf("span name = %q, want api.GET", got.Name)
	}
	if v, ok := attrValue(got.Attributes, "api.endpoint"); !ok || v.AsString() != "/auth/profile" {
		t.Errorf("endpoint attribute = %v", v)
	}
	if v, ok := attrValue(got.Attributes, "http.status_code"); !ok || v.AsInt64() != 200 {
		t.Errorf("status attribute = %v", v)
	}
	if got.Status.Code != codes.Ok {
		t.Errorf("status = %v, want Ok", got.Status.Code)
	}
}

func TestRefreshSpanWithError(t *testing.T) {
	exporter := setupTestTracer(t)

	_, span := StartRefreshSpan(context.Background())
	RecordError(span, errors.New("refresh rejected"))
	RecordError(span, nil)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", spans[0].Status.Code)
	}
	if spans[0].Status.Description != "refresh rejected" {
		t.Errorf("description = %q", spans[0].Status.Description)
	}
	if len(spans[0].Events) != 1 {
		t.Errorf("expected one error event, got %d", len(spans[0].Events))
	}
}

func TestStartUploadSpan(t *testing.T) {
	exporter := setupTestTracer(t)

	_, span := StartUploadSpan(context.Background(), "/upload/multiple", 3)
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if v, ok := attrValue(spans[0].Attributes, "upload.files"); !ok || v.AsInt64() != 3 {
		t.Errorf("upload.files attribute = %v", v)
	}
}

func TestInitProviderDisabled(t *testing.T) {
	ctx := context.Background()
	shutdown, err := InitProvider(ctx, DefaultConfig())
	if err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}
	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}

	_, span := StartRefreshSpan(ctx)
	if span.SpanContext().IsValid() {
		t.Error("expected noop span when tracing is disabled")
	}
	span.End()
}

func TestInitProviderEnabledWithoutEndpoint(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.SampleRate = 0.5

	shutdown, err := InitProvider(ctx, cfg)
	if err != nil {
		t.Fatalf("InitProvider failed: %v", err)
	}
	defer func() {
		_, _ = InitProvider(ctx, DefaultConfig())
	}()

	if err := shutdown(ctx); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
	if err := Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
}
