package observability_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/keeweb/keeweb-native-messaging-host/internal/observability"
)

type testPropagator struct{}

func (testPropagator) Inject(context.Context, propagation.TextMapCarrier) {}

func (testPropagator) Extract(ctx context.Context, _ propagation.TextMapCarrier) context.Context {
	return ctx
}

func (testPropagator) Fields() []string { return nil }

type testErrorHandler struct{}

func (testErrorHandler) Handle(error) {}

// installSentinels replaces the otel globals with recognizable values and
// restores the originals when the test ends.
func installSentinels(t *testing.T) *sdktrace.TracerProvider {
	t.Helper()

	origTP := otel.GetTracerProvider()
	origPropagator := otel.GetTextMapPropagator()
	origErrorHandler := otel.GetErrorHandler()

	sentinelTP := sdktrace.NewTracerProvider()

	t.Cleanup(func() {
		_ = sentinelTP.Shutdown(context.Background())

		otel.SetTracerProvider(origTP)
		otel.SetTextMapPropagator(origPropagator)
		otel.SetErrorHandler(origErrorHandler)
	})

	otel.SetTracerProvider(sentinelTP)
	otel.SetTextMapPropagator(testPropagator{})
	otel.SetErrorHandler(testErrorHandler{})

	return sentinelTP
}

func assertSentinels(t *testing.T, sentinelTP *sdktrace.TracerProvider) {
	t.Helper()

	if got := otel.GetTracerProvider(); got != sentinelTP {
		t.Error("tracer provider not restored")
	}

	if _, ok := otel.GetTextMapPropagator().(testPropagator); !ok {
		t.Error("propagator not restored")
	}

	if _, ok := otel.GetErrorHandler().(testErrorHandler); !ok {
		t.Error("error handler not restored")
	}
}

func TestSetupTelemetry_DisabledLeavesGlobals(t *testing.T) {
	for _, cfg := range []*observability.TelemetryConfig{nil, {Enabled: false}} {
		sentinelTP := installSentinels(t)

		shutdown, err := observability.SetupTelemetry(t.Context(), cfg)
		if err != nil {
			t.Fatalf("SetupTelemetry(%+v) error = %v", cfg, err)
		}

		assertSentinels(t, sentinelTP)

		if err := shutdown(t.Context()); err != nil {
			t.Fatalf("shutdown error: %v", err)
		}
	}
}

func TestSetupTelemetry_ExportsRelaySpans(t *testing.T) {
	sentinelTP := installSentinels(t)
	exporter := tracetest.NewInMemoryExporter()

	shutdown, err := observability.SetupTelemetry(t.Context(), &observability.TelemetryConfig{
		Enabled:     true,
		Version:     "1.2.3",
		Commit:      "abc123",
		Environment: "test",
		SessionID:   "session-1",
		Exporter:    exporter,
	})
	if err != nil {
		t.Fatalf("SetupTelemetry() error = %v", err)
	}

	if _, isNoop := otel.GetTracerProvider().(noop.TracerProvider); isNoop {
		t.Fatal("expected a real TracerProvider")
	}

	_, span := observability.Tracer("keeweb.test").Start(t.Context(), "relay.session")
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}

	attrs := spans[0].Resource.Set()

	for key, want := range map[attribute.Key]string{
		"service.name":           "keeweb-native-messaging-host",
		"service.namespace":      "keeweb",
		"service.version":        "1.2.3",
		"service.commit":         "abc123",
		"deployment.environment": "test",
		"session.id":             "session-1",
	} {
		got, ok := attrs.Value(key)
		if !ok || got.AsString() != want {
			t.Errorf("resource %s = %q (present %v), want %q", key, got.Emit(), ok, want)
		}
	}

	if _, ok := attrs.Value("process.pid"); !ok {
		t.Error("resource is missing process.pid")
	}

	if err := shutdown(t.Context()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}

	assertSentinels(t, sentinelTP)
}

func TestSetupTelemetry_ServiceNameFromEnv(t *testing.T) {
	installSentinels(t)
	t.Setenv("OTEL_SERVICE_NAME", "kw-host-ci")

	exporter := tracetest.NewInMemoryExporter()

	shutdown, err := observability.SetupTelemetry(t.Context(), &observability.TelemetryConfig{
		Enabled:  true,
		Exporter: exporter,
	})
	if err != nil {
		t.Fatalf("SetupTelemetry() error = %v", err)
	}

	t.Cleanup(func() { _ = shutdown(context.Background()) })

	_, span := observability.Tracer("keeweb.test").Start(t.Context(), "companion.dial")
	span.End()

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("exported %d spans, want 1", len(spans))
	}

	got, _ := spans[0].Resource.Set().Value("service.name")
	if got.AsString() != "kw-host-ci" {
		t.Errorf("service.name = %q, want kw-host-ci", got.AsString())
	}
}

func TestSetupTelemetry_OTLPShutdownRestoresGlobalsOnCanceledContext(t *testing.T) {
	sentinelTP := installSentinels(t)

	shutdown, err := observability.SetupTelemetry(t.Context(), &observability.TelemetryConfig{
		Enabled:  true,
		Endpoint: "localhost:4318",
	})
	if err != nil {
		t.Fatalf("SetupTelemetry() error = %v", err)
	}

	if otel.GetTracerProvider() == sentinelTP {
		t.Fatal("expected setup to replace the tracer provider")
	}

	canceledCtx, cancel := context.WithCancel(t.Context())
	cancel()

	_ = shutdown(canceledCtx)

	assertSentinels(t, sentinelTP)
}

func TestIsTelemetryEnabled(t *testing.T) {
	tests := []struct {
		envValue string
		want     bool
	}{
		{"", false},
		{"true", true},
		{"TRUE", true},
		{"1", true},
		{"yes", true},
		{"false", false},
		{"0", false},
		{"no", false},
		{"random", false},
		{"  true  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("OTEL_ENABLED", tt.envValue)

			if got := observability.IsTelemetryEnabled(); got != tt.want {
				t.Errorf("IsTelemetryEnabled() = %v, want %v (env=%q)", got, tt.want, tt.envValue)
			}
		})
	}
}
