package relay

import (
	"context"
	"io"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/keeweb/keeweb-native-messaging-host/internal/testutil"
)

func TestRelay_Spans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	errc := runRelay(t, context.Background(), Options{
		Front: Duplex{In: idleStdin(t), Out: io.Discard},
		Dialer: DialerFunc(func(context.Context, string) (io.ReadWriteCloser, error) {
			return nil, errRefused
		}),
		Launcher:    launcherFunc(func(context.Context) error { return nil }),
		Tracer:      tp.Tracer("relay-test"),
		MaxAttempts: 2,
		RetryDelay:  -1,
	})

	if err := testutil.Receive(t, errc, testTimeout, "relay exit"); err == nil {
		t.Fatal("Run() = nil, want dial error")
	}

	counts := map[string]int{}
	attempts := map[int64]bool{}

	for _, span := range rec.Ended() {
		counts[span.Name()]++

		switch span.Name() {
		case "companion.dial":
			if span.Status().Code != codes.Error {
				t.Errorf("dial span status = %v, want error", span.Status().Code)
			}

			for _, kv := range span.Attributes() {
				if kv.Key == attribute.Key("dial.attempt") {
					attempts[kv.Value.AsInt64()] = true
				}
			}
		case "relay.session":
			if span.Status().Code != codes.Error {
				t.Errorf("session span status = %v, want error", span.Status().Code)
			}

			found := false

			for _, kv := range span.Attributes() {
				if kv.Key == "relay.origin" && kv.Value.AsString() == testOrigin {
					found = true
				}
			}

			if !found {
				t.Error("session span missing relay.origin attribute")
			}
		}
	}

	if counts["relay.session"] != 1 || counts["companion.dial"] != 2 || counts["companion.launch"] != 1 {
		t.Errorf("span counts = %v, want 1 session, 2 dials, 1 launch", counts)
	}

	if !attempts[1] || !attempts[2] {
		t.Errorf("dial attempts recorded = %v, want 1 and 2", attempts)
	}
}
