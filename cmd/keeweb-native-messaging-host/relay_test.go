package main

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/keeweb/keeweb-native-messaging-host/internal/config"
	clierrors "github.com/keeweb/keeweb-native-messaging-host/internal/errors"
	"github.com/keeweb/keeweb-native-messaging-host/internal/pipe"
	"github.com/keeweb/keeweb-native-messaging-host/internal/relay"
)

func TestRelayError_ExitCodes(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		kind relay.Kind
		want int
	}{
		{relay.KindStdin, clierrors.ExitFrontChannel},
		{relay.KindStdout, clierrors.ExitFrontChannel},
		{relay.KindDial, clierrors.ExitDial},
		{relay.KindSpawn, clierrors.ExitSpawn},
		{relay.KindBackChannel, clierrors.ExitBackChannel},
		{relay.KindIdentity, clierrors.ExitConfig},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := relayError(&relay.Error{Kind: tt.kind, Err: cause})

			var cliErr *clierrors.CLIError
			if !clierrors.As(err, &cliErr) {
				t.Fatalf("relayError() = %T, want CLIError", err)
			}

			if cliErr.Code != tt.want {
				t.Errorf("code = %d, want %d", cliErr.Code, tt.want)
			}

			if !errors.Is(err, cause) {
				t.Error("cause lost")
			}
		})
	}
}

func TestRelayError_CleanAndForeign(t *testing.T) {
	if err := relayError(nil); err != nil {
		t.Errorf("relayError(nil) = %v", err)
	}

	plain := errors.New("plain")
	if err := relayError(plain); !errors.Is(err, plain) {
		t.Errorf("relayError(plain) = %v", err)
	}
}

func TestRelayOptions_FromConfig(t *testing.T) {
	isolateConfig(t)
	t.Setenv("KEEWEB_NMH_CONNECT_RETRY_DELAY", "0s")
	t.Setenv("KEEWEB_NMH_CONNECT_MAX_ATTEMPTS", "3")
	t.Setenv("KEEWEB_NMH_COMPANION_LAUNCH", "false")
	t.Setenv("KEEWEB_NMH_CONNECT_SOCKET", "/tmp/override.sock")

	opts := relayOptions(config.Load(), "keeweb-connect@keeweb.info", relay.Duplex{}, slog.New(slog.DiscardHandler))

	if opts.RetryDelay >= 0 {
		t.Errorf("RetryDelay = %v, want negative for a zero setting", opts.RetryDelay)
	}

	if opts.DialTimeout != config.DefaultDialTimeout {
		t.Errorf("DialTimeout = %v, want %v", opts.DialTimeout, config.DefaultDialTimeout)
	}

	if opts.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", opts.MaxAttempts)
	}

	if opts.Launcher != nil {
		t.Error("Launcher set with companion.launch=false")
	}

	address, err := opts.Resolver.Resolve()
	if err != nil || address != "/tmp/override.sock" {
		t.Errorf("Resolve() = %q, %v", address, err)
	}
}

func TestOrDisabled(t *testing.T) {
	if got := orDisabled(0); got >= 0 {
		t.Errorf("orDisabled(0) = %v, want negative", got)
	}

	if got := orDisabled(time.Second); got != time.Second {
		t.Errorf("orDisabled(1s) = %v", got)
	}
}

func TestWarningResolver_LogsOnce(t *testing.T) {
	var logs bytes.Buffer

	long := "/tmp/" + strings.Repeat("k", 300)
	r := &warningResolver{
		Resolver: pipe.ResolverFunc(func() (string, error) { return long, nil }),
		logger:   slog.New(slog.NewTextHandler(&logs, nil)),
	}

	for range 3 {
		if got, err := r.Resolve(); err != nil || got != long {
			t.Fatalf("Resolve() = %q, %v", got, err)
		}
	}

	if n := strings.Count(logs.String(), "socket address exceeds platform limit"); n != 1 {
		t.Errorf("warning logged %d times, want 1", n)
	}
}
