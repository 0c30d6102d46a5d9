package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/keeweb/keeweb-native-messaging-host/internal/testutil"
)

// TestAllErrorsHaveHints verifies that all error constructors provide actionable hints.
func TestAllErrorsHaveHints(t *testing.T) {
	tests := []struct {
		name string
		err  *CLIError
	}{
		{"OriginMissing", OriginMissing()},
		{"OriginNotAllowed", OriginNotAllowed([]string{"chrome-extension://bad/"})},
		{"IdentityUnavailable", IdentityUnavailable(nil)},
		{"ConfigFailed", ConfigFailed("test operation", nil)},
		{"ConfigInvalid", ConfigInvalid(nil)},
		{"UnknownConfigKey", UnknownConfigKey("x", []string{"a"})},
		{"KeeWebUnreachable", KeeWebUnreachable(nil)},
		{"KeeWebLaunchFailed", KeeWebLaunchFailed(nil)},
		{"FrontChannelFailed", FrontChannelFailed(nil)},
		{"BackChannelFailed", BackChannelFailed(nil)},
		{"ManifestFailed", ManifestFailed("install", nil)},
		{"InvalidChoice", InvalidChoice("browser", "safari", []string{"chrome"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Hint == "" {
				t.Errorf("%s() should have a hint, got empty string", tt.name)
			}

			if tt.err.Message == "" {
				t.Errorf("%s() should have a message, got empty string", tt.name)
			}
		})
	}
}

func TestExitCodesAreDistinct(t *testing.T) {
	codes := map[int]string{}

	for name, code := range map[string]int{
		"ExitSuccess":      ExitSuccess,
		"ExitGeneral":      ExitGeneral,
		"ExitConfig":       ExitConfig,
		"ExitDial":         ExitDial,
		"ExitSpawn":        ExitSpawn,
		"ExitFrontChannel": ExitFrontChannel,
		"ExitBackChannel":  ExitBackChannel,
		"ExitUsage":        ExitUsage,
	} {
		if other, ok := codes[code]; ok {
			t.Fatalf("%s and %s share exit code %d", name, other, code)
		}

		codes[code] = name
	}
}

func TestCLIError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *CLIError
		want string
	}{
		{
			name: "message only",
			err:  &CLIError{Message: "test error"},
			want: "test error",
		},
		{
			name: "message with cause",
			err:  &CLIError{Message: "test error", Cause: New(1, "underlying")},
			want: "test error: underlying",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCLIError_Unwrap(t *testing.T) {
	cause := New(1, "cause")
	err := &CLIError{Message: "wrapper", Cause: cause}

	if got := err.Unwrap(); got != cause { //nolint:errorlint // testing identity
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
}

func TestWithHint(t *testing.T) {
	err := New(1, "test").WithHint("do this")

	if err.Hint != "do this" {
		t.Errorf("WithHint() hint = %q, want %q", err.Hint, "do this")
	}
}

func TestWrap(t *testing.T) {
	cause := New(1, "cause")
	err := Wrap(ExitDial, "wrapped", cause)

	if err.Code != ExitDial {
		t.Errorf("Wrap() code = %d, want %d", err.Code, ExitDial)
	}

	if err.Cause != cause { //nolint:errorlint // testing struct field identity
		t.Errorf("Wrap() cause = %v, want %v", err.Cause, cause)
	}
}

func TestAs(t *testing.T) {
	wrapped := fmt.Errorf("run: %w", KeeWebLaunchFailed(nil))

	var cliErr *CLIError
	if !As(wrapped, &cliErr) {
		t.Fatal("As() = false for a wrapped CLIError")
	}

	if cliErr.Code != ExitSpawn {
		t.Fatalf("As() code = %d, want %d", cliErr.Code, ExitSpawn)
	}
}

// formatCLIError produces a deterministic string representation of a CLIError for golden file comparison.
func formatCLIError(err *CLIError) string {
	return fmt.Sprintf("Message: %s\nHint: %s\nCode: %d\n", err.Message, err.Hint, err.Code)
}

func TestErrorMessages_Golden(t *testing.T) {
	tests := []struct {
		name string
		err  *CLIError
	}{
		{"OriginMissing", OriginMissing()},
		{"OriginNotAllowed", OriginNotAllowed([]string{"chrome-extension://bad/", "--parent-window=0"})},
		{"IdentityUnavailable", IdentityUnavailable(nil)},
		{"ConfigFailed", ConfigFailed("save config", nil)},
		{"ConfigInvalid", ConfigInvalid(nil)},
		{"UnknownConfigKey", UnknownConfigKey("api.url", []string{"connect.socket", "connect.max_attempts"})},
		{"KeeWebUnreachable", KeeWebUnreachable(nil)},
		{"KeeWebLaunchFailed", KeeWebLaunchFailed(nil)},
		{"FrontChannelFailed", FrontChannelFailed(nil)},
		{"BackChannelFailed", BackChannelFailed(nil)},
		{"ManifestFailed", ManifestFailed("install", nil)},
		{"InvalidChoice", InvalidChoice("browser", "safari", []string{"chrome", "firefox", "edge"})},
	}

	var sb strings.Builder
	for _, tt := range tests {
		fmt.Fprintf(&sb, "--- %s ---\n", tt.name)
		sb.WriteString(formatCLIError(tt.err))
		sb.WriteString("\n")
	}

	testutil.AssertGolden(t, sb.String(), "error_messages.golden")
}
