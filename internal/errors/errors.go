// Package errors provides structured CLI error types for the host.
//
// CLIError wraps errors with user-facing messages, hints, and exit codes
// to provide consistent, actionable error output across all commands.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Exit codes for CLI errors.
const (
	ExitSuccess      = 0  // Successful execution, including a clean end of stream
	ExitGeneral      = 1  // General error, including a missing or rejected origin
	ExitConfig       = 4  // Configuration or user identity error
	ExitDial         = 5  // KeeWeb unreachable after every attempt
	ExitSpawn        = 6  // KeeWeb could not be launched
	ExitFrontChannel = 7  // stdin or stdout failed
	ExitBackChannel  = 8  // Established KeeWeb connection failed
	ExitUsage        = 64 // Command line usage error (BSD convention)
)

// CLIError represents a user-facing CLI error with actionable guidance.
type CLIError struct {
	// Message is the primary error message shown to the user.
	Message string

	// Hint provides actionable guidance on how to fix the error.
	Hint string

	// Cause is the underlying error, if any.
	Cause error

	// Code is the exit code for the CLI.
	Code int
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}

	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// New creates a new CLIError with the given message and exit code.
func New(code int, message string) *CLIError {
	return &CLIError{
		Message: message,
		Code:    code,
	}
}

// Wrap wraps an existing error with a CLIError.
func Wrap(code int, message string, cause error) *CLIError {
	return &CLIError{
		Message: message,
		Cause:   cause,
		Code:    code,
	}
}

// WithHint adds a hint to the error.
func (e *CLIError) WithHint(hint string) *CLIError {
	e.Hint = hint
	return e
}

// As is a convenience function for errors.As with CLIError.
func As(err error, target **CLIError) bool {
	return errors.As(err, target)
}

// --- Common error constructors ---

// OriginMissing returns an error when no extension origin was passed.
func OriginMissing() *CLIError {
	return &CLIError{
		Message: "No extension origin given",
		Hint:    "The browser passes the calling extension's origin. Run 'keeweb-native-messaging-host manifest install' to register the host",
		Code:    ExitGeneral,
	}
}

// OriginNotAllowed returns an error when no argument is an allowed origin.
func OriginNotAllowed(args []string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Extension origin not allowed: %s", strings.Join(args, " ")),
		Hint:    "Run 'keeweb-native-messaging-host doctor' to list allowed origins, or add one with origins.extra",
		Code:    ExitGeneral,
	}
}

// IdentityUnavailable returns an error when the socket address cannot be derived.
func IdentityUnavailable(cause error) *CLIError {
	return &CLIError{
		Message: "Cannot determine the KeeWeb socket address",
		Hint:    "Set connect.socket (KEEWEB_NMH_CONNECT_SOCKET) to the KeeWeb socket path",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// ConfigFailed returns an error for configuration save failures.
func ConfigFailed(operation string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to %s", operation),
		Hint:    "Check file permissions for the host config directory or run 'keeweb-native-messaging-host doctor'",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// ConfigInvalid returns an error for unusable configuration values.
func ConfigInvalid(cause error) *CLIError {
	return &CLIError{
		Message: "Invalid configuration",
		Hint:    "Run 'keeweb-native-messaging-host config list' to review the effective settings",
		Cause:   cause,
		Code:    ExitConfig,
	}
}

// UnknownConfigKey returns an error for an unrecognised config key.
func UnknownConfigKey(key string, known []string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Unknown config key: %s", key),
		Hint:    fmt.Sprintf("Known keys: %s", strings.Join(known, ", ")),
		Code:    ExitUsage,
	}
}

// KeeWebUnreachable returns an error when every connection attempt failed.
func KeeWebUnreachable(cause error) *CLIError {
	return &CLIError{
		Message: "Cannot connect to KeeWeb",
		Hint:    "Start KeeWeb and enable browser integration, or run 'keeweb-native-messaging-host doctor'",
		Cause:   cause,
		Code:    ExitDial,
	}
}

// KeeWebLaunchFailed returns an error when KeeWeb could not be started.
func KeeWebLaunchFailed(cause error) *CLIError {
	return &CLIError{
		Message: "Cannot launch KeeWeb",
		Hint:    "Install KeeWeb or point companion.executable at it",
		Cause:   cause,
		Code:    ExitSpawn,
	}
}

// FrontChannelFailed returns an error when the browser's stdin or stdout fails.
func FrontChannelFailed(cause error) *CLIError {
	return &CLIError{
		Message: "Browser channel failed",
		Hint:    "The browser closed the native messaging pipe unexpectedly; reload the extension",
		Cause:   cause,
		Code:    ExitFrontChannel,
	}
}

// BackChannelFailed returns an error when an established KeeWeb connection fails.
func BackChannelFailed(cause error) *CLIError {
	return &CLIError{
		Message: "KeeWeb connection failed",
		Hint:    "KeeWeb dropped the connection; check that it is still running",
		Cause:   cause,
		Code:    ExitBackChannel,
	}
}

// ManifestFailed returns an error for manifest install or removal failures.
func ManifestFailed(operation string, cause error) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Failed to %s native messaging manifest", operation),
		Hint:    "Check that the browser profile directory is writable",
		Cause:   cause,
		Code:    ExitGeneral,
	}
}

// InvalidChoice returns an error for a flag value outside its allowed set.
func InvalidChoice(flag, value string, allowed []string) *CLIError {
	return &CLIError{
		Message: fmt.Sprintf("Invalid --%s: %s", flag, value),
		Hint:    fmt.Sprintf("Allowed values: %s", strings.Join(allowed, ", ")),
		Code:    ExitUsage,
	}
}
