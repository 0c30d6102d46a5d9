package testutil

import (
	"os"
	"testing"
	"time"
)

// SocketDir returns a short-lived directory directly under /tmp for Unix
// domain sockets. t.TempDir paths can exceed the 104-byte sun_path limit on
// macOS, so sockets must not live there.
func SocketDir(t *testing.T) string {
	t.Helper()

	dir, err := os.MkdirTemp("/tmp", "kwnmh-*")
	if err != nil {
		t.Fatalf("creating socket directory: %v", err)
	}

	t.Cleanup(func() { os.RemoveAll(dir) })

	return dir
}

// Receive waits for a value on ch, failing the test after timeout.
func Receive[T any](t *testing.T, ch <-chan T, timeout time.Duration, what string) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("timed out after %s waiting for %s", timeout, what)

		var zero T

		return zero
	}
}
