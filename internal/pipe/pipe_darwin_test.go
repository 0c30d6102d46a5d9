//go:build darwin

package pipe

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// KeeWeb on macOS listens in the per-user $TMPDIR, not in an app group
// container.
func TestResolve_DarwinUsesTMPDIR(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)

	got, err := NewResolver(Options{}).Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	want := filepath.Join(dir, fmt.Sprintf("keeweb-browser-%d.sock", os.Getuid()))
	if got != want {
		t.Fatalf("Resolve() = %q, want %q", got, want)
	}
}
