//go:build unix

package pipe

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const maxAddressLength = 104

type platformResolver struct {
	opts Options
}

// Resolve returns $TMPDIR/keeweb-browser-<uid>.sock.
func (r platformResolver) Resolve() (string, error) {
	dir := r.opts.TempDir
	if dir == "" {
		dir = os.TempDir()
	}

	return filepath.Join(dir, fmt.Sprintf("%s-%d.sock", SocketBaseName, unix.Getuid())), nil
}
