// Package netutil classifies transport errors for the relay.
package netutil

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// IsExpectedCloseError reports whether err is a normal stream termination
// rather than a fault: EOF, a closed handle, a broken pipe, or a reset
// connection. Reads that end this way are treated as end-of-stream by the
// relay; writes that fail this way still fail, but are logged quietly.
func IsExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return isCloseErrno(errno)
	}

	return false
}
