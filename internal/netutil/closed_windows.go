//go:build windows

package netutil

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// Named pipes report peer disconnects with their own error codes.
func isCloseErrno(errno syscall.Errno) bool {
	switch errno {
	case syscall.EPIPE, syscall.ECONNRESET,
		windows.ERROR_BROKEN_PIPE, windows.ERROR_NO_DATA, windows.ERROR_PIPE_NOT_CONNECTED:
		return true
	default:
		return false
	}
}
