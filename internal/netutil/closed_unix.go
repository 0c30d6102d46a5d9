//go:build !windows

package netutil

import "syscall"

func isCloseErrno(errno syscall.Errno) bool {
	return errno == syscall.EPIPE || errno == syscall.ECONNRESET
}
