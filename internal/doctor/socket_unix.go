//go:build unix

package doctor

import (
	"errors"

	"golang.org/x/sys/unix"
)

// inspectSocket checks that address names an existing Unix domain socket.
func inspectSocket(address string) Result {
	var st unix.Stat_t

	if err := unix.Stat(address, &st); err != nil {
		if errors.Is(err, unix.ENOENT) {
			return Result{
				Status:  StatusWarn,
				Message: "Not present",
				Detail:  "KeeWeb creates the socket when browser integration is enabled",
			}
		}

		return Result{Status: StatusFail, Message: "Cannot stat socket", Detail: err.Error()}
	}

	if st.Mode&unix.S_IFMT != unix.S_IFSOCK {
		return Result{
			Status:  StatusFail,
			Message: "Not a socket",
			Detail:  address + " exists but is not a Unix domain socket",
		}
	}

	return Result{Status: StatusPass, Message: "Present"}
}
