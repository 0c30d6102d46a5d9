//go:build windows

package companion

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// DefaultExecutable is the companion's name on PATH.
var DefaultExecutable = "KeeWeb.exe"

// detach starts the child without a console and in its own process group,
// so closing the browser's console or sending it Ctrl+C leaves KeeWeb alone.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.DETACHED_PROCESS | windows.CREATE_NEW_PROCESS_GROUP,
	}
}
