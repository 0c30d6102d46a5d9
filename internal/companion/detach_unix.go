//go:build !windows

package companion

import (
	"os/exec"
	"syscall"
)

// DefaultExecutable is the companion's name on PATH.
var DefaultExecutable = defaultExecutable()

// detach puts the child in its own session so terminal and process-group
// signals aimed at the browser do not reach it.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
