// Package companion starts the KeeWeb desktop app when nothing is listening
// on its browser-extension socket.
package companion

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// LaunchArg tells KeeWeb it was started on behalf of a browser extension.
const LaunchArg = "--browser-extension"

// Launcher spawns the companion app detached from this process, so it keeps
// running after the host exits.
type Launcher struct {
	// Executable is a path or a name looked up on PATH. Defaults to
	// DefaultExecutable.
	Executable string

	// Arg is the single launch flag. Defaults to LaunchArg.
	Arg string

	// Logger receives launch diagnostics. Defaults to slog.Default.
	Logger *slog.Logger
}

func (l *Launcher) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}

	return slog.Default()
}

// Launch starts the companion and returns once the process exists. It does
// not wait for the app to start listening.
func (l *Launcher) Launch(ctx context.Context) error {
	executable := l.Executable
	if executable == "" {
		executable = DefaultExecutable
	}

	arg := l.Arg
	if arg == "" {
		arg = LaunchArg
	}

	path, err := exec.LookPath(executable)
	if err != nil {
		return fmt.Errorf("find companion %q: %w", executable, err)
	}

	// Not CommandContext: cancelling ctx must not kill the companion.
	cmd := exec.Command(path, arg) //nolint:gosec // executable comes from trusted configuration
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start companion %q: %w", path, err)
	}

	pid := cmd.Process.Pid

	if err := cmd.Process.Release(); err != nil {
		l.logger().WarnContext(ctx, "release companion process failed",
			slog.Int("pid", pid),
			slog.String("error", err.Error()),
		)
	}

	l.logger().InfoContext(ctx, "companion launched",
		slog.String("event.type", "companion.launch"),
		slog.String("path", path),
		slog.Int("pid", pid),
	)

	return nil
}
