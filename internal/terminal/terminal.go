// Package terminal detects what the process is attached to.
//
// The browser launches the host with pipes on stdin and stdout, while a
// person runs subcommands from a terminal. Detect reports both so callers
// can pick log sinks and output styling.
package terminal

import (
	"os"

	"golang.org/x/term"
)

// Info holds terminal capability information.
type Info struct {
	IsTTY     bool // stdout is a terminal
	StdinTTY  bool // stdin is a terminal
	StderrTTY bool // stderr is a terminal
	NoColor   bool
	Width     int
	ForceFlag bool // Set when --no-color flag is used
}

// Detect returns terminal information for the current environment.
func Detect() *Info {
	info := &Info{
		IsTTY:     isTerminal(os.Stdout),
		StdinTTY:  isTerminal(os.Stdin),
		StderrTTY: isTerminal(os.Stderr),
		Width:     80,
	}

	if info.IsTTY {
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 { //nolint:gosec // fd fits in int
			info.Width = w
		}
	}

	// Check NO_COLOR environment variable (https://no-color.org/)
	_, info.NoColor = os.LookupEnv("NO_COLOR")

	// Treat TERM=dumb as no-color (terminals that don't support escape sequences)
	if os.Getenv("TERM") == "dumb" {
		info.NoColor = true
	}

	return info
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}

// ColorEnabled returns true if colored output should be used.
func (t *Info) ColorEnabled() bool {
	if t.ForceFlag {
		return false
	}

	return t.IsTTY && !t.NoColor
}

// Interactive reports whether a person is at the keyboard: stdin and
// stderr are both terminals. Browser launches are never interactive.
func (t *Info) Interactive() bool {
	return t.StdinTTY && t.StderrTTY
}

// SpinnersEnabled returns true if spinners should be used.
func (t *Info) SpinnersEnabled() bool {
	return t.IsTTY && !t.NoColor && !t.ForceFlag
}
