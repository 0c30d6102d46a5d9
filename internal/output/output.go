// Package output renders human-facing results for the host's subcommands.
//
// Stdout belongs to the browser while the relay runs, so only the
// management commands (doctor, manifest, config, version) write through a
// Writer. Status lines use fatih/color when stdout is a terminal and
// plain prefixes otherwise, and --json switches commands to PrintJSON.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/keeweb/keeweb-native-messaging-host/internal/terminal"
)

type contextKey struct{}

// Status symbols
const (
	CheckMark   = "\u2713" // ✓
	XMark       = "\u2717" // ✗
	WarningMark = "\u26A0" // ⚠
	InfoMark    = "\u2139" // ℹ
)

// Writer handles CLI output with multiple modes.
type Writer struct {
	Out   io.Writer
	Err   io.Writer
	JSON  bool
	Quiet bool

	terminal  *terminal.Info
	tones     map[string]*color.Color
	mutedTone *color.Color
}

// Default returns a Writer configured for stdout/stderr.
func Default() *Writer {
	return NewWriter(os.Stdout, os.Stderr, terminal.Detect())
}

// NewWriter creates a Writer with custom writers and terminal info.
func NewWriter(out, errOut io.Writer, term *terminal.Info) *Writer {
	w := &Writer{
		Out:      out,
		Err:      errOut,
		terminal: term,
		tones: map[string]*color.Color{
			CheckMark:   color.New(color.FgGreen),
			XMark:       color.New(color.FgRed),
			WarningMark: color.New(color.FgYellow),
			InfoMark:    color.New(color.FgCyan),
		},
		mutedTone: color.New(color.FgHiBlack),
	}

	if !term.ColorEnabled() {
		color.NoColor = true
	}

	return w
}

// WithContext stores the Writer in the context.
func (w *Writer) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, w)
}

// FromContext retrieves the Writer from context, or returns Default().
func FromContext(ctx context.Context) *Writer {
	if w, ok := ctx.Value(contextKey{}).(*Writer); ok {
		return w
	}

	return Default()
}

// SetNoColor disables colored output.
func (w *Writer) SetNoColor(disabled bool) {
	w.terminal.ForceFlag = disabled
	if disabled {
		color.NoColor = true
	}
}

// Print writes to stdout (respects quiet mode).
func (w *Writer) Print(format string, args ...any) {
	if !w.Quiet {
		fmt.Fprintf(w.Out, format, args...)
	}
}

// Println writes a line to stdout (respects quiet mode).
func (w *Writer) Println(args ...any) {
	if !w.Quiet {
		fmt.Fprintln(w.Out, args...)
	}
}

// PrintJSON outputs structured data as indented JSON. Quiet mode does not
// apply: scripts asked for the data.
func (w *Writer) PrintJSON(v any) error {
	enc := json.NewEncoder(w.Out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(v)
}

// KeyValues prints aligned "key  value" rows.
func (w *Writer) KeyValues(rows [][2]string) {
	width := 0
	for _, row := range rows {
		width = max(width, len(row[0]))
	}

	for _, row := range rows {
		w.Print("%-*s  %s\n", width, row[0], row[1])
	}
}

func (w *Writer) status(dst io.Writer, mark, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	if w.terminal.ColorEnabled() {
		w.tones[mark].Fprint(dst, mark+" ")
		fmt.Fprintln(dst, msg)

		return
	}

	fmt.Fprintln(dst, mark+" "+msg)
}

// Success writes a success message with a checkmark.
func (w *Writer) Success(format string, args ...any) {
	if !w.Quiet {
		w.status(w.Out, CheckMark, format, args...)
	}
}

// Failure writes an error message with an X mark to stderr. Quiet mode
// does not suppress failures.
func (w *Writer) Failure(format string, args ...any) {
	w.status(w.Err, XMark, format, args...)
}

// Warning writes a warning message.
func (w *Writer) Warning(format string, args ...any) {
	if !w.Quiet {
		w.status(w.Out, WarningMark, format, args...)
	}
}

// Info writes an info message.
func (w *Writer) Info(format string, args ...any) {
	if !w.Quiet {
		w.status(w.Out, InfoMark, format, args...)
	}
}

// Muted writes gray secondary text to stdout.
func (w *Writer) Muted(format string, args ...any) {
	if !w.Quiet {
		w.muted(w.Out, format, args...)
	}
}

// Hint writes gray secondary text to stderr, under a Failure.
func (w *Writer) Hint(format string, args ...any) {
	w.muted(w.Err, format, args...)
}

func (w *Writer) muted(dst io.Writer, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	if w.terminal.ColorEnabled() {
		w.mutedTone.Fprintln(dst, msg)
		return
	}

	fmt.Fprintln(dst, msg)
}

// Spinner wraps briandowns/spinner with a plain-text fallback.
type Spinner struct {
	spinner *spinner.Spinner
	message string
	writer  *Writer
}

// Spinner creates a spinner for an operation that may take a while. It
// degrades to "message... done" when stdout is not a terminal.
func (w *Writer) Spinner(message string) *Spinner {
	s := &Spinner{message: message, writer: w}

	if !w.Quiet && w.terminal.SpinnersEnabled() {
		s.spinner = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w.Out))
		s.spinner.Suffix = " " + message
	}

	return s
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	if s.spinner == nil {
		s.writer.Print("%s... ", s.message)
		return
	}

	s.spinner.Start()
}

// StopWithSuccess stops the spinner and reports success.
func (s *Spinner) StopWithSuccess(message string) {
	s.stop("done")

	if message != "" {
		s.writer.Success("%s", message)
	}
}

// StopWithFailure stops the spinner and reports failure.
func (s *Spinner) StopWithFailure(message string) {
	s.stop("failed")

	if message != "" {
		s.writer.Failure("%s", message)
	}
}

// StopWithWarning stops the spinner and reports a warning.
func (s *Spinner) StopWithWarning(message string) {
	s.stop("warning")

	if message != "" {
		s.writer.Warning("%s", message)
	}
}

func (s *Spinner) stop(plain string) {
	if s.spinner == nil {
		s.writer.Println(plain)
		return
	}

	s.spinner.Stop()
}
