// Package doctor provides diagnostic checks for the native messaging host.
//
// The checks mirror what the relay needs at run time:
//   - the socket address derives for the current user and fits the platform limit
//   - something is listening at that address
//   - the KeeWeb app can be found for auto-launch
//   - browser manifests point at this host
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/keeweb/keeweb-native-messaging-host/internal/manifest"
	"github.com/keeweb/keeweb-native-messaging-host/internal/origin"
	"github.com/keeweb/keeweb-native-messaging-host/internal/pipe"
)

// Status represents the result of a diagnostic check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical failure.
	StatusFail
)

// String returns the lowercase status name used in JSON output.
func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// MarshalText renders the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result holds the outcome of a single check.
type Result struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Check is a diagnostic check function.
type Check func(ctx context.Context) Result

// Env is what the checks inspect. Zero fields fall back to the real
// platform: the default resolver, pipe.Dial, exec.LookPath and a fresh
// manifest installer.
type Env struct {
	Resolver    pipe.Resolver
	Dial        func(ctx context.Context, address string) (io.Closer, error)
	DialTimeout time.Duration

	// Executable is the KeeWeb app launched when nothing is listening.
	// Empty disables the check.
	Executable string
	LookPath   func(file string) (string, error)

	Installer *manifest.Installer
	AllowList *origin.AllowList
}

// Runner executes diagnostic checks.
type Runner struct {
	env    Env
	checks []namedCheck
}

type namedCheck struct {
	name  string
	check Check
}

// New creates a runner with the default checks registered.
func New(env Env) *Runner {
	if env.Resolver == nil {
		env.Resolver = pipe.NewResolver(pipe.Options{})
	}

	if env.Dial == nil {
		env.Dial = func(ctx context.Context, address string) (io.Closer, error) {
			return pipe.Dial(ctx, address)
		}
	}

	if env.DialTimeout <= 0 {
		env.DialTimeout = 2 * time.Second
	}

	if env.LookPath == nil {
		env.LookPath = exec.LookPath
	}

	if env.Installer == nil {
		env.Installer = manifest.NewInstaller()
	}

	if env.AllowList == nil {
		env.AllowList = origin.Default()
	}

	r := &Runner{env: env}

	r.AddCheck("Socket Address", r.checkAddress)
	r.AddCheck("Socket", r.checkSocket)
	r.AddCheck("KeeWeb Connection", r.checkConnection)
	r.AddCheck("KeeWeb App", r.checkApp)
	r.AddCheck("Manifests", r.checkManifests)
	r.AddCheck("Allowed Origins", r.checkOrigins)

	return r
}

// AddCheck registers a diagnostic check.
func (r *Runner) AddCheck(name string, check Check) {
	r.checks = append(r.checks, namedCheck{name: name, check: check})
}

// Run executes all registered checks and returns the results.
func (r *Runner) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(r.checks))

	for _, nc := range r.checks {
		result := nc.check(ctx)
		result.Name = nc.name
		results = append(results, result)
	}

	return results
}

// Summary returns counts of passed, failed, and warning checks.
func Summary(results []Result) (passed, failed, warnings int) {
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusWarn:
			warnings++
		}
	}

	return passed, failed, warnings
}

// Report is the JSON form of a doctor run.
type Report struct {
	Results  []Result `json:"results"`
	Passed   int      `json:"passed"`
	Failed   int      `json:"failed"`
	Warnings int      `json:"warnings"`
}

// NewReport summarizes results.
func NewReport(results []Result) Report {
	passed, failed, warnings := Summary(results)

	return Report{Results: results, Passed: passed, Failed: failed, Warnings: warnings}
}

func (r *Runner) checkAddress(context.Context) Result {
	address, err := r.env.Resolver.Resolve()
	if err != nil {
		return Result{
			Status:  StatusFail,
			Message: "Cannot derive socket address",
			Detail:  err.Error(),
		}
	}

	if pipe.TooLong(address) {
		return Result{
			Status:  StatusFail,
			Message: address,
			Detail:  fmt.Sprintf("Address is %d bytes, longer than the platform allows; set connect.socket or a shorter TMPDIR", len(address)),
		}
	}

	return Result{Status: StatusPass, Message: address}
}

func (r *Runner) checkSocket(context.Context) Result {
	address, err := r.env.Resolver.Resolve()
	if err != nil {
		return Result{Status: StatusFail, Message: "Socket address unavailable"}
	}

	return inspectSocket(address)
}

func (r *Runner) checkConnection(ctx context.Context) Result {
	address, err := r.env.Resolver.Resolve()
	if err != nil {
		return Result{Status: StatusFail, Message: "Socket address unavailable"}
	}

	dialCtx, cancel := context.WithTimeout(ctx, r.env.DialTimeout)
	defer cancel()

	start := time.Now()

	conn, err := r.env.Dial(dialCtx, address)
	elapsed := time.Since(start)

	if err != nil {
		status := StatusWarn
		if errors.Is(err, context.DeadlineExceeded) {
			status = StatusFail
		}

		return Result{
			Status:  status,
			Message: "KeeWeb is not accepting connections",
			Detail:  "Start KeeWeb and enable browser integration: " + err.Error(),
		}
	}

	_ = conn.Close()

	return Result{
		Status:  StatusPass,
		Message: fmt.Sprintf("Connected (%dms)", elapsed.Milliseconds()),
	}
}

func (r *Runner) checkApp(context.Context) Result {
	if r.env.Executable == "" {
		return Result{Status: StatusPass, Message: "Auto-launch disabled"}
	}

	path, err := r.env.LookPath(r.env.Executable)
	if err != nil {
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s not found", r.env.Executable),
			Detail:  "Set companion.executable to the KeeWeb binary so the host can start it",
		}
	}

	return Result{Status: StatusPass, Message: path}
}

func (r *Runner) checkManifests(context.Context) Result {
	var installed, failures []string

	for _, b := range manifest.Browsers() {
		for _, e := range manifest.Extensions() {
			_, ok, err := r.env.Installer.Installed(b, e)
			if err != nil {
				failures = append(failures, fmt.Sprintf("%s/%s: %v", b, e, err))
				continue
			}

			if ok {
				installed = append(installed, fmt.Sprintf("%s/%s", b, e))
			}
		}
	}

	if len(failures) > 0 {
		return Result{
			Status:  StatusWarn,
			Message: "Could not inspect manifests",
			Detail:  strings.Join(failures, "; "),
		}
	}

	if len(installed) == 0 {
		return Result{
			Status:  StatusWarn,
			Message: "No manifests installed",
			Detail:  "Run 'keeweb-native-messaging-host manifest install --browser chrome' to register the host",
		}
	}

	return Result{Status: StatusPass, Message: strings.Join(installed, ", ")}
}

func (r *Runner) checkOrigins(context.Context) Result {
	origins := r.env.AllowList.Origins()

	return Result{
		Status:  StatusPass,
		Message: fmt.Sprintf("%d accepted", len(origins)),
		Detail:  strings.Join(origins, " "),
	}
}

// Printer is the subset of output.Writer used to render results.
type Printer interface {
	Print(format string, args ...any)
	Success(format string, args ...any)
	Warning(format string, args ...any)
	Failure(format string, args ...any)
	Muted(format string, args ...any)
}

// RenderResults writes one aligned status line per result, with details
// indented beneath.
func RenderResults(results []Result, p Printer) {
	width := 0
	for _, r := range results {
		width = max(width, len(r.Name))
	}

	for _, r := range results {
		switch r.Status {
		case StatusPass:
			p.Success("%-*s%s", width+4, r.Name, r.Message)
		case StatusWarn:
			p.Warning("%-*s%s", width+4, r.Name, r.Message)
		case StatusFail:
			p.Failure("%-*s%s", width+4, r.Name, r.Message)
		default:
			p.Print("? %-*s%s\n", width+4, r.Name, r.Message)
		}

		if r.Detail != "" {
			p.Muted("    %s", r.Detail)
		}
	}
}
