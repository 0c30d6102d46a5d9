// Package main is the entry point for the KeeWeb native messaging host.
//
// Browsers start the host with the calling extension's origin as its
// argument and talk to it over stdin/stdout. Run by hand, the subcommands
// install browser manifests and diagnose the connection to KeeWeb.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/keeweb/keeweb-native-messaging-host/internal/buildinfo"
	clierrors "github.com/keeweb/keeweb-native-messaging-host/internal/errors"
	"github.com/keeweb/keeweb-native-messaging-host/internal/observability"
	"github.com/keeweb/keeweb-native-messaging-host/internal/output"
	"github.com/keeweb/keeweb-native-messaging-host/internal/terminal"
)

const binaryName = "keeweb-native-messaging-host"

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = ""
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	buildinfo.Version = version
	buildinfo.Commit = commit
	buildinfo.Date = date

	out := output.Default()

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		return handleError(out, err)
	}

	return clierrors.ExitSuccess
}

// handleError reports err on stderr and returns the exit code. Stdout is
// never touched: while relaying it belongs to the browser.
func handleError(out *output.Writer, err error) int {
	var cliErr *clierrors.CLIError
	if clierrors.As(err, &cliErr) {
		out.Failure("%s", cliErr.Message)

		if cliErr.Cause != nil {
			out.Hint("  %v", cliErr.Cause)
		}

		if cliErr.Hint != "" {
			out.Hint("%s", cliErr.Hint)
		}

		return cliErr.Code
	}

	errStr := err.Error()

	if strings.HasPrefix(errStr, "unknown command") ||
		strings.HasPrefix(errStr, "unknown flag") ||
		strings.HasPrefix(errStr, "unknown shorthand flag") ||
		strings.Contains(errStr, "required flag") {
		out.Failure("%s", errStr)
		out.Hint("Run '%s --help' for usage", binaryName)

		return clierrors.ExitUsage
	}

	out.Failure("%s", errStr)

	return clierrors.ExitGeneral
}

func newRootCmd() *cobra.Command {
	var (
		jsonOutput bool
		quiet      bool
		noColor    bool
		logLevel   string
		logFormat  string
		logFile    string
		logStderr  string
	)

	rootCmd := &cobra.Command{
		Use:   binaryName + " <origin>...",
		Short: "Connect KeeWeb browser extensions to KeeWeb",
		Long: `Relays native messages between a browser extension and the KeeWeb desktop app.

Browsers start the host themselves, passing the calling extension's origin.
Every byte read from stdin is forwarded to KeeWeb's local socket and every
byte KeeWeb sends back is written to stdout. If KeeWeb is not running the
host starts it once and keeps retrying the connection.`,
		Example: `  ` + binaryName + ` chrome-extension://npmnaajonabmkjekongmjhdjpjdlhpkp/
  ` + binaryName + ` manifest install --browser firefox
  ` + binaryName + ` doctor`,
		Args:               originArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			term := terminal.Detect()

			out := output.NewWriter(cmd.OutOrStdout(), cmd.ErrOrStderr(), term)
			out.JSON = pickBoolFlagOrEnv(jsonOutput, "KEEWEB_NMH_JSON")
			out.Quiet = pickBoolFlagOrEnv(quiet, "KEEWEB_NMH_QUIET")

			if noColor {
				out.SetNoColor(true)

				color.NoColor = true
			}

			sessionID := uuid.NewString()

			logCfg := observability.Config{
				Level:          pickFlagOrEnv(logLevel, "KEEWEB_NMH_LOG_LEVEL", "info"),
				Format:         pickFlagOrEnv(logFormat, "KEEWEB_NMH_LOG_FORMAT", "json"),
				LogFile:        pickFlagOrEnv(logFile, "KEEWEB_NMH_LOG_FILE", ""),
				StderrMode:     pickFlagOrEnv(logStderr, "KEEWEB_NMH_LOG_STDERR", "auto"),
				InteractiveTTY: term.Interactive(),
				SessionID:      sessionID,
				CommandPath:    cmd.CommandPath(),
				Version:        version,
				Commit:         buildinfo.VCSCommit(),
			}

			logger, cleanup, err := observability.NewLogger(&logCfg)
			if err != nil {
				return clierrors.Wrap(clierrors.ExitUsage, "Invalid logging configuration", err).
					WithHint("Use --log-level (error|warn|info|debug), --log-format (json|text), --log-stderr (auto|on|off), and/or --log-file")
			}

			slog.SetDefault(logger)

			ctx := out.WithContext(cmd.Context())
			ctx = observability.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			if cleanup != nil {
				cmd.PostRunE = wrapPostRunCleanup(cmd.PostRunE, cleanup)
			}

			telemetryCfg := &observability.TelemetryConfig{
				Enabled:   observability.IsTelemetryEnabled(),
				Version:   version,
				Commit:    buildinfo.VCSCommit(),
				SessionID: sessionID,
			}

			telemetryShutdown, telemetryErr := observability.SetupTelemetry(ctx, telemetryCfg)
			if telemetryErr != nil {
				logger.Warn("telemetry initialization failed", slog.String("error", telemetryErr.Error()))
			}

			if telemetryShutdown != nil {
				cmd.PostRunE = wrapNamedPostRunCleanup(cmd.PostRunE, "telemetry resources", func() error {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()

					return telemetryShutdown(shutdownCtx)
				})
			}

			return nil
		},
		RunE: runRelay,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Minimal output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: error, warn, info, debug")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json, text")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Optional structured log file path")
	rootCmd.PersistentFlags().StringVar(&logStderr, "log-stderr", "", "Structured logging to stderr: auto, on, off")

	rootCmd.SuggestionsMinimumDistance = 2

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return clierrors.New(clierrors.ExitUsage, err.Error()).
			WithHint(fmt.Sprintf("Run '%s --help' for available flags", cmd.CommandPath()))
	})

	rootCmd.AddCommand(newManifestCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDoctorCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

func wrapPostRunCleanup(postRun func(*cobra.Command, []string) error, cleanup func() error) func(*cobra.Command, []string) error {
	return wrapNamedPostRunCleanup(postRun, "logger resources", cleanup)
}

func wrapNamedPostRunCleanup(postRun func(*cobra.Command, []string) error, name string, cleanup func() error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if postRun != nil {
			if err := postRun(cmd, args); err != nil {
				_ = cleanup()
				return err
			}
		}

		if err := cleanup(); err != nil {
			return fmt.Errorf("cleanup %s: %w", name, err) //nolint:rawerror // internal cleanup, not user-facing
		}

		return nil
	}
}

func pickBoolFlagOrEnv(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}

	v := strings.ToLower(strings.TrimSpace(os.Getenv(envKey)))

	return v == "1" || v == "true" || v == "yes"
}

func pickFlagOrEnv(flagValue, envKey, fallback string) string {
	trimmed := strings.TrimSpace(flagValue)
	if trimmed != "" {
		return trimmed
	}

	if envValue := strings.TrimSpace(os.Getenv(envKey)); envValue != "" {
		return envValue
	}

	return fallback
}

// noArgs rejects positional arguments with a clearer message than
// cobra.NoArgs.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return clierrors.New(clierrors.ExitUsage, fmt.Sprintf("'%s' accepts no arguments", cmd.CommandPath())).
			WithHint(fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()))
	}

	return nil
}

// VersionInfo represents version information for JSON output.
type VersionInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   "Show version information",
		Long:    `Display the host binary version, git commit, and build date.`,
		Example: `  ` + binaryName + ` version`,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			info := VersionInfo{
				Version: buildinfo.Version,
				Commit:  buildinfo.VCSCommit(),
				Date:    buildinfo.Date,
			}

			if info.Commit == "" {
				info.Commit = "none"
			}

			if out.JSON {
				return out.PrintJSON(info)
			}

			out.Print("%s %s\n", binaryName, info.Version)
			out.Print("  commit: %s\n", info.Commit)
			out.Print("  built:  %s\n", info.Date)

			return nil
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion <bash|zsh|fish|powershell>",
		Short: "Generate shell completion scripts",
		Long:  `Write a completion script for the given shell to stdout.`,
		Example: `  ` + binaryName + ` completion bash > /etc/bash_completion.d/` + binaryName + `
  ` + binaryName + ` completion zsh > "${fpath[1]}/_` + binaryName + `"`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			w := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(w, true)
			case "zsh":
				return root.GenZshCompletion(w)
			case "fish":
				return root.GenFishCompletion(w, true)
			default:
				return root.GenPowerShellCompletionWithDesc(w)
			}
		},
	}
}
