package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/keeweb/keeweb-native-messaging-host/internal/paths"
)

const (
	redactedValue = "[REDACTED]"

	maxLogFileBytes = 10 << 20
	maxLogBackups   = 3
)

// sensitiveKeys are redacted wherever they appear in an attribute key.
// Relayed messages carry vault data, so anything payload-shaped counts.
var sensitiveKeys = []string{
	"authorization", "token", "api_key", "apikey", "secret", "credential",
	"password", "passphrase", "payload", "message.body", "client_key",
}

type contextKey struct{}

// Config holds the configuration for the observability logger.
type Config struct {
	Level          string
	Format         string
	LogFile        string
	StderrMode     string
	InteractiveTTY bool
	SessionID      string
	CommandPath    string
	Version        string
	Commit         string
}

// WithLogger returns a new context carrying the given logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts the logger from ctx, falling back to slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}

	return slog.Default()
}

// NewLogger creates a structured logger from the given configuration. Logs
// never go to stdout. When stderr is off and no file is given, they go to
// the default log file in the state directory.
func NewLogger(cfg *Config) (*slog.Logger, func() error, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	stderrEnabled, err := shouldEnableStderr(cfg.StderrMode, cfg.InteractiveTTY)
	if err != nil {
		return nil, nil, err
	}

	s, err := openSinks(stderrEnabled, strings.TrimSpace(cfg.LogFile))
	if err != nil {
		return nil, nil, err
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr,
	}

	var handler slog.Handler

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
		handler = slog.NewJSONHandler(s.writer(), handlerOpts)
	case "text":
		handler = slog.NewTextHandler(s.writer(), handlerOpts)
	default:
		_ = s.Close()
		return nil, nil, fmt.Errorf("invalid log format: %q (allowed: json, text)", cfg.Format)
	}

	// Browsers run one host per extension port, so pid and ppid tell
	// concurrent sessions in a shared log file apart.
	logger := slog.New(handler).With(
		slog.String("session.id", cfg.SessionID),
		slog.String("command.path", cfg.CommandPath),
		slog.String("cli.version", cfg.Version),
		slog.String("cli.commit", cfg.Commit),
		slog.Int("process.pid", os.Getpid()),
		slog.Int("process.ppid", os.Getppid()),
	)

	return logger, s.Close, nil
}

// sinks is the set of destinations a logger writes to.
type sinks struct {
	writers []io.Writer
	files   []*os.File
}

func openSinks(stderr bool, logPath string) (*sinks, error) {
	s := &sinks{}

	if stderr {
		s.writers = append(s.writers, os.Stderr)
	}

	if !stderr && logPath == "" {
		defaultPath, err := paths.DefaultLogFile()
		if err != nil {
			return nil, fmt.Errorf("no log sinks configured: set --log-file or enable --log-stderr: %w", err)
		}

		logPath = defaultPath
	}

	if logPath == "" {
		return s, nil
	}

	if err := rotateLogFile(logPath, maxLogFileBytes, maxLogBackups); err != nil {
		return nil, err
	}

	file, err := openLogFile(logPath)
	if err != nil {
		return nil, err
	}

	s.writers = append(s.writers, file)
	s.files = append(s.files, file)

	return s, nil
}

func (s *sinks) writer() io.Writer {
	if len(s.writers) == 1 {
		return s.writers[0]
	}

	return io.MultiWriter(s.writers...)
}

// Close closes every log file. Stderr is left open.
func (s *sinks) Close() error {
	var errs []error

	for _, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func openLogFile(path string) (*os.File, error) {
	if mkErr := os.MkdirAll(filepath.Dir(path), 0o700); mkErr != nil {
		return nil, fmt.Errorf("create log file directory: %w", mkErr)
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return file, nil
}

// rotateLogFile shifts path to path.1 (and path.N to path.N+1) once it
// reaches maxBytes, keeping at most backups old files.
func rotateLogFile(path string, maxBytes int64, backups int) error {
	info, err := os.Stat(path)
	if err != nil || info.Size() < maxBytes {
		return nil
	}

	oldest := fmt.Sprintf("%s.%d", path, backups)
	if removeErr := os.Remove(oldest); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		return fmt.Errorf("remove old log backup: %w", removeErr)
	}

	for i := backups - 1; i >= 1; i-- {
		from := fmt.Sprintf("%s.%d", path, i)
		to := fmt.Sprintf("%s.%d", path, i+1)

		if renameErr := os.Rename(from, to); renameErr != nil && !errors.Is(renameErr, os.ErrNotExist) {
			return fmt.Errorf("rotate log backup: %w", renameErr)
		}
	}

	if renameErr := os.Rename(path, path+".1"); renameErr != nil {
		return fmt.Errorf("rotate log file: %w", renameErr)
	}

	return nil
}

// shouldEnableStderr resolves --log-stderr. In auto mode stderr is used
// when the host runs under a browser, which captures it in its own log.
func shouldEnableStderr(mode string, interactiveTTY bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return !interactiveTTY, nil
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --log-stderr value %q (allowed: auto, on, off)", mode)
	}
}

func parseLevel(level string) (slog.Leveler, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return nil, fmt.Errorf("invalid log level: %q (allowed: error, warn, info, debug)", level)
	}
}

func redactAttr(_ []string, attr slog.Attr) slog.Attr {
	if isSensitiveKey(strings.ToLower(attr.Key)) {
		return slog.String(attr.Key, redactedValue)
	}

	return attr
}

func isSensitiveKey(key string) bool {
	for _, pattern := range sensitiveKeys {
		if strings.Contains(key, pattern) {
			return true
		}
	}

	return false
}
