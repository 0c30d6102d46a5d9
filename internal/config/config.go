// Package config handles host configuration using Viper.
//
// Configuration sources (in priority order):
//  1. Environment variables (KEEWEB_NMH_*)
//  2. Config file (<config root>/config.yaml)
//  3. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/keeweb/keeweb-native-messaging-host/internal/paths"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "KEEWEB_NMH"

// Configuration keys.
const (
	KeyCompanionExecutable = "companion.executable"
	KeyCompanionLaunchArg  = "companion.launch_arg"
	KeyCompanionLaunch     = "companion.launch"
	KeySocket              = "connect.socket"
	KeyMaxAttempts         = "connect.max_attempts"
	KeyRetryDelay          = "connect.retry_delay"
	KeyDialTimeout         = "connect.dial_timeout"
	KeyReadBufferSize      = "relay.read_buffer_size"
	KeyQueueHighWater      = "relay.queue_high_water"
	KeyQueueLowWater       = "relay.queue_low_water"
	KeyDrainTimeout        = "relay.drain_timeout"
	KeyExtraOrigins        = "origins.extra"
)

const (
	// DefaultLaunchArg is passed to KeeWeb when it is started by the host.
	DefaultLaunchArg = "--browser-extension"
	// DefaultMaxAttempts bounds connection attempts before giving up.
	DefaultMaxAttempts = 10
	// DefaultRetryDelay is the wait between connection attempts.
	DefaultRetryDelay = 500 * time.Millisecond
	// DefaultDialTimeout bounds a single connection attempt.
	DefaultDialTimeout = 2 * time.Second
	// DefaultReadBufferSize is the size of each read from stdin or KeeWeb.
	DefaultReadBufferSize = 64 << 10
	// DefaultQueueHighWater pauses the reader feeding a full queue.
	DefaultQueueHighWater = 1 << 20
	// DefaultQueueLowWater resumes a paused reader.
	DefaultQueueLowWater = 256 << 10
	// DefaultDrainTimeout bounds flushing stdout during shutdown.
	DefaultDrainTimeout = 5 * time.Second
)

var knownKeys = []string{
	KeyCompanionExecutable,
	KeyCompanionLaunchArg,
	KeyCompanionLaunch,
	KeySocket,
	KeyMaxAttempts,
	KeyRetryDelay,
	KeyDialTimeout,
	KeyReadBufferSize,
	KeyQueueHighWater,
	KeyQueueLowWater,
	KeyDrainTimeout,
	KeyExtraOrigins,
}

// Config holds the host configuration.
type Config struct {
	v *viper.Viper
}

// Load reads configuration from all sources.
func Load() *Config {
	v := viper.New()

	v.SetDefault(KeyCompanionExecutable, "")
	v.SetDefault(KeyCompanionLaunchArg, DefaultLaunchArg)
	v.SetDefault(KeyCompanionLaunch, true)
	v.SetDefault(KeySocket, "")
	v.SetDefault(KeyMaxAttempts, DefaultMaxAttempts)
	v.SetDefault(KeyRetryDelay, DefaultRetryDelay)
	v.SetDefault(KeyDialTimeout, DefaultDialTimeout)
	v.SetDefault(KeyReadBufferSize, DefaultReadBufferSize)
	v.SetDefault(KeyQueueHighWater, DefaultQueueHighWater)
	v.SetDefault(KeyQueueLowWater, DefaultQueueLowWater)
	v.SetDefault(KeyDrainTimeout, DefaultDrainTimeout)
	v.SetDefault(KeyExtraOrigins, []string{})

	if configDir, err := paths.ConfigRoot(); err == nil {
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Stdout belongs to the browser, so warnings go to stderr.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Warning: error reading config file: %v\n", err)
		}
	}

	return &Config{v: v}
}

// Keys returns every recognised configuration key.
func Keys() []string {
	return slices.Clone(knownKeys)
}

// IsKnownKey reports whether key is a recognised configuration key.
func IsKnownKey(key string) bool {
	return slices.Contains(knownKeys, key)
}

// Get returns a configuration value.
func (c *Config) Get(key string) interface{} {
	return c.v.Get(key)
}

// GetString returns a configuration value as string.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns a configuration value as int.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// Set sets a configuration value and persists it. Only keys already in the
// file plus key are written, so defaults stay defaults.
func (c *Config) Set(key string, value interface{}) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	configFile, err := File()
	if err != nil {
		return err
	}

	file := viper.New()
	file.SetConfigFile(configFile)

	if err := file.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	file.Set(key, value)
	c.v.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
		return err
	}

	return file.WriteConfigAs(configFile)
}

// File returns the path Set writes to.
func File() (string, error) {
	return paths.ConfigFile()
}

// CompanionExecutable returns the KeeWeb executable override, or "".
func (c *Config) CompanionExecutable() string {
	return c.GetString(KeyCompanionExecutable)
}

// LaunchArg returns the argument KeeWeb is started with.
func (c *Config) LaunchArg() string {
	return c.GetString(KeyCompanionLaunchArg)
}

// LaunchEnabled reports whether the host may start KeeWeb.
func (c *Config) LaunchEnabled() bool {
	return c.v.GetBool(KeyCompanionLaunch)
}

// SocketOverride returns the configured socket address, or "".
func (c *Config) SocketOverride() string {
	return c.GetString(KeySocket)
}

// MaxAttempts returns the connection attempt limit.
func (c *Config) MaxAttempts() int {
	return c.GetInt(KeyMaxAttempts)
}

// RetryDelay returns the wait between connection attempts.
func (c *Config) RetryDelay() time.Duration {
	return c.v.GetDuration(KeyRetryDelay)
}

// DialTimeout returns the timeout for one connection attempt.
func (c *Config) DialTimeout() time.Duration {
	return c.v.GetDuration(KeyDialTimeout)
}

// ReadBufferSize returns the per-read buffer size.
func (c *Config) ReadBufferSize() int {
	return c.GetInt(KeyReadBufferSize)
}

// QueueHighWater returns the backpressure pause threshold in bytes.
func (c *Config) QueueHighWater() int {
	return c.GetInt(KeyQueueHighWater)
}

// QueueLowWater returns the backpressure resume threshold in bytes.
func (c *Config) QueueLowWater() int {
	return c.GetInt(KeyQueueLowWater)
}

// DrainTimeout returns how long stdout may take to flush on shutdown.
func (c *Config) DrainTimeout() time.Duration {
	return c.v.GetDuration(KeyDrainTimeout)
}

// ExtraOrigins returns additional allowed origins. The environment form is
// a comma or whitespace separated list.
func (c *Config) ExtraOrigins() []string {
	var origins []string

	for _, item := range c.v.GetStringSlice(KeyExtraOrigins) {
		for _, field := range strings.FieldsFunc(item, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		}) {
			origins = append(origins, field)
		}
	}

	return origins
}

// Validate checks that numeric settings are usable.
func (c *Config) Validate() error {
	var errs []error

	if c.MaxAttempts() < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1, got %d", KeyMaxAttempts, c.MaxAttempts()))
	}

	if c.ReadBufferSize() < 1 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", KeyReadBufferSize, c.ReadBufferSize()))
	}

	high, low := c.QueueHighWater(), c.QueueLowWater()
	if high < 1 || low < 1 || low > high {
		errs = append(errs, fmt.Errorf("%s (%d) and %s (%d) must be positive with low <= high",
			KeyQueueLowWater, low, KeyQueueHighWater, high))
	}

	if c.RetryDelay() < 0 || c.DialTimeout() < 0 || c.DrainTimeout() < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}

	return errors.Join(errs...)
}
