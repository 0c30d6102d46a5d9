// Package paths resolves the per-user directories the host reads and writes.
//
// Browsers start the host with whatever environment they were started with,
// which often lacks XDG variables, so every root falls back to the OS
// default and then to a directory under the home directory.
package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "keeweb-native-messaging-host"

// root describes one per-user directory tree.
type root struct {
	xdgEnv  string
	osDir   func() (string, error)
	homeDir string
}

var (
	configTree = root{
		xdgEnv:  "XDG_CONFIG_HOME",
		osDir:   os.UserConfigDir,
		homeDir: ".config",
	}

	stateTree = root{
		xdgEnv:  "XDG_STATE_HOME",
		osDir:   osStateDir,
		homeDir: filepath.Join(".local", "state"),
	}
)

// osStateDir is %LocalAppData% on Windows. Elsewhere there is no OS state
// directory and the home fallback applies.
func osStateDir() (string, error) {
	if runtime.GOOS == "windows" {
		return os.UserCacheDir()
	}

	return "", errors.ErrUnsupported
}

func (r root) resolve() (string, error) {
	if xdg := os.Getenv(r.xdgEnv); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, appName), nil
	}

	dir, err := r.osDir()
	if err == nil && dir != "" {
		return filepath.Join(dir, appName), nil
	}

	home, homeErr := os.UserHomeDir()
	if homeErr == nil && home != "" {
		return filepath.Join(home, r.homeDir, appName), nil
	}

	return "", errors.Join(errors.New("resolve user home directory"), homeErr)
}

func (r root) join(elem ...string) (string, error) {
	dir, err := r.resolve()
	if err != nil {
		return "", err
	}

	return filepath.Join(append([]string{dir}, elem...)...), nil
}

// ConfigRoot returns the user config root directory for the host.
func ConfigRoot() (string, error) {
	return configTree.resolve()
}

// ConfigFile returns the YAML file settings are read from and written to.
func ConfigFile() (string, error) {
	return configTree.join("config.yaml")
}

// StateRoot returns the user state root directory for the host.
func StateRoot() (string, error) {
	return stateTree.resolve()
}

// LogsDir returns the default log directory.
func LogsDir() (string, error) {
	return stateTree.join("logs")
}

// DefaultLogFile returns the default log file path.
func DefaultLogFile() (string, error) {
	return stateTree.join("logs", appName+".log")
}

// ManifestDir returns where manifests are kept on platforms that register
// them elsewhere (the Windows registry points at files in this directory).
func ManifestDir() (string, error) {
	return configTree.join("manifests")
}
