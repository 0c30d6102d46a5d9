package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/keeweb/keeweb-native-messaging-host/internal/paths"
)

// Location is where a manifest for one browser and extension lives.
type Location struct {
	Browser   Browser
	Extension Extension

	// File is the manifest path.
	File string

	// Key is the HKCU registry key pointing at File. Empty where browsers
	// find manifests by directory.
	Key string
}

// keyStore reads and writes the registry values that point browsers at a
// manifest file.
type keyStore interface {
	Set(key, file string) error
	Get(key string) (string, bool, error)
	Delete(key string) error
}

// Installer writes and removes manifests for the current user.
type Installer struct {
	// Home replaces os.UserHomeDir.
	Home string

	// Dir replaces paths.ManifestDir on platforms that keep manifests in
	// the host's own config directory.
	Dir string

	keys keyStore
}

// NewInstaller returns an installer for the running platform.
func NewInstaller() *Installer {
	return &Installer{keys: platformKeys{}}
}

func (i *Installer) home() (string, error) {
	if i.Home != "" {
		return i.Home, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return home, nil
}

func (i *Installer) dir() (string, error) {
	if i.Dir != "" {
		return i.Dir, nil
	}

	return paths.ManifestDir()
}

func (i *Installer) store() keyStore {
	if i.keys == nil {
		return platformKeys{}
	}

	return i.keys
}

// Locate returns where the manifest for b and e is installed.
func (i *Installer) Locate(b Browser, e Extension) (Location, error) {
	if e.HostName() == "" {
		return Location{}, fmt.Errorf("unknown extension %q", e)
	}

	file, err := manifestFile(i, b, e)
	if err != nil {
		return Location{}, err
	}

	return Location{Browser: b, Extension: e, File: file, Key: registryKey(b, e)}, nil
}

// Install writes the manifest that lets e in b start hostPath, creating
// the directory when needed, and registers it where the platform requires.
func (i *Installer) Install(b Browser, e Extension, hostPath string) (Location, error) {
	m, err := Build(b, e, hostPath)
	if err != nil {
		return Location{}, err
	}

	loc, err := i.Locate(b, e)
	if err != nil {
		return Location{}, err
	}

	data, err := m.Marshal()
	if err != nil {
		return loc, err
	}

	if err := os.MkdirAll(filepath.Dir(loc.File), 0o755); err != nil {
		return loc, fmt.Errorf("create manifest directory: %w", err)
	}

	if err := os.WriteFile(loc.File, data, 0o644); err != nil { //nolint:gosec // browsers read manifests as the same user
		return loc, fmt.Errorf("write manifest: %w", err)
	}

	if loc.Key != "" {
		if err := i.store().Set(loc.Key, loc.File); err != nil {
			return loc, fmt.Errorf("register manifest: %w", err)
		}
	}

	return loc, nil
}

// Uninstall removes the manifest for b and e. It reports whether anything
// was removed; a manifest that was never installed is not an error.
func (i *Installer) Uninstall(b Browser, e Extension) (Location, bool, error) {
	loc, err := i.Locate(b, e)
	if err != nil {
		return Location{}, false, err
	}

	removed := false

	if loc.Key != "" {
		_, ok, err := i.store().Get(loc.Key)
		if err != nil {
			return loc, false, fmt.Errorf("read registry key: %w", err)
		}

		if ok {
			if err := i.store().Delete(loc.Key); err != nil {
				return loc, false, fmt.Errorf("delete registry key: %w", err)
			}

			removed = true
		}
	}

	switch err := os.Remove(loc.File); {
	case err == nil:
		removed = true
	case !errors.Is(err, fs.ErrNotExist):
		return loc, removed, fmt.Errorf("remove manifest: %w", err)
	}

	return loc, removed, nil
}

// Installed reports whether a manifest for b and e is in place. Where a
// registry key is required, the key must point at the manifest file.
func (i *Installer) Installed(b Browser, e Extension) (Location, bool, error) {
	loc, err := i.Locate(b, e)
	if err != nil {
		return Location{}, false, err
	}

	if _, err := os.Stat(loc.File); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return loc, false, nil
		}

		return loc, false, fmt.Errorf("stat manifest: %w", err)
	}

	if loc.Key == "" {
		return loc, true, nil
	}

	value, ok, err := i.store().Get(loc.Key)
	if err != nil {
		return loc, false, fmt.Errorf("read registry key: %w", err)
	}

	return loc, ok && value == loc.File, nil
}
