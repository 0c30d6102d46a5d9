//go:build windows

package manifest

import (
	"fmt"
	"path/filepath"
	"slices"
)

// manifestFile keeps one file per host and browser family in the host's
// config directory, since the registry key carries the lookup.
func manifestFile(i *Installer, b Browser, e Extension) (string, error) {
	if !slices.Contains(Browsers(), b) {
		return "", fmt.Errorf("unknown browser %q", b)
	}

	dir, err := i.dir()
	if err != nil {
		return "", err
	}

	family := "chrome"
	if b == Firefox {
		family = "firefox"
	}

	return filepath.Join(dir, fmt.Sprintf("%s.%s.json", e.HostName(), family)), nil
}
