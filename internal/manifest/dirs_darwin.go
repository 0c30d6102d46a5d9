//go:build darwin

package manifest

import (
	"fmt"
	"path/filepath"
)

func manifestFile(i *Installer, b Browser, e Extension) (string, error) {
	home, err := i.home()
	if err != nil {
		return "", err
	}

	support := filepath.Join(home, "Library", "Application Support")

	var dir string

	switch b {
	case Chrome:
		dir = filepath.Join(support, "Google", "Chrome", "NativeMessagingHosts")
	case Firefox:
		dir = filepath.Join(support, "Mozilla", "NativeMessagingHosts")
	case Edge:
		dir = filepath.Join(support, "Microsoft Edge", "NativeMessagingHosts")
	default:
		return "", fmt.Errorf("unknown browser %q", b)
	}

	return filepath.Join(dir, e.FileName()), nil
}
