//go:build linux

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

	var dir string

	switch b {
	case Chrome:
		dir = filepath.Join(home, ".config", "google-chrome", "NativeMessagingHosts")
	case Firefox:
		dir = filepath.Join(home, ".mozilla", "native-messaging-hosts")
	case Edge:
		dir = filepath.Join(home, ".config", "microsoft-edge", "NativeMessagingHosts")
	default:
		return "", fmt.Errorf("unknown browser %q", b)
	}

	return filepath.Join(dir, e.FileName()), nil
}
