//go:build !linux && !darwin && !windows

package manifest

import (
	"errors"
	"fmt"
	"runtime"
)

func manifestFile(*Installer, Browser, Extension) (string, error) {
	return "", fmt.Errorf("native messaging manifests on %s: %w", runtime.GOOS, errors.ErrUnsupported)
}
