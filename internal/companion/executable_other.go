//go:build !darwin && !windows

package companion

func defaultExecutable() string { return "keeweb" }
