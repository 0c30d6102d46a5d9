//go:build darwin

package companion

func defaultExecutable() string { return "KeeWeb" }
