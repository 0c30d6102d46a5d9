//go:build !windows

package manifest

// Browsers outside Windows find manifests by directory.
func registryKey(Browser, Extension) string { return "" }

type platformKeys struct{}

func (platformKeys) Set(string, string) error         { return nil }
func (platformKeys) Get(string) (string, bool, error) { return "", false, nil }
func (platformKeys) Delete(string) error              { return nil }
