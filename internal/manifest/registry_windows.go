//go:build windows

package manifest

import (
	"errors"

	"golang.org/x/sys/windows/registry"
)

func registryKey(b Browser, e Extension) string {
	var vendor string

	switch b {
	case Chrome:
		vendor = `Software\Google\Chrome`
	case Firefox:
		vendor = `Software\Mozilla`
	case Edge:
		vendor = `Software\Microsoft\Edge`
	default:
		return ""
	}

	return vendor + `\NativeMessagingHosts\` + e.HostName()
}

// platformKeys stores the manifest path as the key's default value under
// HKEY_CURRENT_USER.
type platformKeys struct{}

func (platformKeys) Set(key, file string) error {
	k, _, err := registry.CreateKey(registry.CURRENT_USER, key, registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()

	return k.SetStringValue("", file)
}

func (platformKeys) Get(key string) (string, bool, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, key, registry.QUERY_VALUE)
	if errors.Is(err, registry.ErrNotExist) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}
	defer k.Close()

	value, _, err := k.GetStringValue("")
	if errors.Is(err, registry.ErrNotExist) {
		return "", true, nil
	}

	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

func (platformKeys) Delete(key string) error {
	err := registry.DeleteKey(registry.CURRENT_USER, key)
	if errors.Is(err, registry.ErrNotExist) {
		return nil
	}

	return err
}
