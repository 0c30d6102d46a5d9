// Package manifest builds and installs the native messaging manifests that
// tell browsers where to find the host.
//
// Chromium-based browsers identify callers with allowed_origins; Firefox
// uses allowed_extensions. On Linux and macOS the manifest is a file in a
// per-browser directory named after the host. On Windows the file lives in
// the host's own config directory and a registry key under HKCU points at
// it.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/keeweb/keeweb-native-messaging-host/internal/origin"
)

// Browser is a browser family that reads native messaging manifests.
type Browser string

// Supported browsers.
const (
	Chrome  Browser = "chrome"
	Firefox Browser = "firefox"
	Edge    Browser = "edge"
)

// Extension is a browser extension that can talk to KeeWeb.
type Extension string

// Supported extensions.
const (
	KeeWebConnect    Extension = "kwc"
	KeePassXCBrowser Extension = "kpxc"
)

// Host names registered with the browser.
const (
	KeeWebConnectHost    = "net.antelle.keeweb.keeweb_connect"
	KeePassXCBrowserHost = "org.keepassxc.keepassxc_browser"
)

// Browsers returns every supported browser in display order.
func Browsers() []Browser { return []Browser{Chrome, Firefox, Edge} }

// Extensions returns every supported extension in display order.
func Extensions() []Extension { return []Extension{KeeWebConnect, KeePassXCBrowser} }

// ParseBrowser accepts a browser name, case-insensitively.
func ParseBrowser(s string) (Browser, error) {
	b := Browser(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Browsers(), b) {
		return "", fmt.Errorf("unknown browser %q", s)
	}

	return b, nil
}

// ParseExtension accepts an extension name, case-insensitively.
func ParseExtension(s string) (Extension, error) {
	e := Extension(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Extensions(), e) {
		return "", fmt.Errorf("unknown extension %q", s)
	}

	return e, nil
}

// chromium reports whether b identifies callers by chrome-extension origin.
func (b Browser) chromium() bool {
	return b != Firefox
}

// HostName returns the native messaging host name registered for e.
func (e Extension) HostName() string {
	switch e {
	case KeeWebConnect:
		return KeeWebConnectHost
	case KeePassXCBrowser:
		return KeePassXCBrowserHost
	default:
		return ""
	}
}

// FileName returns the manifest file name browsers look up for e.
func (e Extension) FileName() string {
	return e.HostName() + ".json"
}

func (e Extension) description() string {
	if e == KeePassXCBrowser {
		return "Native messaging host created by KeeWeb"
	}

	return "KeeWeb native messaging host"
}

// The ids below come from the host's own allow-list, so every extension a
// manifest admits is one the host accepts once launched.

func (e Extension) firefoxIDs() []string {
	if e == KeePassXCBrowser {
		return []string{origin.KeePassXCBrowserFirefox}
	}

	return []string{origin.KeeWebConnectFirefox}
}

func (e Extension) chromiumOrigins() []string {
	if e == KeePassXCBrowser {
		return []string{origin.KeePassXCBrowserEdge, origin.KeePassXCBrowserChrome}
	}

	return []string{origin.KeeWebConnectChrome}
}

// Manifest is the document a browser reads to start the host. Field order
// matches the order browsers' own documentation uses.
type Manifest struct {
	AllowedExtensions []string `json:"allowed_extensions,omitempty"`
	AllowedOrigins    []string `json:"allowed_origins,omitempty"`
	Description       string   `json:"description"`
	Name              string   `json:"name"`
	Type              string   `json:"type"`
	Path              string   `json:"path"`
}

// Build returns the manifest that lets extension e in browser b start the
// host at hostPath.
func Build(b Browser, e Extension, hostPath string) (*Manifest, error) {
	if !slices.Contains(Browsers(), b) {
		return nil, fmt.Errorf("unknown browser %q", b)
	}

	if e.HostName() == "" {
		return nil, fmt.Errorf("unknown extension %q", e)
	}

	if hostPath == "" {
		return nil, fmt.Errorf("host path is required")
	}

	m := &Manifest{
		Description: e.description(),
		Name:        e.HostName(),
		Type:        "stdio",
		Path:        hostPath,
	}

	if b.chromium() {
		m.AllowedOrigins = e.chromiumOrigins()
	} else {
		m.AllowedExtensions = e.firefoxIDs()
	}

	return m, nil
}

// Marshal renders m the way it is written to disk: four-space indentation,
// no HTML escaping, trailing newline.
func (m *Manifest) Marshal() ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")

	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	return buf.Bytes(), nil
}
