// Package origin decides whether the browser extension that launched the
// host is allowed to talk to KeeWeb.
//
// Browsers pass the caller's identity as a positional argument: Chromium
// passes "chrome-extension://<id>/", Firefox passes the manifest path
// followed by the add-on id. Any argument matching the allow-list accepts
// the invocation.
package origin

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// DevExtensionIDsEnv lists extra Chromium extension ids, comma-separated,
// that are accepted in addition to the built-in allow-list.
const DevExtensionIDsEnv = "KEEWEB_BROWSER_EXTENSION_IDS_CHROMIUM"

// Known origins.
const (
	KeeWebConnectChrome     = "chrome-extension://npmnaajonabmkjekongmjhdjpjdlhpkp/"
	KeeWebConnectFirefox    = "keeweb-connect@keeweb.info"
	KeePassXCBrowserChrome  = "chrome-extension://oboonakemofpalcgghocfoadofidjkkk/"
	KeePassXCBrowserFirefox = "keepassxc-browser@keepassxc.org"
	KeePassXCBrowserEdge    = "chrome-extension://pdffhmdngciaglkoonimfcmckehcpafo/"
)

var builtin = []string{
	KeeWebConnectChrome,
	KeeWebConnectFirefox,
	KeePassXCBrowserChrome,
	KeePassXCBrowserFirefox,
	KeePassXCBrowserEdge,
}

var (
	// ErrNoOrigin is returned when the host was started without arguments.
	ErrNoOrigin = errors.New("expected origin argument")

	// ErrBadOrigin is returned when no argument is an allowed origin.
	ErrBadOrigin = errors.New("bad origin")
)

// AllowList is an immutable set of accepted origins. Matching is exact:
// no case folding, trimming, or URL normalization.
type AllowList struct {
	origins []string
}

// Default returns the built-in allow-list.
func Default() *AllowList {
	return &AllowList{origins: slices.Clone(builtin)}
}

// NewAllowList returns the built-in allow-list extended with extra origins.
// Empty entries are ignored.
func NewAllowList(extra ...string) *AllowList {
	list := Default()

	for _, o := range extra {
		if o == "" || slices.Contains(list.origins, o) {
			continue
		}

		list.origins = append(list.origins, o)
	}

	return list
}

// ChromiumOrigins turns a comma-separated list of Chromium extension ids
// into chrome-extension:// origins.
func ChromiumOrigins(ids string) []string {
	var origins []string

	for _, id := range strings.Split(ids, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}

		origins = append(origins, fmt.Sprintf("chrome-extension://%s/", id))
	}

	return origins
}

// Allowed reports whether o is exactly one of the accepted origins.
func (l *AllowList) Allowed(o string) bool {
	return slices.Contains(l.origins, o)
}

// Origins returns a copy of the accepted origins in declaration order.
func (l *AllowList) Origins() []string {
	return slices.Clone(l.origins)
}

// Validate returns the first argument that is an allowed origin. It fails
// with ErrNoOrigin when args is empty and ErrBadOrigin when nothing
// matches.
func (l *AllowList) Validate(args []string) (string, error) {
	if len(args) == 0 {
		return "", ErrNoOrigin
	}

	for _, arg := range args {
		if l.Allowed(arg) {
			return arg, nil
		}
	}

	return "", ErrBadOrigin
}
