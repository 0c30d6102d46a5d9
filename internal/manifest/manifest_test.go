package manifest

import (
	"testing"

	"github.com/keeweb/keeweb-native-messaging-host/internal/origin"
	"github.com/keeweb/keeweb-native-messaging-host/internal/testutil"
)

const hostPath = "/opt/keeweb/keeweb-native-messaging-host"

func TestBuild_Golden(t *testing.T) {
	tests := []struct {
		browser   Browser
		extension Extension
		golden    string
	}{
		{Chrome, KeeWebConnect, "chrome_kwc.golden"},
		{Firefox, KeeWebConnect, "firefox_kwc.golden"},
		{Edge, KeePassXCBrowser, "edge_kpxc.golden"},
		{Firefox, KeePassXCBrowser, "firefox_kpxc.golden"},
	}

	for _, tt := range tests {
		t.Run(tt.golden, func(t *testing.T) {
			m, err := Build(tt.browser, tt.extension, hostPath)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}

			data, err := m.Marshal()
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			testutil.AssertGoldenBytes(t, data, tt.golden)
		})
	}
}

func TestBuild_ChromeAndEdgeShareOrigins(t *testing.T) {
	chrome, err := Build(Chrome, KeePassXCBrowser, hostPath)
	if err != nil {
		t.Fatal(err)
	}

	edge, err := Build(Edge, KeePassXCBrowser, hostPath)
	if err != nil {
		t.Fatal(err)
	}

	if len(chrome.AllowedOrigins) != len(edge.AllowedOrigins) {
		t.Fatalf("origins differ: %v vs %v", chrome.AllowedOrigins, edge.AllowedOrigins)
	}

	if chrome.AllowedExtensions != nil || edge.AllowedExtensions != nil {
		t.Error("Chromium manifests must not carry allowed_extensions")
	}
}

// A browser launches the host for every extension its manifest admits; the
// host must then accept that caller instead of exiting on a bad origin.
func TestBuild_AdmitsOnlyAcceptedOrigins(t *testing.T) {
	accepted := origin.Default()

	for _, b := range Browsers() {
		for _, e := range Extensions() {
			m, err := Build(b, e, hostPath)
			if err != nil {
				t.Fatalf("Build(%s, %s) error = %v", b, e, err)
			}

			callers := append(append([]string{}, m.AllowedOrigins...), m.AllowedExtensions...)
			if len(callers) == 0 {
				t.Errorf("Build(%s, %s) admits no caller", b, e)
			}

			for _, caller := range callers {
				if !accepted.Allowed(caller) {
					t.Errorf("Build(%s, %s) admits %q, which the host rejects", b, e, caller)
				}

				if _, err := accepted.Validate([]string{caller}); err != nil {
					t.Errorf("Validate(%q) error = %v", caller, err)
				}
			}
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name      string
		browser   Browser
		extension Extension
		path      string
	}{
		{"unknown browser", "safari", KeeWebConnect, hostPath},
		{"unknown extension", Chrome, "bitwarden", hostPath},
		{"empty path", Chrome, KeeWebConnect, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.browser, tt.extension, tt.path); err == nil {
				t.Error("Build() error = nil, want error")
			}
		})
	}
}

func TestParseBrowser(t *testing.T) {
	tests := []struct {
		in      string
		want    Browser
		wantErr bool
	}{
		{"chrome", Chrome, false},
		{"Firefox", Firefox, false},
		{" EDGE ", Edge, false},
		{"opera", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBrowser(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBrowser(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}

			if got != tt.want {
				t.Errorf("ParseBrowser(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseExtension(t *testing.T) {
	if got, err := ParseExtension("KPXC"); err != nil || got != KeePassXCBrowser {
		t.Errorf("ParseExtension(KPXC) = %q, %v", got, err)
	}

	if _, err := ParseExtension("keeweb"); err == nil {
		t.Error("ParseExtension(keeweb) error = nil, want error")
	}
}

func TestExtension_FileName(t *testing.T) {
	if got := KeeWebConnect.FileName(); got != "net.antelle.keeweb.keeweb_connect.json" {
		t.Errorf("FileName() = %q", got)
	}

	if got := Extension("x").FileName(); got != ".json" {
		t.Errorf("FileName() for unknown = %q", got)
	}
}
