package relay

import (
	"encoding/binary"
	"encoding/json"
	"strings"
	"testing"
)

func TestBuildHandshake(t *testing.T) {
	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{
			name:       "chrome origin",
			origin:     "chrome-extension://enjifmdnhaddmajefhfaoglcfdobkcpj/",
			wantOrigin: "chrome-extension://enjifmdnhaddmajefhfaoglcfdobkcpj/",
		},
		{
			name:       "double quotes become apostrophes",
			origin:     `say "hi"`,
			wantOrigin: `say 'hi'`,
		},
		{
			name:       "backslash and control characters are escaped",
			origin:     "a\\b\nc\x01",
			wantOrigin: "a\\b\nc\x01",
		},
		{
			name:       "html characters are kept literal",
			origin:     "<a&b>",
			wantOrigin: "<a&b>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := BuildHandshake(1234, 42, tt.origin)
			if err != nil {
				t.Fatalf("BuildHandshake() error = %v", err)
			}

			if len(frame) < 4 {
				t.Fatalf("frame too short: %d bytes", len(frame))
			}

			body := frame[4:]
			if got := binary.LittleEndian.Uint32(frame[:4]); int(got) != len(body) {
				t.Fatalf("length prefix = %d, body is %d bytes", got, len(body))
			}

			if !json.Valid(body) {
				t.Fatalf("body is not valid JSON: %s", body)
			}

			if !strings.HasPrefix(string(body), `{"pid":1234,"ppid":42,"origin":`) {
				t.Fatalf("body = %s, want pid, ppid, origin in that order", body)
			}

			if strings.Contains(string(body), "\n") {
				t.Fatalf("body contains a raw newline: %q", body)
			}

			var decoded struct {
				PID    int    `json:"pid"`
				PPID   int    `json:"ppid"`
				Origin string `json:"origin"`
			}
			if err := json.Unmarshal(body, &decoded); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if decoded.PID != 1234 || decoded.PPID != 42 || decoded.Origin != tt.wantOrigin {
				t.Fatalf("decoded = %+v, want origin %q", decoded, tt.wantOrigin)
			}
		})
	}
}

func TestBuildHandshake_ExactBytes(t *testing.T) {
	frame, err := BuildHandshake(7, 1, "app://x")
	if err != nil {
		t.Fatalf("BuildHandshake() error = %v", err)
	}

	want := `{"pid":7,"ppid":1,"origin":"app://x"}`
	if string(frame[4:]) != want {
		t.Fatalf("body = %s, want %s", frame[4:], want)
	}

	if frame[0] != byte(len(want)) || frame[1] != 0 || frame[2] != 0 || frame[3] != 0 {
		t.Fatalf("prefix = % x, want little-endian %d", frame[:4], len(want))
	}
}
