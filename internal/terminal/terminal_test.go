package terminal

import "testing"

func TestInfo_ColorEnabled(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want bool
	}{
		{name: "tty", info: Info{IsTTY: true}, want: true},
		{name: "pipe", info: Info{IsTTY: false}, want: false},
		{name: "NO_COLOR", info: Info{IsTTY: true, NoColor: true}, want: false},
		{name: "--no-color", info: Info{IsTTY: true, ForceFlag: true}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.ColorEnabled(); got != tt.want {
				t.Errorf("ColorEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInfo_Interactive(t *testing.T) {
	if (&Info{StdinTTY: true, StderrTTY: true}).Interactive() != true {
		t.Error("Interactive() = false with terminal stdin and stderr")
	}

	if (&Info{StdinTTY: false, StderrTTY: true}).Interactive() {
		t.Error("Interactive() = true with piped stdin")
	}
}

func TestDetect_NoColorEnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	if !Detect().NoColor {
		t.Error("Detect() ignored NO_COLOR")
	}
}
