// Package buildinfo stores build-time metadata shared across packages.
package buildinfo

import "runtime/debug"

// Set via ldflags during build.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// VCSCommit returns Commit, falling back to the revision the Go toolchain
// stamped into the binary. Empty when neither is known.
func VCSCommit() string {
	if Commit != "" {
		return Commit
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}

			return s.Value
		}
	}

	return ""
}
