package buildinfo

import "testing"

func TestVCSCommit_PrefersLdflags(t *testing.T) {
	orig := Commit
	t.Cleanup(func() { Commit = orig })

	Commit = "abc1234"

	if got := VCSCommit(); got != "abc1234" {
		t.Errorf("VCSCommit() = %q, want %q", got, "abc1234")
	}
}

func TestVCSCommit_ShortRevision(t *testing.T) {
	orig := Commit
	t.Cleanup(func() { Commit = orig })

	Commit = ""

	if got := VCSCommit(); len(got) > 12 {
		t.Errorf("VCSCommit() = %q, longer than 12 characters", got)
	}
}
