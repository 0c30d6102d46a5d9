// Package testutil provides golden-file and socket helpers shared by the
// host's tests.
package testutil

import (
	"bytes"
	"errors"
	"flag"
	"io/fs"
	"os"
	"path/filepath"
)

// update rewrites golden files instead of comparing against them.
// Usage: go test ./... -update
var update = flag.Bool("update", false, "update golden files")

// TB is the part of testing.TB the helpers report through.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
	Logf(format string, args ...any)
}

// AssertGolden compares got against testdata/<goldenFile>. Line endings are
// normalized on both sides so checkouts with CRLF still match. With -update
// the file is rewritten instead.
func AssertGolden(t TB, got, goldenFile string) {
	t.Helper()

	goldenPath := filepath.Join("testdata", goldenFile)

	if *update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0o755); err != nil {
			t.Fatalf("creating %s: %v", filepath.Dir(goldenPath), err)
			return
		}

		if err := os.WriteFile(goldenPath, []byte(got), 0o644); err != nil {
			t.Fatalf("updating golden file %s: %v", goldenPath, err)
			return
		}

		t.Logf("updated golden file: %s", goldenPath)

		return
	}

	want, err := os.ReadFile(goldenPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("golden file %s does not exist; run with -update to create it", goldenPath)
			return
		}

		t.Fatalf("reading golden file %s: %v", goldenPath, err)

		return
	}

	if normalize(got) != normalize(string(want)) {
		t.Errorf("output mismatch for %s\n\ngot:\n%s\n\nwant:\n%s\n\nrun with -update to refresh golden files", goldenPath, got, want)
	}
}

// AssertGoldenBytes is AssertGolden for byte slices.
func AssertGoldenBytes(t TB, got []byte, goldenFile string) {
	t.Helper()
	AssertGolden(t, string(got), goldenFile)
}

func normalize(s string) string {
	return string(bytes.ReplaceAll([]byte(s), []byte("\r\n"), []byte("\n")))
}
