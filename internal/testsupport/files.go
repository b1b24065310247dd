package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteFile writes content to path, creating parent directories as needed.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSourceList writes a source list file from the given lines and
// returns its path.
func WriteSourceList(t testing.TB, path string, lines ...string) string {
	t.Helper()

	WriteFile(t, path, strings.Join(lines, "\n")+"\n")
	return path
}
