package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestUniquePathNoCollision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.xml.gz")
	if got := UniquePath(path); got != path {
		t.Fatalf("expected original path, got %q", got)
	}
}

func TestUniquePathAppendsSuffixBeforeExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.xml.gz")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := UniquePath(path)
	want := filepath.Join(dir, "guide.xml(1).gz")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	if err := os.WriteFile(want, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	got = UniquePath(path)
	want = filepath.Join(dir, "guide.xml(2).gz")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestClearDirRemovesEntries(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.xml"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "sub", "deep"), 0o755); err != nil {
		t.Fatal(err)
	}

	ClearDir(dir, func(name string, err error) {
		t.Fatalf("unexpected removal failure for %s: %v", name, err)
	})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("directory not empty: %d entries", len(entries))
	}
}

func TestClearDirMissingDirIsSilent(t *testing.T) {
	called := false
	ClearDir(filepath.Join(t.TempDir(), "absent"), func(string, error) { called = true })
	if called {
		t.Fatal("missing directory should not report an error")
	}
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "staged.xml")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("remove existing: %v", err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("remove missing should be nil: %v", err)
	}
}
