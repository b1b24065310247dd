package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UniquePath returns path if nothing exists there, otherwise the first
// variant with an incrementing "(n)" suffix inserted before the extension
// that does not collide with an existing file.
func UniquePath(path string) string {
	if _, err := os.Stat(path); err != nil {
		return path
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 1; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s(%d)%s", stem, i, ext))
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}

// ClearDir removes every entry in dir on a best-effort basis. Entries that
// cannot be removed are reported through onError (if non-nil) and skipped;
// ClearDir never fails the caller. A missing dir is not an error.
func ClearDir(dir string, onError func(name string, err error)) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) && onError != nil {
			onError(dir, err)
		}
		return
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			if onError != nil {
				onError(entry.Name(), err)
			}
		}
	}
}

// RemoveIfExists deletes path, ignoring the file-missing case.
func RemoveIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
