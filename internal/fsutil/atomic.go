// Package fsutil provides the atomic-rewrite helper used by every
// component that persists its state as a single JSON file (spec.md §6:
// "rewritten atomically on every update"/"on every append/push").
package fsutil

import (
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temp file beside path and renames it
// over path, so a concurrent reader never observes a partial write.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
