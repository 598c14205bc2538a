package versionfile

import (
	"path/filepath"

	"github.com/coolan2013/xapian/internal/storage"
)

// WriteAndInstall serialises f to a temp file beside finalPath and then
// renames it into place, the atomic-install step spec.md §4.6 leaves to
// "callee's responsibility" after every destination table has been synced.
func (f *File) WriteAndInstall(fs storage.FS, finalPath string) error {
	tmpPath := filepath.Join(filepath.Dir(finalPath), ".version.tmp")
	w, err := fs.Create(tmpPath)
	if err != nil {
		return err
	}
	if _, err := w.Write(f.Serialize()); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Sync(); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return fs.Rename(tmpPath, finalPath)
}
