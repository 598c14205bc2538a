package lock

import (
	"context"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/coolan2013/xapian/internal/xerrors"
)

// flockDirLock holds an exclusive, non-blocking flock(2) on a sentinel file
// inside the target directory. Only one compaction may run against a given
// destination directory at a time (spec.md §4.6 step 2).
type flockDirLock struct {
	dir  string
	f    *os.File
	held bool
}

// NewFlockDirLock returns a DirLock guarding dir via a ".lock" sentinel
// file inside it. dir must already exist.
func NewFlockDirLock(dir string) DirLock {
	return &flockDirLock{dir: dir}
}

func (l *flockDirLock) AcquireCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := filepath.Join(l.dir, ".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return xerrors.ErrLock
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		return xerrors.ErrLock
	}
	l.f = f
	l.held = true
	return nil
}

func (l *flockDirLock) ReleaseCtx(ctx context.Context) error {
	if !l.held {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.held = false
	l.f = nil
	if err != nil {
		return xerrors.ErrLock
	}
	return closeErr
}

var _ DirLock = (*flockDirLock)(nil)
