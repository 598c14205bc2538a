package lock

import "context"

// noopDirLock is used in single-file destination mode, where spec.md §4.6
// step 2 explicitly skips directory locking (there is no destination
// directory to exclude other processes from — the caller already owns the
// single destination file descriptor), and for destinations on a storage
// backend other than the local filesystem, which have no on-disk directory
// for flock(2) to guard.
type noopDirLock struct{}

// NewNoopDirLock returns a DirLock that takes no real lock: AcquireCtx and
// ReleaseCtx succeed unless ctx is already done, in which case they return
// ctx.Err().
func NewNoopDirLock() DirLock { return noopDirLock{} }

func (noopDirLock) AcquireCtx(ctx context.Context) error { return ctx.Err() }
func (noopDirLock) ReleaseCtx(ctx context.Context) error { return ctx.Err() }

var _ DirLock = noopDirLock{}
