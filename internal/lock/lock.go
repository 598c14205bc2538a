// Package lock provides the exclusive filesystem lock the compactor driver
// holds on the destination directory for the duration of a compaction
// (spec.md §4.6, §5). It follows the context-aware acquire/release shape of
// go-context-aware-lock's ICtxLock, adapted from an in-process channel lock
// to a real cross-process advisory file lock via flock(2).
package lock

import "context"

// DirLock is an exclusive lock excluding other processes from a directory.
type DirLock interface {
	AcquireCtx(ctx context.Context) error
	ReleaseCtx(ctx context.Context) error
}
