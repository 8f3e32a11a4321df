package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockPollInterval is how often Lock retries acquisition while
// blocked on another process's namespace lock.
const lockPollInterval = 100 * time.Millisecond

// NamespaceLock is a cross-process exclusive lock over a namespace's
// data directory. Indexing a namespace takes the lock for the
// duration of a run so two indexers never interleave writes to the
// same HNSW/metadata/keyword files (spec.md §5).
type NamespaceLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewNamespaceLock creates a lock for the given namespace data
// directory. The lock file lives at <dir>/.codesearch.lock.
func NewNamespaceLock(dir string) *NamespaceLock {
	lockPath := filepath.Join(dir, ".codesearch.lock")
	return &NamespaceLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock blocks until the namespace's exclusive lock is acquired or ctx
// is cancelled.
func (l *NamespaceLock) Lock(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	locked, err := l.flock.TryLockContext(ctx, lockPollInterval)
	if err != nil {
		return fmt.Errorf("failed to acquire namespace lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("namespace lock %s is held by another process", l.path)
	}

	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *NamespaceLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire namespace lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call on an unlocked NamespaceLock.
func (l *NamespaceLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release namespace lock: %w", err)
	}
	l.locked = false
	return nil
}

// IsLocked reports whether this handle currently holds the lock.
func (l *NamespaceLock) IsLocked() bool {
	return l.locked
}
