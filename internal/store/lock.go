package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// writerLock is a cross-process advisory lock enforcing the
// single-writer invariant on an index directory. Two chemidx processes
// opening a writer against the same directory will have the second
// fail to acquire it (TryLock does not block) until the first releases it.
type writerLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// newWriterLock creates a lock file at <dir>/.chemidx.lock.
func newWriterLock(dir string) *writerLock {
	lockPath := filepath.Join(dir, ".chemidx.lock")
	return &writerLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// TryLock attempts to acquire the lock without blocking.
func (l *writerLock) TryLock() (bool, error) {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire writer lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call multiple times or when unlocked.
func (l *writerLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release writer lock: %w", err)
	}
	l.locked = false
	return nil
}
