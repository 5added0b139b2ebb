package gate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// fileLock provides cross-process file locking around the key/usage JSON
// files, so `keys generate`/`keys revoke` CLI invocations and a running
// server don't race each other's read-modify-write cycles.
type fileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// newFileLock creates a lock file at <dir>/<name>.lock.
func newFileLock(dir, name string) *fileLock {
	lockPath := filepath.Join(dir, name+".lock")
	return &fileLock{path: lockPath, flock: flock.New(lockPath)}
}

// Lock acquires an exclusive lock, blocking until available.
func (l *fileLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Safe to call when not locked.
func (l *fileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	l.locked = false
	return nil
}
