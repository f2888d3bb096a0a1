package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	serrors "github.com/Aman-CERP/sift/internal/errors"
)

// LockFileName is the lock file created inside the data directory.
const LockFileName = ".sift.lock"

// DataDirLock is a cross-process exclusive lock on a registry's data
// directory, so two processes never write the same artifacts.
type DataDirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDataDirLock returns an unacquired lock for the data directory under root.
func NewDataDirLock(root string) *DataDirLock {
	lockPath := filepath.Join(DataDir(root), LockFileName)
	return &DataDirLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// AcquireDataDirLock takes the lock without blocking. If another process
// holds it, ERR_202_DATA_DIR_LOCKED is returned.
func AcquireDataDirLock(root string) (*DataDirLock, error) {
	l := NewDataDirLock(root)
	ok, err := l.TryLock()
	if err != nil {
		return nil, serrors.StorageUnavailable(l.path, err)
	}
	if !ok {
		return nil, serrors.New(serrors.ErrCodeDataDirLocked,
			fmt.Sprintf("data directory %s is in use by another sift process", DataDir(root)), nil).
			WithDetail("lock", l.path).
			WithSuggestion("stop the running 'sift serve' or use its HTTP API instead")
	}
	return l, nil
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false if it's held by another process.
func (l *DataDirLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call on an unlocked DataDirLock.
func (l *DataDirLock) Unlock() error {
	if !l.locked {
		return nil
	}

	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *DataDirLock) Path() string { return l.path }

// IsLocked reports whether the lock is held by this DataDirLock.
func (l *DataDirLock) IsLocked() bool { return l.locked }
