package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"washbay/internal/ports"
	"washbay/logging"
)

// FileLock is an advisory, non-blocking exclusive lock on a file
type FileLock struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// Verify interface compliance at compile time
var _ ports.SweepLock = (*FileLock)(nil)

// NewFileLock returns a lock on path. The file is created on first TryLock.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// TryLock acquires the lock without blocking. It returns false when another
// holder has it.
func (l *FileLock) TryLock() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return true, nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return false, fmt.Errorf("failed to open lock file: %w", err)
	}

	acquired, err := tryLockFile(file)
	if err != nil || !acquired {
		file.Close()
		if err != nil {
			return false, fmt.Errorf("failed to acquire lock: %w", err)
		}
		logging.Logger.Debug("lock held elsewhere", "path", l.path)
		return false, nil
	}

	l.file = file
	fmt.Fprintf(file, "%d\n", os.Getpid())
	return true, nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := unlockFile(l.file)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return closeErr
}
