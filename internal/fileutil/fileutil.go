package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created inside every directory a run writes to.
const LockFileName = ".k21.lock"

// ErrLocked reports that another process already holds a directory lock.
var ErrLocked = errors.New("directory locked by another run")

// WriteAtomic streams the output of write into path via a temp file in the
// same directory followed by a rename, so readers never observe a partial file.
func WriteAtomic(path string, mode os.FileMode, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// WriteFileAtomic writes data to path atomically.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	return WriteAtomic(path, mode, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// DirLock is an exclusive advisory lock on an output directory.
type DirLock struct {
	lock *flock.Flock
}

// LockDir acquires the k21 lock file inside dir without blocking. It fails
// with ErrLocked when another run holds it.
func LockDir(dir string) (*DirLock, error) {
	lock := flock.New(filepath.Join(dir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock in %s: %w", dir, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", dir, ErrLocked)
	}
	return &DirLock{lock: lock}, nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	if l == nil || l.lock == nil {
		return ""
	}
	return l.lock.Path()
}

// Unlock releases the lock and removes the lock file.
func (l *DirLock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	path := l.lock.Path()
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove lock %s: %w", path, err)
	}
	return nil
}
