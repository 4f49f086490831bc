// Package fsutil holds the file-system helpers shared by the storage
// backends and the configuration layer: atomic replace-by-rename writes and
// advisory single-writer locks.
package fsutil

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File permission constants.
const (
	PermPrivateFile os.FileMode = 0600
	PermPrivateDir  os.FileMode = 0700
)

var (
	// ErrLocked is returned when another process holds the lock.
	ErrLocked = errors.New("fsutil: lock held by another process")

	// ErrAtomicWriteFailed wraps rename failures when committing a file.
	ErrAtomicWriteFailed = errors.New("fsutil: atomic write failed")
)

// AtomicFile is written to a temporary sibling and renamed over the target on
// Commit, so readers see either the old file or the complete new one.
type AtomicFile struct {
	*os.File
	path     string
	tempPath string
}

// CreateAtomic opens a temporary file next to path.
func CreateAtomic(path string, perm os.FileMode) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, PermPrivateDir); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	tempPath := path + ".tmp." + randomSuffix()
	f, err := os.OpenFile(tempPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &AtomicFile{File: f, path: path, tempPath: tempPath}, nil
}

// Commit syncs the temporary file and renames it over the target.
func (f *AtomicFile) Commit() error {
	if err := f.Sync(); err != nil {
		f.Abort()
		return fmt.Errorf("sync: %w", err)
	}
	if err := f.File.Close(); err != nil {
		os.Remove(f.tempPath)
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(f.tempPath, f.path); err != nil {
		os.Remove(f.tempPath)
		return fmt.Errorf("%w: %v", ErrAtomicWriteFailed, err)
	}
	return nil
}

// Abort discards the temporary file.
func (f *AtomicFile) Abort() {
	f.File.Close()
	os.Remove(f.tempPath)
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	f, err := CreateAtomic(path, perm)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Abort()
		return fmt.Errorf("write: %w", err)
	}
	return f.Commit()
}

func randomSuffix() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// Lock is an exclusive advisory lock held on an open file.
type Lock struct {
	f *os.File
}

// TryLock creates path if needed and takes an exclusive lock on it without
// blocking. It returns ErrLocked when another process holds the lock.
func TryLock(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), PermPrivateDir); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, PermPrivateFile)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := tryLockFile(f); err != nil {
		f.Close()
		return nil, err
	}
	// Record the holder for humans inspecting the directory.
	if err := f.Truncate(0); err == nil {
		fmt.Fprintf(f, "%d\n", os.Getpid())
	}
	return &Lock{f: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.f.Name()
}

// Unlock releases the lock and closes the file. The lock file is left in
// place; removing it would race with a waiting locker.
func (l *Lock) Unlock() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlockFile(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
