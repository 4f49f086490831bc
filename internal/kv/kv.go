// Package kv provides the local key-value byte stores behind the durable
// mirror: an embedded SQLite table, an append-only log file and an in-memory
// map. All stores copy values in and out.
package kv

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"smartshop/internal/fsutil"
)

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("kv: key not found")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("kv: store is closed")

	// ErrLocked is returned by LockDir when another process owns the directory.
	ErrLocked = fsutil.ErrLocked

	// ErrEmptyKey is returned when a key is empty.
	ErrEmptyKey = errors.New("kv: empty key")
)

// Store is a key-value byte store. Implementations are safe for concurrent use.
type Store interface {
	// Get returns a copy of the value stored under key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Put stores a copy of value under key, replacing any previous value.
	Put(key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	// Keys returns every stored key in ascending order.
	Keys() ([]string, error)
	// Close releases the store's resources.
	Close() error
}

// Storage kinds accepted by Open.
const (
	KindSQLite = "sqlite"
	KindLog    = "log"
	KindMemory = "memory"
)

// FileName returns the default file name for a storage kind inside a data
// directory.
func FileName(kind string) string {
	switch kind {
	case KindLog:
		return "session.kvlog"
	default:
		return "session.db"
	}
}

// Open opens a store of the given kind at path. The path is ignored for
// the memory kind.
func Open(kind, path string) (Store, error) {
	switch strings.ToLower(kind) {
	case KindSQLite, "":
		return OpenSQLite(path)
	case KindLog:
		return OpenLog(path)
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", kind)
	}
}

// LockDir takes the single-writer lock for a data directory. It returns
// ErrLocked when another process holds it.
func LockDir(dir string) (*fsutil.Lock, error) {
	lock, err := fsutil.TryLock(filepath.Join(dir, "LOCK"))
	if err != nil {
		return nil, fmt.Errorf("lock data directory %s: %w", dir, err)
	}
	return lock, nil
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
