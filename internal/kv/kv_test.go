package kv

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Conformance: every backend must behave the same
// =============================================================================

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"memory", func(t *testing.T) Store { return NewMemory() }},
		{"sqlite", func(t *testing.T) Store {
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
			require.NoError(t, err)
			return s
		}},
		{"log", func(t *testing.T) Store {
			s, err := OpenLog(filepath.Join(t.TempDir(), "kv.log"))
			require.NoError(t, err)
			return s
		}},
	}
}

func TestStoreConformance(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()

			_, err := s.Get("missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Put("cart", []byte(`[1]`)))
			require.NoError(t, s.Put("cart", []byte(`[1,2]`)))
			require.NoError(t, s.Put("user", []byte(`{"id":"u1"}`)))
			require.NoError(t, s.Put("empty", nil))

			got, err := s.Get("cart")
			require.NoError(t, err)
			assert.Equal(t, `[1,2]`, string(got))

			got, err = s.Get("empty")
			require.NoError(t, err)
			assert.Empty(t, got)

			keys, err := s.Keys()
			require.NoError(t, err)
			assert.Equal(t, []string{"cart", "empty", "user"}, keys)

			require.NoError(t, s.Delete("cart"))
			require.NoError(t, s.Delete("cart"), "deleting a missing key is fine")
			_, err = s.Get("cart")
			assert.ErrorIs(t, err, ErrNotFound)

			assert.ErrorIs(t, s.Put("", []byte("x")), ErrEmptyKey)
		})
	}
}

func TestStoreCopiesValues(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()

			in := []byte("hello")
			require.NoError(t, s.Put("k", in))
			in[0] = 'X'

			out, err := s.Get("k")
			require.NoError(t, err)
			assert.Equal(t, "hello", string(out))

			out[0] = 'Y'
			again, err := s.Get("k")
			require.NoError(t, err)
			assert.Equal(t, "hello", string(again))
		})
	}
}

func TestStoreClosed(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			require.NoError(t, s.Close())

			_, err := s.Get("k")
			assert.ErrorIs(t, err, ErrClosed)
			assert.ErrorIs(t, s.Put("k", []byte("v")), ErrClosed)
		})
	}
}

func TestStoreConcurrentWriters(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			defer s.Close()

			var wg sync.WaitGroup
			for w := 0; w < 4; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 20; i++ {
						assert.NoError(t, s.Put(fmt.Sprintf("w%d", w), []byte(fmt.Sprint(i))))
					}
				}(w)
			}
			wg.Wait()

			keys, err := s.Keys()
			require.NoError(t, err)
			assert.Len(t, keys, 4)
			for _, k := range keys {
				v, err := s.Get(k)
				require.NoError(t, err)
				assert.Equal(t, "19", string(v))
			}
		})
	}
}

// =============================================================================
// Open and locking
// =============================================================================

func TestOpenKinds(t *testing.T) {
	dir := t.TempDir()
	for _, kind := range []string{KindSQLite, KindLog, KindMemory} {
		s, err := Open(kind, filepath.Join(dir, FileName(kind)))
		require.NoError(t, err, kind)
		require.NoError(t, s.Put("k", []byte("v")))
		require.NoError(t, s.Close())
	}

	_, err := Open("etcd", filepath.Join(dir, "x"))
	assert.Error(t, err)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	for _, kind := range []string{KindSQLite, KindLog} {
		t.Run(kind, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName(kind))

			s, err := Open(kind, path)
			require.NoError(t, err)
			require.NoError(t, s.Put("language", []byte(`"hi"`)))
			require.NoError(t, s.Put("cart", []byte(`[]`)))
			require.NoError(t, s.Delete("cart"))
			require.NoError(t, s.Close())

			s, err = Open(kind, path)
			require.NoError(t, err)
			defer s.Close()

			v, err := s.Get("language")
			require.NoError(t, err)
			assert.Equal(t, `"hi"`, string(v))
			_, err = s.Get("cart")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLockDir(t *testing.T) {
	dir := t.TempDir()

	lock, err := LockDir(dir)
	require.NoError(t, err)

	_, err = LockDir(dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, lock.Unlock())
	lock, err = LockDir(dir)
	require.NoError(t, err)
	require.NoError(t, lock.Unlock())
}

// =============================================================================
// SQLite migrations
// =============================================================================

func TestSQLiteMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)

	v, err := s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, LatestVersion(), v)

	// Re-running is a no-op.
	require.NoError(t, Migrate(s.DB()))

	require.NoError(t, Rollback(s.DB()))
	v, err = s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, LatestVersion()-1, v)

	require.NoError(t, Migrate(s.DB()))
	v, err = s.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, LatestVersion(), v)
	require.NoError(t, s.Close())

	// Data written before a reopen survives migration.
	s, err = OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("k", []byte("v")))
	require.NoError(t, s.Close())
	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}
