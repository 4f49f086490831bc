package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data.txt")

	require.NoError(t, WriteFile(path, []byte("one"), PermPrivateFile))
	require.NoError(t, WriteFile(path, []byte("two"), PermPrivateFile))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestAtomicAbortKeepsOriginal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, WriteFile(path, []byte("original"), PermPrivateFile))

	f, err := CreateAtomic(path, PermPrivateFile)
	require.NoError(t, err)
	_, err = f.WriteString("partial")
	require.NoError(t, err)
	f.Abort()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestTryLockExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "LOCK")

	first, err := TryLock(path)
	require.NoError(t, err)
	assert.Equal(t, path, first.Path())

	_, err = TryLock(path)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Unlock())
	require.NoError(t, first.Unlock(), "second unlock is a no-op")

	again, err := TryLock(path)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}
