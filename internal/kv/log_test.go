package kv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T, path string, opts ...LogOption) *Log {
	t.Helper()
	l, err := OpenLog(path, opts...)
	require.NoError(t, err)
	return l
}

// =============================================================================
// Record format
// =============================================================================

func TestRecordRoundTrip(t *testing.T) {
	rec := record{seq: 42, op: opPut, key: "cart", value: []byte(`[{"q":1}]`)}
	buf := encodeRecord(rec)

	assert.Equal(t, uint32(len(buf)), binary.BigEndian.Uint32(buf[0:4]))

	got, err := decodeRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestRecordCRCDetectsCorruption(t *testing.T) {
	buf := encodeRecord(record{seq: 1, op: opPut, key: "k", value: []byte("value")})
	buf[len(buf)-1] ^= 0xFF

	_, err := decodeRecord(buf)
	assert.Error(t, err)
}

func TestLogHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.log")
	l := openTestLog(t, path)
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, logHeaderSize)
	assert.Equal(t, LogMagic, string(data[0:4]))
	assert.Equal(t, uint32(LogVersion), binary.BigEndian.Uint32(data[4:8]))
}

func TestLogRejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.log")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a kv log file"), 0600))

	_, err := OpenLog(path)
	assert.ErrorIs(t, err, ErrInvalidMagic)
}

// =============================================================================
// Crash recovery
// =============================================================================

func TestLogTruncatesTornTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.log")
	l := openTestLog(t, path)
	require.NoError(t, l.Put("user", []byte(`{"id":"u1"}`)))
	require.NoError(t, l.Put("cart", []byte(`[1,2,3]`)))
	require.NoError(t, l.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	// Simulate a crash three bytes into the last record.
	require.NoError(t, os.Truncate(path, info.Size()-3))

	l = openTestLog(t, path)
	v, err := l.Get("user")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1"}`, string(v))
	_, err = l.Get("cart")
	assert.ErrorIs(t, err, ErrNotFound)

	stats := l.Stats()
	assert.Equal(t, 1, stats.Records)
	assert.Positive(t, stats.TruncatedBytes)

	// The log stays writable after recovery.
	require.NoError(t, l.Put("cart", []byte(`[9]`)))
	require.NoError(t, l.Close())

	l = openTestLog(t, path)
	defer l.Close()
	v, err = l.Get("cart")
	require.NoError(t, err)
	assert.Equal(t, `[9]`, string(v))
	assert.Zero(t, l.Stats().TruncatedBytes)
}

func TestLogFailedWriteIsRolledBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.log")
	l := openTestLog(t, path)
	require.NoError(t, l.Put("cart", []byte(`[1]`)))
	before := l.Stats().Bytes

	// The disk accepts half the record, then fails.
	errFull := errors.New("no space left on device")
	l.write = func(f *os.File, p []byte) (int, error) {
		n, err := f.Write(p[:len(p)/2])
		if err != nil {
			return n, err
		}
		return n, errFull
	}
	err := l.Put("orders", []byte(`[{"id":"ORD1"}]`))
	require.ErrorIs(t, err, errFull)
	assert.Equal(t, before, l.Stats().Bytes)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before, info.Size())

	l.write = (*os.File).Write
	require.NoError(t, l.Put("user", []byte(`{"id":"u1"}`)))
	require.NoError(t, l.Close())

	l = openTestLog(t, path)
	defer l.Close()
	v, err := l.Get("user")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"u1"}`, string(v))
	_, err = l.Get("orders")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, l.Stats().TruncatedBytes)
	assert.Equal(t, 2, l.Stats().Records)
}

func TestLogTruncatesCorruptRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.log")
	l := openTestLog(t, path)
	require.NoError(t, l.Put("a", []byte("1")))
	require.NoError(t, l.Put("b", []byte("2")))
	require.NoError(t, l.Put("c", []byte("3")))
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip a value byte of the second record.
	first := int(binary.BigEndian.Uint32(data[logHeaderSize:]))
	second := logHeaderSize + first
	secondLen := int(binary.BigEndian.Uint32(data[second:]))
	data[second+secondLen-1] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0600))

	l = openTestLog(t, path)
	defer l.Close()
	keys, err := l.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, keys, "records after the corrupt one are dropped")
}

func TestLogTornHeaderIsReinitialized(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.log")
	require.NoError(t, os.WriteFile(path, []byte("SS"), 0600))

	l := openTestLog(t, path)
	defer l.Close()
	require.NoError(t, l.Put("k", []byte("v")))
}

// =============================================================================
// Compaction
// =============================================================================

func TestLogCompact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.log")
	l := openTestLog(t, path, WithCompactThreshold(0))

	for i := 0; i < 50; i++ {
		require.NoError(t, l.Put("cart", []byte(fmt.Sprintf("[%d]", i))))
	}
	require.NoError(t, l.Put("language", []byte(`"en"`)))
	require.NoError(t, l.Put("tmp", []byte("x")))
	require.NoError(t, l.Delete("tmp"))

	before := l.Stats()
	assert.Equal(t, 53, before.Records)
	assert.Zero(t, before.Compactions)

	require.NoError(t, l.Compact())
	after := l.Stats()
	assert.Equal(t, 2, after.Records)
	assert.Equal(t, 2, after.Live)
	assert.Less(t, after.Bytes, before.Bytes)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, after.Bytes, info.Size())

	require.NoError(t, l.Put("user", []byte(`{}`)))
	require.NoError(t, l.Close())

	l = openTestLog(t, path)
	defer l.Close()
	v, err := l.Get("cart")
	require.NoError(t, err)
	assert.Equal(t, "[49]", string(v))
	keys, err := l.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"cart", "language", "user"}, keys)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no compaction temp files left behind")
}

func TestLogAutoCompacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.log")
	l := openTestLog(t, path, WithCompactThreshold(10))
	defer l.Close()

	for i := 0; i < 30; i++ {
		require.NoError(t, l.Put("cart", []byte(fmt.Sprint(i))))
	}

	stats := l.Stats()
	assert.Positive(t, stats.Compactions)
	assert.LessOrEqual(t, stats.Records, 11)

	v, err := l.Get("cart")
	require.NoError(t, err)
	assert.Equal(t, "29", string(v))
}

func TestLogKeyTooLong(t *testing.T) {
	l := openTestLog(t, filepath.Join(t.TempDir(), "kv.log"))
	defer l.Close()
	long := make([]byte, maxKeySize+1)
	for i := range long {
		long[i] = 'k'
	}
	assert.ErrorIs(t, l.Put(string(long), nil), ErrKeyTooLong)
}
