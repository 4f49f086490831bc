package kv

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"smartshop/internal/fsutil"
)

// Log file format constants.
const (
	LogMagic   = "SSKV"
	LogVersion = 1

	logHeaderSize = 16
	// length(4) crc(4) sequence(8) op(1) keylen(2)
	recordHeaderSize = 19
	maxRecordSize    = 64 << 20
	maxKeySize       = 1<<16 - 1

	// DefaultCompactThreshold is the number of dead records that triggers
	// an automatic compaction.
	DefaultCompactThreshold = 512
)

// Log errors.
var (
	ErrInvalidMagic   = errors.New("kv: log has invalid magic number")
	ErrInvalidVersion = errors.New("kv: unsupported log version")
	ErrKeyTooLong     = errors.New("kv: key exceeds 65535 bytes")
	ErrValueTooLarge  = errors.New("kv: record exceeds maximum size")
)

type logOp uint8

const (
	opPut    logOp = 1
	opDelete logOp = 2
)

type record struct {
	seq   uint64
	op    logOp
	key   string
	value []byte
}

// LogStats describes the on-disk state of a Log.
type LogStats struct {
	Records        int   // records in the file, live or superseded
	Live           int   // keys currently stored
	Bytes          int64 // file size
	TruncatedBytes int64 // bytes of torn tail dropped when the log was opened
	Compactions    int
}

// Log is a Store persisted as an append-only file of CRC-framed records.
// The full key space is held in memory and rebuilt by replaying the file on
// open. A torn or corrupt tail, left by a crash mid-write, is truncated.
type Log struct {
	mu   sync.Mutex
	path string
	file *os.File

	data      map[string][]byte
	seq       uint64
	records   int
	size      int64
	truncated int64

	compactAt   int
	compactions int
	closed      bool

	// write appends to the file; tests replace it to inject short writes.
	write func(f *os.File, p []byte) (int, error)
}

// LogOption configures a Log.
type LogOption func(*Log)

// WithCompactThreshold sets how many dead records trigger compaction.
// Zero or less disables automatic compaction.
func WithCompactThreshold(n int) LogOption {
	return func(l *Log) {
		l.compactAt = n
	}
}

// OpenLog opens or creates the log at path and replays it.
func OpenLog(path string, opts ...LogOption) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), fsutil.PermPrivateDir); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, fsutil.PermPrivateFile)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &Log{
		path:      path,
		file:      file,
		data:      make(map[string][]byte),
		compactAt: DefaultCompactThreshold,
		write:     (*os.File).Write,
	}
	for _, opt := range opts {
		opt(l)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}

	// A file shorter than its header can only come from a crash while the
	// header was being written.
	if stat.Size() < logHeaderSize {
		if err := l.initFile(); err != nil {
			file.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		return l, nil
	}

	if err := readLogHeader(file); err != nil {
		file.Close()
		return nil, err
	}
	if err := l.replay(stat.Size()); err != nil {
		file.Close()
		return nil, fmt.Errorf("replay log: %w", err)
	}
	return l, nil
}

func (l *Log) initFile() error {
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	if err := writeLogHeader(l.file); err != nil {
		return err
	}
	if err := l.file.Sync(); err != nil {
		return err
	}
	l.size = logHeaderSize
	_, err := l.file.Seek(logHeaderSize, io.SeekStart)
	return err
}

func writeLogHeader(w io.WriterAt) error {
	buf := make([]byte, logHeaderSize)
	copy(buf[0:4], LogMagic)
	binary.BigEndian.PutUint32(buf[4:8], LogVersion)
	binary.BigEndian.PutUint64(buf[8:16], uint64(time.Now().UnixNano()))
	_, err := w.WriteAt(buf, 0)
	return err
}

func readLogHeader(r io.ReaderAt) error {
	buf := make([]byte, logHeaderSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if string(buf[0:4]) != LogMagic {
		return ErrInvalidMagic
	}
	if v := binary.BigEndian.Uint32(buf[4:8]); v != LogVersion {
		return fmt.Errorf("%w: got %d, expected %d", ErrInvalidVersion, v, LogVersion)
	}
	return nil
}

// replay applies every intact record and truncates the file after the last one.
func (l *Log) replay(size int64) error {
	if _, err := l.file.Seek(logHeaderSize, io.SeekStart); err != nil {
		return err
	}
	r := bufio.NewReader(l.file)
	offset := int64(logHeaderSize)

	for offset < size {
		rec, n, err := readRecord(r, size-offset)
		if err != nil {
			// Torn or corrupt: everything from here on is discarded.
			break
		}
		l.applyRecord(rec)
		l.records++
		offset += int64(n)
	}

	if offset < size {
		if err := l.file.Truncate(offset); err != nil {
			return fmt.Errorf("truncate torn tail: %w", err)
		}
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("sync after truncate: %w", err)
		}
		l.truncated = size - offset
	}

	l.size = offset
	_, err := l.file.Seek(offset, io.SeekStart)
	return err
}

func readRecord(r io.Reader, remaining int64) (record, int, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return record{}, 0, err
	}
	length := int(binary.BigEndian.Uint32(lenBuf[:]))
	if length < recordHeaderSize || length > maxRecordSize || int64(length) > remaining {
		return record{}, 0, fmt.Errorf("bad record length %d", length)
	}

	buf := make([]byte, length)
	copy(buf, lenBuf[:])
	if _, err := io.ReadFull(r, buf[4:]); err != nil {
		return record{}, 0, err
	}
	rec, err := decodeRecord(buf)
	if err != nil {
		return record{}, 0, err
	}
	return rec, length, nil
}

func encodeRecord(rec record) []byte {
	length := recordHeaderSize + len(rec.key) + len(rec.value)
	buf := make([]byte, length)
	binary.BigEndian.PutUint32(buf[0:4], uint32(length))
	binary.BigEndian.PutUint64(buf[8:16], rec.seq)
	buf[16] = byte(rec.op)
	binary.BigEndian.PutUint16(buf[17:19], uint16(len(rec.key)))
	copy(buf[recordHeaderSize:], rec.key)
	copy(buf[recordHeaderSize+len(rec.key):], rec.value)
	binary.BigEndian.PutUint32(buf[4:8], crc32.ChecksumIEEE(buf[8:]))
	return buf
}

func decodeRecord(buf []byte) (record, error) {
	if crc32.ChecksumIEEE(buf[8:]) != binary.BigEndian.Uint32(buf[4:8]) {
		return record{}, errors.New("crc mismatch")
	}
	keyLen := int(binary.BigEndian.Uint16(buf[17:19]))
	if recordHeaderSize+keyLen > len(buf) {
		return record{}, errors.New("key overruns record")
	}
	rec := record{
		seq: binary.BigEndian.Uint64(buf[8:16]),
		op:  logOp(buf[16]),
		key: string(buf[recordHeaderSize : recordHeaderSize+keyLen]),
	}
	switch rec.op {
	case opPut:
		rec.value = clone(buf[recordHeaderSize+keyLen:])
	case opDelete:
	default:
		return record{}, fmt.Errorf("unknown op %d", rec.op)
	}
	return rec, nil
}

func (l *Log) applyRecord(rec record) {
	switch rec.op {
	case opPut:
		l.data[rec.key] = rec.value
	case opDelete:
		delete(l.data, rec.key)
	}
	l.seq = rec.seq
}

// append writes rec, syncs it and applies it. Callers hold l.mu.
func (l *Log) append(rec record) error {
	rec.seq = l.seq + 1
	data := encodeRecord(rec)
	if err := l.writeSynced(data); err != nil {
		return err
	}
	l.applyRecord(rec)
	l.records++
	l.size += int64(len(data))

	if l.compactAt > 0 {
		if dead := l.records - len(l.data); dead >= l.compactAt && dead > len(l.data) {
			// The record is already durable; a failed compaction leaves the
			// old file in place and is retried on the next write.
			_ = l.compactLocked()
		}
	}
	return nil
}

// writeSynced appends data and syncs it. On failure the file is cut back to
// the last acknowledged record, so a partial record never sits in front of
// later writes.
func (l *Log) writeSynced(data []byte) error {
	var err error
	if _, werr := l.write(l.file, data); werr != nil {
		err = fmt.Errorf("write record: %w", werr)
	} else if serr := l.file.Sync(); serr != nil {
		err = fmt.Errorf("sync record: %w", serr)
	}
	if err == nil {
		return nil
	}
	if rerr := l.rewind(); rerr != nil {
		return errors.Join(err, rerr)
	}
	return err
}

// rewind drops everything after the last acknowledged record.
func (l *Log) rewind() error {
	if err := l.file.Truncate(l.size); err != nil {
		return fmt.Errorf("truncate failed record: %w", err)
	}
	if _, err := l.file.Seek(l.size, io.SeekStart); err != nil {
		return fmt.Errorf("seek after failed record: %w", err)
	}
	return nil
}

func (l *Log) Get(key string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	v, ok := l.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(v), nil
}

func (l *Log) Put(key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if len(key) > maxKeySize {
		return ErrKeyTooLong
	}
	if recordHeaderSize+len(key)+len(value) > maxRecordSize {
		return ErrValueTooLarge
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	return l.append(record{op: opPut, key: key, value: clone(value)})
}

func (l *Log) Delete(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	if _, ok := l.data[key]; !ok {
		return nil
	}
	return l.append(record{op: opDelete, key: key})
}

func (l *Log) Keys() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	keys := make([]string, 0, len(l.data))
	for k := range l.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Compact rewrites the log with one record per live key.
func (l *Log) Compact() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	return l.compactLocked()
}

func (l *Log) compactLocked() error {
	tmp, err := fsutil.CreateAtomic(l.path, fsutil.PermPrivateFile)
	if err != nil {
		return fmt.Errorf("create compaction file: %w", err)
	}
	if err := writeLogHeader(tmp); err != nil {
		tmp.Abort()
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := tmp.Seek(logHeaderSize, io.SeekStart); err != nil {
		tmp.Abort()
		return err
	}

	keys := make([]string, 0, len(l.data))
	for k := range l.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	w := bufio.NewWriter(tmp)
	size := int64(logHeaderSize)
	var seq uint64
	for _, k := range keys {
		seq++
		data := encodeRecord(record{seq: seq, op: opPut, key: k, value: l.data[k]})
		if _, err := w.Write(data); err != nil {
			tmp.Abort()
			return fmt.Errorf("write record: %w", err)
		}
		size += int64(len(data))
	}
	if err := w.Flush(); err != nil {
		tmp.Abort()
		return fmt.Errorf("flush compaction file: %w", err)
	}

	// Windows cannot rename over an open file.
	if err := l.file.Close(); err != nil {
		tmp.Abort()
		return fmt.Errorf("close log file: %w", err)
	}
	commitErr := tmp.Commit()

	file, err := os.OpenFile(l.path, os.O_RDWR, fsutil.PermPrivateFile)
	if err != nil {
		l.closed = true
		return fmt.Errorf("reopen log file: %w", err)
	}
	l.file = file
	if commitErr != nil {
		_, err := l.file.Seek(0, io.SeekEnd)
		return errors.Join(fmt.Errorf("commit compaction: %w", commitErr), err)
	}

	if _, err := l.file.Seek(size, io.SeekStart); err != nil {
		return err
	}
	l.seq = seq
	l.records = len(keys)
	l.size = size
	l.compactions++
	return nil
}

// Stats reports the file's record counts.
func (l *Log) Stats() LogStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LogStats{
		Records:        l.records,
		Live:           len(l.data),
		Bytes:          l.size,
		TruncatedBytes: l.truncated,
		Compactions:    l.compactions,
	}
}

func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}
