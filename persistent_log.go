package raft

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/arrowgrove/raftcore/internal/errors"
)

// Error strings.
const (
	errInvalidIndex = "index %d does not exist"
	errLogOpen      = "persistent log %s is open"
	errLogClosed    = "persistent log %s is closed"
)

// PersistentLog implements the Log interface using an append-only file, with
// an in-memory VolatileLog mirroring its contents for fast lookups.
type PersistentLog struct {
	path string
	file *os.File
	vlog *VolatileLog
	mu   sync.Mutex
}

// NewPersistentLog creates a new persistent log rooted at path/log.
func NewPersistentLog(path string) *PersistentLog {
	return &PersistentLog{path: filepath.Join(path, "log"), vlog: NewVolatileLog()}
}

func (l *PersistentLog) Open() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return errors.WrapError(nil, errLogOpen, l.path)
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return errors.WrapError(err, err.Error())
	}
	l.file = file

	for {
		entry := &LogEntry{}
		offset, err := l.file.Seek(0, io.SeekCurrent)
		if err != nil {
			return errors.WrapError(err, err.Error())
		}

		if _, err = entry.Decode(file); err != nil {
			if err == io.EOF {
				break
			}
			return errors.WrapError(err, err.Error())
		}
		entry.Offset = offset

		l.vlog.AppendEntries(entry)
	}

	return nil
}

func (l *PersistentLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.WrapError(nil, errLogClosed, l.path)
	}
	l.file.Close()
	l.file = nil
	l.vlog.Clear()
	return nil
}

func (l *PersistentLog) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file != nil
}

func (l *PersistentLog) GetEntry(index uint64) (*LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil, errors.WrapError(nil, errLogClosed, l.path)
	}
	if !l.vlog.Contains(index) {
		return nil, errors.WrapError(nil, errInvalidIndex, index)
	}

	return l.vlog.GetEntry(index)
}

func (l *PersistentLog) Contains(index uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.vlog.Contains(index)
}

func (l *PersistentLog) AppendEntries(entries ...*LogEntry) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return 0, errors.WrapError(nil, errLogClosed, l.path)
	}

	var toAppend []*LogEntry

	for i, entry := range entries {
		if l.vlog.LastIndex() < entry.Index {
			toAppend = entries[i:]
			break
		}

		existing, err := l.vlog.GetEntry(entry.Index)
		if err == nil && existing.IsConflict(entry) {
			if err := l.truncate(entry.Index); err != nil {
				return 0, err
			}
			toAppend = entries[i:]
			break
		}
	}

	if err := l.persistEntries(toAppend...); err != nil {
		return 0, err
	}
	l.vlog.AppendEntries(toAppend...)

	if len(toAppend) != 0 {
		return toAppend[len(toAppend)-1].Index, nil
	}

	return 0, nil
}

func (l *PersistentLog) Truncate(index uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.truncate(index)
}

// Compact rewrites the log file so that it retains only entries with index
// greater than upTo, atomically replacing the file on disk.
func (l *PersistentLog) Compact(upTo uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return errors.WrapError(nil, errLogClosed, l.path)
	}

	if err := l.vlog.Compact(upTo); err != nil {
		return errors.WrapError(err, "failed to compact in-memory log")
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(l.path), "tmp-log-")
	if err != nil {
		return errors.WrapError(err, "failed to create temporary log file")
	}

	remaining := make([]*LogEntry, 0, l.vlog.Size())
	if l.vlog.Size() > 0 {
		for index := l.vlog.FirstIndex(); index <= l.vlog.LastIndex(); index++ {
			entry, err := l.vlog.GetEntry(index)
			if err != nil {
				return errors.WrapError(err, "failed to read entry during compaction")
			}
			remaining = append(remaining, entry)
		}
	}

	for _, entry := range remaining {
		offset, err := tmpFile.Seek(0, io.SeekCurrent)
		if err != nil {
			return errors.WrapError(err, "failed to seek in temporary log file")
		}
		entry.Offset = offset
		if _, err := entry.Encode(tmpFile); err != nil {
			return errors.WrapError(err, "failed to encode log entry")
		}
	}

	if err := tmpFile.Sync(); err != nil {
		return errors.WrapError(err, "failed to sync temporary log file")
	}
	if err := os.Rename(tmpFile.Name(), l.path); err != nil {
		return errors.WrapError(err, "failed to rename temporary log file")
	}

	l.file.Close()
	l.file = tmpFile

	return nil
}

func (l *PersistentLog) LastTerm() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.vlog.LastTerm()
}

func (l *PersistentLog) FirstIndex() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.vlog.FirstIndex()
}

func (l *PersistentLog) LastIndex() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.vlog.LastIndex()
}

func (l *PersistentLog) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

func (l *PersistentLog) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.vlog.Size()
}

func (l *PersistentLog) persistEntries(entries ...*LogEntry) error {
	// Expects log mutex to be locked - not concurrent safe.
	if l.file == nil {
		return errors.WrapError(nil, errLogClosed, l.path)
	}

	for _, entry := range entries {
		offset, err := l.file.Seek(0, io.SeekCurrent)
		if err != nil {
			return errors.WrapError(err, err.Error())
		}
		entry.Offset = offset
		if _, err = entry.Encode(l.file); err != nil {
			return errors.WrapError(err, err.Error())
		}
	}

	return l.file.Sync()
}

func (l *PersistentLog) truncate(index uint64) error {
	// Expects log mutex to be locked - not concurrent safe.
	if l.file == nil {
		return errors.WrapError(nil, errLogClosed, l.path)
	}

	if !l.vlog.Contains(index) {
		return errors.WrapError(nil, errInvalidIndex, index)
	}

	entry, err := l.vlog.GetEntry(index)
	if err != nil {
		return errors.WrapError(err, err.Error())
	}

	if err := l.file.Truncate(entry.Offset); err != nil {
		return errors.WrapError(err, err.Error())
	}

	return l.vlog.Truncate(index)
}
