package raft

import "fmt"

const invalidIndexErrorFormat = "invalid index: log does not contain index %d"

// VolatileLog is an in-memory ordered sequence of log entries. It backs
// PersistentLog and is also used standalone by tests that do not need
// durability.
type VolatileLog struct {
	entries []*LogEntry
}

func NewVolatileLog() *VolatileLog {
	return &VolatileLog{entries: make([]*LogEntry, 0)}
}

func (l *VolatileLog) Size() int {
	return len(l.entries)
}

func (l *VolatileLog) FirstIndex() uint64 {
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[0].Index
}

func (l *VolatileLog) LastIndex() uint64 {
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Index
}

func (l *VolatileLog) LastTerm() uint64 {
	if len(l.entries) == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Term
}

func (l *VolatileLog) AppendEntries(entries ...*LogEntry) {
	l.entries = append(l.entries, entries...)
}

func (l *VolatileLog) GetEntry(index uint64) (*LogEntry, error) {
	if !l.Contains(index) {
		return nil, fmt.Errorf(invalidIndexErrorFormat, index)
	}
	return l.entries[index-l.entries[0].Index], nil
}

// Truncate discards all entries from the given index (inclusive) onward.
func (l *VolatileLog) Truncate(from uint64) error {
	if !l.Contains(from) {
		return fmt.Errorf(invalidIndexErrorFormat, from)
	}
	l.entries = l.entries[:from-l.entries[0].Index]
	return nil
}

// Compact discards all entries up to and including the given index, used
// after a snapshot has captured everything through that index.
func (l *VolatileLog) Compact(upTo uint64) error {
	if len(l.entries) == 0 {
		return nil
	}
	if upTo < l.entries[0].Index-1 {
		return fmt.Errorf(invalidIndexErrorFormat, upTo)
	}
	if upTo >= l.LastIndex() {
		l.entries = l.entries[:0]
		return nil
	}
	l.entries = l.entries[upTo+1-l.entries[0].Index:]
	return nil
}

func (l *VolatileLog) Clear() {
	l.entries = make([]*LogEntry, 0)
}

func (l *VolatileLog) Contains(index uint64) bool {
	if len(l.entries) == 0 {
		return false
	}
	return l.entries[0].Index <= index && index <= l.entries[len(l.entries)-1].Index
}
