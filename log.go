package raft

// Log supports appending and retrieving log entries in a durable manner.
type Log interface {
	// Open opens the log for reading and writing.
	Open() error

	// Close closes the log.
	Close() error

	// IsOpen reports whether the log is currently open.
	IsOpen() bool

	// GetEntry returns the log entry located at the specified index.
	GetEntry(index uint64) (*LogEntry, error)

	// Contains checks if the log contains an entry at the specified index.
	Contains(index uint64) bool

	// AppendEntries appends the given entries to the log, truncating any
	// existing entries that conflict with the first of the new entries.
	// It returns the index of the last entry actually appended.
	AppendEntries(entries ...*LogEntry) (uint64, error)

	// Truncate deletes all log entries with index greater than or equal to
	// the provided index.
	Truncate(index uint64) error

	// Compact deletes all log entries with index less than or equal to the
	// provided index, used after a snapshot has captured everything through
	// that index.
	Compact(index uint64) error

	// FirstIndex returns the smallest index in the log, or zero if empty.
	FirstIndex() uint64

	// LastIndex returns the largest index in the log, or zero if empty.
	LastIndex() uint64

	// LastTerm returns the term of the last entry in the log, or zero if empty.
	LastTerm() uint64

	// Size returns the number of entries currently in the log.
	Size() int
}
