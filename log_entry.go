package raft

import (
	"encoding/binary"
	"io"

	pb "github.com/arrowgrove/raftcore/internal/protobuf"
	"github.com/golang/protobuf/proto"
)

// LogEntryType distinguishes what an entry's payload represents.
type LogEntryType uint32

const (
	// EntryOperation carries a user-submitted change to be applied to the state machine.
	EntryOperation LogEntryType = iota

	// EntryConfiguration carries a serialized Configuration and drives a membership change.
	EntryConfiguration

	// EntryNoOp is written by a new leader on election so it can discover the commit
	// index of prior terms without waiting on a client-submitted change.
	EntryNoOp
)

func (t LogEntryType) String() string {
	switch t {
	case EntryOperation:
		return "operation"
	case EntryConfiguration:
		return "configuration"
	case EntryNoOp:
		return "no-op"
	default:
		panic("invalid log entry type")
	}
}

// LogEntry is a single entry in a raft log.
type LogEntry struct {
	// Index is the position of this entry in the log.
	Index uint64

	// Term is the term in which this entry was created by a leader.
	Term uint64

	// Data is the entry's payload, opaque to the log itself.
	Data []byte

	// EntryType discriminates a replicated user change from a configuration
	// change or a leader no-op.
	EntryType LogEntryType

	// Offset is the byte offset of this entry within the log file. It is
	// populated when the entry is read back from persistent storage and is
	// used to support truncation without rescanning the file.
	Offset int64
}

// NewLogEntry creates a log entry of type EntryOperation with the given index, term, and data.
func NewLogEntry(index uint64, term uint64, data []byte) *LogEntry {
	return &LogEntry{Index: index, Term: term, Data: data, EntryType: EntryOperation}
}

// IsConflict reports whether the two entries occupy the same index but were
// created in different terms, meaning one of them must be discarded.
func (e *LogEntry) IsConflict(other *LogEntry) bool {
	return e.Index == other.Index && e.Term != other.Term
}

// Encode writes the entry to w as a length-prefixed protobuf message. The
// entry's Offset is written as already set; Encode does not compute or
// record it.
func (e *LogEntry) Encode(w io.Writer) (int, error) {
	pbEntry := &pb.LogEntry{
		Index:     e.Index,
		Term:      e.Term,
		Data:      e.Data,
		EntryType: pb.LogEntry_LogEntryType(e.EntryType),
		Offset:    e.Offset,
	}

	encoded, err := proto.Marshal(pbEntry)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(len(encoded)))
	if _, err := w.Write(buf); err != nil {
		return 0, err
	}

	n, err := w.Write(encoded)
	if err != nil {
		return 0, err
	}

	return n, nil
}

// Decode reads a length-prefixed protobuf message from r into the entry.
func (e *LogEntry) Decode(r io.Reader) (int, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, err
	}
	length := binary.BigEndian.Uint32(buf)

	encoded := make([]byte, length)
	if _, err := io.ReadFull(r, encoded); err != nil {
		return 0, err
	}

	pbEntry := &pb.LogEntry{}
	if err := proto.Unmarshal(encoded, pbEntry); err != nil {
		return 0, err
	}

	e.Index = pbEntry.GetIndex()
	e.Term = pbEntry.GetTerm()
	e.Data = pbEntry.GetData()
	e.EntryType = LogEntryType(pbEntry.GetEntryType())

	return len(encoded), nil
}
