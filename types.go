package raft

// Term identifies a raft leadership epoch. Terms increase monotonically and
// let members detect stale leaders and stale RPCs.
type Term = uint64

// LogIndex identifies a position in the replicated log. The log is 1-indexed;
// index 0 means "no entry".
type LogIndex = uint64

// MemberId is the opaque, unique identifier of a cluster member.
type MemberId = string

// PersistentState groups the durable term/vote pair with the most recent
// snapshot (if any). It does not include the log. It is never stored as a
// single unit - StateStorage and SnapshotStorage each own one part of it -
// and nothing in this package constructs it.
type PersistentState struct {
	Term     uint64
	VotedFor string
	Snapshot *Snapshot
}

// Snapshot is a point-in-time compaction of the replicated log: the state
// machine's serialized state as of LastIncludedIndex/LastIncludedTerm, plus
// the cluster configuration in effect at that point so a member restoring
// from a snapshot recovers membership along with data.
type Snapshot struct {
	// LastIncludedIndex is the index of the last log entry the snapshot
	// captures. All log entries at or before this index may be discarded.
	LastIncludedIndex uint64

	// LastIncludedTerm is the term of the last log entry the snapshot
	// captures.
	LastIncludedTerm uint64

	// Data is the state machine's serialized state, opaque to raft.
	Data []byte

	// Configuration is the cluster configuration in effect as of
	// LastIncludedIndex.
	Configuration Configuration
}
