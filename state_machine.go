package raft

// StateMachine is an interface representing a replicated state machine.
type StateMachine interface {
	// ConsiderChange reports whether a proposed operation is semantically
	// valid, without mutating any state. It must be pure and deterministic:
	// given the same prior sequence of applied entries, it must always
	// return the same answer for the same bytes. Both the leader, before
	// appending a proposal to its own log, and every follower, before
	// appending it to theirs, call this - a false veto anywhere aborts the
	// proposal without ever applying it.
	ConsiderChange(change []byte) bool

	// Apply applies the given log entry to the state machine.
	Apply(entry *LogEntry) interface{}

	// Snapshot returns a snapshot of the current state of the state machine.
	// The bytes contained in the snapshot must be serialized in a way that
	// the Restore function can understand.
	Snapshot() (Snapshot, error)

	// Restore recovers the state of the state machine given a snapshot that was produced
	// by Snapshot.
	Restore(snapshot *Snapshot) error

	// NeedSnapshot reports whether the state machine believes enough state has
	// accumulated since the last snapshot to warrant taking another one. Raft
	// consults this alongside its own SnapshotPolicy before compacting the log.
	NeedSnapshot() bool
}
