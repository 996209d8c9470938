package raft

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRaft(t *testing.T) *Raft {
	dir := t.TempDir()
	fsm := newStateMachineMock(false, 0)
	responseCh := make(chan OperationResponse, 8)
	peers := map[string]string{"self": "127.0.0.1:8080"}

	raft, err := NewRaft("self", "127.0.0.1:8080", dir, peers, fsm, responseCh)
	require.NoError(t, err)
	require.NoError(t, raft.log.Open())
	t.Cleanup(func() { raft.log.Close() })

	return raft
}

// TestNewRaft checks that a newly created raft has the expected zero-value
// state and default options before Start is called.
func TestNewRaft(t *testing.T) {
	raft := newTestRaft(t)

	require.Zero(t, raft.state.getCurrentTerm())
	require.Zero(t, raft.state.getLastApplied())
	require.Zero(t, raft.lastIncludedIndex)
	require.Zero(t, raft.lastIncludedTerm)
	require.Equal(t, "", raft.state.getVotedFor())

	require.Equal(t, defaultHeartbeat, raft.options.heartbeatInterval)
	require.Equal(t, defaultElectionTimeout, raft.options.electionTimeout)
	require.Equal(t, defaultLeaseDuration, raft.options.leaseDuration)
}

// TestHandleAppendEntriesSuccess checks that raft handles a basic
// AppendEntries request that should be successful.
func TestHandleAppendEntriesSuccess(t *testing.T) {
	raft := newTestRaft(t)

	raft.state.setCurrentTerm(1)
	raft.state.setVotedFor("test-leader")
	raft.state.setState(Follower)

	entries := []*LogEntry{NewLogEntry(1, 1, []byte("test1"))}
	request := &AppendEntriesRequest{
		Entries:      entries,
		LeaderID:     "test-leader",
		LeaderCommit: 1,
		Term:         1,
		PrevLogIndex: 0,
		PrevLogTerm:  0,
	}
	response := &AppendEntriesResponse{}

	require.NoError(t, raft.handleAppendEntries(request, response))
	require.Equal(t, AppendEntriesSuccess, response.Outcome)
	require.Equal(t, uint64(1), response.Term)
	require.Equal(t, uint64(1), raft.state.getCommitIndex())

	entry, err := raft.log.GetEntry(1)
	require.NoError(t, err)
	validateLogEntry(t, entry, 1, 1, []byte("test1"))
}

// TestHandleAppendEntriesConflict checks that raft correctly truncates and
// replaces log entries that conflict with a leader's entries at the same
// index but a different term.
func TestHandleAppendEntriesConflict(t *testing.T) {
	raft := newTestRaft(t)

	raft.state.setCurrentTerm(2)
	raft.state.setVotedFor("test-leader")
	raft.state.setState(Follower)

	entries := []*LogEntry{NewLogEntry(1, 1, []byte("test1")), NewLogEntry(2, 1, []byte("test2"))}
	request := &AppendEntriesRequest{
		Entries:      entries,
		LeaderID:     "test-leader",
		LeaderCommit: 0,
		Term:         2,
		PrevLogIndex: 0,
		PrevLogTerm:  0,
	}
	response := &AppendEntriesResponse{}

	require.NoError(t, raft.handleAppendEntries(request, response))
	require.Equal(t, AppendEntriesSuccess, response.Outcome)

	conflicting := []*LogEntry{NewLogEntry(1, 1, []byte("test1")), NewLogEntry(2, 2, []byte("test2-b"))}
	request.Entries = conflicting
	response = &AppendEntriesResponse{}

	require.NoError(t, raft.handleAppendEntries(request, response))
	require.Equal(t, AppendEntriesSuccess, response.Outcome)

	entry, err := raft.log.GetEntry(1)
	require.NoError(t, err)
	validateLogEntry(t, entry, 1, 1, []byte("test1"))

	entry, err = raft.log.GetEntry(2)
	require.NoError(t, err)
	validateLogEntry(t, entry, 2, 2, []byte("test2-b"))
}

// TestHandleAppendEntriesStepDown checks that a raft instance in the leader
// state steps down to follower when it receives an AppendEntries request
// with a higher term than its own.
func TestHandleAppendEntriesStepDown(t *testing.T) {
	raft := newTestRaft(t)

	raft.state.setCurrentTerm(1)
	raft.state.setVotedFor("self")
	raft.state.setState(Leader)

	request := &AppendEntriesRequest{
		Entries:      nil,
		LeaderID:     "other-leader",
		LeaderCommit: 0,
		Term:         3,
		PrevLogIndex: 0,
		PrevLogTerm:  0,
	}
	response := &AppendEntriesResponse{}

	require.NoError(t, raft.handleAppendEntries(request, response))
	require.Equal(t, AppendEntriesSuccess, response.Outcome)
	require.Equal(t, uint64(3), response.Term)

	require.Equal(t, uint64(3), raft.state.getCurrentTerm())
	require.Equal(t, Follower, raft.state.getState())
}

// TestHandleAppendEntriesStaleTermRetries checks that raft asks a leader
// whose term is behind its own to retry rather than rejecting it outright -
// Rejected is reserved for the state machine adapter vetoing an entry.
func TestHandleAppendEntriesStaleTermRetries(t *testing.T) {
	raft := newTestRaft(t)

	raft.state.setCurrentTerm(5)
	raft.state.setState(Follower)

	request := &AppendEntriesRequest{
		LeaderID: "stale-leader",
		Term:     3,
	}
	response := &AppendEntriesResponse{}

	require.NoError(t, raft.handleAppendEntries(request, response))
	require.Equal(t, AppendEntriesRetry, response.Outcome)
	require.Equal(t, uint64(5), response.Term)
}

// TestHandleAppendEntriesRejectsInvalidProposal checks that a follower vetoes
// a proposed entry the state machine adapter considers invalid, without
// mutating its log or commit index.
func TestHandleAppendEntriesRejectsInvalidProposal(t *testing.T) {
	raft := newTestRaft(t)
	raft.fsm = newStateMachineMock(false, 0)
	raft.fsm.(*stateMachineMock).rejectAll = true

	raft.state.setCurrentTerm(1)
	raft.state.setState(Follower)

	entries := []*LogEntry{NewLogEntry(1, 1, []byte("bad-change"))}
	request := &AppendEntriesRequest{
		Entries:      entries,
		LeaderID:     "test-leader",
		LeaderCommit: 0,
		Term:         1,
		PrevLogIndex: 0,
		PrevLogTerm:  0,
	}
	response := &AppendEntriesResponse{}

	require.NoError(t, raft.handleAppendEntries(request, response))
	require.Equal(t, AppendEntriesRejected, response.Outcome)
	require.Equal(t, uint64(1), response.RejectedIndex)
	require.Zero(t, raft.log.LastIndex())
}
