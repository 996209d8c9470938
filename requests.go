package raft

import pb "github.com/arrowgrove/raftcore/internal/protobuf"

// AppendEntriesOutcome is the three-way result of an AppendEntries call: a
// follower can accept the entries, ask the leader to retry with an earlier
// PrevLogIndex/PrevLogTerm because the leader's term is stale or the log did
// not match, or veto the request because the state machine adapter
// considers one of the proposed entries semantically invalid.
type AppendEntriesOutcome uint32

const (
	// AppendEntriesSuccess means the entries (if any) were appended.
	AppendEntriesSuccess AppendEntriesOutcome = iota

	// AppendEntriesRetry means either the leader's term was stale or the
	// follower's log does not contain an entry at PrevLogIndex with term
	// PrevLogTerm; the leader should retry, backing off using the
	// conflict information returned.
	AppendEntriesRetry

	// AppendEntriesRejected means the state machine adapter refused one
	// of the proposed entries as semantically invalid. This is a
	// non-Raft extension: it lets a follower veto a bad proposal instead
	// of forcing the leader to retry it forever.
	AppendEntriesRejected
)

func (o AppendEntriesOutcome) String() string {
	switch o {
	case AppendEntriesSuccess:
		return "success"
	case AppendEntriesRetry:
		return "retry"
	case AppendEntriesRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// AppendEntriesRequest is a request invoked by the leader to replicate log entries and also serves as a heartbeat.
type AppendEntriesRequest struct {
	// The leader's ID. Allows followers to redirect clients.
	LeaderID string

	// The leader's Term.
	Term uint64

	// The leader's commit index.
	LeaderCommit uint64

	// The index of the log entry immediately preceding the new ones.
	PrevLogIndex uint64

	// The term of the log entry immediately preceding the new ones.
	PrevLogTerm uint64

	// Contains the log Entries to store (empty for heartbeat).
	Entries []*LogEntry
}

// AppendEntriesResponse is a response to a request to replicate log entries.
type AppendEntriesResponse struct {
	// The term of the server that received the request.
	Term uint64

	// The three-way outcome of the request.
	Outcome AppendEntriesOutcome

	// When Outcome is AppendEntriesRetry, the index of the first entry the
	// follower has for the conflicting term, or the follower's last index
	// plus one if it has no entry at all at PrevLogIndex. Lets the leader
	// back up nextIndex by more than one entry per round trip.
	ConflictIndex uint64

	// When Outcome is AppendEntriesRetry, the term of the conflicting entry
	// at PrevLogIndex, or zero if the follower's log is simply too short.
	ConflictTerm uint64

	// When Outcome is AppendEntriesRejected, the log index of the first
	// proposed entry the state machine adapter refused.
	RejectedIndex uint64
}

// RequestVoteRequest is a request invoked by candidates to gather votes.
type RequestVoteRequest struct {
	// The ID of the candidate requesting the vote.
	CandidateID string

	// The candidate's term.
	Term uint64

	// The index of the candidate's last log entry.
	LastLogIndex uint64

	// The term of the candidate's last log entry.
	LastLogTerm uint64
}

// RequestVoteResponse is a response to a request for a vote.
type RequestVoteResponse struct {
	// The term of the server that received the request.
	Term uint64

	// Indicates whether the vote request was successful.
	VoteGranted bool
}

// InstallSnapshotRequest is invoked by the leader to send a snapshot to a follower.
type InstallSnapshotRequest struct {
	// The leader's ID.
	LeaderID string

	// The leader's Term.
	Term uint64

	// The snapshot replaces all entries up to and including
	// this index.
	LastIncludedIndex uint64

	// The term associated with the last included index.
	LastIncludedTerm uint64

	// The state of the state machine in Bytes.
	Bytes []byte
}

// InstallSnapshotResponse is a response to a snapshot installation.
type InstallSnapshotResponse struct {
	// The term of the server that received the request.
	Term uint64
}

// makeProtoEntries converts an array of LogEntry instances to an array of protobuf LogEntry instances.
func makeProtoEntries(entries []*LogEntry) []*pb.LogEntry {
	protoEntries := make([]*pb.LogEntry, len(entries))
	for i, entry := range entries {
		protoEntries[i] = &pb.LogEntry{
			Index:     entry.Index,
			Term:      entry.Term,
			Data:      entry.Data,
			EntryType: pb.LogEntry_LogEntryType(entry.EntryType),
			Offset:    entry.Offset,
		}
	}
	return protoEntries
}

// makeEntries converts an array of protobuf LogEntry instances to an array of LogEntry instances.
func makeEntries(protoEntries []*pb.LogEntry) []*LogEntry {
	entries := make([]*LogEntry, len(protoEntries))
	for i, protoEntry := range protoEntries {
		entries[i] = &LogEntry{
			Index:     protoEntry.GetIndex(),
			Term:      protoEntry.GetTerm(),
			Data:      protoEntry.GetData(),
			EntryType: LogEntryType(protoEntry.GetEntryType()),
			Offset:    protoEntry.GetOffset(),
		}
	}
	return entries
}

// makeProtoRequestVoteRequest converts a RequestVoteRequest instance to a protobuf RequestVoteRequest instance.
func makeProtoRequestVoteRequest(request RequestVoteRequest) *pb.RequestVoteRequest {
	return &pb.RequestVoteRequest{
		CandidateId:  request.CandidateID,
		Term:         request.Term,
		LastLogIndex: request.LastLogIndex,
		LastLogTerm:  request.LastLogTerm,
	}
}

// makeRequestVoteRequest converts a protobuf RequestVoteRequest instance to a RequestVoteRequest instance.
func makeRequestVoteRequest(request *pb.RequestVoteRequest) RequestVoteRequest {
	return RequestVoteRequest{
		CandidateID:  request.GetCandidateId(),
		Term:         request.GetTerm(),
		LastLogIndex: request.GetLastLogIndex(),
		LastLogTerm:  request.GetLastLogTerm(),
	}
}

// makeRequestVoteResponse converts a protobuf RequestVoteResponse instance to a RequestVoteResponse instance.
func makeRequestVoteResponse(response *pb.RequestVoteResponse) RequestVoteResponse {
	return RequestVoteResponse{
		Term:        response.GetTerm(),
		VoteGranted: response.GetVoteGranted(),
	}
}

// makeProtoRequestVoteResponse converts a RequestVoteResponse instance to a protobuf RequestVoteResponse instance.
func makeProtoRequestVoteResponse(response RequestVoteResponse) *pb.RequestVoteResponse {
	return &pb.RequestVoteResponse{
		Term:        response.Term,
		VoteGranted: response.VoteGranted,
	}
}

// makeProtoAppendEntriesRequest converts an AppendEntriesRequest instance to a protobuf AppendEntriesRequest instance.
func makeProtoAppendEntriesRequest(request AppendEntriesRequest) *pb.AppendEntriesRequest {
	return &pb.AppendEntriesRequest{
		LeaderId:     request.LeaderID,
		Term:         request.Term,
		LeaderCommit: request.LeaderCommit,
		PrevLogIndex: request.PrevLogIndex,
		PrevLogTerm:  request.PrevLogTerm,
		Entries:      makeProtoEntries(request.Entries),
	}
}

// makeAppendEntriesRequest converts a protobuf AppendEntriesRequest instance to an AppendEntriesRequest instance.
func makeAppendEntriesRequest(request *pb.AppendEntriesRequest) AppendEntriesRequest {
	return AppendEntriesRequest{
		LeaderID:     request.GetLeaderId(),
		Term:         request.GetTerm(),
		LeaderCommit: request.GetLeaderCommit(),
		PrevLogIndex: request.GetPrevLogIndex(),
		PrevLogTerm:  request.GetPrevLogTerm(),
		Entries:      makeEntries(request.GetEntries()),
	}
}

// makeAppendEntriesResponse converts a protobuf AppendEntriesResponse instance to an AppendEntriesResponse instance.
func makeAppendEntriesResponse(response *pb.AppendEntriesResponse) AppendEntriesResponse {
	return AppendEntriesResponse{
		Term:          response.GetTerm(),
		Outcome:       AppendEntriesOutcome(response.GetOutcome()),
		ConflictIndex: response.GetConflictIndex(),
		ConflictTerm:  response.GetConflictTerm(),
		RejectedIndex: response.GetRejectedIndex(),
	}
}

// makeProtoAppendEntriesResponse converts an AppendEntriesResponse instance to a protobuf AppendEntriesResponse instance.
func makeProtoAppendEntriesResponse(response AppendEntriesResponse) *pb.AppendEntriesResponse {
	return &pb.AppendEntriesResponse{
		Term:          response.Term,
		Outcome:       pb.AppendEntriesResponse_Outcome(response.Outcome),
		ConflictIndex: response.ConflictIndex,
		ConflictTerm:  response.ConflictTerm,
		RejectedIndex: response.RejectedIndex,
	}
}

// makeProtoInstallSnapshotRequest converts an InstallSnapshotRequest instance to a protobuf InstallSnapshotRequest instance.
func makeProtoInstallSnapshotRequest(request InstallSnapshotRequest) *pb.InstallSnapshotRequest {
	return &pb.InstallSnapshotRequest{
		LeaderId:          request.LeaderID,
		Term:              request.Term,
		LastIncludedIndex: request.LastIncludedIndex,
		LastIncludedTerm:  request.LastIncludedTerm,
		Data:              request.Bytes,
	}
}

// makeInstallSnapshotRequest converts a protobuf InstallSnapshotRequest instance to a InstallSnapshotRequest instance.
func makeInstallSnapshotRequest(request *pb.InstallSnapshotRequest) InstallSnapshotRequest {
	return InstallSnapshotRequest{
		LeaderID:          request.GetLeaderId(),
		Term:              request.GetTerm(),
		LastIncludedIndex: request.GetLastIncludedIndex(),
		LastIncludedTerm:  request.GetLastIncludedTerm(),
		Bytes:             request.GetData(),
	}
}

// makeInstallSnapshotResponse converts an protobuf InstallSnapshotResponse instance to a InstallSnapshotResponse instance.
func makeInstallSnapshotResponse(response *pb.InstallSnapshotResponse) InstallSnapshotResponse {
	return InstallSnapshotResponse{
		Term: response.GetTerm(),
	}
}

// makeProtoInstallSnapshotResponse converts an InstallSnapshotResponse instance to a protobuf InstallSnapshotResponse instance.
func makeProtoInstallSnapshotResponse(
	response InstallSnapshotResponse,
) *pb.InstallSnapshotResponse {
	return &pb.InstallSnapshotResponse{
		Term: response.Term,
	}
}
