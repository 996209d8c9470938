// Package protobuf contains the wire messages exchanged between raft
// members. It is written in the shape protoc-gen-go would produce, but is
// hand maintained: the module carries no .proto files or protoc invocation,
// so these types implement the legacy proto.Message contract (Reset/String/
// ProtoMessage plus struct tags) that google.golang.org/protobuf marshals
// through reflection without a compiled descriptor.
package protobuf

import "fmt"

// LogEntry_LogEntryType distinguishes what a log entry's payload represents.
type LogEntry_LogEntryType int32

const (
	LogEntry_OPERATION     LogEntry_LogEntryType = 0
	LogEntry_CONFIGURATION LogEntry_LogEntryType = 1
	LogEntry_NOOP          LogEntry_LogEntryType = 2
)

func (t LogEntry_LogEntryType) String() string {
	switch t {
	case LogEntry_OPERATION:
		return "OPERATION"
	case LogEntry_CONFIGURATION:
		return "CONFIGURATION"
	case LogEntry_NOOP:
		return "NOOP"
	default:
		return fmt.Sprintf("LogEntry_LogEntryType(%d)", int32(t))
	}
}

// AppendEntriesResponse_Outcome is the three way result of an AppendEntries call.
type AppendEntriesResponse_Outcome int32

const (
	AppendEntriesResponse_SUCCESS  AppendEntriesResponse_Outcome = 0
	AppendEntriesResponse_RETRY    AppendEntriesResponse_Outcome = 1
	AppendEntriesResponse_REJECTED AppendEntriesResponse_Outcome = 2
)

func (o AppendEntriesResponse_Outcome) String() string {
	switch o {
	case AppendEntriesResponse_SUCCESS:
		return "SUCCESS"
	case AppendEntriesResponse_RETRY:
		return "RETRY"
	case AppendEntriesResponse_REJECTED:
		return "REJECTED"
	default:
		return fmt.Sprintf("AppendEntriesResponse_Outcome(%d)", int32(o))
	}
}

// Configuration_Kind distinguishes a stable configuration from one in the
// middle of a joint-consensus membership change.
type Configuration_Kind int32

const (
	Configuration_STABLE Configuration_Kind = 0
	Configuration_JOINT  Configuration_Kind = 1
)

func (k Configuration_Kind) String() string {
	switch k {
	case Configuration_STABLE:
		return "STABLE"
	case Configuration_JOINT:
		return "JOINT"
	default:
		return fmt.Sprintf("Configuration_Kind(%d)", int32(k))
	}
}

// LogEntry is a single entry in the replicated log.
type LogEntry struct {
	Index     uint64                `protobuf:"varint,1,opt,name=index,proto3" json:"index,omitempty"`
	Term      uint64                `protobuf:"varint,2,opt,name=term,proto3" json:"term,omitempty"`
	Data      []byte                `protobuf:"bytes,3,opt,name=data,proto3" json:"data,omitempty"`
	EntryType LogEntry_LogEntryType `protobuf:"varint,4,opt,name=entry_type,json=entryType,proto3,enum=protobuf.LogEntry_LogEntryType" json:"entry_type,omitempty"`
	Offset    int64                 `protobuf:"varint,5,opt,name=offset,proto3" json:"offset,omitempty"`
}

func (m *LogEntry) Reset()         { *m = LogEntry{} }
func (m *LogEntry) String() string { return fmt.Sprintf("%+v", *m) }
func (*LogEntry) ProtoMessage()    {}

func (m *LogEntry) GetIndex() uint64 {
	if m != nil {
		return m.Index
	}
	return 0
}

func (m *LogEntry) GetTerm() uint64 {
	if m != nil {
		return m.Term
	}
	return 0
}

func (m *LogEntry) GetData() []byte {
	if m != nil {
		return m.Data
	}
	return nil
}

func (m *LogEntry) GetEntryType() LogEntry_LogEntryType {
	if m != nil {
		return m.EntryType
	}
	return LogEntry_OPERATION
}

func (m *LogEntry) GetOffset() int64 {
	if m != nil {
		return m.Offset
	}
	return 0
}

// AppendEntriesRequest is sent by the leader to replicate log entries and to serve as a heartbeat.
type AppendEntriesRequest struct {
	LeaderId     string      `protobuf:"bytes,1,opt,name=leader_id,json=leaderId,proto3" json:"leader_id,omitempty"`
	Term         uint64      `protobuf:"varint,2,opt,name=term,proto3" json:"term,omitempty"`
	LeaderCommit uint64      `protobuf:"varint,3,opt,name=leader_commit,json=leaderCommit,proto3" json:"leader_commit,omitempty"`
	PrevLogIndex uint64      `protobuf:"varint,4,opt,name=prev_log_index,json=prevLogIndex,proto3" json:"prev_log_index,omitempty"`
	PrevLogTerm  uint64      `protobuf:"varint,5,opt,name=prev_log_term,json=prevLogTerm,proto3" json:"prev_log_term,omitempty"`
	Entries      []*LogEntry `protobuf:"bytes,6,rep,name=entries,proto3" json:"entries,omitempty"`
}

func (m *AppendEntriesRequest) Reset()         { *m = AppendEntriesRequest{} }
func (m *AppendEntriesRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*AppendEntriesRequest) ProtoMessage()    {}

func (m *AppendEntriesRequest) GetLeaderId() string {
	if m != nil {
		return m.LeaderId
	}
	return ""
}

func (m *AppendEntriesRequest) GetTerm() uint64 {
	if m != nil {
		return m.Term
	}
	return 0
}

func (m *AppendEntriesRequest) GetLeaderCommit() uint64 {
	if m != nil {
		return m.LeaderCommit
	}
	return 0
}

func (m *AppendEntriesRequest) GetPrevLogIndex() uint64 {
	if m != nil {
		return m.PrevLogIndex
	}
	return 0
}

func (m *AppendEntriesRequest) GetPrevLogTerm() uint64 {
	if m != nil {
		return m.PrevLogTerm
	}
	return 0
}

func (m *AppendEntriesRequest) GetEntries() []*LogEntry {
	if m != nil {
		return m.Entries
	}
	return nil
}

// AppendEntriesResponse is the reply to an AppendEntries RPC.
type AppendEntriesResponse struct {
	Term          uint64                        `protobuf:"varint,1,opt,name=term,proto3" json:"term,omitempty"`
	Outcome       AppendEntriesResponse_Outcome `protobuf:"varint,2,opt,name=outcome,proto3,enum=protobuf.AppendEntriesResponse_Outcome" json:"outcome,omitempty"`
	ConflictIndex uint64                        `protobuf:"varint,3,opt,name=conflict_index,json=conflictIndex,proto3" json:"conflict_index,omitempty"`
	ConflictTerm  uint64                        `protobuf:"varint,4,opt,name=conflict_term,json=conflictTerm,proto3" json:"conflict_term,omitempty"`
	RejectedIndex uint64                        `protobuf:"varint,5,opt,name=rejected_index,json=rejectedIndex,proto3" json:"rejected_index,omitempty"`
}

func (m *AppendEntriesResponse) Reset()         { *m = AppendEntriesResponse{} }
func (m *AppendEntriesResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*AppendEntriesResponse) ProtoMessage()    {}

func (m *AppendEntriesResponse) GetTerm() uint64 {
	if m != nil {
		return m.Term
	}
	return 0
}

func (m *AppendEntriesResponse) GetOutcome() AppendEntriesResponse_Outcome {
	if m != nil {
		return m.Outcome
	}
	return AppendEntriesResponse_SUCCESS
}

func (m *AppendEntriesResponse) GetConflictIndex() uint64 {
	if m != nil {
		return m.ConflictIndex
	}
	return 0
}

func (m *AppendEntriesResponse) GetConflictTerm() uint64 {
	if m != nil {
		return m.ConflictTerm
	}
	return 0
}

func (m *AppendEntriesResponse) GetRejectedIndex() uint64 {
	if m != nil {
		return m.RejectedIndex
	}
	return 0
}

// RequestVoteRequest is sent by a candidate to gather votes.
type RequestVoteRequest struct {
	CandidateId  string `protobuf:"bytes,1,opt,name=candidate_id,json=candidateId,proto3" json:"candidate_id,omitempty"`
	Term         uint64 `protobuf:"varint,2,opt,name=term,proto3" json:"term,omitempty"`
	LastLogIndex uint64 `protobuf:"varint,3,opt,name=last_log_index,json=lastLogIndex,proto3" json:"last_log_index,omitempty"`
	LastLogTerm  uint64 `protobuf:"varint,4,opt,name=last_log_term,json=lastLogTerm,proto3" json:"last_log_term,omitempty"`
}

func (m *RequestVoteRequest) Reset()         { *m = RequestVoteRequest{} }
func (m *RequestVoteRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*RequestVoteRequest) ProtoMessage()    {}

func (m *RequestVoteRequest) GetCandidateId() string {
	if m != nil {
		return m.CandidateId
	}
	return ""
}

func (m *RequestVoteRequest) GetTerm() uint64 {
	if m != nil {
		return m.Term
	}
	return 0
}

func (m *RequestVoteRequest) GetLastLogIndex() uint64 {
	if m != nil {
		return m.LastLogIndex
	}
	return 0
}

func (m *RequestVoteRequest) GetLastLogTerm() uint64 {
	if m != nil {
		return m.LastLogTerm
	}
	return 0
}

// RequestVoteResponse is the reply to a RequestVote RPC.
type RequestVoteResponse struct {
	Term        uint64 `protobuf:"varint,1,opt,name=term,proto3" json:"term,omitempty"`
	VoteGranted bool   `protobuf:"varint,2,opt,name=vote_granted,json=voteGranted,proto3" json:"vote_granted,omitempty"`
}

func (m *RequestVoteResponse) Reset()         { *m = RequestVoteResponse{} }
func (m *RequestVoteResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*RequestVoteResponse) ProtoMessage()    {}

func (m *RequestVoteResponse) GetTerm() uint64 {
	if m != nil {
		return m.Term
	}
	return 0
}

func (m *RequestVoteResponse) GetVoteGranted() bool {
	if m != nil {
		return m.VoteGranted
	}
	return false
}

// InstallSnapshotRequest is sent by the leader to transfer a snapshot to a follower that has fallen too far behind.
type InstallSnapshotRequest struct {
	LeaderId          string `protobuf:"bytes,1,opt,name=leader_id,json=leaderId,proto3" json:"leader_id,omitempty"`
	Term              uint64 `protobuf:"varint,2,opt,name=term,proto3" json:"term,omitempty"`
	LastIncludedIndex uint64 `protobuf:"varint,3,opt,name=last_included_index,json=lastIncludedIndex,proto3" json:"last_included_index,omitempty"`
	LastIncludedTerm  uint64 `protobuf:"varint,4,opt,name=last_included_term,json=lastIncludedTerm,proto3" json:"last_included_term,omitempty"`
	Data              []byte `protobuf:"bytes,5,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *InstallSnapshotRequest) Reset()         { *m = InstallSnapshotRequest{} }
func (m *InstallSnapshotRequest) String() string { return fmt.Sprintf("%+v", *m) }
func (*InstallSnapshotRequest) ProtoMessage()    {}

func (m *InstallSnapshotRequest) GetLeaderId() string {
	if m != nil {
		return m.LeaderId
	}
	return ""
}

func (m *InstallSnapshotRequest) GetTerm() uint64 {
	if m != nil {
		return m.Term
	}
	return 0
}

func (m *InstallSnapshotRequest) GetLastIncludedIndex() uint64 {
	if m != nil {
		return m.LastIncludedIndex
	}
	return 0
}

func (m *InstallSnapshotRequest) GetLastIncludedTerm() uint64 {
	if m != nil {
		return m.LastIncludedTerm
	}
	return 0
}

func (m *InstallSnapshotRequest) GetData() []byte {
	if m != nil {
		return m.Data
	}
	return nil
}

// InstallSnapshotResponse is the reply to an InstallSnapshot RPC.
type InstallSnapshotResponse struct {
	Term uint64 `protobuf:"varint,1,opt,name=term,proto3" json:"term,omitempty"`
}

func (m *InstallSnapshotResponse) Reset()         { *m = InstallSnapshotResponse{} }
func (m *InstallSnapshotResponse) String() string { return fmt.Sprintf("%+v", *m) }
func (*InstallSnapshotResponse) ProtoMessage()    {}

func (m *InstallSnapshotResponse) GetTerm() uint64 {
	if m != nil {
		return m.Term
	}
	return 0
}

// Configuration is the wire representation of cluster membership, including
// the joint old/new member sets used while a membership change is underway.
type Configuration struct {
	Kind         Configuration_Kind `protobuf:"varint,1,opt,name=kind,proto3,enum=protobuf.Configuration_Kind" json:"kind,omitempty"`
	Members      map[string]string  `protobuf:"bytes,2,rep,name=members,proto3" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"bytes,2,opt,name=value,proto3" json:"members,omitempty"`
	IsVoter      map[string]bool    `protobuf:"bytes,3,rep,name=is_voter,json=isVoter,proto3" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"varint,2,opt,name=value,proto3" json:"is_voter,omitempty"`
	OldMembers   map[string]string  `protobuf:"bytes,4,rep,name=old_members,json=oldMembers,proto3" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"bytes,2,opt,name=value,proto3" json:"old_members,omitempty"`
	OldIsVoter   map[string]bool    `protobuf:"bytes,5,rep,name=old_is_voter,json=oldIsVoter,proto3" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"varint,2,opt,name=value,proto3" json:"old_is_voter,omitempty"`
	NewMembers   map[string]string  `protobuf:"bytes,6,rep,name=new_members,json=newMembers,proto3" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"bytes,2,opt,name=value,proto3" json:"new_members,omitempty"`
	NewIsVoter   map[string]bool    `protobuf:"bytes,7,rep,name=new_is_voter,json=newIsVoter,proto3" protobuf_key:"bytes,1,opt,name=key,proto3" protobuf_val:"varint,2,opt,name=value,proto3" json:"new_is_voter,omitempty"`
	Index        uint64             `protobuf:"varint,8,opt,name=index,proto3" json:"index,omitempty"`
}

func (m *Configuration) Reset()         { *m = Configuration{} }
func (m *Configuration) String() string { return fmt.Sprintf("%+v", *m) }
func (*Configuration) ProtoMessage()    {}

func (m *Configuration) GetKind() Configuration_Kind {
	if m != nil {
		return m.Kind
	}
	return Configuration_STABLE
}

func (m *Configuration) GetMembers() map[string]string {
	if m != nil {
		return m.Members
	}
	return nil
}

func (m *Configuration) GetIsVoter() map[string]bool {
	if m != nil {
		return m.IsVoter
	}
	return nil
}

func (m *Configuration) GetOldMembers() map[string]string {
	if m != nil {
		return m.OldMembers
	}
	return nil
}

func (m *Configuration) GetOldIsVoter() map[string]bool {
	if m != nil {
		return m.OldIsVoter
	}
	return nil
}

func (m *Configuration) GetNewMembers() map[string]string {
	if m != nil {
		return m.NewMembers
	}
	return nil
}

func (m *Configuration) GetNewIsVoter() map[string]bool {
	if m != nil {
		return m.NewIsVoter
	}
	return nil
}

func (m *Configuration) GetIndex() uint64 {
	if m != nil {
		return m.Index
	}
	return 0
}

// StorageState is the durable term/vote pair.
type StorageState struct {
	Term     uint64 `protobuf:"varint,1,opt,name=term,proto3" json:"term,omitempty"`
	VotedFor string `protobuf:"bytes,2,opt,name=voted_for,json=votedFor,proto3" json:"voted_for,omitempty"`
}

func (m *StorageState) Reset()         { *m = StorageState{} }
func (m *StorageState) String() string { return fmt.Sprintf("%+v", *m) }
func (*StorageState) ProtoMessage()    {}

func (m *StorageState) GetTerm() uint64 {
	if m != nil {
		return m.Term
	}
	return 0
}

func (m *StorageState) GetVotedFor() string {
	if m != nil {
		return m.VotedFor
	}
	return ""
}

// Snapshot is the durable representation of a compacted state machine snapshot.
type Snapshot struct {
	LastIncludedIndex uint64 `protobuf:"varint,1,opt,name=last_included_index,json=lastIncludedIndex,proto3" json:"last_included_index,omitempty"`
	LastIncludedTerm  uint64 `protobuf:"varint,2,opt,name=last_included_term,json=lastIncludedTerm,proto3" json:"last_included_term,omitempty"`
	Data              []byte `protobuf:"bytes,3,opt,name=data,proto3" json:"data,omitempty"`
	Configuration     []byte `protobuf:"bytes,4,opt,name=configuration,proto3" json:"configuration,omitempty"`
}

func (m *Snapshot) Reset()         { *m = Snapshot{} }
func (m *Snapshot) String() string { return fmt.Sprintf("%+v", *m) }
func (*Snapshot) ProtoMessage()    {}

func (m *Snapshot) GetLastIncludedIndex() uint64 {
	if m != nil {
		return m.LastIncludedIndex
	}
	return 0
}

func (m *Snapshot) GetLastIncludedTerm() uint64 {
	if m != nil {
		return m.LastIncludedTerm
	}
	return 0
}

func (m *Snapshot) GetData() []byte {
	if m != nil {
		return m.Data
	}
	return nil
}

func (m *Snapshot) GetConfiguration() []byte {
	if m != nil {
		return m.Configuration
	}
	return nil
}
