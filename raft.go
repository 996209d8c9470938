package raft

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/arrowgrove/raftcore/internal/util"
	"github.com/arrowgrove/raftcore/logging"
)

// Status is a point-in-time snapshot of a server's view of the cluster,
// useful for tests and operational tooling.
type Status struct {
	ID            string
	Address       string
	Term          uint64
	CommitIndex   uint64
	LastApplied   uint64
	State         State
	Configuration Configuration
}

// Raft implements the replicated log and cluster coordination described by
// the module: leader election, log replication, snapshotting, and
// joint-consensus membership changes. It is driven by four long running
// goroutines - heartbeatLoop, electionLoop, commitLoop, and applyLoop (which
// also takes snapshots) - all synchronized through a single mutex.
type Raft struct {
	id      string
	address string
	dataDir string

	log             Log
	stateStorage    StateStorage
	snapshotStorage SnapshotStorage
	transport       Transport
	fsm             StateMachine

	state *raftState

	// The cluster configuration currently in effect. Guarded by mu.
	configuration Configuration

	// Peers other than this server, keyed by ID. Guarded by mu.
	peers map[string]*Peer

	// The most recent snapshot restored or taken by this server.
	lastIncludedIndex uint64
	lastIncludedTerm  uint64

	// Time this server last heard from a leader it recognizes.
	lastContact time.Time

	operations *operationManager

	// Non-nil while a membership change is being driven through joint
	// consensus. Resolved and cleared once the change reaches a terminal
	// outcome. Kept outstanding for the whole transition - through
	// C_old,new committing and C_new being appended - and only resolved
	// once C_new itself commits, so a second ProposeConfigurationChange is
	// rejected for as long as any uncommitted configuration entry exists.
	pendingChange *future[Configuration]

	// The log index of the C_new entry appended once C_old,new committed,
	// or zero if no configuration change is in that phase of its
	// transition.
	pendingStableIndex uint64

	options options

	logger *logging.Logger

	shutdownCh chan struct{}
	wg         sync.WaitGroup

	commitCh chan struct{}
	applyCh  chan struct{}

	responseCh chan<- OperationResponse

	mu sync.Mutex
}

// NewRaft creates a new server with the given ID, initial peer addresses,
// state machine, and response channel. The log, state storage, snapshot
// storage, and transport can be overridden with options; otherwise
// filesystem-backed implementations rooted at dataDir and a gRPC transport
// bound to address are used.
func NewRaft(
	id string,
	address string,
	dataDir string,
	peerAddresses map[string]string,
	fsm StateMachine,
	responseCh chan<- OperationResponse,
	opts ...Option,
) (*Raft, error) {
	var options options
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return nil, fmt.Errorf("could not apply option: %w", err)
		}
	}

	if options.electionTimeout == 0 {
		options.electionTimeout = defaultElectionTimeout
	}
	if options.heartbeatInterval == 0 {
		options.heartbeatInterval = defaultHeartbeat
	}
	if options.leaseDuration == 0 {
		options.leaseDuration = defaultLeaseDuration
	}
	if options.snapshotPolicy.EntryThreshold == 0 && options.snapshotPolicy.Interval == 0 {
		options.snapshotPolicy.EntryThreshold = defaultSnapshotEntryThreshold
	}

	logOpts := []logging.Option{logging.WithPrefix(fmt.Sprintf("[raft-%s] ", id))}
	if options.levelSet {
		logOpts = append(logOpts, logging.WithLevel(options.logLevel))
	}
	logger, err := logging.NewLogger(logOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not create logger: %w", err)
	}

	log := options.log
	if log == nil {
		log = NewPersistentLog(dataDir)
	}

	stateStorage := options.stateStorage
	if stateStorage == nil {
		if stateStorage, err = NewStateStorage(dataDir); err != nil {
			return nil, fmt.Errorf("could not create state storage: %w", err)
		}
	}

	snapshotStorage := options.snapshotStorage
	if snapshotStorage == nil {
		if snapshotStorage, err = NewSnapshotStorage(dataDir); err != nil {
			return nil, fmt.Errorf("could not create snapshot storage: %w", err)
		}
	}

	transport := options.transport
	if transport == nil {
		if transport, err = NewTransport(address); err != nil {
			return nil, fmt.Errorf("could not create transport: %w", err)
		}
	}

	peers := make(map[string]*Peer, len(peerAddresses))
	for peerID, peerAddress := range peerAddresses {
		if peerID == id {
			continue
		}
		peer := NewPeer(peerID, peerAddress)
		peer.Connect()
		peers[peerID] = peer
	}

	configuration := NewConfiguration(peerAddresses)

	r := &Raft{
		id:              id,
		address:         address,
		dataDir:         dataDir,
		log:             log,
		stateStorage:    stateStorage,
		snapshotStorage: snapshotStorage,
		transport:       transport,
		fsm:             fsm,
		state:           NewRaftState(),
		configuration:   *configuration,
		peers:           peers,
		operations:      newOperationManager(options.leaseDuration),
		options:         options,
		logger:          logger,
		shutdownCh:      make(chan struct{}),
		commitCh:        make(chan struct{}, 1),
		applyCh:         make(chan struct{}, 1),
		responseCh:      responseCh,
	}

	r.transport.RegisterAppendEntriesHandler(r.handleAppendEntries)
	r.transport.RegisterRequestVoteHandler(r.handleRequestVote)
	r.transport.RegsiterInstallSnapshotHandler(r.handleInstallSnapshot)

	return r, nil
}

// Start opens the durable components, restores any prior state, and
// launches the background loops. It must be called before any RPCs are
// sent or accepted.
func (r *Raft) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dataDir != "" {
		if err := util.RemoveTmpFiles(r.dataDir); err != nil {
			return fmt.Errorf("could not remove leftover temporary files: %w", err)
		}
	}

	if err := r.log.Open(); err != nil {
		return fmt.Errorf("could not open log: %w", err)
	}

	term, votedFor, err := r.stateStorage.State()
	if err != nil {
		return fmt.Errorf("could not read persisted state: %w", err)
	}
	r.state.setCurrentTerm(term)
	r.state.setVotedFor(votedFor)

	if err := r.restoreFromSnapshot(); err != nil {
		return fmt.Errorf("could not restore from snapshot: %w", err)
	}

	if err := r.transport.Run(); err != nil {
		return fmt.Errorf("could not start transport: %w", err)
	}

	r.state.setState(Follower)
	r.lastContact = time.Now()

	r.wg.Add(4)
	go r.heartbeatLoop()
	go r.electionLoop()
	go r.commitLoop()
	go r.applyLoop()

	r.logger.Infof("server %s started: address = %s", r.id, r.address)

	return nil
}

// Stop halts the background loops and closes the durable components.
func (r *Raft) Stop() error {
	r.mu.Lock()
	r.state.setState(Stopped)
	close(r.shutdownCh)
	r.mu.Unlock()

	r.wg.Wait()

	if err := r.transport.Shutdown(); err != nil {
		return fmt.Errorf("could not shut down transport: %w", err)
	}
	if err := r.log.Close(); err != nil {
		return fmt.Errorf("could not close log: %w", err)
	}

	return nil
}

// Status returns a snapshot of this server's current view of the cluster.
func (r *Raft) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Status{
		ID:            r.id,
		Address:       r.address,
		Term:          r.state.getCurrentTerm(),
		CommitIndex:   r.state.getCommitIndex(),
		LastApplied:   r.state.getLastApplied(),
		State:         r.state.getState(),
		Configuration: r.configuration,
	}
}

// SubmitOperation fails with *NotLeaderError unless this server is the
// leader. On the leader, a replicated operation is appended to the log; a
// read-only operation is queued and resolved once leadership has been
// verified or, for a lease-based read, while the leader lease is valid. A
// replicated operation is first offered to
// the state machine adapter; if the adapter refuses it, SubmitOperation
// fails immediately with ErrProposalRejected and nothing is appended.
func (r *Raft) SubmitOperation(operation Operation) (Future[OperationResponse], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.getState() != Leader {
		return nil, &NotLeaderError{KnownLeader: r.state.getLeaderID()}
	}

	f := newFuture[OperationResponse](5 * time.Second)

	switch operation.OperationType {
	case Replicated:
		if !r.fsm.ConsiderChange(operation.Bytes) {
			return nil, ErrProposalRejected
		}

		entry := NewLogEntry(r.log.LastIndex()+1, r.state.getCurrentTerm(), operation.Bytes)
		index, err := r.log.AppendEntries(entry)
		if err != nil {
			return nil, fmt.Errorf("could not append operation to log: %w", err)
		}
		r.operations.pendingReplicated[index] = f.responseCh
		r.sendAppendEntries()

	case LinearizableReadOnly:
		operation.readIndex = r.state.getCommitIndex()
		r.operations.pendingReadOnly[&operation] = f.responseCh
		r.operations.shouldVerifyQuorum = true
		r.sendAppendEntries()

	case LeaseBasedReadOnly:
		if !r.operations.leaderLease.isValid() {
			return nil, fmt.Errorf("leader lease has expired, cannot serve lease-based read")
		}
		operation.readIndex = r.state.getCommitIndex()
		r.operations.pendingReadOnly[&operation] = f.responseCh
		r.signalApply()
	}

	return f, nil
}

// ProposeConfigurationChange begins a joint-consensus transition from the
// current configuration to newMembers. Only the leader may propose a
// change, and only one change may be in flight at a time.
func (r *Raft) ProposeConfigurationChange(newMembers map[string]string) *ChangeToken {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.getState() != Leader {
		return rejectedChangeToken()
	}
	if r.configuration.IsJoint() || r.pendingChange != nil {
		return rejectedChangeToken()
	}

	joint := NewJointConfiguration(r.configuration.Current, newMemberSet(newMembers))
	data, err := encodeConfiguration(joint)
	if err != nil {
		return rejectedChangeToken()
	}

	entry := &LogEntry{
		Index:     r.log.LastIndex() + 1,
		Term:      r.state.getCurrentTerm(),
		Data:      data,
		EntryType: EntryConfiguration,
	}
	if _, err := r.log.AppendEntries(entry); err != nil {
		return rejectedChangeToken()
	}

	joint.Index = entry.Index
	r.configuration = *joint
	r.syncPeers(newMembers)

	f := newFuture[Configuration](30 * time.Second)
	r.pendingChange = f
	r.sendAppendEntries()

	return newChangeToken(f)
}

// syncPeers ensures every member named in members has a Peer connection,
// creating and connecting one for any member this server has not seen
// before. Applied whenever a configuration is adopted - whether proposed
// locally, replicated from a leader, or restored from a snapshot - so that
// a server which never itself proposed a membership change can still reach
// every member of the configuration it is now operating under, including
// after a later leadership change. Expects mu to be held.
func (r *Raft) syncPeers(members map[string]string) {
	for id, addr := range members {
		if id == r.id {
			continue
		}
		if _, ok := r.peers[id]; !ok {
			r.peers[id] = NewPeer(id, addr)
			r.peers[id].Connect()
			r.peers[id].setNextIndex(r.log.LastIndex() + 1)
		}
	}
}

// connectPeer marks the peer with the given ID as reachable again. Passing
// this server's own ID is a harmless no-op, used by callers that track
// connectivity uniformly across every member of the cluster including
// itself.
func (r *Raft) connectPeer(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == r.id {
		return nil
	}
	peer, ok := r.peers[id]
	if !ok {
		return fmt.Errorf("unknown peer: %s", id)
	}
	peer.Reconnect(r.log.LastIndex())
	return nil
}

// disconnectPeer marks the peer with the given ID as unreachable. Passing
// this server's own ID is a harmless no-op.
func (r *Raft) disconnectPeer(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == r.id {
		return nil
	}
	peer, ok := r.peers[id]
	if !ok {
		return fmt.Errorf("unknown peer: %s", id)
	}
	peer.Disconnect()
	return nil
}

func (r *Raft) signalApply() {
	select {
	case r.applyCh <- struct{}{}:
	default:
	}
}

func (r *Raft) signalCommit() {
	select {
	case r.commitCh <- struct{}{}:
	default:
	}
}

// handleAppendEntries implements the follower side of log replication. It
// returns a three-way outcome instead of a plain boolean: Retry covers a
// stale leader term or a log mismatch and always leaves the leader free to
// back off and resend; Rejected means the state machine adapter vetoed a
// proposed entry as semantically invalid, and carries the index of the
// first entry it refused.
func (r *Raft) handleAppendEntries(request *AppendEntriesRequest, response *AppendEntriesResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	response.Term = r.state.getCurrentTerm()

	if request.Term < r.state.getCurrentTerm() {
		response.Outcome = AppendEntriesRetry
		return nil
	}

	r.lastContact = time.Now()

	if request.Term > r.state.getCurrentTerm() {
		r.becomeFollower(request.Term, request.LeaderID)
		response.Term = r.state.getCurrentTerm()
	} else if r.state.getState() == Candidate {
		r.becomeFollower(request.Term, request.LeaderID)
	}

	for _, entry := range request.Entries {
		if entry.EntryType != EntryOperation || entry.Index <= request.LeaderCommit {
			continue
		}
		if !r.fsm.ConsiderChange(entry.Data) {
			response.Outcome = AppendEntriesRejected
			response.RejectedIndex = entry.Index
			return nil
		}
	}

	if request.PrevLogIndex > r.lastIncludedIndex {
		if !r.log.Contains(request.PrevLogIndex) {
			response.Outcome = AppendEntriesRetry
			response.ConflictIndex = r.log.LastIndex() + 1
			return nil
		}

		prevEntry, err := r.log.GetEntry(request.PrevLogIndex)
		if err != nil {
			return err
		}
		if prevEntry.Term != request.PrevLogTerm {
			response.Outcome = AppendEntriesRetry
			response.ConflictTerm = prevEntry.Term
			response.ConflictIndex = r.firstIndexForTerm(prevEntry.Term)
			return nil
		}
	}

	var toAppend []*LogEntry
	for i, entry := range request.Entries {
		if r.log.LastIndex() < entry.Index {
			toAppend = request.Entries[i:]
			break
		}
		existing, err := r.log.GetEntry(entry.Index)
		if err == nil && existing.IsConflict(entry) {
			if err := r.log.Truncate(entry.Index); err != nil {
				return err
			}
			toAppend = request.Entries[i:]
			break
		}
	}

	if _, err := r.log.AppendEntries(toAppend...); err != nil {
		return err
	}

	for _, entry := range toAppend {
		if entry.EntryType == EntryConfiguration {
			configuration, err := decodeConfiguration(entry.Data)
			if err == nil {
				r.configuration = configuration
				for _, member := range []MemberSet{configuration.Current, configuration.Old, configuration.New} {
					r.syncPeers(member.Members)
				}
			}
		}
	}

	if request.LeaderCommit > r.state.getCommitIndex() {
		r.state.setCommitIndex(util.Min(request.LeaderCommit, r.log.LastIndex()))
		r.signalApply()
	}

	r.state.setLeaderID(request.LeaderID)

	response.Outcome = AppendEntriesSuccess
	return nil
}

// firstIndexForTerm returns the earliest index in the local log whose term
// equals term, used to let a leader skip an entire stale term in one hop
// during AppendEntries backoff.
func (r *Raft) firstIndexForTerm(term uint64) uint64 {
	first := r.log.FirstIndex()
	for index := first; index <= r.log.LastIndex(); index++ {
		entry, err := r.log.GetEntry(index)
		if err != nil {
			break
		}
		if entry.Term == term {
			return index
		}
	}
	return first
}

func (r *Raft) sendAppendEntries() {
	// A member that forms a quorum on its own has no peer responses to wait
	// for: it commits and confirms its leadership directly.
	if r.configuration.HasQuorum(map[string]bool{r.id: true}) {
		r.signalCommit()
		r.checkReadQuorum()
	}

	for _, peer := range r.peers {
		if !peer.IsConnected() {
			continue
		}

		go func(peer *Peer) {
			r.mu.Lock()

			if r.state.getState() != Leader {
				r.mu.Unlock()
				return
			}

			nextIndex := peer.getNextIndex()
			if nextIndex == 0 {
				nextIndex = r.log.LastIndex() + 1
			}
			prevLogIndex := nextIndex - 1
			var prevLogTerm uint64
			if prevLogIndex == r.lastIncludedIndex {
				prevLogTerm = r.lastIncludedTerm
			} else if prevLogIndex > 0 && r.log.Contains(prevLogIndex) {
				prevEntry, err := r.log.GetEntry(prevLogIndex)
				if err != nil {
					r.mu.Unlock()
					return
				}
				prevLogTerm = prevEntry.Term
			} else if prevLogIndex > 0 {
				// The leader has already compacted past this point - the peer
				// needs a snapshot instead of AppendEntries.
				r.mu.Unlock()
				r.sendInstallSnapshot(peer)
				return
			}

			entries := make([]*LogEntry, 0, r.log.LastIndex()-nextIndex+1)
			for index := nextIndex; index <= r.log.LastIndex(); index++ {
				entry, err := r.log.GetEntry(index)
				if err != nil {
					break
				}
				entries = append(entries, entry)
			}

			request := AppendEntriesRequest{
				LeaderID:     r.id,
				Term:         r.state.getCurrentTerm(),
				PrevLogIndex: prevLogIndex,
				PrevLogTerm:  prevLogTerm,
				Entries:      entries,
				LeaderCommit: r.state.getCommitIndex(),
			}
			currentTerm := r.state.getCurrentTerm()
			address := peer.Address()
			r.mu.Unlock()

			response, err := r.transport.SendAppendEntries(address, request)

			r.mu.Lock()
			defer r.mu.Unlock()

			if err != nil || r.state.getState() != Leader || r.state.getCurrentTerm() != currentTerm {
				return
			}

			if response.Term > r.state.getCurrentTerm() {
				r.becomeFollower(response.Term, "")
				return
			}

			switch response.Outcome {
			case AppendEntriesRejected:
				r.handleRejectedProposal(response.RejectedIndex)
				return
			case AppendEntriesRetry:
				if response.ConflictIndex > 0 {
					peer.setNextIndex(response.ConflictIndex)
				} else if peer.getNextIndex() > 1 {
					peer.setNextIndex(peer.getNextIndex() - 1)
				}
				return
			}

			if len(entries) > 0 {
				matchIndex := entries[len(entries)-1].Index
				if matchIndex > peer.getMatchIndex() {
					peer.setMatchIndex(matchIndex)
					peer.setNextIndex(matchIndex + 1)
					r.signalCommit()
				}
			}

			if r.operations.shouldVerifyQuorum {
				r.checkReadQuorum()
			}
		}(peer)
	}
}

// handleRejectedProposal reacts to a follower vetoing a proposed entry: the
// entry never becomes committed, so it is dropped from the leader's own log
// and its ChangeToken/future is resolved with ErrProposalRejected instead of
// being retried. Expects mu to be held.
func (r *Raft) handleRejectedProposal(index uint64) {
	if index == 0 {
		return
	}

	if responseCh, ok := r.operations.pendingReplicated[index]; ok {
		respond(responseCh, OperationResponse{}, ErrProposalRejected)
		delete(r.operations.pendingReplicated, index)
	}

	if index <= r.state.getCommitIndex() || !r.log.Contains(index) {
		return
	}
	if err := r.log.Truncate(index); err != nil {
		r.logger.Warnf("server %s failed to truncate rejected proposal at index %d: %s", r.id, index, err.Error())
	}
}

func (r *Raft) checkReadQuorum() {
	votes := map[string]bool{r.id: true}
	for id, peer := range r.peers {
		if time.Since(r.lastContact) < r.options.electionTimeout {
			votes[id] = peer.getMatchIndex() > 0
		}
	}
	if r.configuration.HasQuorum(votes) {
		r.operations.markAsVerified()
		r.operations.leaderLease.renew()
		r.signalApply()
	}
}

func (r *Raft) handleRequestVote(request *RequestVoteRequest, response *RequestVoteResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	response.Term = r.state.getCurrentTerm()

	if request.Term < r.state.getCurrentTerm() {
		return nil
	}

	if request.Term > r.state.getCurrentTerm() {
		r.becomeFollower(request.Term, "")
		response.Term = r.state.getCurrentTerm()
	}

	votedFor := r.state.getVotedFor()
	if votedFor != "" && votedFor != request.CandidateID {
		return nil
	}

	if request.LastLogTerm < r.log.LastTerm() ||
		(request.LastLogTerm == r.log.LastTerm() && r.log.LastIndex() > request.LastLogIndex) {
		return nil
	}

	r.lastContact = time.Now()
	r.state.setVotedFor(request.CandidateID)
	r.persistTermAndVote()
	response.VoteGranted = true

	return nil
}

func (r *Raft) sendRequestVote(votes *int, votedIDs map[string]bool) {
	term := r.state.getCurrentTerm()

	for _, peer := range r.peers {
		if !peer.IsConnected() {
			continue
		}

		go func(peer *Peer) {
			request := RequestVoteRequest{
				CandidateID:  r.id,
				Term:         term,
				LastLogIndex: r.log.LastIndex(),
				LastLogTerm:  r.log.LastTerm(),
			}

			response, err := r.transport.SendRequestVote(peer.Address(), request)

			r.mu.Lock()
			defer r.mu.Unlock()

			if err != nil || r.state.getCurrentTerm() != term {
				return
			}

			if response.Term > r.state.getCurrentTerm() {
				r.becomeFollower(response.Term, "")
				return
			}

			if response.VoteGranted && !votedIDs[peer.id] {
				votedIDs[peer.id] = true
				*votes++
			}

			votesMap := make(map[string]bool, len(votedIDs)+1)
			for id := range votedIDs {
				votesMap[id] = true
			}
			votesMap[r.id] = true

			if r.state.getState() == Candidate && r.configuration.HasQuorum(votesMap) {
				r.becomeLeader()
			}
		}(peer)
	}
}

func (r *Raft) handleInstallSnapshot(request *InstallSnapshotRequest, response *InstallSnapshotResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	response.Term = r.state.getCurrentTerm()

	if request.Term < r.state.getCurrentTerm() {
		return nil
	}
	if request.Term > r.state.getCurrentTerm() {
		r.becomeFollower(request.Term, request.LeaderID)
		response.Term = r.state.getCurrentTerm()
	}

	r.lastContact = time.Now()

	if request.LastIncludedIndex <= r.lastIncludedIndex {
		return nil
	}

	snapshot, err := decodeSnapshot(bytes.NewReader(request.Bytes))
	if err != nil {
		return fmt.Errorf("could not decode snapshot: %w", err)
	}

	if err := r.fsm.Restore(&snapshot); err != nil {
		return fmt.Errorf("could not restore state machine from snapshot: %w", err)
	}

	if err := r.log.Compact(request.LastIncludedIndex); err != nil {
		return fmt.Errorf("could not compact log: %w", err)
	}

	r.lastIncludedIndex = request.LastIncludedIndex
	r.lastIncludedTerm = request.LastIncludedTerm
	r.configuration = snapshot.Configuration
	for _, member := range []MemberSet{r.configuration.Current, r.configuration.Old, r.configuration.New} {
		r.syncPeers(member.Members)
	}
	r.state.setCommitIndex(util.Max(r.state.getCommitIndex(), request.LastIncludedIndex))
	r.state.setLastApplied(util.Max(r.state.getLastApplied(), request.LastIncludedIndex))

	return nil
}

func (r *Raft) sendInstallSnapshot(peer *Peer) {
	r.mu.Lock()

	if r.state.getState() != Leader {
		r.mu.Unlock()
		return
	}

	writer, err := r.readLatestSnapshot()
	if err != nil {
		r.mu.Unlock()
		return
	}

	request := InstallSnapshotRequest{
		LeaderID:          r.id,
		Term:              r.state.getCurrentTerm(),
		LastIncludedIndex: r.lastIncludedIndex,
		LastIncludedTerm:  r.lastIncludedTerm,
		Bytes:             writer,
	}
	address := peer.Address()
	r.mu.Unlock()

	response, err := r.transport.SendInstallSnapshot(address, request)
	if err != nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if response.Term > r.state.getCurrentTerm() {
		r.becomeFollower(response.Term, "")
		return
	}

	peer.setNextIndex(r.lastIncludedIndex + 1)
	peer.setMatchIndex(r.lastIncludedIndex)
}

func (r *Raft) readLatestSnapshot() ([]byte, error) {
	reader, err := r.snapshotStorage.SnapshotReader(0)
	if err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, fmt.Errorf("no snapshot available")
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// takeSnapshot asks the state machine for a snapshot and persists it,
// then compacts the log up to the snapshot's last included index.
func (r *Raft) takeSnapshot() error {
	r.mu.Lock()
	snapshot, err := r.fsm.Snapshot()
	if err != nil {
		r.mu.Unlock()
		return err
	}
	snapshot.Configuration = r.configuration
	upTo := snapshot.LastIncludedIndex
	r.mu.Unlock()

	writer, err := r.snapshotStorage.NewSnapshotFile(snapshot.LastIncludedIndex, snapshot.LastIncludedTerm)
	if err != nil {
		return err
	}
	if err := encodeSnapshot(writer, &snapshot); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.log.Compact(upTo); err != nil {
		return err
	}
	r.lastIncludedIndex = snapshot.LastIncludedIndex
	r.lastIncludedTerm = snapshot.LastIncludedTerm

	return nil
}

func (r *Raft) restoreFromSnapshot() error {
	// Expects mu to be held.
	reader, err := r.snapshotStorage.SnapshotReader(0)
	if err != nil {
		return err
	}
	if reader == nil {
		return nil
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	snapshot, err := decodeSnapshot(bytes.NewReader(data))
	if err != nil {
		return err
	}

	if err := r.fsm.Restore(&snapshot); err != nil {
		return err
	}

	r.lastIncludedIndex = snapshot.LastIncludedIndex
	r.lastIncludedTerm = snapshot.LastIncludedTerm
	r.configuration = snapshot.Configuration
	for _, member := range []MemberSet{r.configuration.Current, r.configuration.Old, r.configuration.New} {
		r.syncPeers(member.Members)
	}
	r.state.setCommitIndex(snapshot.LastIncludedIndex)
	r.state.setLastApplied(snapshot.LastIncludedIndex)

	return nil
}

func (r *Raft) heartbeatLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.shutdownCh:
			return
		case <-time.After(r.options.heartbeatInterval):
		}

		r.mu.Lock()
		if r.state.getState() != Leader {
			r.mu.Unlock()
			continue
		}
		r.sendAppendEntries()
		r.mu.Unlock()
	}
}

func (r *Raft) electionLoop() {
	defer r.wg.Done()

	for {
		timeout := util.RandomTimeout(r.options.electionTimeout, 2*r.options.electionTimeout)
		select {
		case <-r.shutdownCh:
			return
		case <-time.After(timeout):
		}
		r.election()
	}
}

func (r *Raft) election() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.getState() == Stopped {
		return
	}
	if r.state.getState() == Leader || time.Since(r.lastContact) < r.options.electionTimeout {
		return
	}

	r.becomeCandidate()
	votes := 1
	r.sendRequestVote(&votes, make(map[string]bool))

	// A member whose own vote is a quorum wins without any peer response.
	if r.configuration.HasQuorum(map[string]bool{r.id: true}) {
		r.becomeLeader()
	}
}

func (r *Raft) commitLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.shutdownCh:
			return
		case <-r.commitCh:
		}

		r.mu.Lock()
		if r.state.getState() != Leader {
			r.mu.Unlock()
			continue
		}

		committed := false
		for index := r.state.getCommitIndex() + 1; index <= r.log.LastIndex(); index++ {
			entry, err := r.log.GetEntry(index)
			if err != nil || entry.Term != r.state.getCurrentTerm() {
				continue
			}

			votes := map[string]bool{r.id: true}
			for id, peer := range r.peers {
				votes[id] = peer.getMatchIndex() >= index
			}

			if r.configuration.HasQuorum(votes) {
				r.state.setCommitIndex(index)
				committed = true

				if entry.EntryType == EntryConfiguration {
					if r.configuration.IsJoint() && r.configuration.Index == index {
						r.completeConfigurationChange(index)
					} else if r.pendingStableIndex != 0 && index == r.pendingStableIndex {
						r.finalizeConfigurationChange()
					}
				}
			}
		}

		if committed {
			r.signalApply()
			r.sendAppendEntries()
		}
		r.mu.Unlock()
	}
}

// completeConfigurationChange reacts to C_old,new committing by appending
// the follow-up C_new entry. The pending ChangeToken is deliberately left
// outstanding: the transition is not complete, and a second
// ProposeConfigurationChange must still be rejected, until C_new itself
// commits (see finalizeConfigurationChange).
func (r *Raft) completeConfigurationChange(jointIndex uint64) {
	stable := r.configuration.ToNewStable(jointIndex + 1)
	data, err := encodeConfiguration(stable)
	if err != nil {
		return
	}

	entry := &LogEntry{
		Index:     r.log.LastIndex() + 1,
		Term:      r.state.getCurrentTerm(),
		Data:      data,
		EntryType: EntryConfiguration,
	}
	if _, err := r.log.AppendEntries(entry); err != nil {
		return
	}

	stable.Index = entry.Index
	r.configuration = *stable
	r.pendingStableIndex = entry.Index

	for id := range r.peers {
		if _, ok := stable.Current.Members[id]; !ok {
			delete(r.peers, id)
		}
	}
}

// finalizeConfigurationChange runs once C_new itself has committed: the
// transition is complete, so the pending ChangeToken resolves as Committed.
// A leader that is no longer a member of the new configuration steps down
// once it has finished committing that configuration.
func (r *Raft) finalizeConfigurationChange() {
	stable := r.configuration
	r.pendingStableIndex = 0

	if r.pendingChange != nil {
		respondFuture(r.pendingChange, stable, nil)
		r.pendingChange = nil
	}

	if _, stillMember := stable.Current.Members[r.id]; !stillMember && r.state.getState() == Leader {
		r.becomeFollower(r.state.getCurrentTerm(), "")
	}
}

func (r *Raft) applyLoop() {
	defer r.wg.Done()

	for {
		select {
		case <-r.shutdownCh:
			return
		case <-r.applyCh:
		}

		r.mu.Lock()
		for index := r.state.getLastApplied() + 1; index <= r.state.getCommitIndex(); index++ {
			entry, err := r.log.GetEntry(index)
			if err != nil {
				break
			}

			var applicationResponse interface{}
			if entry.EntryType == EntryOperation {
				applicationResponse = r.fsm.Apply(entry)
			}

			r.state.setLastApplied(index)

			response := OperationResponse{
				Operation:            Operation{Bytes: entry.Data, LogIndex: entry.Index, LogTerm: entry.Term},
				ApplicationResponse: applicationResponse,
			}

			if responseCh, ok := r.operations.pendingReplicated[index]; ok {
				respond(responseCh, response, nil)
				delete(r.operations.pendingReplicated, index)
			}
			if r.responseCh != nil {
				select {
				case r.responseCh <- response:
				default:
				}
			}
		}

		for operation, responseCh := range r.operations.appliableReadOnlyOperations(r.state.getCommitIndex()) {
			respond(responseCh, OperationResponse{Operation: *operation}, nil)
		}

		if r.fsm.NeedSnapshot() || r.shouldSnapshot() {
			r.mu.Unlock()
			if err := r.takeSnapshot(); err != nil {
				r.logger.Warnf("server %s failed to take snapshot: %s", r.id, err.Error())
			}
			r.mu.Lock()
		}
		r.mu.Unlock()
	}
}

func (r *Raft) shouldSnapshot() bool {
	threshold := r.options.snapshotPolicy.EntryThreshold
	if threshold == 0 {
		return false
	}
	return r.state.getLastApplied()-r.lastIncludedIndex >= threshold
}

func (r *Raft) becomeCandidate() {
	r.state.setState(Candidate)
	r.state.setCurrentTerm(r.state.getCurrentTerm() + 1)
	r.state.setVotedFor(r.id)
	r.persistTermAndVote()
	r.logger.Infof("server %s has entered the candidate state: term = %d", r.id, r.state.getCurrentTerm())
}

func (r *Raft) becomeLeader() {
	r.state.setState(Leader)
	for _, peer := range r.peers {
		peer.setNextIndex(r.log.LastIndex() + 1)
		peer.setMatchIndex(0)
	}

	// A no-op entry in the new term lets the leader advance commitIndex past
	// entries left uncommitted by a prior leader, since raft never commits an
	// entry from an earlier term by counting replicas alone.
	noop := &LogEntry{Index: r.log.LastIndex() + 1, Term: r.state.getCurrentTerm(), EntryType: EntryNoOp}
	r.log.AppendEntries(noop)

	r.operations.shouldVerifyQuorum = true
	r.sendAppendEntries()
	r.logger.Infof("server %s has entered the leader state: term = %d", r.id, r.state.getCurrentTerm())
}

// becomeFollower adopts term and, if known, records knownLeader as
// this_term_leader so a subsequent ErrNotLeader can carry a hint. Passing an
// empty knownLeader clears any previously recorded leader, matching the
// normalization rule that a term change forgets the old leader until a new
// one is heard from.
func (r *Raft) becomeFollower(term uint64, knownLeader string) {
	wasLeader := r.state.getState() == Leader
	r.state.setState(Follower)
	r.state.setCurrentTerm(term)
	r.state.setVotedFor("")
	r.state.setLeaderID(knownLeader)
	r.persistTermAndVote()

	if wasLeader {
		r.operations.notifyLostLeaderShip(knownLeader)
		if r.pendingChange != nil {
			respondFuture(r.pendingChange, Configuration{}, ErrNotLeader)
			r.pendingChange = nil
		}
	}

	r.logger.Infof("server %s has entered the follower state: term = %d", r.id, term)
}

// ListSnapshots returns every snapshot this server's storage currently
// retains.
func (r *Raft) ListSnapshots() []Snapshot {
	snapshots, err := r.snapshotStorage.List()
	if err != nil {
		r.logger.Warnf("server %s failed to list snapshots: %s", r.id, err.Error())
		return nil
	}
	return snapshots
}

func (r *Raft) persistTermAndVote() {
	if err := r.stateStorage.SetState(r.state.getCurrentTerm(), r.state.getVotedFor()); err != nil {
		r.logger.Errorf("server %s failed to persist term and vote: %s", r.id, err.Error())
	}
}

// respondFuture delivers a result to a future's channel without blocking.
func respondFuture[T Response](f *future[T], value T, err error) {
	select {
	case f.responseCh <- newResult(value, err):
	default:
	}
}
