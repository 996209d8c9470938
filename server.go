package raft

import (
	"fmt"
)

// Server is a thin wrapper around a Raft instance, providing the surface
// area an application embeds: submitting operations, checking status, and
// listing snapshots. The heavy lifting - RPC serving, log replication,
// leader election - lives entirely in Raft and its Transport.
type Server struct {
	raft *Raft
}

// NewServer creates a new server with the given ID and address (looked up
// from peers), state machine, and durable storage paths. peers must include
// an entry for id itself. All durable state is kept under logPath;
// storagePath and snapshotStoragePath are accepted but not used.
func NewServer(
	id string,
	peers map[string]string,
	fsm StateMachine,
	logPath string,
	storagePath string,
	snapshotStoragePath string,
	responseCh chan OperationResponse,
	opts ...Option,
) (*Server, error) {
	address, ok := peers[id]
	if !ok {
		return nil, fmt.Errorf("no address provided for server %s", id)
	}

	raft, err := NewRaft(id, address, logPath, peers, fsm, responseCh, opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create raft instance: %w", err)
	}

	_ = storagePath
	_ = snapshotStoragePath

	return &Server{raft: raft}, nil
}

// Start starts the server's Raft instance. The ready channel, if non-nil,
// is waited on before the instance begins participating in the cluster,
// allowing a test harness to start every server's transport before any of
// them begin timing out elections.
func (s *Server) Start(ready chan interface{}) error {
	if ready != nil {
		<-ready
	}
	return s.raft.Start()
}

// Stop stops the server's Raft instance.
func (s *Server) Stop() {
	s.raft.Stop()
}

// Status returns the status of the underlying Raft instance.
func (s *Server) Status() Status {
	return s.raft.Status()
}

// SubmitOperation submits an operation to the server and blocks until it
// has been applied, returning the log index and term it was assigned.
func (s *Server) SubmitOperation(operation Operation) (uint64, uint64, error) {
	future, err := s.raft.SubmitOperation(operation)
	if err != nil {
		return 0, 0, err
	}

	result := future.Await()
	if err := result.Error(); err != nil {
		return 0, 0, err
	}

	response := result.Success()
	return response.Operation.LogIndex, response.Operation.LogTerm, nil
}

// ProposeConfigurationChange proposes a membership change on the underlying
// Raft instance.
func (s *Server) ProposeConfigurationChange(newMembers map[string]string) *ChangeToken {
	return s.raft.ProposeConfigurationChange(newMembers)
}

// ListSnapshots returns every snapshot, fully decoded, that the underlying
// Raft instance's storage currently has, most recent last.
func (s *Server) ListSnapshots() []Snapshot {
	return s.raft.ListSnapshots()
}
