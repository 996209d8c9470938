package raft

import (
	"errors"
	"time"
)

// ErrNotLeader is returned when an operation is submitted to a server that
// does not currently believe it is the leader, or loses leadership before
// the operation is applied.
var ErrNotLeader = errors.New("server is not the leader")

// ErrProposalRejected is returned when the state machine adapter, on this
// server or on a follower that vetoed the proposal, considers a submitted
// operation semantically invalid. The operation is never applied and never
// becomes visible in any member's log.
var ErrProposalRejected = errors.New("state machine rejected the proposed operation")

// NotLeaderError wraps ErrNotLeader with a hint at the leader this server
// last heard from in the current term, so a client can retry against it
// directly instead of rediscovering the cluster from scratch.
type NotLeaderError struct {
	// KnownLeader is the ID of the leader this server last recorded, or
	// empty if none is known.
	KnownLeader string
}

func (e *NotLeaderError) Error() string {
	if e.KnownLeader == "" {
		return ErrNotLeader.Error()
	}
	return ErrNotLeader.Error() + ": known leader is " + e.KnownLeader
}

func (e *NotLeaderError) Unwrap() error {
	return ErrNotLeader
}

// respond delivers a result to a pending operation's response channel
// without blocking if no one is listening.
func respond(responseCh chan Result[OperationResponse], response OperationResponse, err error) {
	select {
	case responseCh <- newResult(response, err):
	default:
	}
}

// OperationType is the type of the operation that is being submitted to raft.
type OperationType uint32

const (
	// Replicated indicates that the provided operation will be written to the
	// log and guarantees linearizable semantics.
	Replicated OperationType = iota

	// LinearizableReadOnly indicates that the provided operation will not be written
	// to the log and requires that the recieving server verify its leadership through
	// a round  of heartbeats to its peers. Guarantees linearizable semantics.
	LinearizableReadOnly

	// LeaseBasedReadOnly indicates that the provided operation will not be written
	// to the log and requires that the server verify its leadership via its lease.
	// This operation type does not guarantee linearizable semantics.
	LeaseBasedReadOnly
)

// String converts an OperationType to a string.
func (o OperationType) String() string {
	switch o {
	case Replicated:
		return "replicated"
	case LinearizableReadOnly:
		return "linearizableReadOnly"
	case LeaseBasedReadOnly:
		return "leaseBasedReadOnly"
	default:
		panic("invalid operation type")
	}
}

// OperationResponse is the response that is generated after applying
// an operation to the state machine.
type OperationResponse struct {
	// The operation applied to the state machine.
	Operation Operation

	// The response returned by the state machine after applying the operation.
	ApplicationResponse interface{}
}

// Operation is an operation that will be applied to the state machine.
// An operation must be deterministic.
type Operation struct {
	// The operation as bytes. The provided state machine should be capable
	// of decoding these bytes.
	Bytes []byte

	// The type of the operation.
	OperationType OperationType

	// The log entry index associated with the operation.
	// Valid only if this is a replicated operation and the operation was successful.
	LogIndex uint64

	// The log entry term associated with the operation.
	// Valid only if this is a replicated operation and the operation was successful.
	LogTerm uint64

	// Indicates whether leadership was verified via a round of hearbeats after this
	// operation was submitted. Only applicable to linearizable read-only operations.
	quorumVerified bool

	// The commit index at the time the operation was submitted. Only applicable to
	// linearizable and lease-based read-only operations.
	readIndex uint64
}

type operationManager struct {
	// Contains read-only operations waiting to be applied.
	pendingReadOnly map[*Operation]chan Result[OperationResponse]

	// Maps log index associated with the operation to its response channel.
	pendingReplicated map[uint64]chan Result[OperationResponse]

	// A flag that indicates whether a round of heartbeats should be sent to peers to confirm leadership.
	shouldVerifyQuorum bool

	// The lease for lease-based reads.
	leaderLease *lease
}

func newOperationManager(leaseDuration time.Duration) *operationManager {
	return &operationManager{
		pendingReadOnly:    make(map[*Operation]chan Result[OperationResponse]),
		pendingReplicated:  make(map[uint64]chan Result[OperationResponse]),
		leaderLease:        newLease(leaseDuration),
		shouldVerifyQuorum: true,
	}
}

func (r *operationManager) markAsVerified() {
	for operation := range r.pendingReadOnly {
		operation.quorumVerified = true
	}
	r.shouldVerifyQuorum = true
}

func (r *operationManager) appliableReadOnlyOperations(
	applyIndex uint64,
) map[*Operation]chan Result[OperationResponse] {
	appliableOperations := make(map[*Operation]chan Result[OperationResponse])
	for operation, responseCh := range r.pendingReadOnly {
		if (operation.OperationType == LinearizableReadOnly && operation.quorumVerified && operation.readIndex <= applyIndex) ||
			(operation.OperationType == LeaseBasedReadOnly && operation.readIndex <= applyIndex) {
			appliableOperations[operation] = responseCh
			delete(r.pendingReadOnly, operation)
		}
	}
	return appliableOperations
}

func (r *operationManager) notifyLostLeaderShip(knownLeader string) {
	err := error(ErrNotLeader)
	if knownLeader != "" {
		err = &NotLeaderError{KnownLeader: knownLeader}
	}
	for _, responseCh := range r.pendingReadOnly {
		respond(responseCh, OperationResponse{}, err)
	}
	for _, responseCh := range r.pendingReplicated {
		respond(responseCh, OperationResponse{}, err)
	}
	r.pendingReadOnly = make(map[*Operation]chan Result[OperationResponse])
	r.pendingReplicated = make(map[uint64]chan Result[OperationResponse])
}
