package raft

import (
	"errors"
	"time"

	"github.com/arrowgrove/raftcore/logging"
)

const (
	defaultElectionTimeout = time.Duration(300 * time.Millisecond)
	defaultHeartbeat       = time.Duration(50 * time.Millisecond)
	defaultLeaseDuration   = time.Duration(100 * time.Millisecond)

	// defaultSnapshotEntryThreshold is how many committed log entries
	// accumulate before a snapshot is taken, absent an explicit policy.
	defaultSnapshotEntryThreshold = 10000
)

// SnapshotPolicy controls when a member compacts its log into a snapshot.
type SnapshotPolicy struct {
	// EntryThreshold is the number of applied log entries that must
	// accumulate since the last snapshot before another is taken. Zero
	// disables threshold-based snapshotting.
	EntryThreshold uint64

	// Interval is stored with the policy but does not trigger snapshots: no
	// timed snapshot is taken. Its only effect is that a policy with a
	// non-zero Interval and a zero EntryThreshold does not receive the
	// default EntryThreshold.
	Interval time.Duration
}

type options struct {
	// Minimum election timeout in milliseconds. A random time
	// between electionTimeout and 2 * electionTimeout will be
	// chosen to determine when a server will hold an election.
	electionTimeout time.Duration

	// The interval in milliseconds between AppendEntries RPCs that
	// the leader will send to the followers.
	heartbeatInterval time.Duration

	// The duration that a lease remains valid upon renewal.
	leaseDuration time.Duration

	// The level of logged messages.
	logLevel logging.Level

	// Indicates if log level was set or not.
	levelSet bool

	// A provided log that can be used by raft.
	log Log

	// A provided state storage that can be used by raft.
	stateStorage StateStorage

	// A provided snapshot storage that can be used by raft.
	snapshotStorage SnapshotStorage

	// A provided network transport that can be used by raft.
	transport Transport

	// Controls when the member compacts its log into a snapshot.
	snapshotPolicy SnapshotPolicy
}

// Option is a function that updates the options associated with Raft.
type Option func(options *options) error

// WithElectionTimeout sets the election timeout for raft.
func WithElectionTimeout(time time.Duration) Option {
	return func(options *options) error {
		options.electionTimeout = time
		return nil
	}
}

// WithHeartbeatInterval sets the heartbeat interval for raft.
func WithHeartbeatInterval(time time.Duration) Option {
	return func(options *options) error {
		options.heartbeatInterval = time
		return nil
	}
}

// WithLeaseDuration sets the duration for which a lease remains valid upon
// renewal. The lease should generally remain valid for a much smaller amount of
// time than the election timeout.
func WithLeaseDuration(leaseDuration time.Duration) Option {
	return func(options *options) error {
		options.leaseDuration = leaseDuration
		return nil
	}
}

// WithLogLevel sets the log level used by raft.
func WithLogLevel(level logging.Level) Option {
	return func(options *options) error {
		options.logLevel = level
		options.levelSet = true
		return nil
	}
}

// WithLog sets the log that will be used by raft. This is useful
// if you wish to use your own implementation of a log.
func WithLog(log Log) Option {
	return func(options *options) error {
		if log == nil {
			return errors.New("log must not be nil")
		}
		options.log = log
		return nil
	}
}

// WithStateStorage sets the state storage that will be used by raft.
// This is useful if you wish to use your own implementation of a state storage.
func WithStateStorage(stateStorage StateStorage) Option {
	return func(options *options) error {
		if stateStorage == nil {
			return errors.New("state storage must not be nil")
		}
		options.stateStorage = stateStorage
		return nil
	}
}

// WithSnapshotStorage sets the snapshot storage that will be used by raft.
// This is useful if you wish to use your own implementation of a snapshot storage.
func WithSnapshotStorage(snapshotStorage SnapshotStorage) Option {
	return func(options *options) error {
		if snapshotStorage == nil {
			return errors.New("snapshot storage must not be nil")
		}
		options.snapshotStorage = snapshotStorage
		return nil
	}
}

// WithTransport sets the network transport that will be used by raft.
// This is useful if you wish to use your own implementation of a transport.
func WithTransport(transport Transport) Option {
	return func(options *options) error {
		if transport == nil {
			return errors.New("transport must not be nil")
		}
		options.transport = transport
		return nil
	}
}

// WithSnapshotPolicy sets the policy governing when a member takes a
// snapshot of the state machine and compacts its log.
func WithSnapshotPolicy(policy SnapshotPolicy) Option {
	return func(options *options) error {
		options.snapshotPolicy = policy
		return nil
	}
}
