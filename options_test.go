package raft

import (
	"testing"
	"time"

	"github.com/arrowgrove/raftcore/logging"
	"github.com/stretchr/testify/require"
)

func TestWithElectionTimeout(t *testing.T) {
	options := &options{}
	require.NoError(t, WithElectionTimeout(500*time.Millisecond)(options))
	require.Equal(t, 500*time.Millisecond, options.electionTimeout)
}

func TestWithHeartbeatInterval(t *testing.T) {
	options := &options{}
	require.NoError(t, WithHeartbeatInterval(250*time.Millisecond)(options))
	require.Equal(t, 250*time.Millisecond, options.heartbeatInterval)
}

func TestWithLeaseDuration(t *testing.T) {
	options := &options{}
	require.NoError(t, WithLeaseDuration(75*time.Millisecond)(options))
	require.Equal(t, 75*time.Millisecond, options.leaseDuration)
}

func TestWithLogLevel(t *testing.T) {
	options := &options{}
	require.NoError(t, WithLogLevel(logging.Debug)(options))
	require.Equal(t, logging.Debug, options.logLevel)
	require.True(t, options.levelSet)
}

func TestWithLog(t *testing.T) {
	options := &options{}
	require.Error(t, WithLog(nil)(options))

	log := NewPersistentLog(t.TempDir())
	require.NoError(t, WithLog(log)(options))
	require.Equal(t, log, options.log)
}

func TestWithStateStorage(t *testing.T) {
	options := &options{}
	require.Error(t, WithStateStorage(nil)(options))

	storage, err := NewStateStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, WithStateStorage(storage)(options))
	require.Equal(t, storage, options.stateStorage)
}

func TestWithSnapshotStorage(t *testing.T) {
	options := &options{}
	require.Error(t, WithSnapshotStorage(nil)(options))

	storage, err := NewSnapshotStorage(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, WithSnapshotStorage(storage)(options))
	require.Equal(t, storage, options.snapshotStorage)
}

func TestWithTransport(t *testing.T) {
	options := &options{}
	require.Error(t, WithTransport(nil)(options))

	transport, err := NewTransport("127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, WithTransport(transport)(options))
	require.Equal(t, transport, options.transport)
}

func TestWithSnapshotPolicy(t *testing.T) {
	options := &options{}
	policy := SnapshotPolicy{EntryThreshold: 500, Interval: time.Minute}
	require.NoError(t, WithSnapshotPolicy(policy)(options))
	require.Equal(t, policy, options.snapshotPolicy)
}
