package raft

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// Set by environment variable. Indicates whether snapshotting
// is on or off. If auto snapshotting is on, all tests
// (excluding the manual snapshot tests) will be run with snapshotting
// enabled.
var snapshotting bool

// The size of snapshots if snapshotting is enabled.
var snapshotSize int

// TestMain sets up the Raft tests.
func TestMain(m *testing.M) {
	snapshotting = os.Getenv("SNAPSHOTS") == "true"
	snapshotSize, _ = strconv.Atoi(os.Getenv("SNAPSHOT_SIZE"))
	goleak.VerifyTestMain(m)
}

// TestSingleServerElection checks whether a cluster consisting of
// a single server can elect a leader.
func TestSingleServerElection(t *testing.T) {
	cluster := newCluster(t, 1, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	cluster.checkLeaders(false)
}

// TestBasicElection checks whether a cluster can elect a leader
// when there are no failures.
func TestBasicElection(t *testing.T) {
	cluster := newCluster(t, 3, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	cluster.checkLeaders(false)
}

// TestElectLeaderDisconnect checks whether a cluster can
// still elect a leader when a single server is disconnected.
func TestElectLeaderDisconnect(t *testing.T) {
	cluster := newCluster(t, 3, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	leader := cluster.checkLeaders(false)
	cluster.disconnectServer(leader)

	cluster.checkLeaders(false)
}

// TestFailElectLeaderDisconnect checks whether a leader is
// elected when a majority of the servers are disconnected.
func TestFailElectLeaderDisconnect(t *testing.T) {
	cluster := newCluster(t, 3, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	leader := cluster.checkLeaders(false)
	cluster.disconnectServer(leader)
	cluster.disconnectServer((leader + 1) % 3)

	cluster.checkLeaders(true)
}

// TestSingleServerSubmit checks whether a cluster consisting of
// a single server can commit a single operation.
func TestSingleServerSubmit(t *testing.T) {
	cluster := newCluster(t, 1, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	cluster.checkLeaders(false)
	operations := makeOperations(1)
	cluster.submit(operations[0], false, false, 1)
}

// TestSubmit checks whether the cluster can successfully
// commit a single operation when there are no failures.
func TestSubmit(t *testing.T) {
	cluster := newCluster(t, 3, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	cluster.checkLeaders(false)
	operations := makeOperations(1)
	cluster.submit(operations[0], false, false, 3)
}

// TestMultipleSubmit checks whether a cluster can successfully
// commit multiple operations when there are no failures.
func TestMultipleSubmit(t *testing.T) {
	cluster := newCluster(t, 5, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	cluster.checkLeaders(false)
	operations := makeOperations(50)
	for _, operation := range operations {
		cluster.submit(operation, false, false, 5)
	}
}

// TestConcurrentSubmit checks that operations are correctly applied
// when multiple clients submit operations concurrently.
func TestConcurrentSubmit(t *testing.T) {
	cluster := newCluster(t, 5, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	cluster.checkLeaders(false)
	operations := makeOperations(20)

	var wg sync.WaitGroup
	for _, operation := range operations {
		wg.Add(1)
		go func(operation Operation) {
			defer wg.Done()
			cluster.submit(operation, false, false, 5)
		}(operation)
	}
	wg.Wait()
}

// TestSubmitDisconnect checks that a cluster can still
// commit operations after the leader is disconnected.
func TestSubmitDisconnect(t *testing.T) {
	cluster := newCluster(t, 3, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	leader := cluster.checkLeaders(false)
	cluster.disconnectServer(leader)

	operations := makeOperations(5)
	for _, operation := range operations {
		cluster.submit(operation, true, false, 2)
	}
}

// TestSubmitDisconnectRejoin checks that a cluster correctly handles a
// leader being disconnected and rejoining after operations are submitted.
func TestSubmitDisconnectRejoin(t *testing.T) {
	cluster := newCluster(t, 5, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	leader := cluster.checkLeaders(false)
	operations := makeOperations(10)
	for _, operation := range operations[:5] {
		cluster.submit(operation, true, false, 5)
	}

	cluster.disconnectServer(leader)
	for _, operation := range operations[5:] {
		cluster.submit(operation, true, false, 4)
	}

	cluster.reconnectServer(leader)
}

// TestBasicPartition checks that a cluster can still make progress
// submitting operations when there is a single partition.
func TestBasicPartition(t *testing.T) {
	cluster := newCluster(t, 5, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	cluster.checkLeaders(false)
	cluster.createPartition()
	cluster.checkLeaders(false)

	operations := makeOperations(10)
	for _, operation := range operations {
		cluster.submit(operation, true, false, 3)
	}

	cluster.reconnectAllServers()
}

// TestBasicCrash checks that a cluster can still make progress
// after a single server crashes.
func TestBasicCrash(t *testing.T) {
	cluster := newCluster(t, 5, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	leader := cluster.checkLeaders(false)
	operations := makeOperations(10)
	for _, operation := range operations[:5] {
		cluster.submit(operation, true, false, 5)
	}

	cluster.crashServer(leader)
	for _, operation := range operations[5:] {
		cluster.submit(operation, true, false, 4)
	}
}

// TestCrashRejoin checks that a cluster correctly handles a server
// crashing and coming back online after operations are submitted.
func TestCrashRejoin(t *testing.T) {
	cluster := newCluster(t, 5, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	leader := cluster.checkLeaders(false)
	operations := makeOperations(15)
	for _, operation := range operations[:5] {
		cluster.submit(operation, true, false, 5)
	}

	cluster.crashServer(leader)
	for _, operation := range operations[5:10] {
		cluster.submit(operation, true, false, 4)
	}

	cluster.restartServer(leader)
	for _, operation := range operations[10:] {
		cluster.submit(operation, true, false, 5)
	}
}

// TestConfigurationChange checks that a joint-consensus membership change
// that actually adds and removes members commits and takes effect: the
// removed member's ID must no longer be part of the resulting configuration,
// and the new member's ID must be.
func TestConfigurationChange(t *testing.T) {
	cluster := newCluster(t, 5, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	leaderIndex := cluster.checkLeaders(false)
	leader := cluster.servers[leaderIndex]

	removed := fmt.Sprint((leaderIndex + 1) % 5)
	added := "5"
	cluster.addServer(added, "127.0.0.5:8080")

	newMembers := make(map[string]string, len(cluster.peers[leaderIndex]))
	for id, address := range cluster.peers[leaderIndex] {
		if id == removed {
			continue
		}
		newMembers[id] = address
	}
	newMembers[added] = "127.0.0.5:8080"

	token := leader.ProposeConfigurationChange(newMembers)
	outcome, configuration := token.Await()
	if outcome != ChangeCommitted {
		t.Fatalf("expected configuration change to commit, got: %s", outcome)
	}

	if _, ok := configuration.Current.Members[removed]; ok {
		t.Fatalf("removed member still present in committed configuration: id = %s", removed)
	}
	if _, ok := configuration.Current.Members[added]; !ok {
		t.Fatal("added member missing from committed configuration")
	}
}

// TestConfigurationChangeSequence walks a cluster's membership through a
// sequence of one-member-at-a-time replacements, mirroring how a live
// cluster is rolled from one set of hosts to an entirely disjoint set: at
// each step a departing member is removed and a fresh one is added, the
// change commits, and the cluster keeps committing ordinary operations
// under the resulting configuration.
func TestConfigurationChangeSequence(t *testing.T) {
	const rounds = 4
	const writesPerRound = 3

	cluster := newCluster(t, 5, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	cluster.checkLeaders(false)

	members := make(map[string]string, 5)
	for id, address := range cluster.peers[0] {
		members[id] = address
	}

	for round := 0; round < rounds; round++ {
		outgoing := fmt.Sprint(round)
		incoming := fmt.Sprint(5 + round)
		incomingAddress := fmt.Sprintf("127.0.0.%s:8080", incoming)
		cluster.addServer(incoming, incomingAddress)

		next := make(map[string]string, len(members))
		for id, address := range members {
			if id == outgoing {
				continue
			}
			next[id] = address
		}
		next[incoming] = incomingAddress

		leaderIndex := cluster.checkLeaders(false)
		leader := cluster.servers[leaderIndex]

		token := leader.ProposeConfigurationChange(next)
		outcome, configuration := token.Await()
		if outcome != ChangeCommitted {
			t.Fatalf("round %d: expected configuration change to commit, got: %s", round, outcome)
		}
		if _, ok := configuration.Current.Members[incoming]; !ok {
			t.Fatalf("round %d: added member missing from committed configuration", round)
		}
		if _, ok := configuration.Current.Members[outgoing]; ok {
			t.Fatalf("round %d: removed member still present in committed configuration", round)
		}

		members = next

		operations := makeOperations(writesPerRound)
		for _, operation := range operations {
			cluster.submit(operation, true, false, len(members))
		}
	}
}

// TestRejectedProposal checks that when the state machine adapter vetoes a
// specific proposed change, submitting it resolves with ErrProposalRejected,
// the change never becomes visible in any server's applied state, and an
// unrelated proposal is unaffected.
func TestRejectedProposal(t *testing.T) {
	cluster := newCluster(t, 3, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	leaderIndex := cluster.checkLeaders(false)

	poison := []byte("poison")
	for _, fsm := range cluster.fsm {
		fsm.rejectValue = poison
	}

	if _, _, err := cluster.servers[leaderIndex].SubmitOperation(Operation{Bytes: poison}); !errors.Is(err, ErrProposalRejected) {
		t.Fatalf("expected rejected proposal to fail with ErrProposalRejected, got: %v", err)
	}

	for i, fsm := range cluster.fsm {
		fsm.mu.Lock()
		for _, entry := range fsm.operations {
			if string(entry.Data) == string(poison) {
				t.Fatalf("rejected change visible in applied state: server = %d", i)
			}
		}
		fsm.mu.Unlock()
	}

	accepted := makeOperations(1)
	cluster.submit(accepted[0], false, false, 3)
}

// TestBasicTraffic runs a background traffic generator against a healthy
// five-member cluster and checks that everything it observes committing is
// visible in every member's applied state once the cluster quiesces.
func TestBasicTraffic(t *testing.T) {
	cluster := newCluster(t, 5, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	cluster.checkLeaders(false)

	generator := newTrafficGenerator(cluster)
	generator.start()
	time.Sleep(2 * time.Second)
	generator.stop()

	if generator.count() == 0 {
		t.Fatal("traffic generator committed no changes")
	}

	time.Sleep(200 * time.Millisecond)
	generator.checkChangesPresent(t)
}

// TestFailoverTraffic runs a traffic generator through successive rounds of
// killing and reviving members, checking after each round that the cluster
// re-elects a leader and that every change the generator saw commit stays
// visible everywhere connected.
func TestFailoverTraffic(t *testing.T) {
	cluster := newCluster(t, 5, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	cluster.checkLeaders(false)

	generator := newTrafficGenerator(cluster)
	generator.start()

	rounds := [][]int{{0, 1}, {2, 3}, {4}}
	revive := [][]int{nil, {0, 1}, {2, 3}}

	for round, kill := range rounds {
		for _, server := range revive[round] {
			cluster.restartServer(server)
		}
		for _, server := range kill {
			cluster.crashServer(server)
		}

		cluster.checkLeaders(false)
		time.Sleep(500 * time.Millisecond)
	}

	generator.stop()
	generator.checkChangesPresent(t)
}

// TestSnapshotInstall checks that a follower which falls far enough behind
// that its next entry has already been compacted out of the leader's log
// catches up via InstallSnapshot rather than AppendEntries.
func TestSnapshotInstall(t *testing.T) {
	cluster := newCluster(t, 3, true, 5)

	cluster.startCluster()
	defer cluster.stopCluster()

	leader := cluster.checkLeaders(false)
	laggard := (leader + 1) % 3
	cluster.disconnectServer(laggard)

	operations := makeOperations(25)
	for _, operation := range operations {
		cluster.submit(operation, true, false, 2)
	}

	cluster.reconnectServer(laggard)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cluster.checkApplied(uint64(len(operations)), 3) {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatal("laggard server never caught up via snapshot install")
}

// TestBasicReadOnly checks that a read-only operation submitted under
// normal conditions is successful.
func TestBasicReadOnly(t *testing.T) {
	cluster := newCluster(t, 5, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	cluster.checkLeaders(false)
	operations := makeOperations(1)
	cluster.submit(operations[0], false, false, 5)

	readOp := Operation{OperationType: LeaseBasedReadOnly}
	cluster.submit(readOp, false, false, 5)
}

// TestSingleServerReadOnly checks that read-only operations succeed in the
// single server case.
func TestSingleServerReadOnly(t *testing.T) {
	cluster := newCluster(t, 1, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	cluster.checkLeaders(false)
	operations := makeOperations(5)
	for _, operation := range operations {
		cluster.submit(operation, false, false, 1)
	}

	cluster.submit(Operation{OperationType: LeaseBasedReadOnly}, false, false, 1)
	cluster.submit(Operation{OperationType: LinearizableReadOnly}, false, false, 1)
}

// TestReadOnlyFail checks that a read-only operation submitted when a
// leader cannot reach a majority of the cluster is rejected.
func TestReadOnlyFail(t *testing.T) {
	cluster := newCluster(t, 3, snapshotting, snapshotSize)

	cluster.startCluster()
	defer cluster.stopCluster()

	leader := cluster.checkLeaders(false)
	cluster.disconnectServer(leader)
	cluster.disconnectServer((leader + 1) % 3)

	time.Sleep(defaultLeaseDuration)

	cluster.submit(Operation{OperationType: LinearizableReadOnly}, false, true, 0)
}
