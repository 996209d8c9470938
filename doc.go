/*
This library provides an implementation of Raft, a consensus protocol designed to manage
replicated logs in a distributed system. Its purpose is to ensure fault-tolerant coordination
and consistency among a group of nodes, making it suitable for building reliable systems.
Potential use cases include distributed file systems, consistent key-value stores, and service
discovery.

To set up a server, the first step is to define the state machine that is to be replicated.
This state machine must implement the StateMachine interface, and it must be concurrent safe.
Here is an example of a type that implements the StateMachine interface.

	// Op represents an operation on the state machine.
	type Op int

	const (
	    // Increment increments the counter by one.
	    Increment Op = iota

	    // Decrement decrements the counter by one.
	    Decrement
	)

	// Counter is a simple counter replicated across a raft cluster.
	type Counter struct {
	    count int
	    mu    sync.Mutex
	}

	func (c *Counter) Apply(entry *raft.LogEntry) interface{} {
	    c.mu.Lock()
	    defer c.mu.Unlock()

	    var op Op
	    buf := bytes.NewBuffer(entry.Data)
	    dec := gob.NewDecoder(buf)
	    if err := dec.Decode(&op); err != nil {
	        return err
	    }

	    switch op {
	    case Increment:
	        c.count++
	    case Decrement:
	        c.count--
	    }

	    return c.count
	}

	func (c *Counter) Snapshot() (raft.Snapshot, error) {
	    c.mu.Lock()
	    defer c.mu.Unlock()

	    var buf bytes.Buffer
	    enc := gob.NewEncoder(&buf)
	    if err := enc.Encode(c.count); err != nil {
	        return raft.Snapshot{}, err
	    }

	    return raft.Snapshot{Data: buf.Bytes()}, nil
	}

	func (c *Counter) Restore(snapshot *raft.Snapshot) error {
	    c.mu.Lock()
	    defer c.mu.Unlock()

	    buf := bytes.NewBuffer(snapshot.Data)
	    dec := gob.NewDecoder(buf)
	    return dec.Decode(&c.count)
	}

	func (c *Counter) NeedSnapshot() bool {
	    return false
	}

	func (c *Counter) ConsiderChange(change []byte) bool {
	    var op Op
	    buf := bytes.NewBuffer(change)
	    dec := gob.NewDecoder(buf)
	    return dec.Decode(&op) == nil
	}

Next, build the map of every member's ID to its network address, including this server's own
entry, and a channel that will receive the outcome of each applied operation.

	peers := map[string]string{
	    "raft-1": "127.0.0.1:8080",
	    "raft-2": "127.0.0.2:8080",
	    "raft-3": "127.0.0.3:8080",
	}
	responseCh := make(chan raft.OperationResponse, 64)

A Server may now be created. Durable state - the log, the term/vote pair, and snapshots - is
kept under dataDir.

	server, err := raft.NewServer("raft-1", peers, &Counter{}, dataDir, dataDir, dataDir, responseCh)
	if err != nil {
	    panic(err)
	}

Options such as election timeout, heartbeat interval, and snapshot policy may be supplied when
creating a Server. If none are provided, sensible defaults are used.

	server, err := raft.NewServer("raft-1", peers, &Counter{}, dataDir, dataDir, dataDir, responseCh,
	    raft.WithElectionTimeout(500*time.Millisecond))

Starting the server begins RPC serving and, once every server's transport is up, the election
and replication loops.

	readyCh := make(chan interface{})
	go func() {
	    if err := server.Start(readyCh); err != nil {
	        panic(err)
	    }
	}()
	close(readyCh)

An operation may be submitted once the server is started. SubmitOperation blocks until the
operation has been applied (or definitively fails) and returns the log index and term it was
assigned.

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(Increment); err != nil {
	    panic(err)
	}

	index, term, err := server.SubmitOperation(raft.Operation{Bytes: buf.Bytes()})

Read-only operations skip the log entirely. LinearizableReadOnly confirms leadership with a
round of heartbeats before applying; LeaseBasedReadOnly trusts a still-valid leader lease and is
faster but weaker.

	index, term, err := server.SubmitOperation(raft.Operation{OperationType: raft.LeaseBasedReadOnly})

Applied operations, including their ApplicationResponse (the value Apply returned), are
delivered on responseCh as they are applied - not on the caller of SubmitOperation. Delivery
does not block: a response that responseCh cannot accept at that moment is dropped. A caller
that needs the ApplicationResponse should correlate it against responseCh using the returned
index and term.

Cluster membership can be changed while the cluster is running via a two-phase joint consensus.
ProposeConfigurationChange returns a ChangeToken; awaiting it reports whether the change
committed, was rejected, or was lost to a leadership change.

	token := server.ProposeConfigurationChange(map[string]string{
	    "raft-1": "127.0.0.1:8080",
	    "raft-2": "127.0.0.2:8080",
	    "raft-4": "127.0.0.4:8080",
	})
	outcome, newConfiguration := token.Await()
*/
package raft
