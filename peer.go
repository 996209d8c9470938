package raft

import (
	"sync"
)

// Peer tracks the replication state raft maintains for one other member of
// the cluster: its address, the leader's guess of where its log diverges
// (nextIndex), the highest index it is known to have replicated
// (matchIndex), and whether the leader currently considers it reachable.
// RPCs to a peer are dispatched through Transport; Peer itself holds no
// network connection.
type Peer struct {
	id         string
	address    string
	nextIndex  uint64
	matchIndex uint64
	connected  bool
	mu         sync.Mutex
}

// NewPeer creates a peer entry for the member with the given ID and address.
// The peer starts disconnected; Connect marks it reachable.
func NewPeer(id, address string) *Peer {
	return &Peer{id: id, address: address}
}

// Connect marks the peer as reachable. Actual dialing happens lazily inside
// the transport's connection manager the first time an RPC targets this
// peer's address.
func (p *Peer) Connect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
}

// Disconnect marks the peer as unreachable, e.g. after repeated RPC
// failures. A disconnected peer is skipped when the leader fans out
// AppendEntries until Reconnect is called.
func (p *Peer) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
}

// Reconnect marks the peer as reachable again and resets nextIndex so the
// next AppendEntries probes from scratch, since the peer's log state while
// disconnected is unknown.
func (p *Peer) Reconnect(lastLogIndex uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = true
	p.nextIndex = lastLogIndex + 1
}

func (p *Peer) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *Peer) ID() string {
	return p.id
}

func (p *Peer) Address() string {
	return p.address
}

func (p *Peer) SetAddress(address string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.address = address
}

func (p *Peer) setNextIndex(index uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextIndex = index
}

func (p *Peer) getNextIndex() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextIndex
}

func (p *Peer) setMatchIndex(index uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.matchIndex = index
}

func (p *Peer) getMatchIndex() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.matchIndex
}
