package transport

import (
	"context"
	"math/rand"
	"sync"

	"github.com/senutpal/quorum/internal/wire"
)

type datagram struct {
	env  wire.Envelope
	from Endpoint
}

// Memory is an in-process Channel backed by buffered Go channels, one per
// registered endpoint — the collapse of the teacher's planned per-node
// inbox into a single shared switchboard, since no real I/O is involved.
// It is the transport the harness and tests use to run a whole cluster in
// one process.
type Memory struct {
	self  Endpoint
	net   *MemoryNetwork
	inbox chan datagram
}

// MemoryNetwork is the shared switchboard a set of Memory channels register
// with. It also doubles as the fault injector the end-to-end scenarios in
// the specification's §8 call for: DropRate randomly discards datagrams in
// transit, and Partition blocks delivery between two specific endpoints.
type MemoryNetwork struct {
	mu        sync.Mutex
	channels  map[Endpoint]*Memory
	dropRate  float64
	partition map[[2]Endpoint]bool
	rng       *rand.Rand
}

// NewMemoryNetwork returns an empty switchboard with no induced loss.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{
		channels:  make(map[Endpoint]*Memory),
		partition: make(map[[2]Endpoint]bool),
		rng:       rand.New(rand.NewSource(1)),
	}
}

// SetDropRate configures the fraction of datagrams (0.0-1.0) the network
// randomly discards, for injecting random transport-level loss. Every
// datagram is subject to it, whatever its message type.
func (n *MemoryNetwork) SetDropRate(rate float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dropRate = rate
}

// Partition blocks delivery between a and b in both directions until
// Heal is called.
func (n *MemoryNetwork) Partition(a, b Endpoint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.partition[[2]Endpoint{a, b}] = true
	n.partition[[2]Endpoint{b, a}] = true
}

// Heal removes a previously installed partition between a and b.
func (n *MemoryNetwork) Heal(a, b Endpoint) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.partition, [2]Endpoint{a, b})
	delete(n.partition, [2]Endpoint{b, a})
}

// NewChannel registers and returns a new Memory channel for id on this
// network.
func (n *MemoryNetwork) NewChannel(id Endpoint) *Memory {
	m := &Memory{self: id, net: n, inbox: make(chan datagram, 1024)}
	n.mu.Lock()
	n.channels[id] = m
	n.mu.Unlock()
	return m
}

func (n *MemoryNetwork) deliver(from, to Endpoint, env wire.Envelope) {
	n.mu.Lock()
	if n.partition[[2]Endpoint{from, to}] {
		n.mu.Unlock()
		return
	}
	if n.dropRate > 0 && n.rng.Float64() < n.dropRate {
		n.mu.Unlock()
		return
	}
	dest, ok := n.channels[to]
	n.mu.Unlock()
	if !ok {
		return
	}
	select {
	case dest.inbox <- datagram{env: env, from: from}:
	default:
		// Destination inbox is full; a real datagram socket would drop
		// this under backpressure too.
	}
}

func (m *Memory) Send(to Endpoint, env wire.Envelope) error {
	m.net.deliver(m.self, to, env)
	return nil
}

func (m *Memory) Recv(ctx context.Context) (wire.Envelope, Endpoint, error) {
	select {
	case d, ok := <-m.inbox:
		if !ok {
			return wire.Envelope{}, "", ErrClosed
		}
		return d.env, d.from, nil
	case <-ctx.Done():
		return wire.Envelope{}, "", ctx.Err()
	}
}

func (m *Memory) LocalEndpoint() Endpoint { return m.self }

func (m *Memory) Close() error {
	m.net.mu.Lock()
	delete(m.net.channels, m.self)
	m.net.mu.Unlock()
	close(m.inbox)
	return nil
}
