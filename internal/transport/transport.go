// Package transport implements the datagram-style message channel the
// specification assumes: whole messages delivered at most once, with no
// ordering guarantee, no reliable delivery, and no authentication. Two
// implementations satisfy the same interface: UDP for real processes, and
// an in-memory one for the harness and tests.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/senutpal/quorum/internal/wire"
)

// Endpoint is an address a Channel can send to — "host:port" for UDP, or
// the name a channel was registered under for the in-memory channel.
type Endpoint string

// ErrClosed is returned by Recv once the channel has been closed.
var ErrClosed = errors.New("transport: channel closed")

// Channel is the one interface internal/paxos depends on for all network
// I/O — it never imports UDP or Memory directly.
// Implementations must never block Send indefinitely on an unreachable
// destination — fire-and-forget, matching a real datagram socket.
type Channel interface {
	// Send transmits env toward to. Delivery is not guaranteed.
	Send(to Endpoint, env wire.Envelope) error
	// Recv blocks until a datagram arrives, ctx is done, or the channel is
	// closed, whichever happens first.
	Recv(ctx context.Context) (wire.Envelope, Endpoint, error)
	// LocalEndpoint returns the address other nodes should use to reach
	// this channel.
	LocalEndpoint() Endpoint
	Close() error
}

// RecvTimeout is a convenience wrapper for callers that want to poll a stop
// channel between receives rather than cancel a context. The Runner's loop
// does not use it; it calls Recv with its own context.
func RecvTimeout(ch Channel, d time.Duration) (wire.Envelope, Endpoint, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return ch.Recv(ctx)
}
