// Package registry is the node-discovery directory: a side registry mapping
// node identities to network endpoints. The Paxos core consumes "the
// current membership" only through the Resolver interface in this file;
// how it gets populated (in-memory for tests, SQLite for real processes) is
// external to the core, exactly as the specification requires.
package registry

import (
	"context"
	"time"

	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/role"
)

// Entry is one announced node: its identity, its role, and the address
// other processes should dial to reach it.
type Entry struct {
	ID   paxosid.NodeID
	Role role.Role
	Addr string // host:port, interpreted by the transport
}

// Resolver answers "who currently plays this role". Resolution is
// eventually complete: it may return a subset at first, but once a node has
// announced itself every later Resolve call for its role includes it. The
// core never caches a Resolve result across a role-startup boundary; it
// calls Resolve again each time it needs the current membership.
type Resolver interface {
	Resolve(ctx context.Context, r role.Role) ([]Entry, error)
	Announce(ctx context.Context, e Entry) error
}

// WaitFor polls Resolve until at least n entries of role r are known or ctx
// is done. This is a startup-only convenience — original_source's two
// directory variants both gate leader/acceptor startup on a minimum
// membership size before running the protocol for real. internal/paxos
// never calls this; it always re-resolves on demand per message, matching
// the "never cache" rule for steady-state operation.
func WaitFor(ctx context.Context, r Resolver, role role.Role, n int, poll time.Duration) ([]Entry, error) {
	for {
		entries, err := r.Resolve(ctx, role)
		if err != nil {
			return nil, err
		}
		if len(entries) >= n {
			return entries, nil
		}
		select {
		case <-ctx.Done():
			return entries, ctx.Err()
		case <-time.After(poll):
		}
	}
}
