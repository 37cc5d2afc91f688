package paxos

import (
	"context"
	"fmt"
	"sync"

	"github.com/davecgh/go-spew/spew"

	"github.com/senutpal/quorum/internal/command"
	"github.com/senutpal/quorum/internal/logging"
	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/registry"
	"github.com/senutpal/quorum/internal/role"
	"github.com/senutpal/quorum/internal/statemachine"
	"github.com/senutpal/quorum/internal/transport"
	"github.com/senutpal/quorum/internal/wire"
)

// Window bounds how far a replica may propose ahead of its own applied
// slot — invariant (3) in §3.
const Window = 32

// Replica accepts client requests, proposes them into slots, and applies
// decided commands in slot order to an application state of type S. S is
// supplied at construction along with the Applier that evolves it; the
// protocol logic below never inspects S directly.
type Replica[S any] struct {
	mu       sync.Mutex
	self     paxosid.NodeID
	resolver registry.Resolver
	channel  transport.Channel
	applier  statemachine.Applier[S]
	log      logging.Logger

	state   S
	slotIn  uint64
	slotOut uint64

	requests  []command.Command
	proposals map[uint64]command.Command
	decisions map[uint64]command.Command
	clients   map[string]transport.Endpoint

	applied uint64
}

// NewReplica returns a replica starting at slot 1 (slot 0 is left free as
// a sentinel, per the standardized slot-numbering choice in §9) with the
// given initial application state.
func NewReplica[S any](self paxosid.NodeID, resolver registry.Resolver, channel transport.Channel, applier statemachine.Applier[S], initial S, log logging.Logger) *Replica[S] {
	return &Replica[S]{
		self:      self,
		resolver:  resolver,
		channel:   channel,
		applier:   applier,
		state:     initial,
		slotIn:    1,
		slotOut:   1,
		proposals: make(map[uint64]command.Command),
		decisions: make(map[uint64]command.Command),
		clients:   make(map[string]transport.Endpoint),
		log:       log.With("role", "replica", "id", self.String()),
	}
}

// HandleMessage dispatches one inbound message. from is the transport
// source address, used only for Request — that is how a replica learns
// where to send a client's eventual Response.
func (r *Replica[S]) HandleMessage(ctx context.Context, m wire.Message, from transport.Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch msg := m.(type) {
	case wire.Request:
		return r.handleRequest(ctx, msg, from)
	case wire.Decision:
		return r.handleDecision(ctx, msg)
	default:
		r.log.Warnf("unexpected message", "type", fmt.Sprintf("%T", m))
		return nil
	}
}

// Applied reports how many decisions this replica has applied so far —
// cmd/replicad polls this against the configured k to decide when to exit.
func (r *Replica[S]) Applied() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied
}

// State returns a snapshot of the current application state, for tests
// and for the harness to compare replicas against each other.
func (r *Replica[S]) State() S {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Replica[S]) handleRequest(ctx context.Context, m wire.Request, from transport.Endpoint) error {
	if _, known := r.clients[m.Command.ClientID]; !known {
		r.clients[m.Command.ClientID] = from
	}
	r.requests = append(r.requests, m.Command)
	return r.propose(ctx)
}

// propose is the proposal pump from §4.5: it drains queued requests into
// fresh slots, skipping slots already decided without consuming a
// request, until the window is full or the queue is empty.
func (r *Replica[S]) propose(ctx context.Context) error {
	if len(r.requests) == 0 {
		return nil
	}
	leaders, err := r.resolver.Resolve(ctx, role.Leader)
	if err != nil {
		return fmt.Errorf("replica: resolve leaders: %w", err)
	}
	for r.slotIn < r.slotOut+Window && len(r.requests) > 0 {
		if _, decided := r.decisions[r.slotIn]; !decided {
			c := r.requests[0]
			r.requests = r.requests[1:]
			r.proposals[r.slotIn] = c
			for _, l := range leaders {
				r.send(transport.Endpoint(l.Addr), wire.Propose{Replica: r.self, Slot: r.slotIn, Command: c})
			}
		}
		r.slotIn++
	}
	return nil
}

func (r *Replica[S]) handleDecision(ctx context.Context, m wire.Decision) error {
	if existing, ok := r.decisions[m.Slot]; ok {
		if !existing.Equal(m.Command) {
			r.log.Errorf("safety violation: duplicate decision with different command", "slot", m.Slot)
			panic(fmt.Sprintf("paxos: slot %d decided twice with different commands:\n%s",
				m.Slot, spew.Sdump(existing, m.Command)))
		}
		return nil
	}
	r.decisions[m.Slot] = m.Command

	for {
		c1, ok := r.decisions[r.slotOut]
		if !ok {
			break
		}
		if c2, had := r.proposals[r.slotOut]; had {
			delete(r.proposals, r.slotOut)
			if !c2.Equal(c1) {
				r.requests = append(r.requests, c2)
			}
		}
		r.perform(c1)
	}

	// slot_out advancing may have freed window space, and a lost proposal
	// may have just been re-queued above; give propose() another pass.
	return r.propose(ctx)
}

func (r *Replica[S]) perform(c command.Command) {
	var reply statemachine.Reply
	r.state, reply = r.applier.Apply(r.state, c)
	r.slotOut++
	r.applied++
	ep, ok := r.clients[c.ClientID]
	if !ok {
		return
	}
	r.send(ep, wire.Response{OpID: c.OpID, ReplyText: reply.Text, Result: reply.Result})
}

func (r *Replica[S]) send(addr transport.Endpoint, m wire.Message) {
	env, err := wire.Encode(m)
	if err != nil {
		r.log.Errorf("encode failed", "err", err)
		return
	}
	if err := r.channel.Send(addr, env); err != nil {
		r.log.Debugf("send failed", "to", addr, "err", err)
	}
}
