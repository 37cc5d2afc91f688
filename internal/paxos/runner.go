package paxos

import (
	"context"
	"errors"
	"fmt"

	"github.com/senutpal/quorum/internal/logging"
	"github.com/senutpal/quorum/internal/registry"
	"github.com/senutpal/quorum/internal/transport"
	"github.com/senutpal/quorum/internal/wire"
)

// Runner is the single-threaded event loop every role process runs: block
// on the inbound channel, decode one envelope, dispatch it to completion,
// repeat. It owns nothing about the protocol itself — that lives in
// Acceptor/Leader/Replica — only the receive/decode/dispatch/Identify
// plumbing shared by all three.
type Runner struct {
	channel  transport.Channel
	resolver registry.Resolver
	self     registry.Entry
	log      logging.Logger
	dispatch func(ctx context.Context, m wire.Message, from transport.Endpoint) error
}

func newRunner(channel transport.Channel, resolver registry.Resolver, self registry.Entry, log logging.Logger, dispatch func(context.Context, wire.Message, transport.Endpoint) error) *Runner {
	return &Runner{channel: channel, resolver: resolver, self: self, log: log, dispatch: dispatch}
}

// Run announces self to the registry, then loops receiving and
// dispatching messages until ctx is done or the channel closes.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.resolver.Announce(ctx, r.self); err != nil {
		return fmt.Errorf("runner: announce self: %w", err)
	}
	for {
		env, from, err := r.channel.Recv(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, transport.ErrClosed) {
				return nil
			}
			r.log.Warnf("recv error", "err", err)
			continue
		}
		m, err := wire.Decode(env)
		if err != nil {
			r.log.Warnf("dropping malformed datagram", "err", err)
			continue
		}
		if identify, ok := m.(wire.Identify); ok {
			r.handleIdentify(ctx, from, identify)
			continue
		}
		if err := r.dispatch(ctx, m, from); err != nil {
			r.log.Warnf("handler error", "err", err)
		}
	}
}

// handleIdentify implements the one-round discovery handshake (§4.6): the
// sender's entry is announced locally, and a reply=true request gets a
// reply=false echo back so the handshake never loops.
func (r *Runner) handleIdentify(ctx context.Context, from transport.Endpoint, m wire.Identify) {
	if err := r.resolver.Announce(ctx, m.Entry); err != nil {
		r.log.Warnf("announce peer failed", "err", err)
		return
	}
	if !m.Reply {
		return
	}
	env, err := wire.Encode(wire.Identify{Entry: r.self, Reply: false})
	if err != nil {
		r.log.Errorf("encode identify reply failed", "err", err)
		return
	}
	if err := r.channel.Send(from, env); err != nil {
		r.log.Debugf("identify reply send failed", "to", from, "err", err)
	}
}

// NewAcceptorRunner wires an Acceptor's message handlers into a Runner.
func NewAcceptorRunner(a *Acceptor, self registry.Entry, channel transport.Channel, resolver registry.Resolver, log logging.Logger) *Runner {
	dispatch := func(ctx context.Context, m wire.Message, from transport.Endpoint) error {
		var reply wire.Message
		switch msg := m.(type) {
		case wire.Phase1a:
			reply = a.HandlePhase1a(msg)
		case wire.Phase2a:
			reply = a.HandlePhase2a(msg)
		default:
			a.log.Warnf("unexpected message", "type", fmt.Sprintf("%T", m))
			return nil
		}
		env, err := wire.Encode(reply)
		if err != nil {
			return fmt.Errorf("acceptor: encode reply: %w", err)
		}
		return channel.Send(from, env)
	}
	return newRunner(channel, resolver, self, log, dispatch)
}

// NewLeaderRunner wires a Leader into a Runner and starts its first scout.
func NewLeaderRunner(ctx context.Context, l *Leader, self registry.Entry, channel transport.Channel, resolver registry.Resolver, log logging.Logger) (*Runner, error) {
	if err := l.Start(ctx); err != nil {
		return nil, fmt.Errorf("leader: start: %w", err)
	}
	dispatch := func(ctx context.Context, m wire.Message, _ transport.Endpoint) error {
		return l.HandleMessage(ctx, m)
	}
	return newRunner(channel, resolver, self, log, dispatch), nil
}

// NewReplicaRunner wires a Replica into a Runner.
func NewReplicaRunner[S any](r *Replica[S], self registry.Entry, channel transport.Channel, resolver registry.Resolver, log logging.Logger) *Runner {
	dispatch := func(ctx context.Context, m wire.Message, from transport.Endpoint) error {
		return r.HandleMessage(ctx, m, from)
	}
	return newRunner(channel, resolver, self, log, dispatch)
}
