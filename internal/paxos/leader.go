package paxos

import (
	"context"
	"fmt"
	"sync"

	"github.com/senutpal/quorum/internal/command"
	"github.com/senutpal/quorum/internal/logging"
	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/registry"
	"github.com/senutpal/quorum/internal/role"
	"github.com/senutpal/quorum/internal/transport"
	"github.com/senutpal/quorum/internal/wire"
)

// commanderKey identifies one live commander. A leader can have two
// commanders for the same slot alive at once across a preemption: the old
// ballot's commander left running while a new one starts at the freshly
// adopted ballot.
type commanderKey struct {
	Slot   uint64
	Ballot paxosid.Ballot
}

// Leader owns the long-lived ballot/proposal state and spawns the
// ephemeral Scout and Commander sub-actors described in §4.2-§4.4. It
// resolves the acceptor and replica sets itself via a Resolver, and sends
// over a Channel — both held for the lifetime of the process, unlike the
// per-attempt sub-actors.
type Leader struct {
	mu       sync.Mutex
	self     paxosid.NodeID
	resolver registry.Resolver
	channel  transport.Channel
	log      logging.Logger

	active    bool
	ballot    paxosid.Ballot
	proposals map[uint64]command.Command

	scout      *scout
	commanders map[commanderKey]*commander
}

// NewLeader returns a leader with no scout running yet; call Start to
// spawn the first one.
func NewLeader(self paxosid.NodeID, resolver registry.Resolver, channel transport.Channel, log logging.Logger) *Leader {
	return &Leader{
		self:       self,
		resolver:   resolver,
		channel:    channel,
		log:        log.With("role", "leader", "id", self.String()),
		ballot:     paxosid.Ballot{Num: 0, Leader: self},
		proposals:  make(map[uint64]command.Command),
		commanders: make(map[commanderKey]*commander),
	}
}

// Start spawns this leader's first scout, at ballot (0, self). The caller
// is responsible for the acceptor set already being resolvable: spawnScout
// snapshots whoever Resolve returns right now into the scout's waitFor set
// and never re-resolves to pick up late arrivals, so starting a leader
// before a quorum of acceptors has announced itself can leave that first
// scout permanently short of quorum. cmd/leaderd enforces this with
// registry.WaitFor before calling Start.
func (l *Leader) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spawnScout(ctx, l.ballot)
}

// HandleMessage dispatches one inbound protocol message. Propose arrives
// from a replica; Phase1b and Phase2b arrive from acceptors answering this
// leader's scout or commanders.
func (l *Leader) HandleMessage(ctx context.Context, m wire.Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch msg := m.(type) {
	case wire.Propose:
		return l.handlePropose(ctx, msg)
	case wire.Phase1b:
		return l.handlePhase1b(ctx, msg)
	case wire.Phase2b:
		return l.handlePhase2b(ctx, msg)
	default:
		l.log.Warnf("unexpected message", "type", fmt.Sprintf("%T", m))
		return nil
	}
}

func (l *Leader) handlePropose(ctx context.Context, m wire.Propose) error {
	if _, exists := l.proposals[m.Slot]; exists {
		return nil
	}
	l.proposals[m.Slot] = m.Command
	if !l.active {
		return nil
	}
	return l.spawnCommander(ctx, m.Slot, l.ballot, m.Command)
}

func (l *Leader) handlePhase1b(ctx context.Context, m wire.Phase1b) error {
	if l.scout == nil {
		return nil
	}
	res := l.scout.onPhase1b(m, quorumSize(l.scout.total))
	switch {
	case res.Adopted:
		l.scout = nil
		return l.onAdopted(ctx, m.Ballot, res.Pvalues)
	case res.Preempted:
		l.scout = nil
		return l.onPreempted(ctx, res.PreemptedBallot)
	default:
		return nil
	}
}

// handlePhase2b applies the reply to every live commander tracking this
// slot — see commander.onPhase2b for why a per-slot fan-out, not a single
// exact-key lookup, is the correct routing here.
func (l *Leader) handlePhase2b(ctx context.Context, m wire.Phase2b) error {
	var decidedSlot uint64
	var decidedCmd command.Command
	decided := false
	preempted := false
	var preemptedBallot paxosid.Ballot

	for key, c := range l.commanders {
		if key.Slot != m.Slot {
			continue
		}
		res := c.onPhase2b(m, quorumSize(c.total))
		switch {
		case res.Decided:
			delete(l.commanders, key)
			decided = true
			decidedSlot, decidedCmd = c.slot, c.command
		case res.Preempted:
			delete(l.commanders, key)
			if !preempted || res.PreemptedBallot.Greater(preemptedBallot) {
				preempted = true
				preemptedBallot = res.PreemptedBallot
			}
		}
	}

	if decided {
		if err := l.broadcastDecision(ctx, decidedSlot, decidedCmd); err != nil {
			return err
		}
	}
	if preempted {
		return l.onPreempted(ctx, preemptedBallot)
	}
	return nil
}

// onAdopted merges pmax(pvalues) over proposals — pmax entries win at
// slots they cover — then spawns a commander at the new ballot for every
// slot now in proposals, per §4.2.
func (l *Leader) onAdopted(ctx context.Context, ballot paxosid.Ballot, pvalues []command.Proposal) error {
	merged := command.Pmax(pvalues)
	for slot, cmd := range merged {
		l.proposals[slot] = cmd
	}
	l.active = true
	l.ballot = ballot
	l.log.Infof("adopted", "ballot", ballot.String(), "slots", len(l.proposals))
	for slot, cmd := range l.proposals {
		if err := l.spawnCommander(ctx, slot, ballot, cmd); err != nil {
			return err
		}
	}
	return nil
}

func (l *Leader) onPreempted(ctx context.Context, bPrime paxosid.Ballot) error {
	l.active = false
	l.ballot = paxosid.Next(bPrime, l.self)
	l.log.Infof("preempted", "next_ballot", l.ballot.String())
	return l.spawnScout(ctx, l.ballot)
}

func (l *Leader) spawnScout(ctx context.Context, ballot paxosid.Ballot) error {
	acceptors, err := l.resolver.Resolve(ctx, role.Acceptor)
	if err != nil {
		return fmt.Errorf("leader: resolve acceptors: %w", err)
	}
	l.scout = newScout(ballot, acceptors)
	l.log.Debugf("scout started", "ballot", ballot.String(), "acceptors", len(acceptors))
	for _, a := range acceptors {
		l.send(a.Addr, wire.Phase1a{Leader: l.self, Acceptor: a.ID, Ballot: ballot})
	}
	return nil
}

func (l *Leader) spawnCommander(ctx context.Context, slot uint64, ballot paxosid.Ballot, cmd command.Command) error {
	acceptors, err := l.resolver.Resolve(ctx, role.Acceptor)
	if err != nil {
		return fmt.Errorf("leader: resolve acceptors: %w", err)
	}
	key := commanderKey{Slot: slot, Ballot: ballot}
	l.commanders[key] = newCommander(slot, ballot, cmd, acceptors)
	proposal := command.Proposal{Slot: slot, Ballot: ballot, Command: cmd}
	for _, a := range acceptors {
		l.send(a.Addr, wire.Phase2a{Leader: l.self, Acceptor: a.ID, Proposal: proposal})
	}
	return nil
}

func (l *Leader) broadcastDecision(ctx context.Context, slot uint64, cmd command.Command) error {
	replicas, err := l.resolver.Resolve(ctx, role.Replica)
	if err != nil {
		return fmt.Errorf("leader: resolve replicas: %w", err)
	}
	l.log.Infof("decided", "slot", slot)
	for _, r := range replicas {
		l.send(r.Addr, wire.Decision{Leader: l.self, Slot: slot, Command: cmd})
	}
	return nil
}

func (l *Leader) send(addr string, m wire.Message) {
	env, err := wire.Encode(m)
	if err != nil {
		l.log.Errorf("encode failed", "err", err)
		return
	}
	if err := l.channel.Send(transport.Endpoint(addr), env); err != nil {
		l.log.Debugf("send failed", "to", addr, "err", err)
	}
}

func quorumSize(n int) int {
	return n/2 + 1
}
