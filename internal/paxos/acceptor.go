// Package paxos implements the three role state machines — Acceptor,
// Leader (with its Scout and Commander sub-actors), and Replica — and the
// slot/ballot discipline that ties them together. Every type here is pure
// state plus message handlers; the actual network I/O lives in runner.go
// and in internal/transport.
package paxos

import (
	"github.com/senutpal/quorum/internal/command"
	"github.com/senutpal/quorum/internal/logging"
	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/wire"
)

// Acceptor stores a promised ballot and the proposals it has accepted.
// Both fields only ever grow: ballot is replaced with something greater,
// accepted is only appended to. Acceptors never originate messages on
// their own; they only reply to Phase1a and Phase2a.
type Acceptor struct {
	self      paxosid.NodeID
	hasBallot bool
	ballot    paxosid.Ballot
	accepted  []command.Proposal
	log       logging.Logger
}

// NewAcceptor returns an acceptor with no promised ballot and nothing
// accepted.
func NewAcceptor(self paxosid.NodeID, log logging.Logger) *Acceptor {
	return &Acceptor{
		self: self,
		log:  log.With("role", "acceptor", "id", self.String()),
	}
}

// HandlePhase1a adopts b if it is unset or strictly greater than the
// current ballot, then replies with the current ballot (whether or not it
// changed) and the maximal accepted proposal per slot.
func (a *Acceptor) HandlePhase1a(m wire.Phase1a) wire.Phase1b {
	if !a.hasBallot || m.Ballot.Greater(a.ballot) {
		a.ballot = m.Ballot
		a.hasBallot = true
		a.log.Debugf("promised", "ballot", a.ballot.String())
	}
	return wire.Phase1b{
		Leader:   m.Leader,
		Acceptor: a.self,
		Ballot:   a.ballot,
		Accepted: command.Latest(a.accepted),
	}
}

// HandlePhase2a accepts the proposal iff its ballot matches the currently
// promised ballot exactly, then replies with the current ballot regardless
// — the commander compares that against the ballot it proposed under.
func (a *Acceptor) HandlePhase2a(m wire.Phase2a) wire.Phase2b {
	if a.hasBallot && m.Proposal.Ballot.Equal(a.ballot) {
		a.accepted = append(a.accepted, m.Proposal)
		a.log.Debugf("accepted", "slot", m.Proposal.Slot, "ballot", m.Proposal.Ballot.String())
	}
	return wire.Phase2b{
		Leader:   m.Leader,
		Acceptor: a.self,
		Slot:     m.Proposal.Slot,
		Ballot:   a.ballot,
	}
}
