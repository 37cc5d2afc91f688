// Package wire defines every message that flows between roles, and the
// self-describing envelope that carries them over the datagram transport.
// Paxos is fundamentally a message-passing protocol: this file is the
// protocol's vocabulary.
package wire

import (
	"github.com/senutpal/quorum/internal/command"
	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/registry"
)

// Message is implemented by every payload type below. Sender generalizes
// the accessor idiom of returning "who sent this" without a type switch;
// Request and Response are client traffic and have no paxosid.NodeID of
// their own, so they return the zero value.
type Message interface {
	Sender() paxosid.NodeID
}

// Request is a client submitting a command to a replica.
type Request struct {
	Command command.Command
}

func (m Request) Sender() paxosid.NodeID { return paxosid.NodeID{} }

// Response carries the result of an applied command back to the client
// that submitted it.
type Response struct {
	OpID      uint64
	ReplyText string
	Result    []byte
}

func (m Response) Sender() paxosid.NodeID { return paxosid.NodeID{} }

// Propose is a replica asking a leader to drive a command into a slot.
type Propose struct {
	Replica paxosid.NodeID
	Slot    uint64
	Command command.Command
}

func (m Propose) Sender() paxosid.NodeID { return m.Replica }

// Decision is a commander announcing that a slot has been decided,
// broadcast to every replica.
type Decision struct {
	Leader  paxosid.NodeID
	Slot    uint64
	Command command.Command
}

func (m Decision) Sender() paxosid.NodeID { return m.Leader }

// Phase1a is a scout's Paxos Phase 1 request: "promise not to accept
// anything below this ballot."
type Phase1a struct {
	Leader   paxosid.NodeID
	Acceptor paxosid.NodeID
	Ballot   paxosid.Ballot
}

func (m Phase1a) Sender() paxosid.NodeID { return m.Leader }

// Phase1b is an acceptor's reply to Phase1a: its current ballot (adopted
// or not) plus the maximal accepted proposals per slot.
type Phase1b struct {
	Leader   paxosid.NodeID
	Acceptor paxosid.NodeID
	Ballot   paxosid.Ballot
	Accepted []command.Proposal
}

func (m Phase1b) Sender() paxosid.NodeID { return m.Acceptor }

// Phase2a is a commander's Paxos Phase 2 request: "accept this proposal."
type Phase2a struct {
	Leader   paxosid.NodeID
	Acceptor paxosid.NodeID
	Proposal command.Proposal
}

func (m Phase2a) Sender() paxosid.NodeID { return m.Leader }

// Phase2b is an acceptor's reply to Phase2a: the ballot it currently holds,
// which the commander compares against the ballot it proposed under. Slot
// echoes the proposal's slot so that a leader running several commanders
// concurrently at the same ballot — one per outstanding slot, which is the
// normal case in Multi-Paxos — can route the reply to the right one; a
// bare (leader, acceptor, ballot) triple cannot disambiguate between them.
type Phase2b struct {
	Leader   paxosid.NodeID
	Acceptor paxosid.NodeID
	Slot     uint64
	Ballot   paxosid.Ballot
}

func (m Phase2b) Sender() paxosid.NodeID { return m.Acceptor }

// Identify is the one-round discovery handshake: a node announces itself
// and, if Reply is true, asks the recipient to echo its own Entry back
// with Reply false. A Reply-false Identify is never itself answered, which
// keeps the handshake to exactly one round trip.
type Identify struct {
	Entry registry.Entry
	Reply bool
}

func (m Identify) Sender() paxosid.NodeID { return m.Entry.ID }
