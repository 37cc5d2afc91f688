// Package command defines the unit of work the replicated log orders
// (Command), the unit Paxos actually votes on (Proposal, which pins a
// Command to a slot and a ballot), and the pmax reduction leaders use to
// safely carry forward values across ballots.
package command

import "github.com/senutpal/quorum/internal/paxosid"

// Command is a single client operation. Two commands are equal iff all
// three fields match; Op is an opaque payload interpreted only by the
// state machine's Applier.
type Command struct {
	ClientID string
	OpID     uint64
	Op       []byte
}

// Equal reports whether c and other carry the same client id, op id, and
// payload bytes.
func (c Command) Equal(other Command) bool {
	if c.ClientID != other.ClientID || c.OpID != other.OpID {
		return false
	}
	if len(c.Op) != len(other.Op) {
		return false
	}
	for i := range c.Op {
		if c.Op[i] != other.Op[i] {
			return false
		}
	}
	return true
}

// Proposal pins a Command to a slot under a ballot. Equality and order are
// defined only on (Slot, Ballot); the Command is metadata carried along for
// whichever acceptor or leader needs it.
type Proposal struct {
	Slot    uint64
	Ballot  paxosid.Ballot
	Command Command
}

// SameVote reports whether p and other name the same (slot, ballot) pair —
// the equality Paxos actually cares about when deduplicating accepted sets.
func (p Proposal) SameVote(other Proposal) bool {
	return p.Slot == other.Slot && p.Ballot.Equal(other.Ballot)
}

// Pmax computes, for each slot present in proposals, the Command of the
// proposal carrying the highest ballot at that slot; proposals at other
// slots are discarded. This is the heart of Paxos safety in the Adopted
// handler: any value that could already have been chosen at a slot must be
// re-proposed unchanged under the new ballot.
func Pmax(proposals []Proposal) map[uint64]Command {
	best := make(map[uint64]paxosid.Ballot)
	result := make(map[uint64]Command)
	for _, p := range proposals {
		if cur, ok := best[p.Slot]; !ok || p.Ballot.Greater(cur) {
			best[p.Slot] = p.Ballot
			result[p.Slot] = p.Command
		}
	}
	return result
}

// Latest filters accepted to the proposals that are maximal under proposal
// order for their slot — for each slot present, only the highest-ballot
// proposal(s) survive. Used by an acceptor replying to Phase 1a: proposals
// in different slots are incomparable and all appear in the result.
func Latest(accepted []Proposal) []Proposal {
	bestBallot := make(map[uint64]paxosid.Ballot)
	for _, p := range accepted {
		if cur, ok := bestBallot[p.Slot]; !ok || p.Ballot.Greater(cur) {
			bestBallot[p.Slot] = p.Ballot
		}
	}
	seen := make(map[uint64]bool)
	var out []Proposal
	for _, p := range accepted {
		if p.Ballot.Equal(bestBallot[p.Slot]) && !seen[p.Slot] {
			out = append(out, p)
			seen[p.Slot] = true
		}
	}
	return out
}
