package paxos

import (
	"github.com/senutpal/quorum/internal/command"
	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/registry"
	"github.com/senutpal/quorum/internal/wire"
)

// commander is a one-shot sub-actor running Phase 2 for a single
// (slot, ballot, command). Like scout, it is plain state advanced
// synchronously by the owning Leader.
type commander struct {
	slot    uint64
	ballot  paxosid.Ballot
	command command.Command
	waitFor map[paxosid.NodeID]bool
	total   int
}

func newCommander(slot uint64, ballot paxosid.Ballot, cmd command.Command, acceptors []registry.Entry) *commander {
	waitFor := make(map[paxosid.NodeID]bool, len(acceptors))
	for _, a := range acceptors {
		waitFor[a.ID] = true
	}
	return &commander{slot: slot, ballot: ballot, command: cmd, waitFor: waitFor, total: len(acceptors)}
}

type commanderResult struct {
	Decided         bool
	Preempted       bool
	PreemptedBallot paxosid.Ballot
}

// onPhase2b compares the acceptor's reported ballot against the ballot
// this commander proposed under. A caller routes a Phase2b to every live
// commander for its slot — see Leader.handlePhase2b — since the wire
// message identifies the slot but not which in-flight Phase2a triggered
// it; each commander independently decides whether the reply is a vote
// for it, a preemption of it, or irrelevant.
func (c *commander) onPhase2b(m wire.Phase2b, quorum int) commanderResult {
	switch {
	case m.Ballot.Equal(c.ballot):
		if !c.waitFor[m.Acceptor] {
			return commanderResult{}
		}
		delete(c.waitFor, m.Acceptor)
		if c.total-len(c.waitFor) >= quorum {
			return commanderResult{Decided: true}
		}
		return commanderResult{}
	case m.Ballot.Greater(c.ballot):
		return commanderResult{Preempted: true, PreemptedBallot: m.Ballot}
	default:
		return commanderResult{}
	}
}
