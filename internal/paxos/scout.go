package paxos

import (
	"github.com/senutpal/quorum/internal/command"
	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/registry"
	"github.com/senutpal/quorum/internal/wire"
)

// scout is a one-shot sub-actor running Phase 1 for a single target
// ballot. It is a plain struct owned by a Leader's scout field, advanced
// synchronously as Phase1b replies arrive — never a goroutine, per the
// single-threaded event-loop model.
type scout struct {
	ballot  paxosid.Ballot
	waitFor map[paxosid.NodeID]bool
	total   int
	pvalues []command.Proposal
}

func newScout(ballot paxosid.Ballot, acceptors []registry.Entry) *scout {
	waitFor := make(map[paxosid.NodeID]bool, len(acceptors))
	for _, a := range acceptors {
		waitFor[a.ID] = true
	}
	return &scout{ballot: ballot, waitFor: waitFor, total: len(acceptors)}
}

// scoutResult reports what onPhase1b decided: nothing yet, adoption (a
// quorum promised our ballot), or preemption (an acceptor is already
// holding something higher).
type scoutResult struct {
	Adopted         bool
	Preempted       bool
	PreemptedBallot paxosid.Ballot
	Pvalues         []command.Proposal
}

func (s *scout) onPhase1b(m wire.Phase1b, quorum int) scoutResult {
	switch {
	case m.Ballot.Equal(s.ballot):
		if !s.waitFor[m.Acceptor] {
			return scoutResult{}
		}
		delete(s.waitFor, m.Acceptor)
		s.pvalues = append(s.pvalues, m.Accepted...)
		if s.total-len(s.waitFor) >= quorum {
			return scoutResult{Adopted: true, Pvalues: s.pvalues}
		}
		return scoutResult{}
	case m.Ballot.Greater(s.ballot):
		return scoutResult{Preempted: true, PreemptedBallot: m.Ballot}
	default:
		return scoutResult{}
	}
}
