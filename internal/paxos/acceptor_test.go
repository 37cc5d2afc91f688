package paxos

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/senutpal/quorum/internal/command"
	"github.com/senutpal/quorum/internal/logging"
	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/wire"
)

func TestAcceptorPromisesHigherBallot(t *testing.T) {
	self := paxosid.NewNodeID()
	leader := paxosid.NewNodeID()
	a := NewAcceptor(self, logging.Noop())

	b1 := paxosid.Ballot{Num: 1, Leader: leader}
	reply := a.HandlePhase1a(wire.Phase1a{Leader: leader, Acceptor: self, Ballot: b1})
	require.True(t, reply.Ballot.Equal(b1))
	require.Empty(t, reply.Accepted)

	b0 := paxosid.Ballot{Num: 0, Leader: leader}
	reply = a.HandlePhase1a(wire.Phase1a{Leader: leader, Acceptor: self, Ballot: b0})
	require.True(t, reply.Ballot.Equal(b1), "must not regress to a lower ballot")
}

func TestAcceptorAcceptsOnlyMatchingBallot(t *testing.T) {
	self := paxosid.NewNodeID()
	leader := paxosid.NewNodeID()
	a := NewAcceptor(self, logging.Noop())

	b1 := paxosid.Ballot{Num: 1, Leader: leader}
	a.HandlePhase1a(wire.Phase1a{Leader: leader, Acceptor: self, Ballot: b1})

	cmd := command.Command{ClientID: "c", OpID: 1, Op: []byte("x")}
	reply := a.HandlePhase2a(wire.Phase2a{Leader: leader, Acceptor: self, Proposal: command.Proposal{Slot: 1, Ballot: b1, Command: cmd}})
	require.True(t, reply.Ballot.Equal(b1))
	require.Equal(t, uint64(1), reply.Slot)
	require.Len(t, a.accepted, 1)

	stale := paxosid.Ballot{Num: 0, Leader: leader}
	staleCmd := command.Command{ClientID: "c", OpID: 2, Op: []byte("y")}
	a.HandlePhase2a(wire.Phase2a{Leader: leader, Acceptor: self, Proposal: command.Proposal{Slot: 2, Ballot: stale, Command: staleCmd}})
	require.Len(t, a.accepted, 1, "a proposal below the promised ballot must not be accepted")
}

func TestAcceptorLatestDeduplicatesAccepted(t *testing.T) {
	self := paxosid.NewNodeID()
	leader := paxosid.NewNodeID()
	a := NewAcceptor(self, logging.Noop())

	b1 := paxosid.Ballot{Num: 1, Leader: leader}
	b2 := paxosid.Ballot{Num: 2, Leader: leader}
	a.HandlePhase1a(wire.Phase1a{Leader: leader, Acceptor: self, Ballot: b2})

	cmd1 := command.Command{OpID: 1}
	cmd2 := command.Command{OpID: 2}
	a.accepted = append(a.accepted,
		command.Proposal{Slot: 1, Ballot: b1, Command: cmd1},
		command.Proposal{Slot: 1, Ballot: b2, Command: cmd2},
	)

	reply := a.HandlePhase1a(wire.Phase1a{Leader: leader, Acceptor: self, Ballot: b2})
	require.Len(t, reply.Accepted, 1)
	require.True(t, reply.Accepted[0].Command.Equal(cmd2))
}
