package paxos

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/senutpal/quorum/internal/command"
	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/wire"
)

func TestCommanderDecidesOnQuorum(t *testing.T) {
	self := paxosid.NewNodeID()
	acceptors := threeAcceptors()
	ballot := paxosid.Ballot{Num: 0, Leader: self}
	cmd := command.Command{OpID: 1}
	c := newCommander(1, ballot, cmd, acceptors)
	quorum := quorumSize(c.total)

	res := c.onPhase2b(wire.Phase2b{Acceptor: acceptors[0].ID, Slot: 1, Ballot: ballot}, quorum)
	require.False(t, res.Decided)

	res = c.onPhase2b(wire.Phase2b{Acceptor: acceptors[1].ID, Slot: 1, Ballot: ballot}, quorum)
	require.True(t, res.Decided)
}

func TestCommanderPreemptsOnHigherBallot(t *testing.T) {
	self := paxosid.NewNodeID()
	acceptors := threeAcceptors()
	ballot := paxosid.Ballot{Num: 0, Leader: self}
	c := newCommander(1, ballot, command.Command{OpID: 1}, acceptors)

	higher := paxosid.Ballot{Num: 3, Leader: paxosid.NewNodeID()}
	res := c.onPhase2b(wire.Phase2b{Acceptor: acceptors[0].ID, Slot: 1, Ballot: higher}, quorumSize(c.total))
	require.True(t, res.Preempted)
	require.True(t, res.PreemptedBallot.Equal(higher))
}

func TestCommanderIgnoresDuplicateVote(t *testing.T) {
	self := paxosid.NewNodeID()
	acceptors := threeAcceptors()
	ballot := paxosid.Ballot{Num: 0, Leader: self}
	c := newCommander(1, ballot, command.Command{OpID: 1}, acceptors)
	quorum := quorumSize(c.total)

	c.onPhase2b(wire.Phase2b{Acceptor: acceptors[0].ID, Slot: 1, Ballot: ballot}, quorum)
	res := c.onPhase2b(wire.Phase2b{Acceptor: acceptors[0].ID, Slot: 1, Ballot: ballot}, quorum)
	require.False(t, res.Decided)
}
