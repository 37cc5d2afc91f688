package command_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/senutpal/quorum/internal/command"
	"github.com/senutpal/quorum/internal/paxosid"
)

func TestCommandEqual(t *testing.T) {
	a := command.Command{ClientID: "c1", OpID: 1, Op: []byte("x")}
	b := command.Command{ClientID: "c1", OpID: 1, Op: []byte("x")}
	c := command.Command{ClientID: "c1", OpID: 1, Op: []byte("y")}

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestPmaxPicksHighestBallotPerSlot(t *testing.T) {
	leaderA := paxosid.NewNodeID()
	leaderB := paxosid.NewNodeID()
	low := paxosid.Ballot{Num: 1, Leader: leaderA}
	high := paxosid.Ballot{Num: 2, Leader: leaderB}

	cmdLow := command.Command{ClientID: "c", OpID: 1, Op: []byte("low")}
	cmdHigh := command.Command{ClientID: "c", OpID: 2, Op: []byte("high")}
	cmdOther := command.Command{ClientID: "c", OpID: 3, Op: []byte("other-slot")}

	proposals := []command.Proposal{
		{Slot: 1, Ballot: low, Command: cmdLow},
		{Slot: 1, Ballot: high, Command: cmdHigh},
		{Slot: 2, Ballot: low, Command: cmdOther},
	}

	result := command.Pmax(proposals)
	require.Len(t, result, 2)
	require.True(t, result[1].Equal(cmdHigh))
	require.True(t, result[2].Equal(cmdOther))
}

func TestLatestKeepsMaximalProposalPerSlot(t *testing.T) {
	leader := paxosid.NewNodeID()
	b1 := paxosid.Ballot{Num: 1, Leader: leader}
	b2 := paxosid.Ballot{Num: 2, Leader: leader}

	accepted := []command.Proposal{
		{Slot: 1, Ballot: b1, Command: command.Command{OpID: 1}},
		{Slot: 1, Ballot: b2, Command: command.Command{OpID: 2}},
		{Slot: 2, Ballot: b1, Command: command.Command{OpID: 3}},
	}

	latest := command.Latest(accepted)
	require.Len(t, latest, 2)
	for _, p := range latest {
		if p.Slot == 1 {
			require.True(t, p.Ballot.Equal(b2))
		}
		if p.Slot == 2 {
			require.True(t, p.Ballot.Equal(b1))
		}
	}
}
