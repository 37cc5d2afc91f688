// Package paxosid defines the identity and ordering primitives the Paxos
// core is built on: node identifiers and ballots. Nothing in this package
// talks to the network or to storage; it is pure comparison algebra.
package paxosid

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
)

// NodeID is an opaque 128-bit identifier, totally ordered by its raw byte
// representation. Every acceptor, leader, and replica generates one at
// startup via NewNodeID.
type NodeID [16]byte

// NewNodeID generates a fresh, random node identity.
func NewNodeID() NodeID {
	u, err := uuid.NewRandom()
	if err != nil {
		// crypto/rand is exhausted or unavailable; nothing downstream can
		// recover from a process that cannot identify itself.
		panic(fmt.Sprintf("paxosid: cannot generate node id: %v", err))
	}
	return NodeID(u)
}

// ParseNodeID decodes the canonical UUID string form produced by String.
func ParseNodeID(s string) (NodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return NodeID{}, fmt.Errorf("paxosid: invalid node id %q: %w", s, err)
	}
	return NodeID(u), nil
}

func (id NodeID) String() string {
	return uuid.UUID(id).String()
}

// Less reports whether id sorts strictly before other, lexicographically
// over the raw 16 bytes.
func (id NodeID) Less(other NodeID) bool {
	return bytes.Compare(id[:], other[:]) < 0
}

// IsZero reports whether id is the unset value.
func (id NodeID) IsZero() bool {
	return id == NodeID{}
}

// Ballot is the Paxos preemption token: a monotonically assigned number
// broken by the leader id that minted it. Ballots are totally ordered:
// compare Num first, then Leader.
type Ballot struct {
	Num    uint64
	Leader NodeID
}

// Zero is the ballot below all ballots minted by a real leader. Acceptor
// does not use it to mean "nothing promised"; it tracks that with its own
// hasBallot flag.
var Zero = Ballot{}

// Less reports whether b sorts strictly before other.
func (b Ballot) Less(other Ballot) bool {
	if b.Num != other.Num {
		return b.Num < other.Num
	}
	return b.Leader.Less(other.Leader)
}

// Equal reports whether b and other are the same ballot.
func (b Ballot) Equal(other Ballot) bool {
	return b.Num == other.Num && b.Leader == other.Leader
}

// Greater reports whether b sorts strictly after other.
func (b Ballot) Greater(other Ballot) bool {
	return other.Less(b)
}

func (b Ballot) String() string {
	return fmt.Sprintf("(%d,%s)", b.Num, b.Leader)
}

// Next returns the smallest ballot strictly greater than other for which
// self is the leader — the rebase a leader performs after being preempted.
func Next(other Ballot, self NodeID) Ballot {
	return Ballot{Num: other.Num + 1, Leader: self}
}
