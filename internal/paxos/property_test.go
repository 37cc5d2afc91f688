package paxos

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/senutpal/quorum/internal/command"
	"github.com/senutpal/quorum/internal/logging"
	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/registry"
	"github.com/senutpal/quorum/internal/role"
	"github.com/senutpal/quorum/internal/statemachine"
	"github.com/senutpal/quorum/internal/transport"
	"github.com/senutpal/quorum/internal/wire"
)

// cluster is the minimal wiring property_test needs to drive a batch of
// requests through a real ensemble and observe every replica's applied
// state, reused from the same shapes cmd/harness uses.
type cluster struct {
	net       *transport.MemoryNetwork
	reg       *registry.Memory
	replicas  []*Replica[statemachine.KV]
	leaderAdr transport.Endpoint
}

func newCluster(ctx context.Context, nAcceptors, nLeaders, nReplicas int, dropRate float64) *cluster {
	net := transport.NewMemoryNetwork()
	net.SetDropRate(dropRate)
	reg := registry.NewMemory()
	log := logging.Noop()

	for i := 0; i < nAcceptors; i++ {
		addr := transport.Endpoint(fmt.Sprintf("acceptor:%d", i))
		ch := net.NewChannel(addr)
		self := registry.Entry{ID: paxosid.NewNodeID(), Role: role.Acceptor, Addr: string(addr)}
		reg.Announce(ctx, self)
		a := NewAcceptor(self.ID, log)
		go NewAcceptorRunner(a, self, ch, reg, log).Run(ctx)
	}

	var firstLeader transport.Endpoint
	for i := 0; i < nLeaders; i++ {
		addr := transport.Endpoint(fmt.Sprintf("leader:%d", i))
		if i == 0 {
			firstLeader = addr
		}
		ch := net.NewChannel(addr)
		self := registry.Entry{ID: paxosid.NewNodeID(), Role: role.Leader, Addr: string(addr)}
		reg.Announce(ctx, self)
		l := NewLeader(self.ID, reg, ch, log)
		runner, err := NewLeaderRunner(ctx, l, self, ch, reg, log)
		if err == nil {
			go runner.Run(ctx)
		}
	}

	replicas := make([]*Replica[statemachine.KV], nReplicas)
	for i := 0; i < nReplicas; i++ {
		addr := transport.Endpoint(fmt.Sprintf("replica:%d", i))
		ch := net.NewChannel(addr)
		self := registry.Entry{ID: paxosid.NewNodeID(), Role: role.Replica, Addr: string(addr)}
		reg.Announce(ctx, self)
		applier := statemachine.ApplierFunc[statemachine.KV](statemachine.ApplyKV)
		r := NewReplica[statemachine.KV](self.ID, reg, ch, applier, statemachine.NewKV(), log)
		replicas[i] = r
		go NewReplicaRunner[statemachine.KV](r, self, ch, reg, log).Run(ctx)
	}

	return &cluster{net: net, reg: reg, replicas: replicas, leaderAdr: firstLeader}
}

func (c *cluster) sendRequest(clientChannel transport.Channel, to transport.Endpoint, n int) error {
	cmd := command.Command{
		ClientID: "rapid-client",
		OpID:     uint64(n),
		Op:       []byte(fmt.Sprintf(`{"op":"set","key":"k","value":"v%d"}`, n)),
	}
	env, err := wire.Encode(wire.Request{Command: cmd})
	if err != nil {
		return err
	}
	return clientChannel.Send(to, env)
}

func (c *cluster) waitForAgreement(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		done := true
		for _, r := range c.replicas {
			if r.Applied() < uint64(n) {
				done = false
				break
			}
		}
		if done {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

// TestAgreementUnderRandomRequestCounts drives a randomly sized batch of
// distinct client requests through a small ensemble (no induced loss —
// the pure agreement property) and checks every replica applies at least
// that many decisions and ends in the same final state.
func TestAgreementUnderRandomRequestCounts(t *testing.T) {
	rapid.Check(t, func(tt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(tt, "n")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		c := newCluster(ctx, 3, 1, 3, 0)
		clientChannel := c.net.NewChannel("client:0")
		defer clientChannel.Close()

		replicaAddr := transport.Endpoint("replica:0")
		for i := 0; i < n; i++ {
			require.NoError(tt, c.sendRequest(clientChannel, replicaAddr, i+1))
		}

		require.True(tt, c.waitForAgreement(n, 5*time.Second))

		want := c.replicas[0].State()
		for _, r := range c.replicas[1:] {
			require.Equal(tt, want, r.State(), "all replicas must converge on the same state")
		}
	})
}

// TestDuelingLeadersStillAgree runs two leaders racing to adopt a ballot
// (scenario 2 in §8): despite repeated preemptions, both replicas apply at
// least as many decisions as there were requests and end in the same state.
func TestDuelingLeadersStillAgree(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newCluster(ctx, 3, 2, 2, 0)
	clientChannel := c.net.NewChannel("client:0")
	defer clientChannel.Close()

	replicaAddr := transport.Endpoint("replica:0")
	for i := 0; i < 5; i++ {
		require.NoError(t, c.sendRequest(clientChannel, replicaAddr, i+1))
	}

	require.True(t, c.waitForAgreement(5, 5*time.Second))
	want := c.replicas[0].State()
	require.Equal(t, want, c.replicas[1].State())
}

// TestLossyTransportStillConverges injects random datagram loss (scenario
// 4 in §8): commands may be delayed and reordered across slots but must
// all eventually be decided.
func TestLossyTransportStillConverges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := newCluster(ctx, 3, 2, 2, 0.2)
	clientChannel := c.net.NewChannel("client:0")
	defer clientChannel.Close()

	replicaAddr := transport.Endpoint("replica:0")
	for i := 0; i < 5; i++ {
		require.NoError(t, c.sendRequest(clientChannel, replicaAddr, i+1))
	}

	require.True(t, c.waitForAgreement(5, 10*time.Second))
}
