package paxos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/senutpal/quorum/internal/logging"
	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/registry"
	"github.com/senutpal/quorum/internal/role"
	"github.com/senutpal/quorum/internal/transport"
	"github.com/senutpal/quorum/internal/wire"
)

func noopDispatch(context.Context, wire.Message, transport.Endpoint) error { return nil }

func TestHandleIdentifyAnnouncesPeerAndRepliesWhenRequested(t *testing.T) {
	net := transport.NewMemoryNetwork()
	reg := registry.NewMemory()
	selfChannel := net.NewChannel("self")
	peerChannel := net.NewChannel("peer")

	self := registry.Entry{ID: paxosid.NewNodeID(), Role: role.Acceptor, Addr: "self"}
	r := newRunner(selfChannel, reg, self, logging.Noop(), noopDispatch)

	peer := registry.Entry{ID: paxosid.NewNodeID(), Role: role.Leader, Addr: "peer"}
	r.handleIdentify(context.Background(), "peer", wire.Identify{Entry: peer, Reply: true})

	entries, err := reg.Resolve(context.Background(), role.Leader)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, peer.ID, entries[0].ID)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	env, _, err := peerChannel.Recv(ctx)
	require.NoError(t, err)
	m, err := wire.Decode(env)
	require.NoError(t, err)
	reply, ok := m.(wire.Identify)
	require.True(t, ok)
	require.False(t, reply.Reply, "the echo must carry reply=false so it is never itself answered")
	require.Equal(t, self.ID, reply.Entry.ID)
}

func TestHandleIdentifyDoesNotReplyWhenNotRequested(t *testing.T) {
	net := transport.NewMemoryNetwork()
	reg := registry.NewMemory()
	selfChannel := net.NewChannel("self")
	peerChannel := net.NewChannel("peer")

	self := registry.Entry{ID: paxosid.NewNodeID(), Role: role.Acceptor, Addr: "self"}
	r := newRunner(selfChannel, reg, self, logging.Noop(), noopDispatch)

	peer := registry.Entry{ID: paxosid.NewNodeID(), Role: role.Replica, Addr: "peer"}
	r.handleIdentify(context.Background(), "peer", wire.Identify{Entry: peer, Reply: false})

	entries, err := reg.Resolve(context.Background(), role.Replica)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, _, err = peerChannel.Recv(ctx)
	require.Error(t, err, "a reply=false Identify must not itself be answered, or the handshake would loop")
}

// TestRunRoutesIdentifyAroundTheRoleDispatcher exercises the handshake
// through the real Run loop, not just a direct handleIdentify call, and
// confirms Identify never reaches the per-role dispatch function.
func TestRunRoutesIdentifyAroundTheRoleDispatcher(t *testing.T) {
	net := transport.NewMemoryNetwork()
	reg := registry.NewMemory()
	selfChannel := net.NewChannel("self")
	peerChannel := net.NewChannel("peer")

	self := registry.Entry{ID: paxosid.NewNodeID(), Role: role.Acceptor, Addr: "self"}
	dispatchCalled := false
	r := newRunner(selfChannel, reg, self, logging.Noop(), func(context.Context, wire.Message, transport.Endpoint) error {
		dispatchCalled = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	peer := registry.Entry{ID: paxosid.NewNodeID(), Role: role.Leader, Addr: "peer"}
	env, err := wire.Encode(wire.Identify{Entry: peer, Reply: true})
	require.NoError(t, err)
	require.NoError(t, peerChannel.Send("self", env))

	recvCtx, recvCancel := context.WithTimeout(context.Background(), time.Second)
	defer recvCancel()
	replyEnv, _, err := peerChannel.Recv(recvCtx)
	require.NoError(t, err)
	m, err := wire.Decode(replyEnv)
	require.NoError(t, err)
	reply, ok := m.(wire.Identify)
	require.True(t, ok)
	require.False(t, reply.Reply)

	require.False(t, dispatchCalled, "Identify must be consumed by the runner, never handed to the role's own handler")
}
