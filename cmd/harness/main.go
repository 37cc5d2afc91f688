// Command harness runs a complete Multi-Paxos ensemble in a single
// process over the in-memory transport and registry, drives a batch of
// client requests at one replica, and confirms every replica converges to
// the same applied state — the end-to-end scenario the teacher's
// cmd/demo sketched but never implemented.
package main

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/spf13/cobra"

	"github.com/senutpal/quorum/internal/command"
	"github.com/senutpal/quorum/internal/config"
	"github.com/senutpal/quorum/internal/logging"
	"github.com/senutpal/quorum/internal/paxos"
	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/registry"
	"github.com/senutpal/quorum/internal/role"
	"github.com/senutpal/quorum/internal/statemachine"
	"github.com/senutpal/quorum/internal/transport"
	"github.com/senutpal/quorum/internal/wire"
)

func main() {
	var (
		nAcceptors int
		nLeaders   int
		nReplicas  int
		nRequests  int
		dropRate   float64
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "harness",
		Short: "Run an in-process Multi-Paxos cluster end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), nAcceptors, nLeaders, nReplicas, nRequests, dropRate, logLevel)
		},
	}
	counts, err := config.CountsFromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cmd.Flags().IntVar(&nAcceptors, "acceptors", counts.Acceptors, "number of acceptors")
	cmd.Flags().IntVar(&nLeaders, "leaders", counts.Leaders, "number of leaders")
	cmd.Flags().IntVar(&nReplicas, "replicas", counts.Replicas, "number of replicas")
	cmd.Flags().IntVar(&nRequests, "requests", 10, "number of client requests to drive through replica 0")
	cmd.Flags().Float64Var(&dropRate, "drop-rate", 0, "fraction of datagrams to randomly drop (0.0-1.0), for fault-injection runs")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "debug, info, warn, or error")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, nAcceptors, nLeaders, nReplicas, nRequests int, dropRate float64, logLevel string) error {
	log := logging.New(logLevel)
	net := transport.NewMemoryNetwork()
	net.SetDropRate(dropRate)
	reg := registry.NewMemory()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Acceptors are announced synchronously, in this loop, before any leader
	// is spawned below — so leaderd's registry.WaitFor startup guard has
	// nothing to wait on here; the in-memory registry already has the full
	// acceptor set by the time a leader's first scout resolves it.
	for i := 0; i < nAcceptors; i++ {
		spawnAcceptor(ctx, net, reg, log, i)
	}
	for i := 0; i < nLeaders; i++ {
		if err := spawnLeader(ctx, net, reg, log, i); err != nil {
			return err
		}
	}
	replicas := make([]*paxos.Replica[statemachine.KV], nReplicas)
	for i := 0; i < nReplicas; i++ {
		replicas[i] = spawnReplica(ctx, net, reg, log, i)
	}

	clientID := transport.Endpoint("client:0")
	clientChannel := net.NewChannel(clientID)
	defer clientChannel.Close()

	replicaAddr := transport.Endpoint("replica:0")
	for i := 0; i < nRequests; i++ {
		req := wire.Request{Command: command.Command{
			ClientID: "harness-client",
			OpID:     uint64(i + 1),
			Op:       []byte(fmt.Sprintf(`{"op":"set","key":"k%d","value":"v%d"}`, i, i)),
		}}
		env, err := wire.Encode(req)
		if err != nil {
			return fmt.Errorf("harness: encode request: %w", err)
		}
		if err := clientChannel.Send(replicaAddr, env); err != nil {
			return fmt.Errorf("harness: send request: %w", err)
		}
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		done := true
		for _, r := range replicas {
			if r.Applied() < uint64(nRequests) {
				done = false
				break
			}
		}
		if done {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("harness: timed out waiting for %d decisions", nRequests)
		}
		time.Sleep(10 * time.Millisecond)
	}

	want := replicas[0].State()
	for i, r := range replicas[1:] {
		if !reflect.DeepEqual(want, r.State()) {
			return fmt.Errorf("harness: replica %d state diverges from replica 0", i+1)
		}
	}

	fmt.Printf("all %d replicas applied %d decisions\n", nReplicas, nRequests)
	return nil
}

func spawnAcceptor(ctx context.Context, net *transport.MemoryNetwork, reg *registry.Memory, log logging.Logger, i int) {
	id := paxosid.NewNodeID()
	addr := transport.Endpoint(fmt.Sprintf("acceptor:%d", i))
	channel := net.NewChannel(addr)
	self := registry.Entry{ID: id, Role: role.Acceptor, Addr: string(addr)}
	reg.Announce(ctx, self)
	acceptor := paxos.NewAcceptor(id, log)
	runner := paxos.NewAcceptorRunner(acceptor, self, channel, reg, log)
	go runner.Run(ctx)
}

func spawnLeader(ctx context.Context, net *transport.MemoryNetwork, reg *registry.Memory, log logging.Logger, i int) error {
	id := paxosid.NewNodeID()
	addr := transport.Endpoint(fmt.Sprintf("leader:%d", i))
	channel := net.NewChannel(addr)
	self := registry.Entry{ID: id, Role: role.Leader, Addr: string(addr)}
	reg.Announce(ctx, self)
	leader := paxos.NewLeader(id, reg, channel, log)
	runner, err := paxos.NewLeaderRunner(ctx, leader, self, channel, reg, log)
	if err != nil {
		return err
	}
	go runner.Run(ctx)
	return nil
}

func spawnReplica(ctx context.Context, net *transport.MemoryNetwork, reg *registry.Memory, log logging.Logger, i int) *paxos.Replica[statemachine.KV] {
	id := paxosid.NewNodeID()
	addr := transport.Endpoint(fmt.Sprintf("replica:%d", i))
	channel := net.NewChannel(addr)
	self := registry.Entry{ID: id, Role: role.Replica, Addr: string(addr)}
	reg.Announce(ctx, self)
	applier := statemachine.ApplierFunc[statemachine.KV](statemachine.ApplyKV)
	replica := paxos.NewReplica[statemachine.KV](id, reg, channel, applier, statemachine.NewKV(), log)
	runner := paxos.NewReplicaRunner[statemachine.KV](replica, self, channel, reg, log)
	go runner.Run(ctx)
	return replica
}
