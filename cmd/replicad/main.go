// Command replicad runs a single Replica as a standalone UDP process,
// applying commands to an in-memory key/value state machine and exiting
// once it has applied k decisions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/senutpal/quorum/internal/config"
	"github.com/senutpal/quorum/internal/logging"
	"github.com/senutpal/quorum/internal/paxos"
	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/registry"
	"github.com/senutpal/quorum/internal/role"
	"github.com/senutpal/quorum/internal/statemachine"
	"github.com/senutpal/quorum/internal/transport"
)

// waitPoll is how often the startup leader wait re-checks the registry.
const waitPoll = 200 * time.Millisecond

func main() {
	var (
		listen       string
		advertise    string
		registryDB   string
		runFile      string
		logLevel     string
		expectLeader int
		waitTimeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "replicad",
		Short: "Run a Paxos replica",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), listen, advertise, registryDB, runFile, logLevel, expectLeader, waitTimeout)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":7300", "UDP address to listen on")
	cmd.Flags().StringVar(&advertise, "advertise", "", "address to announce to the registry (defaults to --listen)")
	cmd.Flags().StringVar(&registryDB, "registry", "registry.db", "path to the SQLite membership registry")
	cmd.Flags().StringVar(&runFile, "run-file", "", "path to the k/l run configuration file (optional; replica runs forever without it)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
	cmd.Flags().IntVar(&expectLeader, "expect-leaders", 1, "number of leaders this replica waits to be known before accepting requests")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 30*time.Second, "how long to wait at startup for a leader to be known before giving up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, listen, advertise, registryDB, runFile, logLevel string, expectLeader int, waitTimeout time.Duration) error {
	if advertise == "" {
		advertise = listen
	}
	log := logging.New(logLevel)

	var k float64 = -1
	if runFile != "" {
		cfg, err := config.ParseRunFile(runFile)
		if err != nil {
			return fmt.Errorf("replicad: %w", err)
		}
		k = cfg.K
	}

	db, err := registry.OpenSQLite(registryDB)
	if err != nil {
		return fmt.Errorf("replicad: open registry: %w", err)
	}
	defer db.Close()

	channel, err := transport.ListenUDP(listen)
	if err != nil {
		return fmt.Errorf("replicad: listen %s: %w", listen, err)
	}
	defer channel.Close()

	// propose() re-resolves leaders on every call, so a replica never gets
	// permanently stuck on an empty leader set the way a leader's one-shot
	// scout snapshot can — but a client request arriving before any leader
	// has announced would still be silently unrouted on its first attempt.
	// Waiting here means a replica never receives traffic before there is
	// somewhere for it to send a Propose.
	log.Infof("waiting for a leader", "need", expectLeader, "timeout", waitTimeout.String())
	waitCtx, cancel := context.WithTimeout(ctx, waitTimeout)
	leaders, err := registry.WaitFor(waitCtx, db, role.Leader, expectLeader, waitPoll)
	cancel()
	if err != nil {
		return fmt.Errorf("replicad: waiting for a leader: %w", err)
	}
	log.Infof("leader known", "count", len(leaders))

	self := registry.Entry{ID: paxosid.NewNodeID(), Role: role.Replica, Addr: advertise}
	applier := statemachine.ApplierFunc[statemachine.KV](statemachine.ApplyKV)
	replica := paxos.NewReplica[statemachine.KV](self.ID, db, channel, applier, statemachine.NewKV(), log)
	runner := paxos.NewReplicaRunner[statemachine.KV](replica, self, channel, db, log)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if k >= 0 {
		go watchApplied(runCtx, cancel, replica, uint64(k), log)
	}

	log.Infof("replica listening", "id", self.ID.String(), "addr", advertise)
	if err := runner.Run(runCtx); err != nil {
		return fmt.Errorf("replicad: %w", err)
	}
	return nil
}

func watchApplied(ctx context.Context, cancel context.CancelFunc, replica *paxos.Replica[statemachine.KV], k uint64, log logging.Logger) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if replica.Applied() >= k {
				log.Infof("reached target decision count, exiting", "k", k)
				cancel()
				return
			}
		}
	}
}
