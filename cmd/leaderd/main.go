// Command leaderd runs a single Leader as a standalone UDP process.
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
	"github.com/senutpal/quorum/internal/transport"
)

// waitPoll is how often a startup wait re-checks the registry.
const waitPoll = 200 * time.Millisecond

func main() {
	var (
		listen          string
		advertise       string
		registryDB      string
		logLevel        string
		expectAcceptors int
		waitTimeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "leaderd",
		Short: "Run a Paxos leader",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), listen, advertise, registryDB, logLevel, expectAcceptors, waitTimeout)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":7200", "UDP address to listen on")
	cmd.Flags().StringVar(&advertise, "advertise", "", "address to announce to the registry (defaults to --listen)")
	cmd.Flags().StringVar(&registryDB, "registry", "registry.db", "path to the SQLite membership registry")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")
	cmd.Flags().IntVar(&expectAcceptors, "expect-acceptors", config.DefaultCounts.Acceptors, "size of the acceptor ensemble this leader waits for a quorum of before starting its first scout")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 30*time.Second, "how long to wait at startup for an acceptor quorum before giving up")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, listen, advertise, registryDB, logLevel string, expectAcceptors int, waitTimeout time.Duration) error {
	if advertise == "" {
		advertise = listen
	}
	log := logging.New(logLevel)

	db, err := registry.OpenSQLite(registryDB)
	if err != nil {
		return fmt.Errorf("leaderd: open registry: %w", err)
	}
	defer db.Close()

	channel, err := transport.ListenUDP(listen)
	if err != nil {
		return fmt.Errorf("leaderd: listen %s: %w", listen, err)
	}
	defer channel.Close()

	// A leader's first scout snapshots the acceptor set once, in Start, and
	// never retries members missing from that snapshot (see paxos.Leader.Start).
	// Waiting here for a quorum to have announced themselves is what keeps a
	// leader started before its acceptors from spawning a scout that can
	// never reach quorum.
	quorum := config.QuorumSize(expectAcceptors)
	log.Infof("waiting for acceptor quorum", "need", quorum, "timeout", waitTimeout.String())
	waitCtx, cancel := context.WithTimeout(ctx, waitTimeout)
	acceptors, err := registry.WaitFor(waitCtx, db, role.Acceptor, quorum, waitPoll)
	cancel()
	if err != nil {
		return fmt.Errorf("leaderd: waiting for acceptor quorum: %w", err)
	}
	log.Infof("acceptor quorum reached", "known", len(acceptors))

	self := registry.Entry{ID: paxosid.NewNodeID(), Role: role.Leader, Addr: advertise}
	leader := paxos.NewLeader(self.ID, db, channel, log)
	runner, err := paxos.NewLeaderRunner(ctx, leader, self, channel, db, log)
	if err != nil {
		return fmt.Errorf("leaderd: start leader: %w", err)
	}

	log.Infof("leader listening", "id", self.ID.String(), "addr", advertise)
	return runner.Run(ctx)
}
