// Command acceptord runs a single Acceptor as a standalone UDP process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/senutpal/quorum/internal/logging"
	"github.com/senutpal/quorum/internal/paxos"
	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/registry"
	"github.com/senutpal/quorum/internal/role"
	"github.com/senutpal/quorum/internal/transport"
)

func main() {
	var (
		listen     string
		advertise  string
		registryDB string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "acceptord",
		Short: "Run a Paxos acceptor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), listen, advertise, registryDB, logLevel)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", ":7100", "UDP address to listen on")
	cmd.Flags().StringVar(&advertise, "advertise", "", "address to announce to the registry (defaults to --listen)")
	cmd.Flags().StringVar(&registryDB, "registry", "registry.db", "path to the SQLite membership registry")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "debug, info, warn, or error")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, listen, advertise, registryDB, logLevel string) error {
	if advertise == "" {
		advertise = listen
	}
	log := logging.New(logLevel)

	db, err := registry.OpenSQLite(registryDB)
	if err != nil {
		return fmt.Errorf("acceptord: open registry: %w", err)
	}
	defer db.Close()

	channel, err := transport.ListenUDP(listen)
	if err != nil {
		return fmt.Errorf("acceptord: listen %s: %w", listen, err)
	}
	defer channel.Close()

	// Acceptor never resolves a peer set of its own — it only replies to
	// Phase1a/Phase2a as they arrive — so unlike leaderd and replicad there
	// is nothing for acceptord to wait on at startup.
	self := registry.Entry{ID: paxosid.NewNodeID(), Role: role.Acceptor, Addr: advertise}
	acceptor := paxos.NewAcceptor(self.ID, log)
	runner := paxos.NewAcceptorRunner(acceptor, self, channel, db, log)

	log.Infof("acceptor listening", "id", self.ID.String(), "addr", advertise)
	return runner.Run(ctx)
}
