// Package config parses the two-value run configuration file (§6) and the
// role-count environment overrides. Both are small enough that the
// standard library's bufio/strconv cover them completely; no third-party
// config library is wired here (see DESIGN.md for why).
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Run holds the two values the file format carries: k, the number of
// decisions a replica applies before exiting, and l, the mean of the
// exponential inter-request delay a load generator uses.
type Run struct {
	K float64
	L float64
}

// ParseRunFile reads a whitespace-separated "k l" pair from path.
func ParseRunFile(path string) (Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return Run{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var fields []string
	for scanner.Scan() && len(fields) < 2 {
		fields = append(fields, strings.Fields(scanner.Text())...)
	}
	if err := scanner.Err(); err != nil {
		return Run{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if len(fields) < 2 {
		return Run{}, fmt.Errorf("config: %s: expected \"k l\", got %q", path, strings.Join(fields, " "))
	}
	k, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Run{}, fmt.Errorf("config: %s: invalid k %q: %w", path, fields[0], err)
	}
	l, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Run{}, fmt.Errorf("config: %s: invalid l %q: %w", path, fields[1], err)
	}
	return Run{K: k, L: l}, nil
}

// Counts holds how many of each role the ensemble is configured to run.
// cmd/harness takes its --acceptors/--leaders/--replicas defaults from
// CountsFromEnv, and cmd/leaderd takes its --expect-acceptors default from
// DefaultCounts — the protocol core never reads these directly, it only
// ever sees whatever the Resolver currently reports.
type Counts struct {
	Acceptors int
	Leaders   int
	Replicas  int
}

// DefaultCounts is the 3/3/3 ensemble size from §2.
var DefaultCounts = Counts{Acceptors: 3, Leaders: 3, Replicas: 3}

// CountsFromEnv overrides DefaultCounts with PAXOS_NACCEPTORS,
// PAXOS_NLEADERS, and PAXOS_NREPLICAS where set.
func CountsFromEnv() (Counts, error) {
	c := DefaultCounts
	var err error
	if c.Acceptors, err = intEnv("PAXOS_NACCEPTORS", c.Acceptors); err != nil {
		return Counts{}, err
	}
	if c.Leaders, err = intEnv("PAXOS_NLEADERS", c.Leaders); err != nil {
		return Counts{}, err
	}
	if c.Replicas, err = intEnv("PAXOS_NREPLICAS", c.Replicas); err != nil {
		return Counts{}, err
	}
	return c, nil
}

// QuorumSize returns the majority size among n acceptors — the same
// formula internal/paxos applies internally, exported here so cmd/leaderd
// can size its startup registry.WaitFor call without duplicating the
// arithmetic.
func QuorumSize(n int) int {
	return n/2 + 1
}

func intEnv(name string, def int) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q: %w", name, v, err)
	}
	return n, nil
}
