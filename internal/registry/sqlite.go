package registry

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/role"
)

// SQLite is the durable node-discovery directory described in the
// specification's persistent state layout: a single table, keyed by node
// id, holding the address and role of every node that has ever announced
// itself.
type SQLite struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS nodes (
	id   BLOB PRIMARY KEY,
	ip   TEXT NOT NULL,
	kind TEXT NOT NULL,
	port INTEGER NOT NULL
);
`

// OpenSQLite opens (and if necessary creates) the registry database at
// path. A failure here is fatal at startup: a node that cannot persist its
// own announcement cannot safely join the cluster.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("registry: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("registry: create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Announce upserts a row for e. A write failure is returned to the caller,
// who must treat it as fatal at startup per the specification.
func (s *SQLite) Announce(ctx context.Context, e Entry) error {
	ip, port, err := splitAddr(e.Addr)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nodes (id, ip, kind, port) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET ip = excluded.ip, kind = excluded.kind, port = excluded.port
	`, e.ID[:], ip, e.Role.String(), port)
	if err != nil {
		return fmt.Errorf("registry: announce %s: %w", e.ID, err)
	}
	return nil
}

// Resolve selects the current endpoints for r. A read failure is not fatal:
// it returns an empty set and a nil error, and the caller treats that as
// "no peers yet" and retries on its next message event, per the
// specification's error-handling design for membership reads.
func (s *SQLite) Resolve(ctx context.Context, r role.Role) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, ip, port FROM nodes WHERE kind = ?`, r.String())
	if err != nil {
		return nil, nil
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var idBytes []byte
		var ip string
		var port int
		if err := rows.Scan(&idBytes, &ip, &port); err != nil {
			continue
		}
		var id paxosid.NodeID
		if len(idBytes) == len(id) {
			copy(id[:], idBytes)
		}
		out = append(out, Entry{ID: id, Role: r, Addr: fmt.Sprintf("%s:%d", ip, port)})
	}
	return out, nil
}

func splitAddr(addr string) (ip string, port int, err error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("registry: invalid address %q: %w", addr, err)
	}
	p, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("registry: invalid port in %q: %w", addr, err)
	}
	return host, p, nil
}
