package registry

import (
	"context"
	"sync"

	"github.com/senutpal/quorum/internal/paxosid"
	"github.com/senutpal/quorum/internal/role"
)

// Memory is an in-process Resolver backed by a mutex-guarded map, used by
// the harness and by tests that don't want SQLite's file I/O in the loop.
type Memory struct {
	mu      sync.RWMutex
	entries map[paxosid.NodeID]Entry
}

// NewMemory returns an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{entries: make(map[paxosid.NodeID]Entry)}
}

func (m *Memory) Announce(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *Memory) Resolve(_ context.Context, r role.Role) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for _, e := range m.entries {
		if e.Role == r {
			out = append(out, e)
		}
	}
	return out, nil
}
