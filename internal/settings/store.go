// Package settings holds the externally mutable trading parameters. The
// dashboard writes through Update; the worker reads one immutable snapshot at
// the start of each cycle, so a mid-cycle edit is only ever picked up at the
// next cycle boundary and never as a torn read.
package settings

import (
	"context"
	"sync"

	"blofin-trading-bot/config"
)

// Store hands out immutable per-cycle snapshots of the trading parameters
type Store interface {
	Snapshot(ctx context.Context) (config.Snapshot, error)
	Update(ctx context.Context, snap config.Snapshot) error
}

// MemoryStore is the in-process Store used when Redis is not configured
type MemoryStore struct {
	mu   sync.RWMutex
	snap config.Snapshot
}

func NewMemoryStore(initial config.Snapshot) *MemoryStore {
	return &MemoryStore{snap: initial}
}

func (s *MemoryStore) Snapshot(_ context.Context) (config.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, nil
}

func (s *MemoryStore) Update(_ context.Context, snap config.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	return nil
}
