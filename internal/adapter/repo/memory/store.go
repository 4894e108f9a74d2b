package memory

import (
	"context"
	"sync"

	"tilefarm/internal/app/ports"
)

// Store keeps everything in process memory. Repositories lock it per call
// unless they run inside TxManager.RunInTx, which holds the lock throughout.
type Store struct {
	mu          sync.RWMutex
	snapshots   map[string]ports.SnapshotRecord
	credentials map[string]ports.CredentialRecord
	events      map[string][]ports.EventRecord
}

func NewStore() *Store {
	return &Store{
		snapshots:   make(map[string]ports.SnapshotRecord),
		credentials: make(map[string]ports.CredentialRecord),
		events:      make(map[string][]ports.EventRecord),
	}
}

type txKey struct{}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}
