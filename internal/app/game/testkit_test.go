package game

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"tilefarm/internal/app/ports"
	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/grid"
)

type stubStore struct {
	mu      sync.Mutex
	byID    map[string]ports.SnapshotRecord
	saves   int
	saveErr error
	cas     bool
}

func newStubStore() *stubStore {
	return &stubStore{byID: map[string]ports.SnapshotRecord{}}
}

func (s *stubStore) Load(_ context.Context, playerID string) (ports.SnapshotRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byID[playerID]
	if !ok {
		return ports.SnapshotRecord{}, ports.ErrNotFound
	}
	return rec, nil
}

func (s *stubStore) Save(_ context.Context, rec ports.SnapshotRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if cur, ok := s.byID[rec.PlayerID]; ok && s.cas && cur.UpdatedAt != rec.PrevUpdatedAt {
		return ports.ErrConflict
	}
	s.byID[rec.PlayerID] = rec
	s.saves++
	return nil
}

func (s *stubStore) Delete(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[playerID]; !ok {
		return ports.ErrNotFound
	}
	delete(s.byID, playerID)
	return nil
}

func (s *stubStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// blockingStore holds the hold-th Save until release is closed.
type blockingStore struct {
	*stubStore
	mu      sync.Mutex
	calls   int
	hold    int
	held    chan struct{}
	release chan struct{}
}

func newBlockingStore(hold int) *blockingStore {
	return &blockingStore{stubStore: newStubStore(), hold: hold, held: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingStore) Save(ctx context.Context, rec ports.SnapshotRecord) error {
	b.mu.Lock()
	b.calls++
	n := b.calls
	b.mu.Unlock()
	if n == b.hold {
		close(b.held)
		<-b.release
	}
	return b.stubStore.Save(ctx, rec)
}

type stubEvents struct {
	events []ports.EventRecord
}

func (r *stubEvents) Append(_ context.Context, _ string, events []ports.EventRecord) error {
	r.events = append(r.events, events...)
	return nil
}

func (r *stubEvents) ListByPlayerID(_ context.Context, _ string, limit int) ([]ports.EventRecord, error) {
	if limit <= 0 || limit > len(r.events) {
		limit = len(r.events)
	}
	out := make([]ports.EventRecord, limit)
	copy(out, r.events[:limit])
	return out, nil
}

type stubNotifier struct {
	notices []ports.Notice
}

func (n *stubNotifier) Publish(notice ports.Notice) {
	n.notices = append(n.notices, notice)
}

func (n *stubNotifier) count(kind string) int {
	c := 0
	for _, x := range n.notices {
		if x.Kind == kind {
			c++
		}
	}
	return c
}

type stubMetrics struct {
	mu        sync.Mutex
	success   map[string]int
	rejected  map[string]int
	conflicts int
	failures  int
}

func newStubMetrics() *stubMetrics {
	return &stubMetrics{success: map[string]int{}, rejected: map[string]int{}}
}

func (m *stubMetrics) RecordSuccess(t string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.success[t]++
}

func (m *stubMetrics) RecordRejected(t string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[t]++
}

func (m *stubMetrics) RecordConflict() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts++
}

func (m *stubMetrics) RecordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

type stubPrices map[string]float64

func (p stubPrices) Price(_ context.Context, symbol string) (float64, error) {
	v, ok := p[symbol]
	if !ok {
		return 0, ports.ErrNotFound
	}
	return v, nil
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	uc      *UseCase
	store   *stubStore
	events  *stubEvents
	notify  *stubNotifier
	metrics *stubMetrics
	clock   *clock
}

func newHarness(t *testing.T, money float64, opts ...func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		store:   newStubStore(),
		events:  &stubEvents{},
		notify:  &stubNotifier{},
		metrics: newStubMetrics(),
		clock:   &clock{now: time.Unix(1700000000, 0)},
	}
	d := Deps{
		Store:         h.store,
		Events:        h.events,
		Notify:        h.notify,
		Metrics:       h.metrics,
		Prices:        stubPrices{"ACME": 10},
		Catalog:       catalog.Default(),
		Bounds:        grid.DefaultBounds(),
		StartingMoney: money,
		Now:           h.clock.Now,
		Jitter:        func() time.Duration { return time.Second },
		Logger:        log.New(io.Discard, "", 0),
		SaveDebounce:  2 * time.Second,
		Debug:         true,
	}
	for _, o := range opts {
		o(&d)
	}
	h.uc = New(d)
	return h
}

func ptr[T any](v T) *T { return &v }
