package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"tilefarm/internal/app/action"
	"tilefarm/internal/app/ports"
	"tilefarm/internal/app/savegame"
	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/farm"
	"tilefarm/internal/domain/grid"
)

var (
	ErrInvalidRequest  = errors.New("invalid game request")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

const DefaultSaveDebounce = 2 * time.Second

// Deps are the collaborators of a UseCase. Store and Catalog are required.
type Deps struct {
	Store   ports.SnapshotStore
	Cloud   ports.SnapshotStore
	Events  ports.EventLog
	Notify  ports.Notifier
	Metrics ports.ActionMetrics
	Prices  ports.PriceFeed

	Catalog       *catalog.Catalog
	Bounds        grid.Bounds
	StartingMoney float64
	Now           func() time.Time
	Jitter        farm.Jitter
	Logger        *log.Logger
	SaveDebounce  time.Duration
	// Debug checks world invariants after every mutation.
	Debug bool
}

// UseCase owns the live sessions. Each session is mutated by one caller at a
// time under its own lock.
type UseCase struct {
	deps Deps
	exec action.Executor

	mu       sync.Mutex
	sessions map[string]*session
	mirrors  sync.WaitGroup
}

type session struct {
	mu         sync.Mutex
	id         string
	st         *farm.State
	dirty      bool
	dirtySince time.Time
	cloud      cloudQueue
}

func New(d Deps) *UseCase {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	if d.Bounds.Rows <= 0 || d.Bounds.Cols <= 0 {
		d.Bounds = grid.DefaultBounds()
	}
	if d.Jitter == nil {
		d.Jitter = farm.RandomJitter
	}
	if d.SaveDebounce <= 0 {
		d.SaveDebounce = DefaultSaveDebounce
	}
	return &UseCase{
		deps:     d,
		exec:     action.Executor{Catalog: d.Catalog, Jitter: d.Jitter},
		sessions: make(map[string]*session),
	}
}

func (u *UseCase) Catalog() *catalog.Catalog {
	return u.deps.Catalog
}

// acquire returns the player's session locked, loading it on first use.
func (u *UseCase) acquire(ctx context.Context, playerID string) (*session, error) {
	playerID = strings.TrimSpace(playerID)
	if playerID == "" || u.deps.Store == nil || u.deps.Catalog == nil {
		return nil, ErrInvalidRequest
	}
	u.mu.Lock()
	s, ok := u.sessions[playerID]
	if !ok {
		s = &session{id: playerID}
		u.sessions[playerID] = s
	}
	u.mu.Unlock()

	s.mu.Lock()
	if s.st == nil {
		if err := u.load(ctx, s); err != nil {
			s.mu.Unlock()
			return nil, err
		}
	}
	return s, nil
}

func (u *UseCase) load(ctx context.Context, s *session) error {
	now := u.deps.Now()
	rec, err := u.deps.Store.Load(ctx, s.id)
	switch {
	case errors.Is(err, ports.ErrNotFound):
		s.st = u.fresh()
		u.persist(ctx, s, now)
		return nil
	case err != nil:
		return fmt.Errorf("load snapshot %s: %w", s.id, err)
	}
	st, rep, err := savegame.Load(rec.Data, u.deps.Catalog, u.deps.Bounds, now, u.deps.Jitter)
	if err != nil {
		u.deps.Logger.Printf("discarding unreadable snapshot for %s: %v", s.id, err)
		s.st = u.fresh()
		u.persist(ctx, s, now)
		return nil
	}
	u.logReport(s.id, rep)
	s.st = st
	return nil
}

func (u *UseCase) fresh() *farm.State {
	return farm.NewState(u.deps.Catalog, u.deps.Bounds, u.deps.StartingMoney)
}

func (u *UseCase) logReport(playerID string, rep savegame.Report) {
	for _, d := range rep.Dropped {
		u.deps.Logger.Printf("snapshot %s: dropped %s", playerID, d)
	}
	if rep.Reconciled {
		u.deps.Logger.Printf("snapshot %s: farmland counter reconciled", playerID)
	}
}

// Open loads the player's farm, creating and saving a fresh one if none exists.
func (u *UseCase) Open(ctx context.Context, playerID string) (View, error) {
	s, err := u.acquire(ctx, playerID)
	if err != nil {
		return View{}, err
	}
	defer s.mu.Unlock()
	u.advance(s, u.deps.Now())
	return u.view(s, u.deps.Now()), nil
}

// State is the derived display state: money text, farmland usage, timers.
func (u *UseCase) State(ctx context.Context, playerID string) (View, error) {
	return u.Open(ctx, playerID)
}

func (u *UseCase) Export(ctx context.Context, playerID string) ([]byte, error) {
	s, err := u.acquire(ctx, playerID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return savegame.Marshal(s.st)
}

type ImportResponse struct {
	View    View     `json:"state"`
	Dropped []string `json:"dropped,omitempty"`
}

// Import replaces the farm with an external snapshot. The stored timestamps
// carry over so the cloud store sees a normal successor write.
func (u *UseCase) Import(ctx context.Context, playerID string, data []byte) (ImportResponse, error) {
	s, err := u.acquire(ctx, playerID)
	if err != nil {
		return ImportResponse{}, err
	}
	defer s.mu.Unlock()

	now := u.deps.Now()
	st, rep, err := savegame.Load(data, u.deps.Catalog, u.deps.Bounds, now, u.deps.Jitter)
	if err != nil {
		return ImportResponse{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	u.logReport(s.id, rep)
	st.Player.UpdatedAt = s.st.Player.UpdatedAt
	st.Player.PrevUpdatedAt = s.st.Player.PrevUpdatedAt
	s.st = st
	u.check(s)
	u.persist(ctx, s, now)
	u.record(ctx, s.id, now, ports.EventRecord{Type: "import", Payload: map[string]any{"dropped": len(rep.Dropped)}})
	v := u.view(s, now)
	u.publish(s.id, ports.NoticeState, now, v)
	return ImportResponse{View: v, Dropped: rep.Dropped}, nil
}

// Reset deletes the saved farm and starts over.
func (u *UseCase) Reset(ctx context.Context, playerID string) (View, error) {
	s, err := u.acquire(ctx, playerID)
	if err != nil {
		return View{}, err
	}
	defer s.mu.Unlock()

	now := u.deps.Now()
	if err := u.deps.Store.Delete(ctx, s.id); err != nil && !errors.Is(err, ports.ErrNotFound) {
		u.deps.Logger.Printf("delete snapshot %s: %v", s.id, err)
		u.recordFailure()
	}
	if u.deps.Cloud != nil {
		u.toCloud(s, func(ctx context.Context) {
			if err := u.deps.Cloud.Delete(ctx, s.id); err != nil && !errors.Is(err, ports.ErrNotFound) {
				u.deps.Logger.Printf("cloud delete %s: %v", s.id, err)
			}
		})
	}
	s.st = u.fresh()
	s.dirty = false
	u.record(ctx, s.id, now, ports.EventRecord{Type: "reset"})
	v := u.view(s, now)
	u.publish(s.id, ports.NoticeState, now, v)
	return v, nil
}

// Players lists the loaded sessions.
func (u *UseCase) Players() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]string, 0, len(u.sessions))
	for id := range u.sessions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (u *UseCase) check(s *session) {
	if !u.deps.Debug {
		return
	}
	if err := s.st.World.Validate(); err != nil {
		u.deps.Logger.Printf("session %s: %v", s.id, err)
	}
	if s.st.Player.FarmlandPlaced != s.st.World.FarmlandCount() {
		u.deps.Logger.Printf("session %s: farmland counter %d != %d tiles", s.id, s.st.Player.FarmlandPlaced, s.st.World.FarmlandCount())
	}
}
