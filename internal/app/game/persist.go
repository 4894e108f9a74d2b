package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"tilefarm/internal/app/ports"
	"tilefarm/internal/app/savegame"
	"tilefarm/internal/domain/grid"
)

const mirrorTimeout = 10 * time.Second

func (s *session) markDirty(now time.Time) {
	if !s.dirty {
		s.dirty = true
		s.dirtySince = now
	}
}

// persist writes the session to the local store and mirrors it to the cloud
// store in the background. A failed local write leaves the session dirty and
// the timestamps untouched, so the next tick retries it.
func (u *UseCase) persist(ctx context.Context, s *session, now time.Time) {
	p := s.st.Player
	updated, prev := p.UpdatedAt, p.PrevUpdatedAt
	savegame.Touch(p, now)
	raw, err := savegame.Marshal(s.st)
	if err == nil {
		err = u.deps.Store.Save(ctx, ports.SnapshotRecord{
			PlayerID:      s.id,
			Data:          raw,
			UpdatedAt:     p.UpdatedAt,
			PrevUpdatedAt: p.PrevUpdatedAt,
		})
	}
	if err != nil {
		p.UpdatedAt, p.PrevUpdatedAt = updated, prev
		u.deps.Logger.Printf("save snapshot %s: %v", s.id, err)
		u.recordFailure()
		s.dirty = false
		s.markDirty(now)
		return
	}
	s.dirty = false
	if u.deps.Cloud == nil {
		return
	}
	rec := ports.SnapshotRecord{PlayerID: s.id, Data: raw, UpdatedAt: p.UpdatedAt, PrevUpdatedAt: p.PrevUpdatedAt}
	u.toCloud(s, func(ctx context.Context) {
		err := u.deps.Cloud.Save(ctx, rec)
		switch {
		case errors.Is(err, ports.ErrConflict):
			u.deps.Logger.Printf("cloud save %s: stale write rejected at %d", rec.PlayerID, rec.UpdatedAt)
			u.metric(func(m ports.ActionMetrics) { m.RecordConflict() })
		case err != nil:
			u.deps.Logger.Printf("cloud save %s: %v", rec.PlayerID, err)
			u.recordFailure()
		}
	})
}

// cloudQueue holds a session's pending cloud operations. The cloud store only
// accepts a record whose prev_updated_at matches what it holds, so they run
// one at a time in the order they were queued.
type cloudQueue struct {
	mu      sync.Mutex
	pending []func(ctx context.Context)
	running bool
}

// toCloud queues op behind the session's earlier cloud operations and starts
// a drain goroutine if none is running.
func (u *UseCase) toCloud(s *session, op func(ctx context.Context)) {
	q := &s.cloud
	q.mu.Lock()
	q.pending = append(q.pending, op)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	u.mirrors.Add(1)
	go func() {
		defer u.mirrors.Done()
		for {
			q.mu.Lock()
			if len(q.pending) == 0 {
				q.running = false
				q.mu.Unlock()
				return
			}
			next := q.pending[0]
			q.pending = q.pending[1:]
			q.mu.Unlock()
			runCloud(next)
		}
	}()
}

func runCloud(op func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	op(ctx)
}

// Wait blocks until background cloud writes have finished.
func (u *UseCase) Wait() {
	u.mirrors.Wait()
}

func (u *UseCase) record(ctx context.Context, playerID string, now time.Time, events ...ports.EventRecord) {
	if u.deps.Events == nil || len(events) == 0 {
		return
	}
	for i := range events {
		if events[i].OccurredAt.IsZero() {
			events[i].OccurredAt = now
		}
	}
	if err := u.deps.Events.Append(ctx, playerID, events); err != nil {
		u.deps.Logger.Printf("append events %s: %v", playerID, err)
	}
}

func (u *UseCase) publish(playerID, kind string, now time.Time, payload any) {
	if u.deps.Notify == nil {
		return
	}
	u.deps.Notify.Publish(ports.Notice{PlayerID: playerID, Kind: kind, At: now, Payload: payload})
}

func (u *UseCase) metric(fn func(ports.ActionMetrics)) {
	if u.deps.Metrics != nil {
		fn(u.deps.Metrics)
	}
}

func (u *UseCase) recordFailure() {
	u.metric(func(m ports.ActionMetrics) { m.RecordFailure() })
}

// advance fires due hydrations. Saturation is saved with the next debounced
// write rather than immediately.
func (u *UseCase) advance(s *session, now time.Time) []grid.Key {
	fired := s.st.World.AdvanceHydration(u.deps.Catalog, now)
	if len(fired) > 0 {
		s.markDirty(now)
		u.publish(s.id, ports.NoticeHydrated, now, fired)
	}
	return fired
}
