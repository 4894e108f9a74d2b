package game

import (
	"context"
	"time"

	"tilefarm/internal/app/ports"
)

type TickReport struct {
	Hydrated int
	Saved    int
}

// Tick advances hydration for every loaded session and flushes saves whose
// debounce window has passed.
func (u *UseCase) Tick(ctx context.Context) TickReport {
	return u.sweep(ctx, false)
}

// Flush saves every dirty session now.
func (u *UseCase) Flush(ctx context.Context) TickReport {
	return u.sweep(ctx, true)
}

func (u *UseCase) sweep(ctx context.Context, force bool) TickReport {
	var rep TickReport
	u.mu.Lock()
	sessions := make([]*session, 0, len(u.sessions))
	for _, s := range u.sessions {
		sessions = append(sessions, s)
	}
	u.mu.Unlock()

	now := u.deps.Now()
	for _, s := range sessions {
		s.mu.Lock()
		if s.st != nil {
			if fired := u.advance(s, now); len(fired) > 0 {
				rep.Hydrated += len(fired)
				u.publish(s.id, ports.NoticeState, now, u.view(s, now))
			}
			if s.dirty && (force || now.Sub(s.dirtySince) >= u.deps.SaveDebounce) {
				u.persist(ctx, s, now)
				if !s.dirty {
					rep.Saved++
				}
			}
		}
		s.mu.Unlock()
	}
	return rep
}

// Run ticks until ctx is done, then flushes pending saves and waits for cloud
// writes.
func (u *UseCase) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			u.Flush(context.Background())
			u.Wait()
			return
		case <-ticker.C:
			if rep := u.Tick(ctx); rep.Hydrated > 0 || rep.Saved > 0 {
				u.deps.Logger.Printf("tick: hydrated=%d saved=%d", rep.Hydrated, rep.Saved)
			}
		}
	}
}
