package farm

import (
	"math/rand/v2"
	"sort"
	"time"

	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/grid"
)

// Jitter returns the delay before a scheduled tile saturates, in [0, MaxHydrationDelay).
type Jitter func() time.Duration

func RandomJitter() time.Duration {
	return time.Duration(rand.Int64N(int64(MaxHydrationDelay)))
}

// HydrationEntry is a pending Dry -> Saturated transition.
type HydrationEntry struct {
	Key     grid.Key
	FiresAt time.Time
}

func (w *World) ScheduleHydration(k grid.Key, at time.Time) bool {
	if _, ok := w.filled[k]; !ok {
		return false
	}
	if w.farmland[k] == Saturated {
		return false
	}
	if _, pending := w.hydration[k]; pending {
		return false
	}
	w.hydration[k] = at
	return true
}

func (w *World) CancelHydration(k grid.Key) bool {
	if _, ok := w.hydration[k]; !ok {
		return false
	}
	delete(w.hydration, k)
	return true
}

func (w *World) PendingHydration() []HydrationEntry {
	out := make([]HydrationEntry, 0, len(w.hydration))
	for k, at := range w.hydration {
		out = append(out, HydrationEntry{Key: k, FiresAt: at})
	}
	sortEntries(out)
	return out
}

// DueHydrations lists entries with FiresAt <= now ordered by (FiresAt, key).
func (w *World) DueHydrations(now time.Time) []HydrationEntry {
	out := make([]HydrationEntry, 0)
	for k, at := range w.hydration {
		if !at.After(now) {
			out = append(out, HydrationEntry{Key: k, FiresAt: at})
		}
	}
	sortEntries(out)
	return out
}

func sortEntries(entries []HydrationEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].FiresAt.Equal(entries[j].FiresAt) {
			return entries[i].FiresAt.Before(entries[j].FiresAt)
		}
		return entries[i].Key < entries[j].Key
	})
}

// ScheduleAroundWater queues every dry farmland tile within HydrationRadius of
// the water structure's footprint.
func (w *World) ScheduleAroundWater(s Structure, now time.Time, jitter Jitter) []grid.Key {
	scheduled := make([]grid.Key, 0)
	for _, p := range w.bounds.Box(s.Row, s.Col, s.Width, s.Height, HydrationRadius) {
		k := p.Key()
		if w.ScheduleHydration(k, now.Add(clampJitter(jitter))) {
			scheduled = append(scheduled, k)
		}
	}
	return scheduled
}

// ScheduleIfNearWater queues a single farmland tile when any water structure
// is within range.
func (w *World) ScheduleIfNearWater(k grid.Key, cat *catalog.Catalog, now time.Time, jitter Jitter) bool {
	p, ok := k.Point()
	if !ok {
		return false
	}
	for _, s := range w.Structures() {
		if !IsWater(cat, s) {
			continue
		}
		if grid.WithinBox(p, s.Row, s.Col, s.Width, s.Height, HydrationRadius) {
			return w.ScheduleHydration(k, now.Add(clampJitter(jitter)))
		}
	}
	return false
}

// RescheduleHydration rebuilds pending entries from the water structures on
// the grid, used after a load since timers are not persisted.
func (w *World) RescheduleHydration(cat *catalog.Catalog, now time.Time, jitter Jitter) int {
	n := 0
	for _, s := range w.Structures() {
		if IsWater(cat, s) {
			n += len(w.ScheduleAroundWater(s, now, jitter))
		}
	}
	return n
}

// PruneHydration cancels pending entries that no water structure on the grid
// still reaches. Tiles already saturated stay saturated.
func (w *World) PruneHydration(cat *catalog.Catalog) int {
	water := make([]Structure, 0)
	for _, s := range w.Structures() {
		if IsWater(cat, s) {
			water = append(water, s)
		}
	}
	n := 0
	for k := range w.hydration {
		if !reachedByWater(k, water) {
			delete(w.hydration, k)
			n++
		}
	}
	return n
}

func reachedByWater(k grid.Key, water []Structure) bool {
	p, ok := k.Point()
	if !ok {
		return false
	}
	for _, s := range water {
		if grid.WithinBox(p, s.Row, s.Col, s.Width, s.Height, HydrationRadius) {
			return true
		}
	}
	return false
}

// AdvanceHydration fires due entries: the tile becomes Saturated and a growing
// plot on it loses a quarter of its total grow time, once.
func (w *World) AdvanceHydration(cat *catalog.Catalog, now time.Time) []grid.Key {
	fired := make([]grid.Key, 0)
	for _, e := range w.DueHydrations(now) {
		if err := w.Saturate(e.Key); err != nil {
			delete(w.hydration, e.Key)
			continue
		}
		fired = append(fired, e.Key)
		plot, ok := w.plots[e.Key]
		if !ok || plot.Hydrated {
			continue
		}
		crop, ok := cat.Crop(plot.CropID)
		if !ok {
			continue
		}
		total := plot.EffectiveGrowTime(crop)
		plot.GrowTime = time.Duration(float64(total) * SaturatedGrowFactor)
		plot.Hydrated = true
		w.plots[e.Key] = plot
	}
	return fired
}

func IsWater(cat *catalog.Catalog, s Structure) bool {
	if s.Kind != catalog.KindLandscape || cat == nil {
		return false
	}
	item, ok := cat.Item(catalog.KindLandscape, s.ID)
	return ok && item.IsWater
}

func clampJitter(j Jitter) time.Duration {
	if j == nil {
		return 0
	}
	d := j()
	if d < 0 {
		return 0
	}
	if d >= MaxHydrationDelay {
		return MaxHydrationDelay - time.Millisecond
	}
	return d
}
