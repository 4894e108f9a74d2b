package action

import (
	"testing"
	"time"

	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/farm"
	"tilefarm/internal/domain/grid"
)

var t0 = time.Unix(1700000000, 0)

func newFixture(t *testing.T, money float64) (*farm.State, Executor) {
	t.Helper()
	cat := catalog.Default()
	st := farm.NewState(cat, grid.DefaultBounds(), money)
	return st, Executor{Catalog: cat, Jitter: func() time.Duration { return time.Second }}
}

// emptyFixture has no prefilled farmland.
func emptyFixture(t *testing.T, money float64) (*farm.State, Executor) {
	t.Helper()
	cat := catalog.Default()
	st := &farm.State{
		World:    farm.NewWorld(grid.DefaultBounds()),
		Player:   farm.NewPlayer(cat, money),
		Progress: farm.NewProgress(cat),
	}
	return st, Executor{Catalog: cat, Jitter: func() time.Duration { return time.Second }}
}

func tap(t *testing.T, st *farm.State, e Executor, row, col int, mode farm.Mode, sel farm.Selection, now time.Time) Result {
	t.Helper()
	in := Input{Row: row, Col: col, Mode: mode, Selection: sel, Now: now}
	return e.Execute(st, row, col, Resolve(in, st, e.Catalog), now)
}

func mustValid(t *testing.T, st *farm.State) {
	t.Helper()
	if err := st.World.Validate(); err != nil {
		t.Fatalf("world invariant: %v", err)
	}
	if st.Player.FarmlandPlaced != st.World.FarmlandCount() {
		t.Fatalf("farmland counter %d drifted from filled set %d", st.Player.FarmlandPlaced, st.World.FarmlandCount())
	}
	if st.Player.Money < 0 {
		t.Fatalf("money went negative: %v", st.Player.Money)
	}
}

func plantSel(crop string) farm.Selection {
	return farm.Selection{Crop: crop, Size: "single"}
}

func buildSel(id string) farm.Selection {
	return farm.Selection{Build: id}
}

func landSel(id string) farm.Selection {
	return farm.Selection{Landscape: id}
}

func secs(n int64) time.Duration {
	return time.Duration(n) * time.Second
}
