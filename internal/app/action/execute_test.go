package action

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/farm"
	"tilefarm/internal/domain/grid"
)

func TestExecute_FarmlandPricing(t *testing.T) {
	st, e := emptyFixture(t, 100)
	st.Progress.UnlockCrop("potato")

	for i := 0; i < farm.FreeFarmlandTiles; i++ {
		r := tap(t, st, e, 5, i, farm.ModeLandscape, landSel("farmland"), t0)
		if !r.Success {
			t.Fatalf("free tile %d: %+v", i+1, r)
		}
		if st.Player.Money != 100 {
			t.Fatalf("tile %d should be free, money=%v", i+1, st.Player.Money)
		}
	}
	if r := tap(t, st, e, 5, 4, farm.ModeLandscape, landSel("farmland"), t0); !r.Success {
		t.Fatalf("fifth tile: %+v", r)
	}
	if st.Player.Money != 75 {
		t.Fatalf("fifth tile should cost 25, money=%v", st.Player.Money)
	}
	mustValid(t, st)

	// Removing down to the free allowance refunds only above it.
	if r := tap(t, st, e, 5, 4, farm.ModeLandscape, landSel("grass"), t0); !r.Success {
		t.Fatalf("remove fifth: %+v", r)
	}
	if st.Player.Money != 100 {
		t.Fatalf("expected refund of 25, money=%v", st.Player.Money)
	}
	if r := tap(t, st, e, 5, 3, farm.ModeLandscape, landSel("grass"), t0); !r.Success {
		t.Fatalf("remove fourth: %+v", r)
	}
	if st.Player.Money != 100 {
		t.Fatalf("free tile must not refund, money=%v", st.Player.Money)
	}
	if st.Player.FarmlandPlaced != 3 {
		t.Fatalf("expected 3 placed, got %d", st.Player.FarmlandPlaced)
	}
	mustValid(t, st)
}

func TestExecute_WaterSaturatesNearbyFarmland(t *testing.T) {
	st, e := newFixture(t, 1000)
	st.Progress.SetItemUnlocked(catalog.KindLandscape, "pond")

	if r := tap(t, st, e, 24, 25, farm.ModePlant, plantSel("carrot"), t0); !r.Success {
		t.Fatalf("plant before water: %+v", r)
	}
	r := tap(t, st, e, 20, 20, farm.ModeLandscape, landSel("pond"), t0)
	if !r.Success || r.Type != TypePlaceStructure {
		t.Fatalf("place pond: %+v", r)
	}
	if len(r.Hydrating) != 4 {
		t.Fatalf("expected the 4 centre tiles queued, got %v", r.Hydrating)
	}
	for _, entry := range st.World.PendingHydration() {
		if d := entry.FiresAt.Sub(t0); d < 0 || d >= farm.MaxHydrationDelay {
			t.Fatalf("hydration delay out of range: %v", d)
		}
	}

	// Nothing fires early.
	if fired := st.World.AdvanceHydration(e.Catalog, t0.Add(500*time.Millisecond)); len(fired) != 0 {
		t.Fatalf("fired before jitter elapsed: %v", fired)
	}
	fired := st.World.AdvanceHydration(e.Catalog, t0.Add(farm.MaxHydrationDelay))
	if len(fired) != 4 {
		t.Fatalf("expected all 4 saturated within the max delay, got %v", fired)
	}
	for _, k := range st.World.FarmlandKeys() {
		if st.World.Hydration(k) != farm.Saturated {
			t.Fatalf("%s still dry", k)
		}
	}

	// The crop already growing got its discount once.
	plot, _ := st.World.PlotAt(grid.KeyOf(24, 25))
	if !plot.Hydrated || plot.GrowTime != 45*time.Second {
		t.Fatalf("growing plot not discounted: %+v", plot)
	}
	st.World.AdvanceHydration(e.Catalog, t0.Add(time.Hour))
	plot, _ = st.World.PlotAt(grid.KeyOf(24, 25))
	if plot.GrowTime != 45*time.Second {
		t.Fatalf("discount applied twice: %v", plot.GrowTime)
	}

	// Later plants start at the saturated grow time.
	later := t0.Add(10 * time.Second)
	if r := tap(t, st, e, 24, 24, farm.ModePlant, plantSel("carrot"), later); !r.Success {
		t.Fatalf("plant on saturated tile: %+v", r)
	}
	plot, _ = st.World.PlotAt(grid.KeyOf(24, 24))
	if plot.GrowTime != 45*time.Second || !plot.Hydrated {
		t.Fatalf("saturated plant should grow in 45s, got %+v", plot)
	}
	if Allowed(Resolve(Input{Row: 24, Col: 24, Mode: farm.ModeHarvest, Now: later.Add(44 * time.Second)}, st, e.Catalog)) {
		t.Fatalf("harvestable too early")
	}
	if !Allowed(Resolve(Input{Row: 24, Col: 24, Mode: farm.ModeHarvest, Now: later.Add(45 * time.Second)}, st, e.Catalog)) {
		t.Fatalf("not harvestable at 45s")
	}
	mustValid(t, st)
}

func TestExecute_NewFarmlandNearWaterIsQueued(t *testing.T) {
	st, e := newFixture(t, 1000)
	st.Progress.SetItemUnlocked(catalog.KindLandscape, "pond")
	st.Progress.UnlockCrop("potato")
	if r := tap(t, st, e, 0, 0, farm.ModeLandscape, landSel("pond"), t0); !r.Success {
		t.Fatalf("pond: %+v", r)
	}
	r := tap(t, st, e, 5, 5, farm.ModeLandscape, landSel("farmland"), t0)
	if !r.Success || len(r.Hydrating) != 1 {
		t.Fatalf("farmland in range should queue: %+v", r)
	}
	r = tap(t, st, e, 6, 6, farm.ModeLandscape, landSel("farmland"), t0)
	if !r.Success || len(r.Hydrating) != 0 {
		t.Fatalf("farmland out of range must not queue: %+v", r)
	}
}

func TestExecute_WaterOverFarmlandConverts(t *testing.T) {
	st, e := newFixture(t, 1000)
	st.Progress.SetItemUnlocked(catalog.KindLandscape, "lake")
	if r := tap(t, st, e, 25, 25, farm.ModePlant, plantSel("carrot"), t0); !r.Success {
		t.Fatalf("plant: %+v", r)
	}
	// A growing crop blocks the footprint.
	if r := tap(t, st, e, 24, 24, farm.ModeLandscape, landSel("lake"), t0); r.Success || r.Reason != ReasonNotEnoughSpace {
		t.Fatalf("lake over a crop: %+v", r)
	}

	r := tap(t, st, e, 23, 23, farm.ModeLandscape, landSel("lake"), t0)
	if !r.Success || r.Type != TypePlaceStructureOverFarmland {
		t.Fatalf("lake over farmland: %+v", r)
	}
	if st.World.IsFarmland(grid.KeyOf(24, 24)) {
		t.Fatalf("covered farmland survived")
	}
	if st.Player.FarmlandPlaced != 3 || st.World.FarmlandCount() != 3 {
		t.Fatalf("counter not updated: placed=%d", st.Player.FarmlandPlaced)
	}
	if st.Player.Money != 100 {
		t.Fatalf("lake costs 900, money=%v", st.Player.Money)
	}
	mustValid(t, st)
}

func TestExecute_WaterOverPaidFarmlandRefunds(t *testing.T) {
	st, e := emptyFixture(t, 1000)
	st.Progress.UnlockCrop("potato")
	st.Progress.SetItemUnlocked(catalog.KindLandscape, "pond")
	for col := 0; col < 6; col++ {
		if r := tap(t, st, e, 5, col, farm.ModeLandscape, landSel("farmland"), t0); !r.Success {
			t.Fatalf("farmland %d: %+v", col, r)
		}
	}
	if st.Player.Money != 950 || st.Player.FarmlandPlaced != 6 {
		t.Fatalf("setup: money=%v placed=%d", st.Player.Money, st.Player.FarmlandPlaced)
	}

	r := tap(t, st, e, 5, 5, farm.ModeLandscape, landSel("pond"), t0)
	if !r.Success || r.Type != TypePlaceStructureOverFarmland {
		t.Fatalf("pond over farmland: %+v", r)
	}
	// 950 - 150 for the pond + 25 back for the paid tile it covered.
	if st.Player.Money != 825 {
		t.Fatalf("money after pond: %v", st.Player.Money)
	}
	if len(r.Effects) != 1 || r.Effects[0].Value != -125 {
		t.Fatalf("effects: %+v", r.Effects)
	}
	if st.Player.FarmlandPlaced != 5 {
		t.Fatalf("placed after pond: %d", st.Player.FarmlandPlaced)
	}
	mustValid(t, st)

	// Putting the tile back elsewhere costs the same 25 it refunded.
	if r := tap(t, st, e, 7, 0, farm.ModeLandscape, landSel("farmland"), t0); !r.Success {
		t.Fatalf("replacement tile: %+v", r)
	}
	if st.Player.Money != 800 {
		t.Fatalf("money after replacement tile: %v", st.Player.Money)
	}
	mustValid(t, st)
}

func TestExecute_RemovingWaterCancelsPendingHydration(t *testing.T) {
	st, e := newFixture(t, 1000)
	st.Progress.SetItemUnlocked(catalog.KindLandscape, "pond")
	if r := tap(t, st, e, 20, 20, farm.ModeLandscape, landSel("pond"), t0); !r.Success {
		t.Fatalf("pond: %+v", r)
	}
	if got := len(st.World.PendingHydration()); got != 4 {
		t.Fatalf("expected 4 pending, got %d", got)
	}

	r := tap(t, st, e, 20, 20, farm.ModeLandscape, landSel("grass"), t0.Add(500*time.Millisecond))
	if !r.Success || r.Type != TypeReplaceLandscapeWithGrass {
		t.Fatalf("remove pond: %+v", r)
	}
	if pending := st.World.PendingHydration(); len(pending) != 0 {
		t.Fatalf("entries survived the pond: %+v", pending)
	}
	if fired := st.World.AdvanceHydration(e.Catalog, t0.Add(farm.MaxHydrationDelay)); len(fired) != 0 {
		t.Fatalf("tiles saturated without water: %v", fired)
	}
	mustValid(t, st)
}

func TestExecute_RemovingOneWaterKeepsTilesAnotherReaches(t *testing.T) {
	st, e := newFixture(t, 1000)
	st.Progress.SetItemUnlocked(catalog.KindLandscape, "pond")
	for _, p := range []grid.Point{{Row: 20, Col: 20}, {Row: 30, Col: 30}} {
		if r := tap(t, st, e, p.Row, p.Col, farm.ModeLandscape, landSel("pond"), t0); !r.Success {
			t.Fatalf("pond at %v: %+v", p, r)
		}
	}
	if r := tap(t, st, e, 20, 20, farm.ModeLandscape, landSel(farm.SellSentinel), t0); !r.Success {
		t.Fatalf("sell pond: %+v", r)
	}
	pending := st.World.PendingHydration()
	if len(pending) != 1 || pending[0].Key != grid.KeyOf(25, 25) {
		t.Fatalf("expected only 25,25 pending, got %+v", pending)
	}
}

func TestExecute_HarvestCreditsAndClears(t *testing.T) {
	st, e := newFixture(t, 0)
	if r := tap(t, st, e, 24, 24, farm.ModePlant, plantSel("carrot"), t0); !r.Success {
		t.Fatalf("plant: %+v", r)
	}
	early := e.Execute(st, 24, 24, Harvest{CropID: "carrot"}, t0.Add(30*time.Second))
	if early.Success || early.Reason != ReasonNotReady {
		t.Fatalf("early harvest: %+v", early)
	}
	r := tap(t, st, e, 24, 24, farm.ModeHarvest, farm.Selection{}, t0.Add(time.Minute))
	if !r.Success || r.Type != TypeHarvest {
		t.Fatalf("harvest: %+v", r)
	}
	if st.Player.Money != 5 {
		t.Fatalf("expected $5, got %v", st.Player.Money)
	}
	if len(r.Effects) != 1 || r.Effects[0].Value != 5 || r.Effects[0].Key != "24,24" {
		t.Fatalf("unexpected effects: %+v", r.Effects)
	}
	if !st.World.IsFarmland(grid.KeyOf(24, 24)) {
		t.Fatalf("harvest must leave the farmland")
	}
	again := e.Execute(st, 24, 24, Harvest{CropID: "carrot"}, t0.Add(2*time.Minute))
	if again.Success || again.Reason != ReasonNothingHere {
		t.Fatalf("double harvest: %+v", again)
	}
}

func TestExecute_DestroyRefundsRecordedCost(t *testing.T) {
	st, e := newFixture(t, 300)
	if r := tap(t, st, e, 2, 2, farm.ModeBuild, buildSel("shed"), t0); !r.Success {
		t.Fatalf("shed: %+v", r)
	}
	if st.Player.Money != 0 {
		t.Fatalf("money after shed: %v", st.Player.Money)
	}
	// Any covered tile resolves to the origin.
	r := tap(t, st, e, 3, 3, farm.ModeBuild, buildSel(farm.SellSentinel), t0)
	if !r.Success || r.Type != TypeDestroyStructure {
		t.Fatalf("sell shed: %+v", r)
	}
	if st.Player.Money != 300 || st.World.StructureCount() != 0 {
		t.Fatalf("refund or removal missing: money=%v structures=%d", st.Player.Money, st.World.StructureCount())
	}
	for _, p := range grid.Footprint(2, 2, 2, 2) {
		if _, ok := st.World.StructureAt(p.Row, p.Col); ok {
			t.Fatalf("tile %v still indexed", p)
		}
	}
	mustValid(t, st)
}

func TestExecute_ReplaceLandscapeSwapsCost(t *testing.T) {
	st, e := newFixture(t, 45)
	st.Progress.SetItemUnlocked(catalog.KindLandscape, "tree")
	if r := tap(t, st, e, 3, 3, farm.ModeLandscape, landSel("path"), t0); !r.Success {
		t.Fatalf("path: %+v", r)
	}
	r := tap(t, st, e, 3, 3, farm.ModeLandscape, landSel("tree"), t0)
	if !r.Success || r.Type != TypeReplaceLandscape {
		t.Fatalf("replace: %+v", r)
	}
	// 45 - 5 for the path, +5 refund, -40 for the tree.
	if st.Player.Money != 5 {
		t.Fatalf("money after replace: %v", st.Player.Money)
	}
	s, ok := st.World.StructureAt(3, 3)
	if !ok || s.ID != "tree" {
		t.Fatalf("expected tree at 3,3, got %+v", s)
	}

	r = tap(t, st, e, 3, 3, farm.ModeLandscape, landSel("grass"), t0)
	if !r.Success || r.Type != TypeReplaceLandscapeWithGrass || st.Player.Money != 45 {
		t.Fatalf("grass: %+v money=%v", r, st.Player.Money)
	}
	if st.World.StructureCount() != 0 {
		t.Fatalf("tree left behind")
	}
	mustValid(t, st)
}

func TestExecute_ReplaceLandscapeWithFarmland(t *testing.T) {
	st, e := newFixture(t, 100)
	st.Progress.UnlockCrop("potato")
	if r := tap(t, st, e, 3, 3, farm.ModeLandscape, landSel("path"), t0); !r.Success {
		t.Fatalf("path: %+v", r)
	}
	r := tap(t, st, e, 3, 3, farm.ModeLandscape, landSel("farmland"), t0)
	if !r.Success || r.Type != TypeReplaceLandscapeWithFarmland {
		t.Fatalf("replace with farmland: %+v", r)
	}
	// 100 - 5 path + 5 refund - 25 for the fifth tile.
	if st.Player.Money != 75 {
		t.Fatalf("money: %v", st.Player.Money)
	}
	if !st.World.IsFarmland(grid.KeyOf(3, 3)) || st.Player.FarmlandPlaced != 5 {
		t.Fatalf("farmland not placed")
	}
	mustValid(t, st)
}

func TestExecute_StaleActionIsRechecked(t *testing.T) {
	st, e := newFixture(t, 300)
	a := Resolve(Input{Row: 5, Col: 5, Mode: farm.ModeBuild, Selection: buildSel("shed"), Now: t0}, st, e.Catalog)
	st.Player.Money = 10
	r := e.Execute(st, 5, 5, a, t0)
	if r.Success || r.Reason != "Need $300.00" {
		t.Fatalf("stale placement should be refused: %+v", r)
	}
	if st.World.StructureCount() != 0 || st.Player.Money != 10 {
		t.Fatalf("refused action mutated state")
	}
}

func TestExecute_RandomTapsKeepInvariants(t *testing.T) {
	st, e := newFixture(t, 50)
	for _, id := range []string{"pond", "tree", "rock", "lake"} {
		st.Progress.SetItemUnlocked(catalog.KindLandscape, id)
	}
	st.Progress.SetItemUnlocked(catalog.KindBuilding, "barn")
	st.Progress.UnlockCrop("potato")
	st.Progress.Sizes["small"] = true

	rng := rand.New(rand.NewPCG(7, 11))
	modes := []farm.Mode{farm.ModePlant, farm.ModeHarvest, farm.ModeBuild, farm.ModeLandscape, farm.ModeTrade}
	builds := []string{"shed", "barn", farm.SellSentinel}
	lands := []string{"grass", "farmland", "path", "tree", "rock", "pond", "lake", farm.DestroySentinel}
	crops := []string{"carrot", "potato"}
	sizes := []string{"single", "small"}

	now := t0
	for i := 0; i < 3000; i++ {
		now = now.Add(time.Duration(rng.IntN(20)) * time.Second)
		st.World.AdvanceHydration(e.Catalog, now)
		sel := farm.Selection{
			Crop:      crops[rng.IntN(len(crops))],
			Size:      sizes[rng.IntN(len(sizes))],
			Build:     builds[rng.IntN(len(builds))],
			Landscape: lands[rng.IntN(len(lands))],
		}
		mode := modes[rng.IntN(len(modes))]
		in := Input{Row: 18 + rng.IntN(14), Col: 18 + rng.IntN(14), Mode: mode, Selection: sel, Now: now}
		e.Apply(in, BrushSize(mode, sel, st, e.Catalog), st)
		mustValid(t, st)
		if usage := st.World.Usage(st.Progress); usage.Placed > usage.Limit {
			t.Fatalf("farmland over limit: %+v", usage)
		}
	}
}

func TestUnlock(t *testing.T) {
	st, e := newFixture(t, 200)
	before := st.World.FarmlandLimit(st.Progress)

	r := e.Unlock(st, UnlockCrop, "potato")
	if !r.Success || r.Cost != 150 || st.Player.Money != 50 {
		t.Fatalf("unlock potato: %+v money=%v", r, st.Player.Money)
	}
	if got := st.World.FarmlandLimit(st.Progress); got != before+farm.FarmlandPerCropUnlock {
		t.Fatalf("limit did not grow: %d -> %d", before, got)
	}
	if r := e.Unlock(st, UnlockCrop, "potato"); r.Success || r.Reason != ReasonAlreadyUnlocked {
		t.Fatalf("second unlock: %+v", r)
	}
	if r := e.Unlock(st, UnlockSize, "small"); r.Success || r.Reason != "Need $500.00" {
		t.Fatalf("unaffordable unlock: %+v", r)
	}
	if r := e.Unlock(st, UnlockLandscape, "rock"); !r.Success || !st.Progress.ItemUnlocked(catalog.KindLandscape, "rock") {
		t.Fatalf("unlock rock: %+v", r)
	}
	if r := e.Unlock(st, UnlockBuilding, "castle"); r.Success || r.Reason != "Unknown building" {
		t.Fatalf("unknown building: %+v", r)
	}
	if st.Player.Money != 0 {
		t.Fatalf("money: %v", st.Player.Money)
	}
}

func TestTrade(t *testing.T) {
	st, e := newFixture(t, 100)
	if r := e.Trade(st, TradeBuy, "ACME", 4, 12.5); !r.Success || r.Total != 50 {
		t.Fatalf("buy: %+v", r)
	}
	if r := e.Trade(st, TradeBuy, "ACME", 10, 12.5); r.Success || r.Reason != "Need $125.00" {
		t.Fatalf("overspend: %+v", r)
	}
	if r := e.Trade(st, TradeSell, "ACME", 5, 20); r.Success || r.Reason != ReasonNotEnoughShares {
		t.Fatalf("oversell: %+v", r)
	}
	r := e.Trade(st, TradeSell, "ACME", 4, 20)
	if !r.Success || r.Total != 80 || st.Player.Money != 130 {
		t.Fatalf("sell: %+v money=%v", r, st.Player.Money)
	}
	if st.Player.Stocks.Shares("ACME") != 0 {
		t.Fatalf("shares left: %v", st.Player.Stocks.Shares("ACME"))
	}
	if r := e.Trade(st, TradeBuy, "ACME", 1, 0); r.Reason != ReasonNoPrice {
		t.Fatalf("no price: %+v", r)
	}
	if r := e.Trade(st, TradeBuy, "", 1, 1); r.Reason != ReasonInvalidOrder {
		t.Fatalf("invalid order: %+v", r)
	}
}

func TestTradeRoundsAgainstThePlayer(t *testing.T) {
	st, e := newFixture(t, 0)
	if r := e.Trade(st, TradeBuy, "ACME", 0.004, 1); r.Success || r.Reason != "Need $0.01" {
		t.Fatalf("sub-cent buy with no money: %+v", r)
	}

	st.Player.Money = 10
	for i := 0; i < 1000; i++ {
		if r := e.Trade(st, TradeBuy, "ACME", 0.004, 1); !r.Success {
			if st.Player.Money != 0 {
				t.Fatalf("buy %d failed with money left: %+v money=%v", i, r, st.Player.Money)
			}
			break
		}
	}
	if st.Player.Money != 0 {
		t.Fatalf("each sub-cent buy should cost a cent, money=%v", st.Player.Money)
	}
	held := st.Player.Stocks.Shares("ACME")
	if r := e.Trade(st, TradeSell, "ACME", 0.004, 1); r.Success || r.Reason != ReasonInvalidOrder {
		t.Fatalf("sell worth less than a cent: %+v", r)
	}
	r := e.Trade(st, TradeSell, "ACME", held, 1)
	if !r.Success || r.Total > 10 || st.Player.Money > 10 {
		t.Fatalf("round trip created money: %+v money=%v", r, st.Player.Money)
	}
	if r := e.Trade(st, TradeBuy, "ACME", 0.1, 3); !r.Success || r.Total != 0.3 {
		t.Fatalf("exact cents must not round up: %+v", r)
	}
}

func TestEnvelope(t *testing.T) {
	got := Wrap(PlantCrop{CropID: "carrot"})
	want := Envelope{Type: TypePlantCrop, Action: PlantCrop{CropID: "carrot"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("envelope (-want +got):\n%s", diff)
	}
	if Allowed(None{Reason: "x"}) || ReasonOf(None{Reason: "x"}) != "x" || ReasonOf(Harvest{}) != "" {
		t.Fatalf("None helpers misbehave")
	}
}
