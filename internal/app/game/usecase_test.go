package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tilefarm/internal/app/action"
	"tilefarm/internal/app/ports"
	"tilefarm/internal/domain/farm"
	"tilefarm/internal/domain/grid"
)

func TestOpenCreatesAndSavesFreshFarm(t *testing.T) {
	h := newHarness(t, 0)
	v, err := h.uc.Open(context.Background(), "p1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if h.store.saveCount() != 1 {
		t.Fatalf("expected fresh farm to be saved once, got %d", h.store.saveCount())
	}
	if v.Farmland.Placed != 4 || v.Farmland.Limit != 4 {
		t.Fatalf("unexpected farmland usage: %+v", v.Farmland)
	}
	want := []grid.Key{"24,24", "24,25", "25,24", "25,25"}
	if diff := cmp.Diff(want, v.Filled); diff != "" {
		t.Fatalf("filled mismatch (-want +got):\n%s", diff)
	}
	if v.MoneyText != "$0.00" || v.Mode != farm.ModePlant || v.Brush != 1 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if _, err := h.uc.Open(context.Background(), "  "); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for blank player, got %v", err)
	}
}

func TestOpenLoadsSavedFarm(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	if _, err := h.uc.Tap(ctx, "p1", TapRequest{Row: 24, Col: 24}); err != nil {
		t.Fatalf("tap: %v", err)
	}

	again := New(Deps{Store: h.store, Catalog: h.uc.Catalog(), Now: h.clock.Now, Logger: h.uc.deps.Logger})
	v, err := again.Open(ctx, "p1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(v.Plots) != 1 || v.Plots[0].Key != "24,24" || v.Plots[0].CropID != "carrot" {
		t.Fatalf("expected saved carrot plot, got %+v", v.Plots)
	}
	if v.Plots[0].Timer != "1m0s" || v.Plots[0].Ready {
		t.Fatalf("unexpected plot timer: %+v", v.Plots[0])
	}
}

func TestTapPlantsPersistsAndNotifies(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	resp, err := h.uc.Tap(ctx, "p1", TapRequest{Row: 25, Col: 25})
	if err != nil {
		t.Fatalf("tap: %v", err)
	}
	if len(resp.Outcomes) != 1 || !resp.Outcomes[0].Result.Success || resp.Outcomes[0].Result.Type != action.TypePlantCrop {
		t.Fatalf("unexpected outcomes: %+v", resp.Outcomes)
	}
	if h.store.saveCount() != 2 {
		t.Fatalf("expected fresh save plus tap save, got %d", h.store.saveCount())
	}
	rec, _ := h.store.Load(ctx, "p1")
	if rec.UpdatedAt != resp.State.UpdatedAt || rec.PrevUpdatedAt == 0 {
		t.Fatalf("unexpected record timestamps: %+v", rec)
	}
	if len(h.events.events) != 1 || h.events.events[0].Type != "plant_crop" {
		t.Fatalf("unexpected events: %+v", h.events.events)
	}
	if h.metrics.success["plant_crop"] != 1 {
		t.Fatalf("expected success metric, got %+v", h.metrics.success)
	}
	if h.notify.count(ports.NoticeState) != 1 {
		t.Fatalf("expected one state notice, got %+v", h.notify.notices)
	}

	h.clock.Advance(time.Minute)
	resp, err = h.uc.Tap(ctx, "p1", TapRequest{Row: 25, Col: 25})
	if err != nil {
		t.Fatalf("tap: %v", err)
	}
	if resp.Outcomes[0].Result.Type != action.TypeHarvest || resp.State.Money != 5 {
		t.Fatalf("expected harvest for $5, got %+v money=%v", resp.Outcomes[0].Result, resp.State.Money)
	}
	if h.notify.count(ports.NoticeEffects) != 1 {
		t.Fatalf("expected effects notice for harvest")
	}
}

func TestRejectedTapIsNotSaved(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	resp, err := h.uc.Tap(ctx, "p1", TapRequest{Row: 0, Col: 0})
	if err != nil {
		t.Fatalf("tap: %v", err)
	}
	if resp.Outcomes[0].Result.Success || resp.Outcomes[0].Result.Reason != action.ReasonNeedsFarmland {
		t.Fatalf("expected Needs farmland, got %+v", resp.Outcomes[0].Result)
	}
	if h.store.saveCount() != 1 || len(h.events.events) != 0 {
		t.Fatalf("rejected tap must not save or log: saves=%d events=%d", h.store.saveCount(), len(h.events.events))
	}
	if h.metrics.rejected["none"] != 1 {
		t.Fatalf("expected rejected metric, got %+v", h.metrics.rejected)
	}
}

func TestHoverDoesNotMutate(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	before, _ := h.uc.State(ctx, "p1")
	cells, err := h.uc.Hover(ctx, "p1", TapRequest{Row: 24, Col: 24})
	if err != nil {
		t.Fatalf("hover: %v", err)
	}
	if len(cells) != 1 || !cells[0].Allowed || cells[0].Type != action.TypePlantCrop {
		t.Fatalf("unexpected preview: %+v", cells)
	}
	after, _ := h.uc.State(ctx, "p1")
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("hover changed state (-before +after):\n%s", diff)
	}
}

func TestSelectIsValidatedAndSaveIsDebounced(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	if _, err := h.uc.Open(ctx, "p1"); err != nil {
		t.Fatalf("open: %v", err)
	}

	bad := []SelectRequest{
		{Mode: ptr(farm.Mode("fly"))},
		{Crop: ptr("banana")},
		{Size: ptr("huge")},
		{Build: ptr("castle")},
		{Landscape: ptr("lava")},
	}
	for _, req := range bad {
		if _, err := h.uc.Select(ctx, "p1", req); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("expected ErrInvalidRequest for %+v, got %v", req, err)
		}
	}

	v, err := h.uc.Select(ctx, "p1", SelectRequest{Mode: ptr(farm.ModeBuild), Build: ptr(farm.SellSentinel)})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if v.Mode != farm.ModeBuild || v.Selection.Build != farm.SellSentinel || v.Selection.Crop != "carrot" {
		t.Fatalf("unexpected selection: %+v", v)
	}
	if h.store.saveCount() != 1 {
		t.Fatalf("select must not save immediately")
	}
	h.clock.Advance(time.Second)
	if rep := h.uc.Tick(ctx); rep.Saved != 0 {
		t.Fatalf("saved before debounce: %+v", rep)
	}
	h.clock.Advance(time.Second)
	if rep := h.uc.Tick(ctx); rep.Saved != 1 {
		t.Fatalf("expected debounced save, got %+v", rep)
	}
	if h.store.saveCount() != 2 {
		t.Fatalf("expected 2 saves, got %d", h.store.saveCount())
	}
}

func TestSetHUDSwitchesMoneyText(t *testing.T) {
	h := newHarness(t, 12345)
	ctx := context.Background()
	v, err := h.uc.SetHUD(ctx, "p1", HUDRequest{CompactMoney: ptr(true), ShowGrid: ptr(false)})
	if err != nil {
		t.Fatalf("hud: %v", err)
	}
	if v.MoneyText != "$12.3k" || v.HUD.ShowGrid || !v.HUD.ShowFloatingNumbers {
		t.Fatalf("unexpected hud view: %+v %q", v.HUD, v.MoneyText)
	}
	if rep := h.uc.Flush(ctx); rep.Saved != 1 {
		t.Fatalf("expected flush to save, got %+v", rep)
	}
}

func TestUnlockPersists(t *testing.T) {
	h := newHarness(t, 200)
	ctx := context.Background()
	if _, err := h.uc.Unlock(ctx, "p1", UnlockRequest{Kind: "hat", ID: "x"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	resp, err := h.uc.Unlock(ctx, "p1", UnlockRequest{Kind: action.UnlockCrop, ID: "potato"})
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !resp.Result.Success || resp.State.Money != 50 || resp.State.Farmland.Limit != 6 {
		t.Fatalf("unexpected unlock: %+v money=%v usage=%+v", resp.Result, resp.State.Money, resp.State.Farmland)
	}
	resp, _ = h.uc.Unlock(ctx, "p1", UnlockRequest{Kind: action.UnlockCrop, ID: "potato"})
	if resp.Result.Success || resp.Result.Reason != action.ReasonAlreadyUnlocked {
		t.Fatalf("expected Already unlocked, got %+v", resp.Result)
	}
	if h.store.saveCount() != 2 || h.metrics.success["unlock_crop"] != 1 || h.metrics.rejected["unlock_crop"] != 1 {
		t.Fatalf("unexpected bookkeeping: saves=%d metrics=%+v", h.store.saveCount(), h.metrics)
	}
}

func TestTradeUsesPriceFeed(t *testing.T) {
	h := newHarness(t, 100)
	ctx := context.Background()
	resp, err := h.uc.Trade(ctx, "p1", TradeRequest{Side: action.TradeBuy, Symbol: " acme ", Shares: 3})
	if err != nil {
		t.Fatalf("trade: %v", err)
	}
	if !resp.Result.Success || resp.Price != 10 || resp.State.Money != 70 {
		t.Fatalf("unexpected buy: %+v", resp)
	}
	if diff := cmp.Diff([]StockView{{Symbol: "ACME", Shares: 3}}, resp.State.Stocks); diff != "" {
		t.Fatalf("stocks mismatch (-want +got):\n%s", diff)
	}

	resp, _ = h.uc.Trade(ctx, "p1", TradeRequest{Side: action.TradeBuy, Symbol: "ZZZ", Shares: 1})
	if resp.Result.Success || resp.Result.Reason != action.ReasonNoPrice {
		t.Fatalf("expected No price available, got %+v", resp.Result)
	}
	resp, _ = h.uc.Trade(ctx, "p1", TradeRequest{Side: action.TradeSell, Symbol: "ACME", Shares: 5})
	if resp.Result.Reason != action.ReasonNotEnoughShares {
		t.Fatalf("expected Not enough shares, got %+v", resp.Result)
	}
	if _, err := h.uc.Trade(ctx, "p1", TradeRequest{Side: "short", Symbol: "ACME", Shares: 1}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestWaterHydratesOnTick(t *testing.T) {
	h := newHarness(t, 1000)
	ctx := context.Background()
	if resp, _ := h.uc.Unlock(ctx, "p1", UnlockRequest{Kind: action.UnlockLandscape, ID: "pond"}); !resp.Result.Success {
		t.Fatalf("unlock pond: %+v", resp.Result)
	}
	if _, err := h.uc.Select(ctx, "p1", SelectRequest{Mode: ptr(farm.ModeLandscape), Landscape: ptr("pond")}); err != nil {
		t.Fatalf("select: %v", err)
	}
	resp, err := h.uc.Tap(ctx, "p1", TapRequest{Row: 20, Col: 20})
	if err != nil {
		t.Fatalf("tap: %v", err)
	}
	if !resp.Outcomes[0].Result.Success || len(resp.Outcomes[0].Result.Hydrating) != 4 || resp.State.Pending != 4 {
		t.Fatalf("expected 4 tiles queued, got %+v", resp.Outcomes[0].Result)
	}
	saves := h.store.saveCount()

	h.clock.Advance(2 * time.Second)
	rep := h.uc.Tick(ctx)
	if rep.Hydrated != 4 || rep.Saved != 0 {
		t.Fatalf("unexpected tick: %+v", rep)
	}
	if h.notify.count(ports.NoticeHydrated) != 1 {
		t.Fatalf("expected hydrated notice")
	}
	v, _ := h.uc.State(ctx, "p1")
	if len(v.Saturated) != 4 || v.Pending != 0 {
		t.Fatalf("expected all centre tiles saturated, got %+v", v.Saturated)
	}

	h.clock.Advance(2 * time.Second)
	if rep := h.uc.Tick(ctx); rep.Saved != 1 || h.store.saveCount() != saves+1 {
		t.Fatalf("expected saturation to be saved after debounce: %+v", rep)
	}
}

func TestSaveFailureKeepsPlaying(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	if _, err := h.uc.Open(ctx, "p1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	before, _ := h.store.Load(ctx, "p1")

	h.store.mu.Lock()
	h.store.saveErr = errors.New("disk full")
	h.store.mu.Unlock()
	resp, err := h.uc.Tap(ctx, "p1", TapRequest{Row: 24, Col: 24})
	if err != nil || !resp.Outcomes[0].Result.Success {
		t.Fatalf("tap must succeed despite storage failure: %v %+v", err, resp.Outcomes)
	}
	if h.metrics.failures != 1 || resp.State.UpdatedAt != before.UpdatedAt {
		t.Fatalf("expected failure metric and unchanged timestamp: failures=%d updated=%d", h.metrics.failures, resp.State.UpdatedAt)
	}

	h.store.mu.Lock()
	h.store.saveErr = nil
	h.store.mu.Unlock()
	h.clock.Advance(3 * time.Second)
	if rep := h.uc.Tick(ctx); rep.Saved != 1 {
		t.Fatalf("expected retry on tick, got %+v", rep)
	}
	after, _ := h.store.Load(ctx, "p1")
	if after.PrevUpdatedAt != before.UpdatedAt {
		t.Fatalf("retry broke timestamp chain: prev=%d want %d", after.PrevUpdatedAt, before.UpdatedAt)
	}
}

func TestCloudMirrorConflictIsCounted(t *testing.T) {
	cloud := newStubStore()
	cloud.cas = true
	h := newHarness(t, 0, func(d *Deps) { d.Cloud = cloud })
	ctx := context.Background()
	if _, err := h.uc.Open(ctx, "p1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	h.uc.Wait()
	if cloud.saveCount() != 1 {
		t.Fatalf("expected mirrored fresh farm")
	}

	h.clock.Advance(time.Second)
	if _, err := h.uc.Tap(ctx, "p1", TapRequest{Row: 24, Col: 24}); err != nil {
		t.Fatalf("tap: %v", err)
	}
	h.uc.Wait()
	if cloud.saveCount() != 2 || h.metrics.conflicts != 0 {
		t.Fatalf("expected successor write to be accepted: saves=%d conflicts=%d", cloud.saveCount(), h.metrics.conflicts)
	}

	// Another device wrote in between.
	cloud.mu.Lock()
	rec := cloud.byID["p1"]
	rec.UpdatedAt += 500
	cloud.byID["p1"] = rec
	cloud.mu.Unlock()

	h.clock.Advance(time.Second)
	if _, err := h.uc.Tap(ctx, "p1", TapRequest{Row: 24, Col: 25}); err != nil {
		t.Fatalf("tap: %v", err)
	}
	h.uc.Wait()
	if h.metrics.conflicts != 1 || cloud.saveCount() != 2 {
		t.Fatalf("expected stale write to be rejected: saves=%d conflicts=%d", cloud.saveCount(), h.metrics.conflicts)
	}
}

func TestCloudMirrorKeepsWriteOrder(t *testing.T) {
	cloud := newBlockingStore(2)
	cloud.cas = true
	h := newHarness(t, 0, func(d *Deps) { d.Cloud = cloud })
	ctx := context.Background()
	if _, err := h.uc.Open(ctx, "p1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	h.uc.Wait()

	h.clock.Advance(time.Second)
	if _, err := h.uc.Tap(ctx, "p1", TapRequest{Row: 24, Col: 24}); err != nil {
		t.Fatalf("tap: %v", err)
	}
	select {
	case <-cloud.held:
	case <-time.After(5 * time.Second):
		t.Fatalf("first mirror write never started")
	}
	for _, p := range []grid.Point{{Row: 24, Col: 25}, {Row: 25, Col: 24}} {
		h.clock.Advance(time.Second)
		if _, err := h.uc.Tap(ctx, "p1", TapRequest{Row: p.Row, Col: p.Col}); err != nil {
			t.Fatalf("tap %v: %v", p, err)
		}
	}
	if got := cloud.saveCount(); got != 1 {
		t.Fatalf("later writes overtook the held one: saves=%d", got)
	}

	close(cloud.release)
	h.uc.Wait()
	if h.metrics.conflicts != 0 || cloud.saveCount() != 4 {
		t.Fatalf("expected every write accepted in order: saves=%d conflicts=%d", cloud.saveCount(), h.metrics.conflicts)
	}
	local, _ := h.store.Load(ctx, "p1")
	remote, _ := cloud.Load(ctx, "p1")
	if remote.UpdatedAt != local.UpdatedAt {
		t.Fatalf("cloud copy behind: cloud=%d local=%d", remote.UpdatedAt, local.UpdatedAt)
	}
}

func TestResetDeletesCloudCopyAfterQueuedWrites(t *testing.T) {
	cloud := newBlockingStore(2)
	h := newHarness(t, 0, func(d *Deps) { d.Cloud = cloud })
	ctx := context.Background()
	if _, err := h.uc.Tap(ctx, "p1", TapRequest{Row: 24, Col: 24}); err != nil {
		t.Fatalf("tap: %v", err)
	}
	<-cloud.held
	if _, err := h.uc.Reset(ctx, "p1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	close(cloud.release)
	h.uc.Wait()
	if _, err := cloud.Load(ctx, "p1"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("queued write resurrected the cloud copy: %v", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	if _, err := h.uc.Tap(ctx, "p1", TapRequest{Row: 24, Col: 24}); err != nil {
		t.Fatalf("tap: %v", err)
	}
	raw, err := h.uc.Export(ctx, "p1")
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	resp, err := h.uc.Import(ctx, "p2", raw)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(resp.Dropped) != 0 || len(resp.View.Plots) != 1 || resp.View.PlayerID != "p2" {
		t.Fatalf("unexpected import: %+v", resp)
	}
	if _, err := h.uc.Import(ctx, "p2", []byte(`[1,2]`)); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("expected ErrInvalidSnapshot, got %v", err)
	}
	if h.events.events[len(h.events.events)-1].Type != "import" {
		t.Fatalf("expected import event")
	}
}

func TestResetStartsOver(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	if _, err := h.uc.Tap(ctx, "p1", TapRequest{Row: 24, Col: 24}); err != nil {
		t.Fatalf("tap: %v", err)
	}
	v, err := h.uc.Reset(ctx, "p1")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(v.Plots) != 0 || v.Farmland.Placed != 4 {
		t.Fatalf("expected fresh farm, got %+v", v)
	}
	if _, err := h.store.Load(ctx, "p1"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected snapshot to be deleted, got %v", err)
	}
	if got := h.uc.Players(); len(got) != 1 || got[0] != "p1" {
		t.Fatalf("unexpected players: %v", got)
	}
}

func TestUnreadableSnapshotStartsFresh(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()
	h.store.byID["p1"] = ports.SnapshotRecord{PlayerID: "p1", Data: []byte("not json")}
	v, err := h.uc.Open(ctx, "p1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if v.Farmland.Placed != 4 || h.store.saveCount() != 1 {
		t.Fatalf("expected fresh saved farm, got %+v saves=%d", v.Farmland, h.store.saveCount())
	}
}
