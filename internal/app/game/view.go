package game

import (
	"time"

	"tilefarm/internal/app/action"
	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/farm"
	"tilefarm/internal/domain/grid"
)

// View is the derived display state of one farm.
type View struct {
	PlayerID   string           `json:"player_id"`
	Money      float64          `json:"money"`
	MoneyText  string           `json:"money_text"`
	Mode       farm.Mode        `json:"mode"`
	Selection  farm.Selection   `json:"selection"`
	Brush      int              `json:"brush"`
	HUD        farm.HUD         `json:"hud"`
	Farmland   farm.Usage       `json:"farmland"`
	Filled     []grid.Key       `json:"filled"`
	Saturated  []grid.Key       `json:"saturated"`
	Pending    int              `json:"pending_hydration"`
	Plots      []PlotView       `json:"plots"`
	Structures []farm.Structure `json:"structures"`
	Crops      []CropView       `json:"crops"`
	Sizes      []UnlockView     `json:"sizes"`
	Buildings  []UnlockView     `json:"buildings"`
	Landscapes []UnlockView     `json:"landscapes"`
	Stocks     []StockView      `json:"stocks"`
	UpdatedAt  int64            `json:"updated_at"`
}

type PlotView struct {
	Key         grid.Key `json:"key"`
	CropID      string   `json:"crop_id"`
	PlantedAt   int64    `json:"planted_at"`
	GrowTimeMS  int64    `json:"grow_time_ms"`
	RemainingMS int64    `json:"remaining_ms"`
	Ready       bool     `json:"ready"`
	Hydrated    bool     `json:"hydrated"`
	Timer       string   `json:"timer"`
}

type CropView struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Unlocked   bool    `json:"unlocked"`
	UnlockCost float64 `json:"unlock_cost"`
	PlaceCost  float64 `json:"place_cost"`
	BaseValue  float64 `json:"base_value"`
	Placed     int     `json:"placed"`
	Limit      int     `json:"limit"`
}

type UnlockView struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Unlocked   bool    `json:"unlocked"`
	UnlockCost float64 `json:"unlock_cost"`
}

type StockView struct {
	Symbol string  `json:"symbol"`
	Shares float64 `json:"shares"`
}

func (u *UseCase) view(s *session, now time.Time) View {
	cat := u.deps.Catalog
	st := s.st
	p := st.Player
	v := View{
		PlayerID:   s.id,
		Money:      p.Money,
		MoneyText:  moneyText(p.Money, p.HUD.CompactMoney),
		Mode:       p.Mode,
		Selection:  p.Selection,
		Brush:      action.BrushSize(p.Mode, p.Selection, st, cat),
		HUD:        p.HUD,
		Farmland:   st.World.Usage(st.Progress),
		Filled:     st.World.FarmlandKeys(),
		Saturated:  st.World.SaturatedKeys(),
		Pending:    len(st.World.PendingHydration()),
		Structures: st.World.Structures(),
		UpdatedAt:  p.UpdatedAt,
	}

	plots := st.World.Plots()
	v.Plots = make([]PlotView, 0, len(plots))
	for _, kp := range plots {
		crop, ok := cat.Crop(kp.Plot.CropID)
		if !ok {
			continue
		}
		left := kp.Plot.Remaining(crop, now)
		v.Plots = append(v.Plots, PlotView{
			Key:         kp.Key,
			CropID:      crop.ID,
			PlantedAt:   kp.Plot.PlantedAt.UnixMilli(),
			GrowTimeMS:  kp.Plot.EffectiveGrowTime(crop).Milliseconds(),
			RemainingMS: left.Milliseconds(),
			Ready:       left == 0,
			Hydrated:    kp.Plot.Hydrated,
			Timer:       timerText(left),
		})
	}

	for _, crop := range cat.Crops() {
		cp := st.Progress.Crops[crop.ID]
		v.Crops = append(v.Crops, CropView{
			ID:         crop.ID,
			Name:       crop.Name,
			Unlocked:   cp.Unlocked,
			UnlockCost: crop.UnlockCost,
			PlaceCost:  crop.PlaceCost,
			BaseValue:  crop.BaseValue,
			Placed:     cp.Placed,
			Limit:      cp.Limit,
		})
	}
	for _, size := range cat.Sizes() {
		v.Sizes = append(v.Sizes, UnlockView{ID: size.ID, Name: size.Name, Unlocked: st.Progress.Sizes[size.ID], UnlockCost: size.UnlockCost})
	}
	v.Buildings = itemViews(cat, st.Progress, catalog.KindBuilding)
	v.Landscapes = itemViews(cat, st.Progress, catalog.KindLandscape)

	symbols := p.Stocks.Symbols()
	v.Stocks = make([]StockView, 0, len(symbols))
	for _, sym := range symbols {
		v.Stocks = append(v.Stocks, StockView{Symbol: sym, Shares: p.Stocks.Shares(sym)})
	}
	return v
}

func itemViews(cat *catalog.Catalog, prog *farm.Progress, kind catalog.Kind) []UnlockView {
	items := cat.Items(kind)
	out := make([]UnlockView, 0, len(items))
	for _, it := range items {
		out = append(out, UnlockView{ID: it.ID, Name: it.Name, Unlocked: prog.ItemUnlocked(kind, it.ID), UnlockCost: it.UnlockCost})
	}
	return out
}

func moneyText(v float64, compact bool) string {
	if compact {
		return catalog.FormatMoneyCompact(v)
	}
	return catalog.FormatMoney(v)
}

func timerText(left time.Duration) string {
	if left <= 0 {
		return "Ready"
	}
	return left.Round(time.Second).String()
}
