package farm

import (
	"math"

	"tilefarm/internal/domain/catalog"
)

type Mode string

const (
	ModePlant     Mode = "plant"
	ModeHarvest   Mode = "harvest"
	ModeBuild     Mode = "build"
	ModeLandscape Mode = "landscape"
	ModeTrade     Mode = "trade"
)

func (m Mode) Valid() bool {
	switch m {
	case ModePlant, ModeHarvest, ModeBuild, ModeLandscape, ModeTrade:
		return true
	}
	return false
}

// Placement reports whether the mode places structures rather than crops.
func (m Mode) Placement() bool {
	return m == ModeBuild || m == ModeLandscape
}

func (m Mode) ItemKind() catalog.Kind {
	if m == ModeLandscape {
		return catalog.KindLandscape
	}
	return catalog.KindBuilding
}

const (
	SellSentinel    = "sell"
	DestroySentinel = "destroy"
)

func IsRemoveSentinel(key string) bool {
	return key == SellSentinel || key == DestroySentinel
}

type Selection struct {
	Crop      string `json:"crop"`
	Size      string `json:"size"`
	Build     string `json:"build"`
	Landscape string `json:"landscape"`
}

// ItemKey is the build or landscape selection for a placement mode.
func (s Selection) ItemKey(m Mode) string {
	if m == ModeLandscape {
		return s.Landscape
	}
	return s.Build
}

type HUD struct {
	ShowFloatingNumbers bool `json:"show_floating_numbers"`
	ShowGrid            bool `json:"show_grid"`
	CompactMoney        bool `json:"compact_money"`
}

func DefaultHUD() HUD {
	return HUD{ShowFloatingNumbers: true, ShowGrid: true}
}

const (
	FreeFarmlandTiles = 4
	FarmlandTileCost  = 25
	StartingMoney     = 0
)

type Player struct {
	Money          float64
	Mode           Mode
	Selection      Selection
	FarmlandPlaced int
	Stocks         Holdings
	HUD            HUD
	UpdatedAt      int64
	PrevUpdatedAt  int64
}

func NewPlayer(cat *catalog.Catalog, money float64) *Player {
	p := &Player{
		Money:  clampMoney(money),
		Mode:   ModePlant,
		Stocks: Holdings{},
		HUD:    DefaultHUD(),
	}
	if crops := cat.Crops(); len(crops) > 0 {
		p.Selection.Crop = crops[0].ID
	}
	if sizes := cat.Sizes(); len(sizes) > 0 {
		p.Selection.Size = sizes[0].ID
	}
	return p
}

func (p *Player) Clone() *Player {
	out := *p
	out.Stocks = p.Stocks.Clone()
	return &out
}

func (p *Player) CanAfford(cost float64) bool {
	return cost <= 0 || p.Money+1e-9 >= cost
}

// Debit refuses rather than letting money go negative.
func (p *Player) Debit(cost float64) bool {
	if cost <= 0 {
		return true
	}
	if !p.CanAfford(cost) {
		return false
	}
	p.Money = clampMoney(catalog.RoundCents(p.Money - cost))
	return true
}

func (p *Player) Credit(amount float64) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return
	}
	p.Money = clampMoney(catalog.RoundCents(p.Money + amount))
}

// FarmlandPlaceCost is free for the first four tiles and 25 afterwards.
func (p *Player) FarmlandPlaceCost() float64 {
	if p.FarmlandPlaced < FreeFarmlandTiles {
		return 0
	}
	return FarmlandTileCost
}

// FarmlandRemoveRefund pays back 25 only while above the free allowance.
func (p *Player) FarmlandRemoveRefund() float64 {
	if p.FarmlandPlaced > FreeFarmlandTiles {
		return FarmlandTileCost
	}
	return 0
}

func clampMoney(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
