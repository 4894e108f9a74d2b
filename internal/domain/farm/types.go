package farm

import (
	"time"

	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/grid"
)

type Hydration string

const (
	Dry       Hydration = "dry"
	Saturated Hydration = "saturated"
)

const (
	// HydrationRadius is the Chebyshev distance around a water footprint that
	// saturates farmland.
	HydrationRadius = 5
	// MaxHydrationDelay bounds the random delay before a tile saturates.
	MaxHydrationDelay = 4 * time.Second
	// SaturatedGrowFactor is applied to grow time on saturated farmland.
	SaturatedGrowFactor = 0.75
)

type Plot struct {
	CropID    string
	PlantedAt time.Time
	// GrowTime overrides the catalog grow time when non-zero.
	GrowTime time.Duration
	// Hydrated marks that the saturation discount has been applied.
	Hydrated bool
}

func BaseGrowTime(crop catalog.Crop) time.Duration {
	return time.Duration(crop.GrowMinutes * float64(time.Minute))
}

func (p Plot) EffectiveGrowTime(crop catalog.Crop) time.Duration {
	if p.GrowTime > 0 {
		return p.GrowTime
	}
	return BaseGrowTime(crop)
}

func (p Plot) Ready(crop catalog.Crop, now time.Time) bool {
	return now.Sub(p.PlantedAt) >= p.EffectiveGrowTime(crop)
}

func (p Plot) Remaining(crop catalog.Crop, now time.Time) time.Duration {
	left := p.EffectiveGrowTime(crop) - now.Sub(p.PlantedAt)
	if left < 0 {
		return 0
	}
	return left
}

type Structure struct {
	ID     string       `json:"id"`
	Kind   catalog.Kind `json:"kind"`
	Name   string       `json:"name"`
	Row    int          `json:"row"`
	Col    int          `json:"col"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Cost   float64      `json:"cost"`
	Image  string       `json:"image"`
}

func NewStructure(item catalog.Item, row, col int) Structure {
	return Structure{
		ID:     item.ID,
		Kind:   item.Kind,
		Name:   item.Name,
		Row:    row,
		Col:    col,
		Width:  item.Width,
		Height: item.Height,
		Cost:   item.Cost,
		Image:  item.Image,
	}
}

func (s Structure) Key() grid.Key {
	return grid.KeyOf(s.Row, s.Col)
}

func (s Structure) Footprint() []grid.Point {
	return grid.Footprint(s.Row, s.Col, s.Width, s.Height)
}

func (s Structure) Covers(row, col int) bool {
	return row >= s.Row && row < s.Row+s.Height && col >= s.Col && col < s.Col+s.Width
}
