package catalogview

import (
	"context"
	"errors"

	"tilefarm/internal/app/ports"
	"tilefarm/internal/domain/catalog"
)

var ErrNoAssets = errors.New("no asset provider configured")

type Crop struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	BaseValue   float64 `json:"base_value"`
	GrowMinutes float64 `json:"grow_minutes"`
	UnlockCost  float64 `json:"unlock_cost"`
	PlaceCost   float64 `json:"place_cost"`
	Limit       int     `json:"limit"`
}

type Size struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	N          int     `json:"n"`
	UnlockCost float64 `json:"unlock_cost"`
}

type Item struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Cost       float64 `json:"cost"`
	UnlockCost float64 `json:"unlock_cost"`
	Image      string  `json:"image,omitempty"`
	Water      bool    `json:"water,omitempty"`
	LowColor   string  `json:"low_color,omitempty"`
	HighColor  string  `json:"high_color,omitempty"`
}

type Index struct {
	Crops      []Crop `json:"crops"`
	Sizes      []Size `json:"sizes"`
	Buildings  []Item `json:"buildings"`
	Landscapes []Item `json:"landscapes"`
}

// UseCase serves the static catalog and the sprite files it references.
type UseCase struct {
	Catalog *catalog.Catalog
	Assets  ports.AssetProvider
}

func (u UseCase) Index(_ context.Context) Index {
	out := Index{
		Crops:      []Crop{},
		Sizes:      []Size{},
		Buildings:  items(u.Catalog, catalog.KindBuilding),
		Landscapes: items(u.Catalog, catalog.KindLandscape),
	}
	for _, c := range u.Catalog.Crops() {
		out.Crops = append(out.Crops, Crop{
			ID:          c.ID,
			Name:        c.Name,
			BaseValue:   c.BaseValue,
			GrowMinutes: c.GrowMinutes,
			UnlockCost:  c.UnlockCost,
			PlaceCost:   c.PlaceCost,
			Limit:       c.Limit,
		})
	}
	for _, s := range u.Catalog.Sizes() {
		out.Sizes = append(out.Sizes, Size{ID: s.ID, Name: s.Name, N: s.N, UnlockCost: s.UnlockCost})
	}
	return out
}

func (u UseCase) Asset(ctx context.Context, path string) ([]byte, error) {
	if u.Assets == nil {
		return nil, ErrNoAssets
	}
	return u.Assets.File(ctx, path)
}

func items(cat *catalog.Catalog, kind catalog.Kind) []Item {
	src := cat.Items(kind)
	out := make([]Item, 0, len(src))
	for _, it := range src {
		out = append(out, Item{
			ID:         it.ID,
			Name:       it.Name,
			Width:      it.Width,
			Height:     it.Height,
			Cost:       it.Cost,
			UnlockCost: it.UnlockCost,
			Image:      it.Image,
			Water:      it.IsWater,
			LowColor:   it.LowColor,
			HighColor:  it.HighColor,
		})
	}
	return out
}
