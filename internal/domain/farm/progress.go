package farm

import (
	"time"

	"tilefarm/internal/domain/catalog"
)

type CropProgress struct {
	Unlocked bool
	Limit    int

	// Derived from plots by RecountCrops.
	Placed          int
	LastPlantedAt   time.Time
	LastPlantedGrow time.Duration
}

func (c CropProgress) LimitReached() bool {
	return c.Limit != catalog.Unlimited && c.Placed >= c.Limit
}

// Progress is the per-session unlock and usage overlay on the static catalog.
type Progress struct {
	Crops      map[string]CropProgress
	Sizes      map[string]bool
	Buildings  map[string]bool
	Landscapes map[string]bool
}

func NewProgress(cat *catalog.Catalog) *Progress {
	p := &Progress{
		Crops:      make(map[string]CropProgress),
		Sizes:      make(map[string]bool),
		Buildings:  make(map[string]bool),
		Landscapes: make(map[string]bool),
	}
	for _, crop := range cat.Crops() {
		p.Crops[crop.ID] = CropProgress{Unlocked: crop.StartsUnlocked, Limit: crop.Limit}
	}
	for _, size := range cat.Sizes() {
		p.Sizes[size.ID] = size.StartsUnlocked
	}
	for _, item := range cat.Items(catalog.KindBuilding) {
		p.Buildings[item.ID] = item.StartsUnlocked
	}
	for _, item := range cat.Items(catalog.KindLandscape) {
		p.Landscapes[item.ID] = item.StartsUnlocked
	}
	return p
}

func (p *Progress) Clone() *Progress {
	out := &Progress{
		Crops:      make(map[string]CropProgress, len(p.Crops)),
		Sizes:      make(map[string]bool, len(p.Sizes)),
		Buildings:  make(map[string]bool, len(p.Buildings)),
		Landscapes: make(map[string]bool, len(p.Landscapes)),
	}
	for k, v := range p.Crops {
		out.Crops[k] = v
	}
	for k, v := range p.Sizes {
		out.Sizes[k] = v
	}
	for k, v := range p.Buildings {
		out.Buildings[k] = v
	}
	for k, v := range p.Landscapes {
		out.Landscapes[k] = v
	}
	return out
}

func (p *Progress) UnlockedCropCount() int {
	n := 0
	for _, c := range p.Crops {
		if c.Unlocked {
			n++
		}
	}
	return n
}

func (p *Progress) CropUnlocked(id string) bool {
	return p.Crops[id].Unlocked
}

func (p *Progress) ItemUnlocked(kind catalog.Kind, id string) bool {
	switch kind {
	case catalog.KindBuilding:
		return p.Buildings[id]
	case catalog.KindLandscape:
		return p.Landscapes[id]
	}
	return false
}

func (p *Progress) SetItemUnlocked(kind catalog.Kind, id string) {
	switch kind {
	case catalog.KindBuilding:
		p.Buildings[id] = true
	case catalog.KindLandscape:
		p.Landscapes[id] = true
	}
}

func (p *Progress) UnlockCrop(id string) {
	c := p.Crops[id]
	c.Unlocked = true
	p.Crops[id] = c
}

// RecountCrops rebuilds placed counts and last-planted caches from the plots,
// which are the source of truth.
func (p *Progress) RecountCrops(w *World) {
	for id, c := range p.Crops {
		c.Placed = 0
		c.LastPlantedAt = time.Time{}
		c.LastPlantedGrow = 0
		p.Crops[id] = c
	}
	for _, kp := range w.Plots() {
		c, ok := p.Crops[kp.Plot.CropID]
		if !ok {
			continue
		}
		c.Placed++
		if kp.Plot.PlantedAt.After(c.LastPlantedAt) {
			c.LastPlantedAt = kp.Plot.PlantedAt
			c.LastPlantedGrow = kp.Plot.GrowTime
		}
		p.Crops[kp.Plot.CropID] = c
	}
}
