package farm

import (
	"math"

	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/grid"
)

const (
	BaseFarmlandLimit     = 4
	FarmlandPerCropUnlock = 2
	BuildingCostPerTile   = 1000
)

type Usage struct {
	Placed    int `json:"placed"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// FarmlandLimit is 4, plus 2 per unlocked crop beyond the first, plus one tile
// per full 1000 of building cost on the grid.
func FarmlandLimit(unlockedCrops int, structures []Structure) int {
	limit := BaseFarmlandLimit + FarmlandPerCropUnlock*max(0, unlockedCrops-1)
	for _, s := range structures {
		if s.Kind != catalog.KindBuilding {
			continue
		}
		limit += int(math.Floor(s.Cost / BuildingCostPerTile))
	}
	return limit
}

func (w *World) FarmlandLimit(p *Progress) int {
	return FarmlandLimit(p.UnlockedCropCount(), w.Structures())
}

func (w *World) Usage(p *Progress) Usage {
	placed := len(w.filled)
	limit := w.FarmlandLimit(p)
	return Usage{Placed: placed, Limit: limit, Remaining: max(0, limit-placed)}
}

// CheckRemovalWouldBreakLimit returns how many farmland tiles would exceed the
// limit if the given structures were gone.
func (w *World) CheckRemovalWouldBreakLimit(p *Progress, remove ...grid.Key) int {
	skip := make(map[grid.Key]struct{}, len(remove))
	for _, k := range remove {
		skip[k] = struct{}{}
	}
	kept := make([]Structure, 0, len(w.structures))
	for _, s := range w.Structures() {
		if _, gone := skip[s.Key()]; gone {
			continue
		}
		kept = append(kept, s)
	}
	newLimit := FarmlandLimit(p.UnlockedCropCount(), kept)
	return max(0, len(w.filled)-newLimit)
}
