package savegame

import (
	"encoding/json"
	"time"

	"tilefarm/internal/domain/farm"
	"tilefarm/internal/domain/grid"
)

// Version is written into every snapshot. Older snapshots load field by field.
const Version = 1

type PlotValue struct {
	CropID     string `json:"crop_id"`
	PlantedAt  int64  `json:"planted_at"`
	GrowTimeMS int64  `json:"grow_time_ms"`
	Hydrated   bool   `json:"hydrated"`
}

type PlotEntry struct {
	Key   grid.Key  `json:"key"`
	Value PlotValue `json:"value"`
}

type StructureEntry struct {
	Key   grid.Key       `json:"key"`
	Value farm.Structure `json:"value"`
}

// Snapshot is the persisted form of one player session.
type Snapshot struct {
	Version        int              `json:"version"`
	Money          float64          `json:"money"`
	Stocks         farm.Holdings    `json:"stocks"`
	Filled         []grid.Key       `json:"filled"`
	Saturated      []grid.Key       `json:"saturated"`
	Plots          []PlotEntry      `json:"plots"`
	Structures     []StructureEntry `json:"structures"`
	Crops          map[string]bool  `json:"crops"`
	CropLimits     map[string]int   `json:"crop_limits"`
	Sizes          map[string]bool  `json:"sizes"`
	Buildings      map[string]bool  `json:"buildings"`
	Landscapes     map[string]bool  `json:"landscapes"`
	Mode           farm.Mode        `json:"mode"`
	Selection      farm.Selection   `json:"selection"`
	FarmlandPlaced int              `json:"farmland_placed"`
	HUD            farm.HUD         `json:"hud"`
	UpdatedAt      int64            `json:"updated_at"`
	PrevUpdatedAt  int64            `json:"prev_updated_at"`
}

// Encode captures st as it is. Call Touch first to advance the timestamps.
func Encode(st *farm.State) Snapshot {
	w, p, pr := st.World, st.Player, st.Progress
	snap := Snapshot{
		Version:        Version,
		Money:          p.Money,
		Stocks:         p.Stocks.Sanitize(),
		Filled:         w.FarmlandKeys(),
		Saturated:      w.SaturatedKeys(),
		Plots:          make([]PlotEntry, 0, w.PlotCount()),
		Structures:     make([]StructureEntry, 0, w.StructureCount()),
		Crops:          make(map[string]bool, len(pr.Crops)),
		CropLimits:     make(map[string]int, len(pr.Crops)),
		Sizes:          copyFlags(pr.Sizes),
		Buildings:      copyFlags(pr.Buildings),
		Landscapes:     copyFlags(pr.Landscapes),
		Mode:           p.Mode,
		Selection:      p.Selection,
		FarmlandPlaced: p.FarmlandPlaced,
		HUD:            p.HUD,
		UpdatedAt:      p.UpdatedAt,
		PrevUpdatedAt:  p.PrevUpdatedAt,
	}
	for _, kp := range w.Plots() {
		snap.Plots = append(snap.Plots, PlotEntry{Key: kp.Key, Value: PlotValue{
			CropID:     kp.Plot.CropID,
			PlantedAt:  kp.Plot.PlantedAt.UnixMilli(),
			GrowTimeMS: kp.Plot.GrowTime.Milliseconds(),
			Hydrated:   kp.Plot.Hydrated,
		}})
	}
	for _, s := range w.Structures() {
		snap.Structures = append(snap.Structures, StructureEntry{Key: s.Key(), Value: s})
	}
	for id, c := range pr.Crops {
		snap.Crops[id] = c.Unlocked
		snap.CropLimits[id] = c.Limit
	}
	return snap
}

func Marshal(st *farm.State) ([]byte, error) {
	return json.Marshal(Encode(st))
}

// Touch advances UpdatedAt to now (never backwards) and remembers the value
// it replaces for the cloud store's compare-and-set.
func Touch(p *farm.Player, now time.Time) {
	next := now.UnixMilli()
	if next <= p.UpdatedAt {
		next = p.UpdatedAt + 1
	}
	p.PrevUpdatedAt = p.UpdatedAt
	p.UpdatedAt = next
}

func copyFlags(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
