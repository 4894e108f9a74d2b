package action

import (
	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/farm"
)

type UnlockKind string

const (
	UnlockCrop      UnlockKind = "crop"
	UnlockSize      UnlockKind = "size"
	UnlockBuilding  UnlockKind = "building"
	UnlockLandscape UnlockKind = "landscape"
)

func (k UnlockKind) Valid() bool {
	switch k {
	case UnlockCrop, UnlockSize, UnlockBuilding, UnlockLandscape:
		return true
	}
	return false
}

type UnlockResult struct {
	Success bool    `json:"success"`
	Reason  string  `json:"reason,omitempty"`
	Cost    float64 `json:"cost"`
}

// Unlock buys a catalog entry for this session. Unlocking a crop also raises
// the farmland limit.
func (e Executor) Unlock(st *farm.State, kind UnlockKind, id string) UnlockResult {
	var (
		cost     float64
		unlocked bool
		apply    func()
	)
	switch kind {
	case UnlockCrop:
		crop, ok := e.Catalog.Crop(id)
		if !ok {
			return UnlockResult{Reason: reasonUnknown("crop")}
		}
		cost, unlocked = crop.UnlockCost, st.Progress.CropUnlocked(id)
		apply = func() { st.Progress.UnlockCrop(id) }
	case UnlockSize:
		size, ok := e.Catalog.Size(id)
		if !ok {
			return UnlockResult{Reason: reasonUnknown("size")}
		}
		cost, unlocked = size.UnlockCost, st.Progress.Sizes[id]
		apply = func() { st.Progress.Sizes[id] = true }
	case UnlockBuilding, UnlockLandscape:
		itemKind := catalog.Kind(kind)
		item, ok := e.Catalog.Item(itemKind, id)
		if !ok {
			return UnlockResult{Reason: reasonUnknown(string(kind))}
		}
		cost, unlocked = item.UnlockCost, st.Progress.ItemUnlocked(itemKind, id)
		apply = func() { st.Progress.SetItemUnlocked(itemKind, id) }
	default:
		return UnlockResult{Reason: reasonUnknown("unlock")}
	}
	if unlocked {
		return UnlockResult{Reason: ReasonAlreadyUnlocked}
	}
	if !st.Player.Debit(cost) {
		return UnlockResult{Reason: reasonNeed(cost), Cost: cost}
	}
	apply()
	return UnlockResult{Success: true, Cost: cost}
}
