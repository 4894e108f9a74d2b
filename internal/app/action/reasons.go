package action

import (
	"fmt"

	"tilefarm/internal/domain/catalog"
)

// Reason strings are shown to the player as-is.
const (
	ReasonOutOfBounds     = "Out of bounds"
	ReasonTradeMode       = "Switch to a farming mode"
	ReasonCropGrowing     = "Crop growing here"
	ReasonNotEnoughSpace  = "Not enough space"
	ReasonBuildingInWay   = "Building in the way"
	ReasonAlreadyGrass    = "Already grass"
	ReasonAlreadyFarmland = "Already farmland"
	ReasonAlreadyPlaced   = "Already placed"
	ReasonTileOccupied    = "Tile occupied"
	ReasonAlreadyPlanted  = "Already planted"
	ReasonSelectCrop      = "Select a crop"
	ReasonNeedsFarmland   = "Needs farmland"
	ReasonNotReady        = "Not ready yet"
	ReasonNothingHere     = "Nothing here"
	ReasonUnknownAction   = "Unknown action"
	ReasonAlreadyUnlocked = "Already unlocked"
	ReasonInvalidOrder    = "Invalid order"
	ReasonNoPrice         = "No price available"
	ReasonNotEnoughShares = "Not enough shares"
)

func reasonNeed(cost float64) string {
	return "Need " + catalog.FormatMoney(cost)
}

func reasonNoItemHere(kind catalog.Kind) string {
	return fmt.Sprintf("No %s here", kind)
}

func reasonSelect(kind catalog.Kind) string {
	return fmt.Sprintf("Select a %s", kind)
}

func reasonUnknown(what string) string {
	return "Unknown " + what
}

func reasonLocked(name string) string {
	return name + " is locked"
}

func reasonRemoveFarmlandFirst(n int) string {
	if n == 1 {
		return "Remove 1 farmland tile first"
	}
	return fmt.Sprintf("Remove %d farmland tiles first", n)
}

func reasonFarmlandLimit(placed, limit int) string {
	return fmt.Sprintf("Farmland limit reached (%d/%d)", placed, limit)
}

func reasonCropLimit(name string, placed, limit int) string {
	return fmt.Sprintf("%s limit reached (%d/%d)", name, placed, limit)
}
