package action

import (
	"time"

	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/farm"
	"tilefarm/internal/domain/grid"
)

// Input is one pointer interaction on a tile.
type Input struct {
	Row       int
	Col       int
	Mode      farm.Mode
	Selection farm.Selection
	Now       time.Time
}

// Resolve decides what a tap on (Row, Col) would do. It never mutates st.
func Resolve(in Input, st *farm.State, cat *catalog.Catalog) Action {
	if !st.World.Bounds().Contains(in.Row, in.Col) {
		return None{Reason: ReasonOutOfBounds}
	}
	switch {
	case in.Mode.Placement():
		return resolvePlacement(in, st, cat)
	case in.Mode == farm.ModeTrade:
		return None{Reason: ReasonTradeMode}
	default:
		return resolveFarming(in, st, cat)
	}
}

func resolvePlacement(in Input, st *farm.State, cat *catalog.Catalog) Action {
	kind := in.Mode.ItemKind()
	key := in.Selection.ItemKey(in.Mode)
	tile := grid.KeyOf(in.Row, in.Col)
	w := st.World

	if farm.IsRemoveSentinel(key) {
		s, ok := w.StructureAt(in.Row, in.Col)
		if !ok || s.Kind != kind {
			if kind == catalog.KindLandscape && !ok && w.IsFarmland(tile) {
				return RemoveFarmland{Refund: st.Player.FarmlandRemoveRefund()}
			}
			return None{Reason: reasonNoItemHere(kind)}
		}
		if kind == catalog.KindBuilding {
			if over := w.CheckRemovalWouldBreakLimit(st.Progress, s.Key()); over > 0 {
				return None{Reason: reasonRemoveFarmlandFirst(over)}
			}
		}
		return DestroyStructure{StructKey: s.Key(), Kind: kind}
	}

	if key == "" {
		return None{Reason: reasonSelect(kind)}
	}
	item, ok := cat.Item(kind, key)
	if !ok {
		return None{Reason: reasonUnknown(string(kind))}
	}
	if !st.Progress.ItemUnlocked(kind, key) {
		return None{Reason: reasonLocked(item.Name)}
	}
	if _, planted := w.PlotAt(tile); planted {
		return None{Reason: ReasonCropGrowing}
	}

	existing, occupied := w.StructureAt(in.Row, in.Col)
	if kind == catalog.KindLandscape {
		switch {
		case item.IsGrass:
			return resolveGrass(in, st, existing, occupied)
		case item.IsFarmland:
			return resolveFarmlandItem(in, st, existing, occupied)
		case occupied && existing.Kind == catalog.KindLandscape:
			return resolveReplaceLandscape(st, item, existing)
		}
	}

	allowFarmland := kind == catalog.KindLandscape && item.IsWater
	if !w.CanPlaceStructure(in.Row, in.Col, item.Width, item.Height, allowFarmland, "") {
		return None{Reason: ReasonNotEnoughSpace}
	}
	if !st.Player.CanAfford(item.Cost) {
		return None{Reason: reasonNeed(item.Cost)}
	}
	if allowFarmland {
		if converted := w.FarmlandUnder(in.Row, in.Col, item.Width, item.Height); len(converted) > 0 {
			return PlaceStructureOverFarmland{ItemID: item.ID, Kind: kind, Converted: converted}
		}
	}
	return PlaceStructure{ItemID: item.ID, Kind: kind}
}

func resolveGrass(in Input, st *farm.State, existing farm.Structure, occupied bool) Action {
	switch {
	case occupied && existing.Kind == catalog.KindLandscape:
		return ReplaceLandscapeWithGrass{OldKey: existing.Key()}
	case occupied:
		return None{Reason: ReasonBuildingInWay}
	case st.World.IsFarmland(grid.KeyOf(in.Row, in.Col)):
		return RemoveFarmland{Refund: st.Player.FarmlandRemoveRefund()}
	}
	return None{Reason: ReasonAlreadyGrass}
}

func resolveFarmlandItem(in Input, st *farm.State, existing farm.Structure, occupied bool) Action {
	if occupied && existing.Kind != catalog.KindLandscape {
		return None{Reason: ReasonBuildingInWay}
	}
	if !occupied && st.World.IsFarmland(grid.KeyOf(in.Row, in.Col)) {
		return None{Reason: ReasonAlreadyFarmland}
	}
	usage := st.World.Usage(st.Progress)
	if usage.Placed >= usage.Limit {
		return None{Reason: reasonFarmlandLimit(usage.Placed, usage.Limit)}
	}
	cost := st.Player.FarmlandPlaceCost()
	if !st.Player.CanAfford(cost) {
		return None{Reason: reasonNeed(cost)}
	}
	if occupied {
		return ReplaceLandscapeWithFarmland{OldKey: existing.Key()}
	}
	return PlaceFarmland{Cost: cost}
}

// resolveReplaceLandscape swaps the landscape at existing's origin for item.
func resolveReplaceLandscape(st *farm.State, item catalog.Item, existing farm.Structure) Action {
	if existing.ID == item.ID {
		return None{Reason: ReasonAlreadyPlaced}
	}
	if !st.World.CanPlaceStructure(existing.Row, existing.Col, item.Width, item.Height, item.IsWater, existing.Key()) {
		return None{Reason: ReasonNotEnoughSpace}
	}
	if !st.Player.CanAfford(item.Cost) {
		return None{Reason: reasonNeed(item.Cost)}
	}
	return ReplaceLandscape{OldKey: existing.Key(), ItemID: item.ID}
}

func resolveFarming(in Input, st *farm.State, cat *catalog.Catalog) Action {
	tile := grid.KeyOf(in.Row, in.Col)
	if _, ok := st.World.StructureAt(in.Row, in.Col); ok {
		return None{Reason: ReasonTileOccupied}
	}
	if plot, ok := st.World.PlotAt(tile); ok {
		crop, known := cat.Crop(plot.CropID)
		if !known {
			return None{Reason: reasonUnknown("crop")}
		}
		if plot.Ready(crop, in.Now) {
			return Harvest{CropID: crop.ID, Value: crop.BaseValue}
		}
		return None{Reason: ReasonAlreadyPlanted}
	}

	crop, ok := cat.Crop(in.Selection.Crop)
	if in.Selection.Crop == "" || !ok {
		return None{Reason: ReasonSelectCrop}
	}
	progress := st.Progress.Crops[crop.ID]
	if !progress.Unlocked {
		return None{Reason: reasonLocked(crop.Name)}
	}
	if !st.World.IsFarmland(tile) {
		return None{Reason: ReasonNeedsFarmland}
	}
	if progress.LimitReached() {
		return None{Reason: reasonCropLimit(crop.Name, progress.Placed, progress.Limit)}
	}
	if !st.Player.CanAfford(crop.PlaceCost) {
		return None{Reason: reasonNeed(crop.PlaceCost)}
	}
	return PlantCrop{CropID: crop.ID, Cost: crop.PlaceCost}
}
