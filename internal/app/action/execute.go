package action

import (
	"time"

	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/farm"
	"tilefarm/internal/domain/grid"
)

// Effect is a floating number the renderer animates over a tile.
type Effect struct {
	Key   grid.Key  `json:"key"`
	Value float64   `json:"value"`
	Start time.Time `json:"start"`
}

type Result struct {
	Success bool     `json:"success"`
	Reason  string   `json:"reason,omitempty"`
	Type    Type     `json:"type"`
	Effects []Effect `json:"effects,omitempty"`
	// Hydrating lists tiles newly queued for saturation.
	Hydrating []grid.Key `json:"hydrating,omitempty"`
}

func fail(t Type, reason string) Result {
	return Result{Type: t, Reason: reason}
}

type Executor struct {
	Catalog *catalog.Catalog
	Jitter  farm.Jitter
}

// Execute applies a resolved action. Every check runs against the state as it
// is now, and all of them run before the first mutation.
func (e Executor) Execute(st *farm.State, row, col int, a Action, now time.Time) Result {
	if a == nil {
		return fail(TypeNone, ReasonUnknownAction)
	}
	if !st.World.Bounds().Contains(row, col) {
		return fail(a.Type(), ReasonOutOfBounds)
	}
	x := execution{e: e, st: st, row: row, col: col, tile: grid.KeyOf(row, col), now: now}
	switch act := a.(type) {
	case None:
		return fail(TypeNone, act.Reason)
	case Harvest:
		return x.harvest()
	case PlantCrop:
		return x.plant(act)
	case PlaceFarmland:
		return x.placeFarmland()
	case RemoveFarmland:
		return x.removeFarmland()
	case PlaceStructure:
		return x.placeStructure(act.ItemID, act.Kind, false)
	case PlaceStructureOverFarmland:
		return x.placeStructure(act.ItemID, act.Kind, true)
	case DestroyStructure:
		return x.destroy(act)
	case ReplaceLandscape:
		return x.replaceLandscape(act)
	case ReplaceLandscapeWithFarmland:
		return x.replaceWithFarmland(act)
	case ReplaceLandscapeWithGrass:
		return x.replaceWithGrass(act)
	default:
		return fail(a.Type(), ReasonUnknownAction)
	}
}

type execution struct {
	e    Executor
	st   *farm.State
	row  int
	col  int
	tile grid.Key
	now  time.Time
	out  Result
}

func (x *execution) effect(k grid.Key, v float64) {
	if v == 0 {
		return
	}
	x.out.Effects = append(x.out.Effects, Effect{Key: k, Value: v, Start: x.now})
}

func (x *execution) ok(t Type) Result {
	x.out.Success = true
	x.out.Type = t
	return x.out
}

func (x *execution) harvest() Result {
	plot, ok := x.st.World.PlotAt(x.tile)
	if !ok {
		return fail(TypeHarvest, ReasonNothingHere)
	}
	crop, ok := x.e.Catalog.Crop(plot.CropID)
	if !ok {
		return fail(TypeHarvest, reasonUnknown("crop"))
	}
	if !plot.Ready(crop, x.now) {
		return fail(TypeHarvest, ReasonNotReady)
	}
	x.st.World.RemovePlot(x.tile)
	x.st.Player.Credit(crop.BaseValue)
	x.st.Progress.RecountCrops(x.st.World)
	x.effect(x.tile, crop.BaseValue)
	return x.ok(TypeHarvest)
}

func (x *execution) plant(act PlantCrop) Result {
	w := x.st.World
	crop, ok := x.e.Catalog.Crop(act.CropID)
	if !ok {
		return fail(TypePlantCrop, ReasonSelectCrop)
	}
	progress := x.st.Progress.Crops[crop.ID]
	switch {
	case !progress.Unlocked:
		return fail(TypePlantCrop, reasonLocked(crop.Name))
	case !w.IsFarmland(x.tile):
		return fail(TypePlantCrop, ReasonNeedsFarmland)
	case progress.LimitReached():
		return fail(TypePlantCrop, reasonCropLimit(crop.Name, progress.Placed, progress.Limit))
	case !x.st.Player.CanAfford(crop.PlaceCost):
		return fail(TypePlantCrop, reasonNeed(crop.PlaceCost))
	}
	if _, planted := w.PlotAt(x.tile); planted {
		return fail(TypePlantCrop, ReasonAlreadyPlanted)
	}

	plot := farm.Plot{CropID: crop.ID, PlantedAt: x.now}
	if w.Hydration(x.tile) == farm.Saturated {
		plot.GrowTime = time.Duration(float64(farm.BaseGrowTime(crop)) * farm.SaturatedGrowFactor)
		plot.Hydrated = true
	}
	if err := w.PlacePlot(x.tile, plot); err != nil {
		return fail(TypePlantCrop, ReasonTileOccupied)
	}
	x.st.Player.Debit(crop.PlaceCost)
	x.st.Progress.RecountCrops(w)
	x.effect(x.tile, -crop.PlaceCost)
	return x.ok(TypePlantCrop)
}

func (x *execution) placeFarmland() Result {
	w := x.st.World
	if w.IsFarmland(x.tile) {
		return fail(TypePlaceFarmland, ReasonAlreadyFarmland)
	}
	if _, ok := w.StructureAt(x.row, x.col); ok {
		return fail(TypePlaceFarmland, ReasonTileOccupied)
	}
	usage := w.Usage(x.st.Progress)
	if usage.Placed >= usage.Limit {
		return fail(TypePlaceFarmland, reasonFarmlandLimit(usage.Placed, usage.Limit))
	}
	cost := x.st.Player.FarmlandPlaceCost()
	if !x.st.Player.CanAfford(cost) {
		return fail(TypePlaceFarmland, reasonNeed(cost))
	}
	if err := w.AddFarmland(x.row, x.col); err != nil {
		return fail(TypePlaceFarmland, ReasonTileOccupied)
	}
	x.st.Player.Debit(cost)
	x.st.Player.FarmlandPlaced++
	x.effect(x.tile, -cost)
	if w.ScheduleIfNearWater(x.tile, x.e.Catalog, x.now, x.e.Jitter) {
		x.out.Hydrating = append(x.out.Hydrating, x.tile)
	}
	return x.ok(TypePlaceFarmland)
}

func (x *execution) removeFarmland() Result {
	if !x.st.World.IsFarmland(x.tile) {
		return fail(TypeRemoveFarmland, ReasonNothingHere)
	}
	refund := x.dropFarmland(x.tile)
	x.st.Player.Credit(refund)
	x.st.Progress.RecountCrops(x.st.World)
	x.effect(x.tile, refund)
	return x.ok(TypeRemoveFarmland)
}

// dropFarmland removes a farmland tile and anything growing on it, keeps the
// placed counter equal to the filled set, and returns the refund owed for it.
// The caller credits the refund.
func (x *execution) dropFarmland(k grid.Key) float64 {
	x.st.World.RemovePlot(k)
	if !x.st.World.RemoveFarmland(k) {
		return 0
	}
	refund := x.st.Player.FarmlandRemoveRefund()
	if x.st.Player.FarmlandPlaced > 0 {
		x.st.Player.FarmlandPlaced--
	}
	return refund
}

// dropFarmlandUnder clears the farmland a footprint covers and returns the
// total refund.
func (x *execution) dropFarmlandUnder(row, col, width, height int) float64 {
	refund := 0.0
	for _, k := range x.st.World.FarmlandUnder(row, col, width, height) {
		refund += x.dropFarmland(k)
	}
	return refund
}

func (x *execution) placeStructure(itemID string, kind catalog.Kind, overFarmland bool) Result {
	t := TypePlaceStructure
	if overFarmland {
		t = TypePlaceStructureOverFarmland
	}
	w := x.st.World
	item, ok := x.e.Catalog.Item(kind, itemID)
	if !ok {
		return fail(t, reasonUnknown(string(kind)))
	}
	if !x.st.Progress.ItemUnlocked(kind, itemID) {
		return fail(t, reasonLocked(item.Name))
	}
	allowFarmland := overFarmland && item.IsWater
	if !w.CanPlaceStructure(x.row, x.col, item.Width, item.Height, allowFarmland, "") {
		return fail(t, ReasonNotEnoughSpace)
	}
	if !x.st.Player.CanAfford(item.Cost) {
		return fail(t, reasonNeed(item.Cost))
	}
	refund := x.dropFarmlandUnder(x.row, x.col, item.Width, item.Height)
	s := farm.NewStructure(item, x.row, x.col)
	if err := w.PlaceStructure(s); err != nil {
		return fail(t, ReasonNotEnoughSpace)
	}
	x.st.Player.Debit(item.Cost)
	x.st.Player.Credit(refund)
	x.effect(s.Key(), refund-item.Cost)
	x.afterPlaced(s)
	return x.ok(t)
}

func (x *execution) afterPlaced(s farm.Structure) {
	x.st.Progress.RecountCrops(x.st.World)
	if farm.IsWater(x.e.Catalog, s) {
		x.out.Hydrating = append(x.out.Hydrating, x.st.World.ScheduleAroundWater(s, x.now, x.e.Jitter)...)
	}
}

// afterRemoved cancels hydration that only the removed water was feeding.
func (x *execution) afterRemoved(s farm.Structure) {
	if farm.IsWater(x.e.Catalog, s) {
		x.st.World.PruneHydration(x.e.Catalog)
	}
}

func (x *execution) destroy(act DestroyStructure) Result {
	w := x.st.World
	s, ok := w.Structure(act.StructKey)
	if !ok || s.Kind != act.Kind || !s.Covers(x.row, x.col) {
		return fail(TypeDestroyStructure, reasonNoItemHere(act.Kind))
	}
	if s.Kind == catalog.KindBuilding {
		if over := w.CheckRemovalWouldBreakLimit(x.st.Progress, s.Key()); over > 0 {
			return fail(TypeDestroyStructure, reasonRemoveFarmlandFirst(over))
		}
	}
	if _, err := w.RemoveStructure(s.Key()); err != nil {
		return fail(TypeDestroyStructure, reasonNoItemHere(act.Kind))
	}
	x.afterRemoved(s)
	x.st.Player.Credit(s.Cost)
	x.effect(s.Key(), s.Cost)
	return x.ok(TypeDestroyStructure)
}

func (x *execution) oldLandscape(t Type, k grid.Key) (farm.Structure, *Result) {
	s, ok := x.st.World.Structure(k)
	if !ok || s.Kind != catalog.KindLandscape || !s.Covers(x.row, x.col) {
		r := fail(t, reasonNoItemHere(catalog.KindLandscape))
		return farm.Structure{}, &r
	}
	return s, nil
}

func (x *execution) replaceLandscape(act ReplaceLandscape) Result {
	t := TypeReplaceLandscape
	w := x.st.World
	old, bad := x.oldLandscape(t, act.OldKey)
	if bad != nil {
		return *bad
	}
	item, ok := x.e.Catalog.Item(catalog.KindLandscape, act.ItemID)
	if !ok || item.IsGrass || item.IsFarmland {
		return fail(t, reasonUnknown(string(catalog.KindLandscape)))
	}
	if !x.st.Progress.ItemUnlocked(catalog.KindLandscape, item.ID) {
		return fail(t, reasonLocked(item.Name))
	}
	if old.ID == item.ID {
		return fail(t, ReasonAlreadyPlaced)
	}
	if !w.CanPlaceStructure(old.Row, old.Col, item.Width, item.Height, item.IsWater, old.Key()) {
		return fail(t, ReasonNotEnoughSpace)
	}
	if !x.st.Player.CanAfford(item.Cost) {
		return fail(t, reasonNeed(item.Cost))
	}

	if _, err := w.RemoveStructure(old.Key()); err != nil {
		return fail(t, reasonNoItemHere(catalog.KindLandscape))
	}
	refund := x.dropFarmlandUnder(old.Row, old.Col, item.Width, item.Height)
	s := farm.NewStructure(item, old.Row, old.Col)
	if err := w.PlaceStructure(s); err != nil {
		// Footprint was checked above; put the old one back rather than lose it.
		_ = w.PlaceStructure(old)
		return fail(t, ReasonNotEnoughSpace)
	}
	x.st.Player.Debit(item.Cost)
	x.st.Player.Credit(old.Cost + refund)
	x.effect(s.Key(), old.Cost+refund-item.Cost)
	x.afterRemoved(old)
	x.afterPlaced(s)
	return x.ok(t)
}

func (x *execution) replaceWithFarmland(act ReplaceLandscapeWithFarmland) Result {
	t := TypeReplaceLandscapeWithFarmland
	w := x.st.World
	old, bad := x.oldLandscape(t, act.OldKey)
	if bad != nil {
		return *bad
	}
	usage := w.Usage(x.st.Progress)
	if usage.Placed >= usage.Limit {
		return fail(t, reasonFarmlandLimit(usage.Placed, usage.Limit))
	}
	cost := x.st.Player.FarmlandPlaceCost()
	if !x.st.Player.CanAfford(cost) {
		return fail(t, reasonNeed(cost))
	}

	if _, err := w.RemoveStructure(old.Key()); err != nil {
		return fail(t, reasonNoItemHere(catalog.KindLandscape))
	}
	if err := w.AddFarmland(x.row, x.col); err != nil {
		_ = w.PlaceStructure(old)
		return fail(t, ReasonTileOccupied)
	}
	x.afterRemoved(old)
	x.st.Player.Debit(cost)
	x.st.Player.Credit(old.Cost)
	x.st.Player.FarmlandPlaced++
	x.effect(x.tile, old.Cost-cost)
	if w.ScheduleIfNearWater(x.tile, x.e.Catalog, x.now, x.e.Jitter) {
		x.out.Hydrating = append(x.out.Hydrating, x.tile)
	}
	return x.ok(t)
}

func (x *execution) replaceWithGrass(act ReplaceLandscapeWithGrass) Result {
	t := TypeReplaceLandscapeWithGrass
	old, bad := x.oldLandscape(t, act.OldKey)
	if bad != nil {
		return *bad
	}
	if _, err := x.st.World.RemoveStructure(old.Key()); err != nil {
		return fail(t, reasonNoItemHere(catalog.KindLandscape))
	}
	x.afterRemoved(old)
	x.st.Player.Credit(old.Cost)
	x.effect(old.Key(), old.Cost)
	return x.ok(t)
}
