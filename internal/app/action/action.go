package action

import (
	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/grid"
)

type Type string

const (
	TypeNone                         Type = "none"
	TypeHarvest                      Type = "harvest"
	TypePlantCrop                    Type = "plant_crop"
	TypePlaceFarmland                Type = "place_farmland"
	TypeRemoveFarmland               Type = "remove_farmland"
	TypePlaceStructure               Type = "place_structure"
	TypePlaceStructureOverFarmland   Type = "place_structure_over_farmland"
	TypeDestroyStructure             Type = "destroy_structure"
	TypeReplaceLandscape             Type = "replace_landscape"
	TypeReplaceLandscapeWithFarmland Type = "replace_landscape_with_farmland"
	TypeReplaceLandscapeWithGrass    Type = "replace_landscape_with_grass"
)

// Action is the closed set of tile interactions. Only types in this package
// implement it.
type Action interface {
	Type() Type
	sealed()
}

type None struct {
	Reason string `json:"reason"`
}

type Harvest struct {
	CropID string  `json:"crop_id"`
	Value  float64 `json:"value"`
}

type PlantCrop struct {
	CropID string  `json:"crop_id"`
	Cost   float64 `json:"cost"`
}

type PlaceFarmland struct {
	Cost float64 `json:"cost"`
}

type RemoveFarmland struct {
	Refund float64 `json:"refund"`
}

type PlaceStructure struct {
	ItemID string       `json:"item_id"`
	Kind   catalog.Kind `json:"kind"`
}

type PlaceStructureOverFarmland struct {
	ItemID    string       `json:"item_id"`
	Kind      catalog.Kind `json:"kind"`
	Converted []grid.Key   `json:"converted"`
}

type DestroyStructure struct {
	StructKey grid.Key     `json:"struct_key"`
	Kind      catalog.Kind `json:"kind"`
}

type ReplaceLandscape struct {
	OldKey grid.Key `json:"old_key"`
	ItemID string   `json:"item_id"`
}

type ReplaceLandscapeWithFarmland struct {
	OldKey grid.Key `json:"old_key"`
}

type ReplaceLandscapeWithGrass struct {
	OldKey grid.Key `json:"old_key"`
}

func (None) Type() Type                         { return TypeNone }
func (Harvest) Type() Type                      { return TypeHarvest }
func (PlantCrop) Type() Type                    { return TypePlantCrop }
func (PlaceFarmland) Type() Type                { return TypePlaceFarmland }
func (RemoveFarmland) Type() Type               { return TypeRemoveFarmland }
func (PlaceStructure) Type() Type               { return TypePlaceStructure }
func (PlaceStructureOverFarmland) Type() Type   { return TypePlaceStructureOverFarmland }
func (DestroyStructure) Type() Type             { return TypeDestroyStructure }
func (ReplaceLandscape) Type() Type             { return TypeReplaceLandscape }
func (ReplaceLandscapeWithFarmland) Type() Type { return TypeReplaceLandscapeWithFarmland }
func (ReplaceLandscapeWithGrass) Type() Type    { return TypeReplaceLandscapeWithGrass }

func (None) sealed()                         {}
func (Harvest) sealed()                      {}
func (PlantCrop) sealed()                    {}
func (PlaceFarmland) sealed()                {}
func (RemoveFarmland) sealed()               {}
func (PlaceStructure) sealed()               {}
func (PlaceStructureOverFarmland) sealed()   {}
func (DestroyStructure) sealed()             {}
func (ReplaceLandscape) sealed()             {}
func (ReplaceLandscapeWithFarmland) sealed() {}
func (ReplaceLandscapeWithGrass) sealed()    {}

// Envelope is the wire form of an Action.
type Envelope struct {
	Type   Type   `json:"type"`
	Action Action `json:"action"`
}

func Wrap(a Action) Envelope {
	return Envelope{Type: a.Type(), Action: a}
}

// Allowed reports whether the action does something.
func Allowed(a Action) bool {
	if a == nil {
		return false
	}
	return a.Type() != TypeNone
}

// ReasonOf returns the rejection reason of a None, or "".
func ReasonOf(a Action) string {
	if n, ok := a.(None); ok {
		return n.Reason
	}
	return ""
}
