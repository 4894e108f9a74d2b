package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	KindBuilding  Kind = "building"
	KindLandscape Kind = "landscape"
)

func (k Kind) Valid() bool {
	return k == KindBuilding || k == KindLandscape
}

type Crop struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	BaseValue      float64 `yaml:"base_value"`
	GrowMinutes    float64 `yaml:"grow_minutes"`
	UnlockCost     float64 `yaml:"unlock_cost"`
	PlaceCost      float64 `yaml:"place_cost"`
	Limit          int     `yaml:"limit"`
	StartsUnlocked bool    `yaml:"starts_unlocked"`
}

// Unlimited is the crop limit value meaning no cap.
const Unlimited = -1

type Size struct {
	ID             string  `yaml:"id"`
	Name           string  `yaml:"name"`
	N              int     `yaml:"n"`
	UnlockCost     float64 `yaml:"unlock_cost"`
	StartsUnlocked bool    `yaml:"starts_unlocked"`
}

// Item is a building or landscape template.
type Item struct {
	ID             string  `yaml:"id"`
	Kind           Kind    `yaml:"-"`
	Name           string  `yaml:"name"`
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	Cost           float64 `yaml:"cost"`
	UnlockCost     float64 `yaml:"unlock_cost"`
	Image          string  `yaml:"image"`
	StartsUnlocked bool    `yaml:"starts_unlocked"`
	IsFarmland     bool    `yaml:"is_farmland"`
	IsGrass        bool    `yaml:"is_grass"`
	IsWater        bool    `yaml:"is_water"`
	LowColor       string  `yaml:"low_color"`
	HighColor      string  `yaml:"high_color"`
}

type file struct {
	Crops      []Crop `yaml:"crops"`
	Sizes      []Size `yaml:"sizes"`
	Buildings  []Item `yaml:"buildings"`
	Landscapes []Item `yaml:"landscapes"`
}

// Catalog is read-only after Parse.
type Catalog struct {
	crops      map[string]Crop
	sizes      map[string]Size
	buildings  map[string]Item
	landscapes map[string]Item

	cropOrder      []string
	sizeOrder      []string
	buildingOrder  []string
	landscapeOrder []string
}

//go:embed default.yaml
var defaultYAML []byte

var ErrInvalidCatalog = errors.New("invalid catalog")

func Default() *Catalog {
	c, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return c
}

func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Parse(raw []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	c := &Catalog{
		crops:      make(map[string]Crop, len(f.Crops)),
		sizes:      make(map[string]Size, len(f.Sizes)),
		buildings:  make(map[string]Item, len(f.Buildings)),
		landscapes: make(map[string]Item, len(f.Landscapes)),
	}
	for _, crop := range f.Crops {
		if crop.ID == "" || crop.GrowMinutes <= 0 || crop.BaseValue < 0 || crop.UnlockCost < 0 || crop.PlaceCost < 0 {
			return nil, fmt.Errorf("%w: crop %q", ErrInvalidCatalog, crop.ID)
		}
		if crop.Limit < Unlimited || crop.Limit == 0 {
			return nil, fmt.Errorf("%w: crop %q limit %d", ErrInvalidCatalog, crop.ID, crop.Limit)
		}
		if _, dup := c.crops[crop.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate crop %q", ErrInvalidCatalog, crop.ID)
		}
		c.crops[crop.ID] = crop
		c.cropOrder = append(c.cropOrder, crop.ID)
	}
	for _, size := range f.Sizes {
		if size.ID == "" || size.N < 1 || size.UnlockCost < 0 {
			return nil, fmt.Errorf("%w: size %q", ErrInvalidCatalog, size.ID)
		}
		if _, dup := c.sizes[size.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate size %q", ErrInvalidCatalog, size.ID)
		}
		c.sizes[size.ID] = size
		c.sizeOrder = append(c.sizeOrder, size.ID)
	}
	for _, item := range f.Buildings {
		item.Kind = KindBuilding
		if err := c.addItem(item); err != nil {
			return nil, err
		}
	}
	grass, farmland := 0, 0
	for _, item := range f.Landscapes {
		item.Kind = KindLandscape
		if err := c.addItem(item); err != nil {
			return nil, err
		}
		if item.IsGrass {
			grass++
		}
		if item.IsFarmland {
			farmland++
		}
	}
	if grass != 1 || farmland != 1 {
		return nil, fmt.Errorf("%w: need exactly one grass and one farmland landscape (got %d, %d)", ErrInvalidCatalog, grass, farmland)
	}
	if len(c.crops) == 0 || len(c.sizes) == 0 {
		return nil, fmt.Errorf("%w: crops and sizes must not be empty", ErrInvalidCatalog)
	}
	return c, nil
}

func (c *Catalog) addItem(item Item) error {
	if item.ID == "" || item.Width < 1 || item.Height < 1 || item.Cost < 0 || item.UnlockCost < 0 {
		return fmt.Errorf("%w: %s %q", ErrInvalidCatalog, item.Kind, item.ID)
	}
	if item.IsGrass && item.IsFarmland {
		return fmt.Errorf("%w: %q cannot be both grass and farmland", ErrInvalidCatalog, item.ID)
	}
	if item.Kind == KindBuilding && (item.IsGrass || item.IsFarmland || item.IsWater) {
		return fmt.Errorf("%w: building %q has landscape flags", ErrInvalidCatalog, item.ID)
	}
	target := c.buildings
	order := &c.buildingOrder
	if item.Kind == KindLandscape {
		target = c.landscapes
		order = &c.landscapeOrder
	}
	if _, dup := target[item.ID]; dup {
		return fmt.Errorf("%w: duplicate %s %q", ErrInvalidCatalog, item.Kind, item.ID)
	}
	target[item.ID] = item
	*order = append(*order, item.ID)
	return nil
}

func (c *Catalog) Crop(id string) (Crop, bool) {
	crop, ok := c.crops[id]
	return crop, ok
}

func (c *Catalog) Size(id string) (Size, bool) {
	size, ok := c.sizes[id]
	return size, ok
}

func (c *Catalog) Item(kind Kind, id string) (Item, bool) {
	switch kind {
	case KindBuilding:
		item, ok := c.buildings[id]
		return item, ok
	case KindLandscape:
		item, ok := c.landscapes[id]
		return item, ok
	}
	return Item{}, false
}

func (c *Catalog) Crops() []Crop {
	out := make([]Crop, 0, len(c.cropOrder))
	for _, id := range c.cropOrder {
		out = append(out, c.crops[id])
	}
	return out
}

func (c *Catalog) Sizes() []Size {
	out := make([]Size, 0, len(c.sizeOrder))
	for _, id := range c.sizeOrder {
		out = append(out, c.sizes[id])
	}
	return out
}

func (c *Catalog) Items(kind Kind) []Item {
	src, order := c.buildings, c.buildingOrder
	if kind == KindLandscape {
		src, order = c.landscapes, c.landscapeOrder
	}
	out := make([]Item, 0, len(order))
	for _, id := range order {
		out = append(out, src[id])
	}
	return out
}

// WaterItemIDs returns landscape ids that hydrate nearby farmland, sorted.
func (c *Catalog) WaterItemIDs() []string {
	out := make([]string, 0)
	for id, item := range c.landscapes {
		if item.IsWater {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
