package savegame

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"

	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/farm"
	"tilefarm/internal/domain/grid"
)

var ErrNotObject = errors.New("snapshot is not a JSON object")

// Report lists what Decode threw away. Nothing in it is fatal.
type Report struct {
	Dropped []string
	// Reconciled is set when farmland_placed disagreed with the farmland set.
	Reconciled bool
}

func (r Report) Clean() bool {
	return len(r.Dropped) == 0 && !r.Reconciled
}

func (r *Report) drop(format string, args ...any) {
	r.Dropped = append(r.Dropped, fmt.Sprintf(format, args...))
}

// Decode rebuilds a session from untrusted snapshot bytes. Every field is
// optional; bad values fall back to defaults and bad entries are dropped.
func Decode(data []byte, cat *catalog.Catalog, bounds grid.Bounds) (*farm.State, Report, error) {
	var rep Report
	if !gjson.ValidBytes(data) {
		return nil, rep, ErrNotObject
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, rep, ErrNotObject
	}
	d := decoder{root: root, cat: cat, rep: &rep}
	st := &farm.State{
		World:    farm.NewWorld(bounds),
		Player:   farm.NewPlayer(cat, farm.StartingMoney),
		Progress: farm.NewProgress(cat),
	}

	if v := root.Get("version"); v.Exists() {
		if n, ok := integer(v); !ok || n < 1 {
			rep.drop("version: %s", v.Raw)
		} else if n > Version {
			rep.drop("version: %d is newer than %d, reading known fields only", n, Version)
		}
	}
	d.player(st.Player)
	d.progress(st.Progress)
	// Structures first: farmland and plots under them are the ones dropped.
	d.structures(st.World)
	d.farmland(st.World)
	d.plots(st.World)

	st.Progress.RecountCrops(st.World)
	rep.Reconciled = st.ReconcileFarmland()
	return st, rep, nil
}

// Load decodes and re-queues hydration around water, since pending
// transitions are not persisted.
func Load(data []byte, cat *catalog.Catalog, bounds grid.Bounds, now time.Time, jitter farm.Jitter) (*farm.State, Report, error) {
	st, rep, err := Decode(data, cat, bounds)
	if err != nil {
		return nil, rep, err
	}
	st.World.RescheduleHydration(cat, now, jitter)
	return st, rep, nil
}

type decoder struct {
	root gjson.Result
	cat  *catalog.Catalog
	rep  *Report
}

// get returns the field when present with the wanted type. A present field of
// the wrong type is reported.
func (d decoder) get(obj gjson.Result, path, name string, want gjson.Type) (gjson.Result, bool) {
	v := obj.Get(path)
	if !v.Exists() || v.Type == gjson.Null {
		return v, false
	}
	ok := v.Type == want
	if want == gjson.True || want == gjson.False {
		ok = v.Type == gjson.True || v.Type == gjson.False
	}
	if want == gjson.JSON {
		ok = v.IsObject()
	}
	if !ok {
		d.rep.drop("%s: unexpected %s", name, v.Type)
		return v, false
	}
	return v, true
}

func (d decoder) array(name string) (gjson.Result, bool) {
	v := d.root.Get(name)
	if !v.Exists() || v.Type == gjson.Null {
		return v, false
	}
	if !v.IsArray() {
		d.rep.drop("%s: not an array", name)
		return v, false
	}
	return v, true
}

func (d decoder) player(p *farm.Player) {
	if v, ok := d.get(d.root, "money", "money", gjson.Number); ok {
		if m, ok := number(v); ok && m >= 0 {
			p.Money = catalog.RoundCents(m)
		} else {
			d.rep.drop("money: %s", v.Raw)
		}
	}
	if v, ok := d.get(d.root, "stocks", "stocks", gjson.JSON); ok {
		p.Stocks = d.stocks(v)
	}
	if v, ok := d.get(d.root, "mode", "mode", gjson.String); ok {
		if m := farm.Mode(v.Str); m.Valid() {
			p.Mode = m
		} else {
			d.rep.drop("mode: %q", v.Str)
		}
	}
	if sel, ok := d.get(d.root, "selection", "selection", gjson.JSON); ok {
		d.selection(sel, &p.Selection)
	}
	if v, ok := d.get(d.root, "farmland_placed", "farmland_placed", gjson.Number); ok {
		if n, ok := integer(v); ok && n >= 0 {
			p.FarmlandPlaced = int(n)
		} else {
			d.rep.drop("farmland_placed: %s", v.Raw)
		}
	}
	if hud, ok := d.get(d.root, "hud", "hud", gjson.JSON); ok {
		for path, dst := range map[string]*bool{
			"show_floating_numbers": &p.HUD.ShowFloatingNumbers,
			"show_grid":             &p.HUD.ShowGrid,
			"compact_money":         &p.HUD.CompactMoney,
		} {
			if v, ok := d.get(hud, path, "hud."+path, gjson.True); ok {
				*dst = v.Bool()
			}
		}
	}
	p.UpdatedAt = d.timestamp("updated_at")
	p.PrevUpdatedAt = d.timestamp("prev_updated_at")
}

func (d decoder) timestamp(name string) int64 {
	v, ok := d.get(d.root, name, name, gjson.Number)
	if !ok {
		return 0
	}
	n, ok := integer(v)
	if !ok || n < 0 {
		d.rep.drop("%s: %s", name, v.Raw)
		return 0
	}
	return n
}

func (d decoder) stocks(obj gjson.Result) farm.Holdings {
	h := farm.Holdings{}
	obj.ForEach(func(sym, lots gjson.Result) bool {
		if !lots.IsArray() {
			d.rep.drop("stocks.%s: not an array", sym.String())
			return true
		}
		for i, lot := range lots.Array() {
			shares, okS := number(lot.Get("shares"))
			price, okP := number(lot.Get("price"))
			l := farm.Lot{Shares: shares, Price: price}
			if !lot.IsObject() || !okS || !okP || !l.Valid() {
				d.rep.drop("stocks.%s[%d]: invalid lot", sym.String(), i)
				continue
			}
			h[sym.String()] = append(h[sym.String()], l)
		}
		return true
	})
	return h.Sanitize()
}

func (d decoder) selection(obj gjson.Result, sel *farm.Selection) {
	if v, ok := d.get(obj, "crop", "selection.crop", gjson.String); ok {
		if _, known := d.cat.Crop(v.Str); known || v.Str == "" {
			sel.Crop = v.Str
		}
	}
	if v, ok := d.get(obj, "size", "selection.size", gjson.String); ok {
		if _, known := d.cat.Size(v.Str); known {
			sel.Size = v.Str
		}
	}
	if v, ok := d.get(obj, "build", "selection.build", gjson.String); ok {
		if d.selectable(catalog.KindBuilding, v.Str) {
			sel.Build = v.Str
		}
	}
	if v, ok := d.get(obj, "landscape", "selection.landscape", gjson.String); ok {
		if d.selectable(catalog.KindLandscape, v.Str) {
			sel.Landscape = v.Str
		}
	}
}

func (d decoder) selectable(kind catalog.Kind, id string) bool {
	if id == "" || farm.IsRemoveSentinel(id) {
		return true
	}
	_, ok := d.cat.Item(kind, id)
	return ok
}

func (d decoder) progress(p *farm.Progress) {
	d.flags("crops", func(id string, on bool) {
		crop, ok := d.cat.Crop(id)
		if !ok {
			return
		}
		c := p.Crops[id]
		c.Unlocked = on || crop.StartsUnlocked
		p.Crops[id] = c
	})
	if obj, ok := d.get(d.root, "crop_limits", "crop_limits", gjson.JSON); ok {
		obj.ForEach(func(id, v gjson.Result) bool {
			c, known := p.Crops[id.String()]
			if !known {
				return true
			}
			n, ok := integer(v)
			if !ok || n < catalog.Unlimited || n > math.MaxInt32 {
				d.rep.drop("crop_limits.%s: %s", id.String(), v.Raw)
				return true
			}
			c.Limit = int(n)
			p.Crops[id.String()] = c
			return true
		})
	}
	d.flags("sizes", func(id string, on bool) {
		if size, ok := d.cat.Size(id); ok {
			p.Sizes[id] = on || size.StartsUnlocked
		}
	})
	d.flags("buildings", func(id string, on bool) {
		if item, ok := d.cat.Item(catalog.KindBuilding, id); ok {
			p.Buildings[id] = on || item.StartsUnlocked
		}
	})
	d.flags("landscapes", func(id string, on bool) {
		if item, ok := d.cat.Item(catalog.KindLandscape, id); ok {
			p.Landscapes[id] = on || item.StartsUnlocked
		}
	})
}

func (d decoder) flags(name string, set func(id string, on bool)) {
	obj, ok := d.get(d.root, name, name, gjson.JSON)
	if !ok {
		return
	}
	obj.ForEach(func(id, v gjson.Result) bool {
		if v.Type != gjson.True && v.Type != gjson.False {
			d.rep.drop("%s.%s: %s", name, id.String(), v.Raw)
			return true
		}
		set(id.String(), v.Bool())
		return true
	})
}

func (d decoder) structures(w *farm.World) {
	arr, ok := d.array("structures")
	if !ok {
		return
	}
	for i, entry := range arr.Array() {
		s, why := d.structure(entry, w.Bounds())
		if why != "" {
			d.rep.drop("structures[%d]: %s", i, why)
			continue
		}
		if err := w.PlaceStructure(s); err != nil {
			d.rep.drop("structures[%d]: %v", i, err)
		}
	}
}

func (d decoder) structure(entry gjson.Result, bounds grid.Bounds) (farm.Structure, string) {
	key := entry.Get("key")
	v := entry.Get("value")
	if key.Type != gjson.String || !v.IsObject() {
		return farm.Structure{}, "malformed entry"
	}
	kind := catalog.Kind(v.Get("kind").String())
	if !kind.Valid() {
		return farm.Structure{}, "unknown kind"
	}
	item, ok := d.cat.Item(kind, v.Get("id").String())
	if !ok || item.IsGrass || item.IsFarmland {
		return farm.Structure{}, "unknown item"
	}
	row, okR := integer(v.Get("row"))
	col, okC := integer(v.Get("col"))
	if !okR || !okC {
		return farm.Structure{}, "bad origin"
	}
	s := farm.NewStructure(item, int(row), int(col))
	if grid.Key(key.Str) != s.Key() {
		return farm.Structure{}, "key does not match origin"
	}
	for path, want := range map[string]int{"width": item.Width, "height": item.Height} {
		if f := v.Get(path); f.Exists() {
			if n, ok := integer(f); !ok || int(n) != want {
				return farm.Structure{}, "footprint does not match " + item.ID
			}
		}
	}
	if !bounds.FootprintFits(s.Row, s.Col, s.Width, s.Height) {
		return farm.Structure{}, "footprint out of bounds"
	}
	if c := v.Get("cost"); c.Exists() {
		cost, ok := number(c)
		if !ok || cost < 0 {
			return farm.Structure{}, "bad cost"
		}
		// Refunds pay what was paid, even if the catalog price moved.
		s.Cost = catalog.RoundCents(cost)
	}
	return s, ""
}

func (d decoder) keys(name string, fn func(i int, k grid.Key, row, col int)) {
	arr, ok := d.array(name)
	if !ok {
		return
	}
	for i, v := range arr.Array() {
		if v.Type != gjson.String {
			d.rep.drop("%s[%d]: not a key", name, i)
			continue
		}
		k := grid.Key(v.Str)
		row, col, ok := grid.ParseKey(k)
		if !ok {
			d.rep.drop("%s[%d]: bad key %q", name, i, v.Str)
			continue
		}
		fn(i, k, row, col)
	}
}

func (d decoder) farmland(w *farm.World) {
	d.keys("filled", func(i int, k grid.Key, row, col int) {
		if err := w.AddFarmland(row, col); err != nil {
			d.rep.drop("filled[%d] %s: %v", i, k, err)
		}
	})
	d.keys("saturated", func(i int, k grid.Key, _, _ int) {
		if err := w.Saturate(k); err != nil {
			d.rep.drop("saturated[%d] %s: %v", i, k, err)
		}
	})
}

func (d decoder) plots(w *farm.World) {
	arr, ok := d.array("plots")
	if !ok {
		return
	}
	for i, entry := range arr.Array() {
		key := entry.Get("key")
		v := entry.Get("value")
		if key.Type != gjson.String || !v.IsObject() {
			d.rep.drop("plots[%d]: malformed entry", i)
			continue
		}
		crop, ok := d.cat.Crop(v.Get("crop_id").String())
		if !ok {
			d.rep.drop("plots[%d]: unknown crop", i)
			continue
		}
		planted, ok := integer(v.Get("planted_at"))
		if !ok || planted <= 0 {
			d.rep.drop("plots[%d]: bad planted_at", i)
			continue
		}
		plot := farm.Plot{CropID: v.Get("crop_id").Str, PlantedAt: time.UnixMilli(planted)}
		if g := v.Get("grow_time_ms"); g.Exists() {
			// Hydration only ever shortens a crop's grow time.
			ms, ok := integer(g)
			if !ok || ms < 0 || ms > farm.BaseGrowTime(crop).Milliseconds() {
				d.rep.drop("plots[%d]: bad grow_time_ms", i)
				continue
			}
			plot.GrowTime = time.Duration(ms) * time.Millisecond
		}
		plot.Hydrated = v.Get("hydrated").Type == gjson.True
		if err := w.PlacePlot(grid.Key(key.Str), plot); err != nil {
			d.rep.drop("plots[%d] %s: %v", i, key.Str, err)
		}
	}
}

func number(v gjson.Result) (float64, bool) {
	if v.Type != gjson.Number || math.IsNaN(v.Num) || math.IsInf(v.Num, 0) {
		return 0, false
	}
	return v.Num, true
}

// integer accepts only whole numbers that survive a float64 round trip.
func integer(v gjson.Result) (int64, bool) {
	f, ok := number(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}
