package farm

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/grid"
)

var (
	ErrOutOfBounds  = errors.New("tile out of bounds")
	ErrOccupied     = errors.New("tile occupied")
	ErrNotFarmland  = errors.New("tile is not farmland")
	ErrNoStructure  = errors.New("no structure at key")
	ErrNoPlot       = errors.New("no plot at key")
	ErrInconsistent = errors.New("world invariant violated")
)

// World owns every grid collection. structureTiles is only written by
// PlaceStructure and RemoveStructure.
type World struct {
	bounds grid.Bounds

	filled         map[grid.Key]struct{}
	farmland       map[grid.Key]Hydration
	plots          map[grid.Key]Plot
	structures     map[grid.Key]Structure
	structureTiles map[grid.Key]grid.Key
	hydration      map[grid.Key]time.Time
}

func NewWorld(bounds grid.Bounds) *World {
	return &World{
		bounds:         bounds,
		filled:         make(map[grid.Key]struct{}),
		farmland:       make(map[grid.Key]Hydration),
		plots:          make(map[grid.Key]Plot),
		structures:     make(map[grid.Key]Structure),
		structureTiles: make(map[grid.Key]grid.Key),
		hydration:      make(map[grid.Key]time.Time),
	}
}

func (w *World) Bounds() grid.Bounds {
	return w.bounds
}

func (w *World) Clone() *World {
	out := NewWorld(w.bounds)
	for k := range w.filled {
		out.filled[k] = struct{}{}
	}
	for k, v := range w.farmland {
		out.farmland[k] = v
	}
	for k, v := range w.plots {
		out.plots[k] = v
	}
	for k, v := range w.structures {
		out.structures[k] = v
	}
	for k, v := range w.structureTiles {
		out.structureTiles[k] = v
	}
	for k, v := range w.hydration {
		out.hydration[k] = v
	}
	return out
}

// Farmland

func (w *World) IsFarmland(k grid.Key) bool {
	_, ok := w.filled[k]
	return ok
}

func (w *World) FarmlandCount() int {
	return len(w.filled)
}

func (w *World) Hydration(k grid.Key) Hydration {
	if h, ok := w.farmland[k]; ok {
		return h
	}
	return Dry
}

func (w *World) AddFarmland(row, col int) error {
	if !w.bounds.Contains(row, col) {
		return ErrOutOfBounds
	}
	k := grid.KeyOf(row, col)
	if _, ok := w.structureTiles[k]; ok {
		return ErrOccupied
	}
	w.filled[k] = struct{}{}
	return nil
}

// RemoveFarmland drops the tile from filled together with its hydration state
// and any pending hydration entry.
func (w *World) RemoveFarmland(k grid.Key) bool {
	if _, ok := w.filled[k]; !ok {
		return false
	}
	delete(w.filled, k)
	delete(w.farmland, k)
	delete(w.hydration, k)
	return true
}

func (w *World) Saturate(k grid.Key) error {
	if _, ok := w.filled[k]; !ok {
		return ErrNotFarmland
	}
	w.farmland[k] = Saturated
	delete(w.hydration, k)
	return nil
}

// Plots

func (w *World) PlotAt(k grid.Key) (Plot, bool) {
	p, ok := w.plots[k]
	return p, ok
}

func (w *World) PlotCount() int {
	return len(w.plots)
}

func (w *World) PlacePlot(k grid.Key, p Plot) error {
	if !w.bounds.ContainsKey(k) {
		return ErrOutOfBounds
	}
	if _, ok := w.filled[k]; !ok {
		return ErrNotFarmland
	}
	if _, ok := w.plots[k]; ok {
		return ErrOccupied
	}
	if _, ok := w.structureTiles[k]; ok {
		return ErrOccupied
	}
	w.plots[k] = p
	return nil
}

func (w *World) UpdatePlot(k grid.Key, p Plot) error {
	if _, ok := w.plots[k]; !ok {
		return ErrNoPlot
	}
	w.plots[k] = p
	return nil
}

func (w *World) RemovePlot(k grid.Key) (Plot, bool) {
	p, ok := w.plots[k]
	if ok {
		delete(w.plots, k)
	}
	return p, ok
}

// Structures

func (w *World) Structure(k grid.Key) (Structure, bool) {
	s, ok := w.structures[k]
	return s, ok
}

// StructureAt resolves any tile of a footprint to its owning structure.
func (w *World) StructureAt(row, col int) (Structure, bool) {
	owner, ok := w.structureTiles[grid.KeyOf(row, col)]
	if !ok {
		return Structure{}, false
	}
	s, ok := w.structures[owner]
	return s, ok
}

func (w *World) StructureCount() int {
	return len(w.structures)
}

// CanPlaceStructure reports whether the footprint is in bounds and free of
// plots and other structures. Farmland blocks unless allowFarmland is set.
// Tiles owned by ignore (a structure being replaced) count as free.
func (w *World) CanPlaceStructure(row, col, width, height int, allowFarmland bool, ignore grid.Key) bool {
	if !w.bounds.FootprintFits(row, col, width, height) {
		return false
	}
	for _, p := range grid.Footprint(row, col, width, height) {
		k := p.Key()
		if owner, ok := w.structureTiles[k]; ok && (ignore == "" || owner != ignore) {
			return false
		}
		if _, ok := w.plots[k]; ok {
			return false
		}
		if _, ok := w.filled[k]; ok && !allowFarmland {
			return false
		}
	}
	return true
}

// FarmlandUnder lists filled tiles inside a footprint, row-major.
func (w *World) FarmlandUnder(row, col, width, height int) []grid.Key {
	out := make([]grid.Key, 0)
	for _, p := range grid.Footprint(row, col, width, height) {
		if _, ok := w.filled[p.Key()]; ok {
			out = append(out, p.Key())
		}
	}
	return out
}

// PlaceStructure writes the structure and its whole footprint index. Farmland
// under the footprint must be cleared by the caller first.
func (w *World) PlaceStructure(s Structure) error {
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: kind %q", ErrInconsistent, s.Kind)
	}
	if !w.bounds.FootprintFits(s.Row, s.Col, s.Width, s.Height) {
		return ErrOutOfBounds
	}
	if !w.CanPlaceStructure(s.Row, s.Col, s.Width, s.Height, false, "") {
		return ErrOccupied
	}
	key := s.Key()
	w.structures[key] = s
	for _, p := range s.Footprint() {
		w.structureTiles[p.Key()] = key
	}
	return nil
}

func (w *World) RemoveStructure(k grid.Key) (Structure, error) {
	s, ok := w.structures[k]
	if !ok {
		return Structure{}, ErrNoStructure
	}
	for _, p := range s.Footprint() {
		if w.structureTiles[p.Key()] == k {
			delete(w.structureTiles, p.Key())
		}
	}
	delete(w.structures, k)
	return s, nil
}

// Ordered views, sorted by row then column.

func (w *World) FarmlandKeys() []grid.Key {
	out := make([]grid.Key, 0, len(w.filled))
	for k := range w.filled {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}

func (w *World) SaturatedKeys() []grid.Key {
	out := make([]grid.Key, 0)
	for k, h := range w.farmland {
		if h == Saturated {
			out = append(out, k)
		}
	}
	sortKeys(out)
	return out
}

type KeyedPlot struct {
	Key  grid.Key
	Plot Plot
}

func (w *World) Plots() []KeyedPlot {
	keys := make([]grid.Key, 0, len(w.plots))
	for k := range w.plots {
		keys = append(keys, k)
	}
	sortKeys(keys)
	out := make([]KeyedPlot, 0, len(keys))
	for _, k := range keys {
		out = append(out, KeyedPlot{Key: k, Plot: w.plots[k]})
	}
	return out
}

func (w *World) Structures() []Structure {
	keys := make([]grid.Key, 0, len(w.structures))
	for k := range w.structures {
		keys = append(keys, k)
	}
	sortKeys(keys)
	out := make([]Structure, 0, len(keys))
	for _, k := range keys {
		out = append(out, w.structures[k])
	}
	return out
}

func (w *World) StructuresOfKind(kind catalog.Kind) []Structure {
	out := make([]Structure, 0)
	for _, s := range w.Structures() {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks every cross-collection invariant.
func (w *World) Validate() error {
	for tile, owner := range w.structureTiles {
		s, ok := w.structures[owner]
		if !ok {
			return fmt.Errorf("%w: tile %s points at missing structure %s", ErrInconsistent, tile, owner)
		}
		r, c, _ := grid.ParseKey(tile)
		if !s.Covers(r, c) {
			return fmt.Errorf("%w: structure %s does not cover tile %s", ErrInconsistent, owner, tile)
		}
		if _, ok := w.plots[tile]; ok {
			return fmt.Errorf("%w: tile %s holds both a plot and a structure", ErrInconsistent, tile)
		}
	}
	for key, s := range w.structures {
		if key != s.Key() {
			return fmt.Errorf("%w: structure stored at %s has origin %s", ErrInconsistent, key, s.Key())
		}
		if !w.bounds.FootprintFits(s.Row, s.Col, s.Width, s.Height) {
			return fmt.Errorf("%w: structure %s footprint out of bounds", ErrInconsistent, key)
		}
		for _, p := range s.Footprint() {
			if w.structureTiles[p.Key()] != key {
				return fmt.Errorf("%w: structure %s footprint tile %s not indexed", ErrInconsistent, key, p.Key())
			}
		}
	}
	for k := range w.farmland {
		if _, ok := w.filled[k]; !ok {
			return fmt.Errorf("%w: hydration state on non-farmland %s", ErrInconsistent, k)
		}
	}
	for k := range w.hydration {
		if _, ok := w.filled[k]; !ok {
			return fmt.Errorf("%w: pending hydration on non-farmland %s", ErrInconsistent, k)
		}
	}
	for k := range w.filled {
		if !w.bounds.ContainsKey(k) {
			return fmt.Errorf("%w: farmland %s out of bounds", ErrInconsistent, k)
		}
		if _, ok := w.structureTiles[k]; ok {
			return fmt.Errorf("%w: farmland %s under a structure", ErrInconsistent, k)
		}
	}
	for k := range w.plots {
		if _, ok := w.filled[k]; !ok {
			return fmt.Errorf("%w: plot %s is not on farmland", ErrInconsistent, k)
		}
	}
	return nil
}

func sortKeys(keys []grid.Key) {
	sort.Slice(keys, func(i, j int) bool {
		ri, ci, _ := grid.ParseKey(keys[i])
		rj, cj, _ := grid.ParseKey(keys[j])
		if ri != rj {
			return ri < rj
		}
		return ci < cj
	})
}
