package action

import (
	"time"

	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/farm"
	"tilefarm/internal/domain/grid"
)

type Cell struct {
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Type    Type   `json:"type"`
}

// Outcome is one brush cell of an applied tap.
type Outcome struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Result Result `json:"result"`
}

// BrushSize is the N of the N x N tap for the mode: placement modes always use 1.
func BrushSize(mode farm.Mode, sel farm.Selection, st *farm.State, cat *catalog.Catalog) int {
	if mode.Placement() || mode == farm.ModeTrade {
		return 1
	}
	size, ok := cat.Size(sel.Size)
	if !ok || !st.Progress.Sizes[size.ID] {
		return 1
	}
	return size.N
}

// Apply resolves and executes every brush cell in row-major order, so each
// cell sees the money and limits left by the ones before it.
func (e Executor) Apply(in Input, brush int, st *farm.State) []Outcome {
	if in.Mode.Placement() {
		brush = 1
	}
	out := make([]Outcome, 0, brush*brush)
	for _, p := range grid.Brush(in.Row, in.Col, brush) {
		if !st.World.Bounds().Contains(p.Row, p.Col) {
			continue
		}
		cell := in
		cell.Row, cell.Col = p.Row, p.Col
		a := Resolve(cell, st, e.Catalog)
		out = append(out, Outcome{Row: p.Row, Col: p.Col, Result: e.Execute(st, p.Row, p.Col, a, in.Now)})
	}
	return out
}

// Preview reports which cells a tap would change, by applying it to a copy.
// st is never modified.
func (e Executor) Preview(in Input, brush int, st *farm.State) []Cell {
	if in.Mode.Placement() {
		return e.previewPlacement(in, st)
	}
	shadow := st.Clone()
	scratch := Executor{Catalog: e.Catalog, Jitter: zeroJitter}
	outcomes := scratch.Apply(in, brush, shadow)
	cells := make([]Cell, 0, len(outcomes))
	for _, o := range outcomes {
		cells = append(cells, Cell{
			Row:     o.Row,
			Col:     o.Col,
			Allowed: o.Result.Success,
			Reason:  o.Result.Reason,
			Type:    o.Result.Type,
		})
	}
	return cells
}

func (e Executor) previewPlacement(in Input, st *farm.State) []Cell {
	a := Resolve(in, st, e.Catalog)
	verdict := Cell{Allowed: Allowed(a), Reason: ReasonOf(a), Type: a.Type()}

	footprint := []grid.Point{{Row: in.Row, Col: in.Col}}
	switch act := a.(type) {
	case DestroyStructure:
		if s, ok := st.World.Structure(act.StructKey); ok {
			footprint = s.Footprint()
		}
	default:
		kind := in.Mode.ItemKind()
		if item, ok := e.Catalog.Item(kind, in.Selection.ItemKey(in.Mode)); ok && !item.IsGrass && !item.IsFarmland {
			footprint = grid.Footprint(in.Row, in.Col, item.Width, item.Height)
			if r, ok := a.(ReplaceLandscape); ok {
				if p, ok := r.OldKey.Point(); ok {
					footprint = grid.Footprint(p.Row, p.Col, item.Width, item.Height)
				}
			}
		}
	}
	cells := make([]Cell, 0, len(footprint))
	for _, p := range footprint {
		if !st.World.Bounds().Contains(p.Row, p.Col) {
			continue
		}
		c := verdict
		c.Row, c.Col = p.Row, p.Col
		cells = append(cells, c)
	}
	if len(cells) == 0 {
		verdict.Row, verdict.Col = in.Row, in.Col
		cells = append(cells, verdict)
	}
	return cells
}

func zeroJitter() time.Duration { return 0 }
