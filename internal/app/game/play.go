package game

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"tilefarm/internal/app/action"
	"tilefarm/internal/app/ports"
	"tilefarm/internal/domain/catalog"
	"tilefarm/internal/domain/farm"
)

type TapRequest struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type TapResponse struct {
	Outcomes []action.Outcome `json:"outcomes"`
	State    View             `json:"state"`
}

// Tap applies the current mode and selection to the brush around (row, col).
func (u *UseCase) Tap(ctx context.Context, playerID string, req TapRequest) (TapResponse, error) {
	s, err := u.acquire(ctx, playerID)
	if err != nil {
		return TapResponse{}, err
	}
	defer s.mu.Unlock()

	now := u.deps.Now()
	u.advance(s, now)
	p := s.st.Player
	in := action.Input{Row: req.Row, Col: req.Col, Mode: p.Mode, Selection: p.Selection, Now: now}
	brush := action.BrushSize(p.Mode, p.Selection, s.st, u.deps.Catalog)
	outcomes := u.exec.Apply(in, brush, s.st)

	var (
		changed bool
		effects []action.Effect
		events  []ports.EventRecord
	)
	for _, o := range outcomes {
		kind := string(o.Result.Type)
		if !o.Result.Success {
			u.metric(func(m ports.ActionMetrics) { m.RecordRejected(kind) })
			continue
		}
		changed = true
		u.metric(func(m ports.ActionMetrics) { m.RecordSuccess(kind) })
		effects = append(effects, o.Result.Effects...)
		payload := map[string]any{"row": o.Row, "col": o.Col}
		if v := effectTotal(o.Result.Effects); v != 0 {
			payload["value"] = v
		}
		if len(o.Result.Hydrating) > 0 {
			payload["hydrating"] = len(o.Result.Hydrating)
		}
		events = append(events, ports.EventRecord{Type: kind, OccurredAt: now, Payload: payload})
	}

	if !changed {
		return TapResponse{Outcomes: outcomes, State: u.view(s, now)}, nil
	}
	u.check(s)
	u.persist(ctx, s, now)
	u.record(ctx, s.id, now, events...)
	if len(effects) > 0 {
		u.publish(s.id, ports.NoticeEffects, now, effects)
	}
	v := u.view(s, now)
	u.publish(s.id, ports.NoticeState, now, v)
	return TapResponse{Outcomes: outcomes, State: v}, nil
}

// Hover previews a tap without changing anything.
func (u *UseCase) Hover(ctx context.Context, playerID string, req TapRequest) ([]action.Cell, error) {
	s, err := u.acquire(ctx, playerID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	now := u.deps.Now()
	u.advance(s, now)
	p := s.st.Player
	in := action.Input{Row: req.Row, Col: req.Col, Mode: p.Mode, Selection: p.Selection, Now: now}
	return u.exec.Preview(in, action.BrushSize(p.Mode, p.Selection, s.st, u.deps.Catalog), s.st), nil
}

// SelectRequest changes the mode or any of the selections. Nil fields are
// left alone.
type SelectRequest struct {
	Mode      *farm.Mode `json:"mode,omitempty"`
	Crop      *string    `json:"crop,omitempty"`
	Size      *string    `json:"size,omitempty"`
	Build     *string    `json:"build,omitempty"`
	Landscape *string    `json:"landscape,omitempty"`
}

func (u *UseCase) Select(ctx context.Context, playerID string, req SelectRequest) (View, error) {
	if err := u.validateSelect(req); err != nil {
		return View{}, err
	}
	s, err := u.acquire(ctx, playerID)
	if err != nil {
		return View{}, err
	}
	defer s.mu.Unlock()

	p := s.st.Player
	if req.Mode != nil {
		p.Mode = *req.Mode
	}
	if req.Crop != nil {
		p.Selection.Crop = *req.Crop
	}
	if req.Size != nil {
		p.Selection.Size = *req.Size
	}
	if req.Build != nil {
		p.Selection.Build = *req.Build
	}
	if req.Landscape != nil {
		p.Selection.Landscape = *req.Landscape
	}
	now := u.deps.Now()
	s.markDirty(now)
	return u.view(s, now), nil
}

func (u *UseCase) validateSelect(req SelectRequest) error {
	cat := u.deps.Catalog
	if req.Mode != nil && !req.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, *req.Mode)
	}
	if req.Crop != nil && *req.Crop != "" {
		if _, ok := cat.Crop(*req.Crop); !ok {
			return fmt.Errorf("%w: unknown crop %q", ErrInvalidRequest, *req.Crop)
		}
	}
	if req.Size != nil {
		if _, ok := cat.Size(*req.Size); !ok {
			return fmt.Errorf("%w: unknown size %q", ErrInvalidRequest, *req.Size)
		}
	}
	if err := validateItem(cat, catalog.KindBuilding, req.Build); err != nil {
		return err
	}
	return validateItem(cat, catalog.KindLandscape, req.Landscape)
}

func validateItem(cat *catalog.Catalog, kind catalog.Kind, id *string) error {
	if id == nil || *id == "" || farm.IsRemoveSentinel(*id) {
		return nil
	}
	if _, ok := cat.Item(kind, *id); !ok {
		return fmt.Errorf("%w: unknown %s %q", ErrInvalidRequest, kind, *id)
	}
	return nil
}

type HUDRequest struct {
	ShowFloatingNumbers *bool `json:"show_floating_numbers,omitempty"`
	ShowGrid            *bool `json:"show_grid,omitempty"`
	CompactMoney        *bool `json:"compact_money,omitempty"`
}

func (u *UseCase) SetHUD(ctx context.Context, playerID string, req HUDRequest) (View, error) {
	s, err := u.acquire(ctx, playerID)
	if err != nil {
		return View{}, err
	}
	defer s.mu.Unlock()

	hud := &s.st.Player.HUD
	if req.ShowFloatingNumbers != nil {
		hud.ShowFloatingNumbers = *req.ShowFloatingNumbers
	}
	if req.ShowGrid != nil {
		hud.ShowGrid = *req.ShowGrid
	}
	if req.CompactMoney != nil {
		hud.CompactMoney = *req.CompactMoney
	}
	now := u.deps.Now()
	s.markDirty(now)
	return u.view(s, now), nil
}

type UnlockRequest struct {
	Kind action.UnlockKind `json:"kind"`
	ID   string            `json:"id"`
}

type UnlockResponse struct {
	Result action.UnlockResult `json:"result"`
	State  View                `json:"state"`
}

func (u *UseCase) Unlock(ctx context.Context, playerID string, req UnlockRequest) (UnlockResponse, error) {
	if !req.Kind.Valid() {
		return UnlockResponse{}, fmt.Errorf("%w: unknown unlock kind %q", ErrInvalidRequest, req.Kind)
	}
	s, err := u.acquire(ctx, playerID)
	if err != nil {
		return UnlockResponse{}, err
	}
	defer s.mu.Unlock()

	now := u.deps.Now()
	res := u.exec.Unlock(s.st, req.Kind, strings.TrimSpace(req.ID))
	kind := "unlock_" + string(req.Kind)
	if !res.Success {
		u.metric(func(m ports.ActionMetrics) { m.RecordRejected(kind) })
		return UnlockResponse{Result: res, State: u.view(s, now)}, nil
	}
	u.metric(func(m ports.ActionMetrics) { m.RecordSuccess(kind) })
	u.check(s)
	u.persist(ctx, s, now)
	u.record(ctx, s.id, now, ports.EventRecord{Type: kind, Payload: map[string]any{"id": req.ID, "cost": res.Cost}})
	v := u.view(s, now)
	u.publish(s.id, ports.NoticeState, now, v)
	return UnlockResponse{Result: res, State: v}, nil
}

type TradeRequest struct {
	Side   action.TradeSide `json:"side"`
	Symbol string           `json:"symbol"`
	Shares float64          `json:"shares"`
}

type TradeResponse struct {
	Result action.TradeResult `json:"result"`
	Price  float64            `json:"price,omitempty"`
	State  View               `json:"state"`
}

// Trade fills an order at the price feed's current quote.
func (u *UseCase) Trade(ctx context.Context, playerID string, req TradeRequest) (TradeResponse, error) {
	if req.Side != action.TradeBuy && req.Side != action.TradeSell {
		return TradeResponse{}, fmt.Errorf("%w: unknown trade side %q", ErrInvalidRequest, req.Side)
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	price, err := u.quote(ctx, symbol)
	if err != nil {
		return TradeResponse{}, err
	}
	s, err := u.acquire(ctx, playerID)
	if err != nil {
		return TradeResponse{}, err
	}
	defer s.mu.Unlock()

	now := u.deps.Now()
	res := u.exec.Trade(s.st, req.Side, symbol, req.Shares, price)
	kind := "trade_" + string(req.Side)
	if !res.Success {
		u.metric(func(m ports.ActionMetrics) { m.RecordRejected(kind) })
		return TradeResponse{Result: res, Price: price, State: u.view(s, now)}, nil
	}
	u.metric(func(m ports.ActionMetrics) { m.RecordSuccess(kind) })
	u.persist(ctx, s, now)
	u.record(ctx, s.id, now, ports.EventRecord{Type: kind, Payload: map[string]any{
		"symbol": symbol, "shares": res.Shares, "total": res.Total,
	}})
	v := u.view(s, now)
	u.publish(s.id, ports.NoticeState, now, v)
	return TradeResponse{Result: res, Price: price, State: v}, nil
}

// quote returns 0 when no price is known so the executor reports it.
func (u *UseCase) quote(ctx context.Context, symbol string) (float64, error) {
	if u.deps.Prices == nil || symbol == "" {
		return 0, nil
	}
	price, err := u.deps.Prices.Price(ctx, symbol)
	if errors.Is(err, ports.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if math.IsNaN(price) {
		return 0, nil
	}
	return price, nil
}

func effectTotal(effects []action.Effect) float64 {
	var sum float64
	for _, e := range effects {
		sum += e.Value
	}
	return catalog.RoundCents(sum)
}
