package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	staticassets "tilefarm/internal/adapter/assets/static"
	"tilefarm/internal/app/action"
	"tilefarm/internal/app/auth"
	"tilefarm/internal/app/catalogview"
	"tilefarm/internal/app/game"
	"tilefarm/internal/app/history"
	"tilefarm/internal/app/ports"
	"tilefarm/schemas"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const playerIDHeader = "X-Player-ID"
const playerKeyHeader = "X-Player-Key"

type Handler struct {
	RegisterUC auth.RegisterUseCase
	AuthUC     auth.VerifyUseCase
	Game       *game.UseCase
	HistoryUC  history.UseCase
	CatalogUC  catalogview.UseCase
	KPI        kpiSnapshotProvider
	// Validator checks request bodies against the embedded schemas. Nil
	// skips schema checks and leaves validation to the use cases.
	Validator *Validator
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware())

	s.POST("/api/player/register", h.register)

	s.GET("/api/farm", h.state)
	farm := s.Group("/api/farm")
	farm.POST("/tap", h.tap)
	farm.POST("/hover", h.hover)
	farm.POST("/select", h.selectItem)
	farm.POST("/hud", h.hud)
	farm.POST("/unlock", h.unlock)
	farm.POST("/trade", h.trade)
	farm.GET("/export", h.export)
	farm.POST("/import", h.importSnapshot)
	farm.POST("/reset", h.reset)
	farm.GET("/history", h.history)

	s.GET("/api/catalog", h.catalog)
	s.GET("/assets/*filepath", h.asset)
	s.GET("/ops/kpi", h.kpi)
}

func (h Handler) register(c context.Context, ctx *app.RequestContext) {
	resp, err := h.RegisterUC.Execute(c, auth.RegisterRequest{})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, resp)
}

func (h Handler) state(c context.Context, ctx *app.RequestContext) {
	playerID, err := h.requireAuthenticatedPlayer(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	resp, err := h.Game.State(c, playerID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) tap(c context.Context, ctx *app.RequestContext) {
	playerID, err := h.requireAuthenticatedPlayer(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	var body game.TapRequest
	if !h.bind(ctx, schemas.Tap, &body) {
		return
	}
	resp, err := h.Game.Tap(c, playerID, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

type hoverResponse struct {
	Cells []action.Cell `json:"cells"`
}

func (h Handler) hover(c context.Context, ctx *app.RequestContext) {
	playerID, err := h.requireAuthenticatedPlayer(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	var body game.TapRequest
	if !h.bind(ctx, schemas.Tap, &body) {
		return
	}
	cells, err := h.Game.Hover(c, playerID, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, hoverResponse{Cells: cells})
}

func (h Handler) selectItem(c context.Context, ctx *app.RequestContext) {
	playerID, err := h.requireAuthenticatedPlayer(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	var body game.SelectRequest
	if !h.bind(ctx, schemas.Select, &body) {
		return
	}
	resp, err := h.Game.Select(c, playerID, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) hud(c context.Context, ctx *app.RequestContext) {
	playerID, err := h.requireAuthenticatedPlayer(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	var body game.HUDRequest
	if !h.bind(ctx, schemas.HUD, &body) {
		return
	}
	resp, err := h.Game.SetHUD(c, playerID, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) unlock(c context.Context, ctx *app.RequestContext) {
	playerID, err := h.requireAuthenticatedPlayer(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	var body game.UnlockRequest
	if !h.bind(ctx, schemas.Unlock, &body) {
		return
	}
	resp, err := h.Game.Unlock(c, playerID, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) trade(c context.Context, ctx *app.RequestContext) {
	playerID, err := h.requireAuthenticatedPlayer(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	var body game.TradeRequest
	if !h.bind(ctx, schemas.Trade, &body) {
		return
	}
	resp, err := h.Game.Trade(c, playerID, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) export(c context.Context, ctx *app.RequestContext) {
	playerID, err := h.requireAuthenticatedPlayer(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	b, err := h.Game.Export(c, playerID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", `attachment; filename="farm.json"`)
	ctx.Data(http.StatusOK, "application/json", b)
}

// importSnapshot takes the raw snapshot document as the request body. It is
// decoded leniently, so no schema check runs here.
func (h Handler) importSnapshot(c context.Context, ctx *app.RequestContext) {
	playerID, err := h.requireAuthenticatedPlayer(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	body := ctx.Request.Body()
	if len(body) == 0 {
		writeErrorBody(ctx, consts.StatusBadRequest, "empty_snapshot", "snapshot body is required")
		return
	}
	resp, err := h.Game.Import(c, playerID, body)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) reset(c context.Context, ctx *app.RequestContext) {
	playerID, err := h.requireAuthenticatedPlayer(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	resp, err := h.Game.Reset(c, playerID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) history(c context.Context, ctx *app.RequestContext) {
	playerID, err := h.requireAuthenticatedPlayer(c, ctx)
	if err != nil {
		writeError(ctx, err)
		return
	}
	limit, _ := strconv.Atoi(string(ctx.Query("limit")))
	occurredFrom, _ := strconv.ParseInt(string(ctx.Query("occurred_from")), 10, 64)
	occurredTo, _ := strconv.ParseInt(string(ctx.Query("occurred_to")), 10, 64)
	resp, err := h.HistoryUC.Execute(c, history.Request{
		PlayerID:     playerID,
		Limit:        limit,
		OccurredFrom: occurredFrom,
		OccurredTo:   occurredTo,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) catalog(c context.Context, ctx *app.RequestContext) {
	ctx.JSON(consts.StatusOK, h.CatalogUC.Index(c))
}

func (h Handler) asset(c context.Context, ctx *app.RequestContext) {
	path := strings.TrimPrefix(string(ctx.Param("filepath")), "/")
	if path == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_filepath", "invalid filepath")
		return
	}
	b, err := h.CatalogUC.Asset(c, path)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Data(http.StatusOK, http.DetectContentType(b), b)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

// bind validates the body against the named schema and decodes it into out.
// It writes the error response itself and reports whether to continue.
func (h Handler) bind(ctx *app.RequestContext, schema string, out any) bool {
	body := ctx.Request.Body()
	if h.Validator != nil {
		if err := h.Validator.Check(schema, body); err != nil {
			if errors.Is(err, errInvalidJSON) {
				writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
			} else {
				writeErrorBody(ctx, consts.StatusBadRequest, "invalid_body", err.Error())
			}
			return false
		}
	}
	if err := decodeJSON(ctx, out); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return false
	}
	return true
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

var ErrMissingPlayerIDHeader = errors.New("missing x-player-id header")
var ErrMissingPlayerKeyHeader = errors.New("missing x-player-key header")
var ErrMissingPlayerCredentials = errors.New("missing player credentials")

func (h Handler) requireAuthenticatedPlayer(c context.Context, ctx *app.RequestContext) (string, error) {
	playerID := strings.TrimSpace(string(ctx.GetHeader(playerIDHeader)))
	playerKey := strings.TrimSpace(string(ctx.GetHeader(playerKeyHeader)))
	if playerID == "" && playerKey == "" {
		return "", ErrMissingPlayerCredentials
	}
	if playerID == "" {
		return "", ErrMissingPlayerIDHeader
	}
	if playerKey == "" {
		return "", ErrMissingPlayerKeyHeader
	}
	if err := h.AuthUC.Execute(c, auth.VerifyRequest{
		PlayerID:  playerID,
		PlayerKey: playerKey,
	}); err != nil {
		return "", err
	}
	return playerID, nil
}

func writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, ErrMissingPlayerCredentials):
		writeErrorBody(ctx, consts.StatusBadRequest, "missing_player_credentials", err.Error())
	case errors.Is(err, ErrMissingPlayerIDHeader):
		writeErrorBody(ctx, consts.StatusBadRequest, "missing_player_id", err.Error())
	case errors.Is(err, ErrMissingPlayerKeyHeader):
		writeErrorBody(ctx, consts.StatusBadRequest, "missing_player_key", err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeErrorBody(ctx, consts.StatusUnauthorized, "invalid_player_credentials", err.Error())
	case errors.Is(err, game.ErrInvalidSnapshot):
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_snapshot", err.Error())
	case errors.Is(err, game.ErrInvalidRequest),
		errors.Is(err, auth.ErrInvalidRequest),
		errors.Is(err, history.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, staticassets.ErrInvalidAssetPath):
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_filepath", err.Error())
	case errors.Is(err, catalogview.ErrNoAssets):
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		hlog.Errorf("request failed: %v", err)
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
