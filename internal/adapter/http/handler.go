package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"tgminer/internal/adapter/realtime"
	"tgminer/internal/app/auth"
	"tgminer/internal/app/autopilot"
	"tgminer/internal/app/boxgame"
	"tgminer/internal/app/orchestrator"
	"tgminer/internal/app/ports"
	"tgminer/internal/app/reconcile"
	"tgminer/internal/app/season"
	"tgminer/internal/app/session"
	"tgminer/internal/app/spinwheel"
	"tgminer/internal/app/store"
	"tgminer/internal/app/uistate"
	"tgminer/internal/domain/game"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
)

const defaultDriftLimit = 50

var ErrBadRequest = errors.New("bad request")

type GameController interface {
	Mine(ctx context.Context) error
	Collect(ctx context.Context) (float64, error)
	Sync(ctx context.Context) error
	RecoverEnergy(ctx context.Context) error
	RecoverHealth(ctx context.Context) error
	GetUserData(ctx context.Context) error
	Upgrade(ctx context.Context, name string) error
	UpgradeStatus(ctx context.Context) ([]ports.Upgrade, error)
}

type SpinWheel interface {
	State() spinwheel.State
	FetchStatus(ctx context.Context) error
	Spin(ctx context.Context) (*ports.SpinResult, error)
}

type BoxGame interface {
	State() boxgame.State
	Init(ctx context.Context) error
	PayWithCoins(ctx context.Context) error
	OpenCard(cardID int) bool
	ClaimRewards(ctx context.Context) (bool, error)
	RequestInvoice(ctx context.Context) error
	HandleInvoiceStatus(ctx context.Context, status string) error
}

type SeasonClock interface {
	State() season.State
}

type AutopilotStepper interface {
	Step(ctx context.Context) (autopilot.StepReport, error)
}

type DriftSource interface {
	Recent(n int) []ports.DriftRecord
}

type RealtimeStatus interface {
	Status() realtime.Status
}

type Logout interface {
	Execute(ctx context.Context) error
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

// Handler is the local control surface over the client core. Nil components
// answer 404 not_configured.
type Handler struct {
	Game      GameController
	Store     *store.Store
	Mining    reconcile.MiningSimulator
	SpinWheel SpinWheel
	Box       BoxGame
	Season    SeasonClock
	Loader    *uistate.Loader
	Music     *uistate.Music
	Autopilot AutopilotStepper
	Drift     DriftSource
	Realtime  RealtimeStatus
	LogoutUC  Logout
	KPI       kpiSnapshotProvider
	Logger    zerolog.Logger

	AllowOrigin string
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsPolicy{origin: h.AllowOrigin}.middleware())

	api := s.Group("/api")
	api.GET("/state", h.state)
	api.POST("/user/refresh", h.refreshUser)
	api.POST("/auth/logout", h.logout)
	api.GET("/season", h.season)

	g := api.Group("/game")
	g.POST("/mine", h.gameCall(h.mine))
	g.POST("/sync", h.gameCall(h.sync))
	g.POST("/recover-energy", h.gameCall(h.recoverEnergy))
	g.POST("/recover-health", h.gameCall(h.recoverHealth))
	g.POST("/collect", h.collect)

	api.GET("/upgrades", h.upgradeStatus)
	api.POST("/upgrades/:name", h.upgrade)

	api.GET("/spin-wheel", h.spinStatus)
	api.POST("/spin-wheel/spin", h.spin)

	api.GET("/box", h.boxState)
	box := api.Group("/box")
	box.POST("/init", h.boxInit)
	box.POST("/pay", h.boxPay)
	box.POST("/open/:id", h.boxOpen)
	box.POST("/claim", h.boxClaim)
	box.POST("/invoice", h.boxInvoice)
	box.POST("/invoice-status", h.boxInvoiceStatus)

	api.POST("/autopilot/step", h.autopilotStep)
	api.GET("/ui/loader", h.loader)
	api.POST("/ui/music/toggle", h.musicToggle)

	s.GET("/ops/kpi", h.kpi)
	s.GET("/ops/drift", h.drift)
}

type stateResponse struct {
	User      *game.UserSnapshot   `json:"user"`
	Version   uint64               `json:"version"`
	Mining    bool                 `json:"mining"`
	SpinWheel *spinwheel.State     `json:"spin_wheel,omitempty"`
	Box       *boxgame.State       `json:"box,omitempty"`
	Season    *season.State        `json:"season,omitempty"`
	Loader    *uistate.LoaderState `json:"loader,omitempty"`
	Music     *uistate.MusicState  `json:"music,omitempty"`
	Realtime  *realtime.Status     `json:"realtime,omitempty"`
}

func (h Handler) state(_ context.Context, ctx *app.RequestContext) {
	resp := stateResponse{User: h.currentUser()}
	if h.Store != nil {
		resp.Version = h.Store.Version()
	}
	if h.Mining != nil {
		resp.Mining = h.Mining.Running()
	}
	if h.SpinWheel != nil {
		st := h.SpinWheel.State()
		resp.SpinWheel = &st
	}
	if h.Box != nil {
		st := h.Box.State()
		resp.Box = &st
	}
	if h.Season != nil {
		st := h.Season.State()
		resp.Season = &st
	}
	if h.Loader != nil {
		st := h.Loader.State()
		resp.Loader = &st
	}
	if h.Music != nil {
		st := h.Music.State()
		resp.Music = &st
	}
	if h.Realtime != nil {
		st := h.Realtime.Status()
		resp.Realtime = &st
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) mine(c context.Context) error { return h.Game.Mine(c) }
func (h Handler) sync(c context.Context) error { return h.Game.Sync(c) }
func (h Handler) recoverEnergy(c context.Context) error { return h.Game.RecoverEnergy(c) }
func (h Handler) recoverHealth(c context.Context) error { return h.Game.RecoverHealth(c) }

// gameCall runs a controller action and answers with the reconciled user.
func (h Handler) gameCall(fn func(context.Context) error) app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		if h.Game == nil {
			writeNotConfigured(ctx, "game")
			return
		}
		if err := fn(c); err != nil {
			h.writeError(ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, map[string]any{"user": h.currentUser()})
	}
}

func (h Handler) collect(c context.Context, ctx *app.RequestContext) {
	if h.Game == nil {
		writeNotConfigured(ctx, "game")
		return
	}
	coins, err := h.Game.Collect(c)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"coins_collected": coins,
		"user":            h.currentUser(),
	})
}

func (h Handler) refreshUser(c context.Context, ctx *app.RequestContext) {
	h.gameCall(func(c context.Context) error { return h.Game.GetUserData(c) })(c, ctx)
}

func (h Handler) upgradeStatus(c context.Context, ctx *app.RequestContext) {
	if h.Game == nil {
		writeNotConfigured(ctx, "game")
		return
	}
	ups, err := h.Game.UpgradeStatus(c)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	if ups == nil {
		ups = []ports.Upgrade{}
	}
	ctx.JSON(consts.StatusOK, map[string]any{"upgrades": ups})
}

func (h Handler) upgrade(c context.Context, ctx *app.RequestContext) {
	name := strings.TrimSpace(ctx.Param("name"))
	h.gameCall(func(c context.Context) error { return h.Game.Upgrade(c, name) })(c, ctx)
}

func (h Handler) spinStatus(c context.Context, ctx *app.RequestContext) {
	if h.SpinWheel == nil {
		writeNotConfigured(ctx, "spin_wheel")
		return
	}
	if string(ctx.Query("refresh")) == "1" {
		if err := h.SpinWheel.FetchStatus(c); err != nil {
			h.writeError(ctx, err)
			return
		}
	}
	ctx.JSON(consts.StatusOK, h.SpinWheel.State())
}

func (h Handler) spin(c context.Context, ctx *app.RequestContext) {
	if h.SpinWheel == nil {
		writeNotConfigured(ctx, "spin_wheel")
		return
	}
	res, err := h.SpinWheel.Spin(c)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{
		"spun":       res != nil,
		"result":     res,
		"spin_wheel": h.SpinWheel.State(),
	})
}

func (h Handler) boxState(_ context.Context, ctx *app.RequestContext) {
	if h.Box == nil {
		writeNotConfigured(ctx, "box")
		return
	}
	ctx.JSON(consts.StatusOK, h.Box.State())
}

func (h Handler) boxInit(c context.Context, ctx *app.RequestContext) {
	h.boxCall(ctx, func() error { return h.Box.Init(c) })
}

func (h Handler) boxPay(c context.Context, ctx *app.RequestContext) {
	h.boxCall(ctx, func() error { return h.Box.PayWithCoins(c) })
}

func (h Handler) boxInvoice(c context.Context, ctx *app.RequestContext) {
	h.boxCall(ctx, func() error { return h.Box.RequestInvoice(c) })
}

type invoiceStatusRequest struct {
	Status string `json:"status"`
}

func (h Handler) boxInvoiceStatus(c context.Context, ctx *app.RequestContext) {
	var body invoiceStatusRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	status := strings.ToLower(strings.TrimSpace(body.Status))
	if status == "" {
		h.writeError(ctx, errors.Join(ErrBadRequest, errors.New("status is required")))
		return
	}
	h.boxCall(ctx, func() error { return h.Box.HandleInvoiceStatus(c, status) })
}

func (h Handler) boxOpen(_ context.Context, ctx *app.RequestContext) {
	if h.Box == nil {
		writeNotConfigured(ctx, "box")
		return
	}
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_card_id", "card id must be a positive integer")
		return
	}
	opened := h.Box.OpenCard(id)
	ctx.JSON(consts.StatusOK, map[string]any{"opened": opened, "box": h.Box.State()})
}

func (h Handler) boxClaim(c context.Context, ctx *app.RequestContext) {
	if h.Box == nil {
		writeNotConfigured(ctx, "box")
		return
	}
	claimed, err := h.Box.ClaimRewards(c)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"claimed": claimed, "box": h.Box.State()})
}

func (h Handler) boxCall(ctx *app.RequestContext, fn func() error) {
	if h.Box == nil {
		writeNotConfigured(ctx, "box")
		return
	}
	if err := fn(); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, h.Box.State())
}

func (h Handler) season(_ context.Context, ctx *app.RequestContext) {
	if h.Season == nil {
		writeNotConfigured(ctx, "season")
		return
	}
	ctx.JSON(consts.StatusOK, h.Season.State())
}

func (h Handler) autopilotStep(c context.Context, ctx *app.RequestContext) {
	if h.Autopilot == nil {
		writeNotConfigured(ctx, "autopilot")
		return
	}
	rep, err := h.Autopilot.Step(c)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, rep)
}

func (h Handler) loader(_ context.Context, ctx *app.RequestContext) {
	if h.Loader == nil {
		writeNotConfigured(ctx, "loader")
		return
	}
	ctx.JSON(consts.StatusOK, h.Loader.State())
}

func (h Handler) musicToggle(_ context.Context, ctx *app.RequestContext) {
	if h.Music == nil {
		writeNotConfigured(ctx, "music")
		return
	}
	h.Music.Toggle()
	ctx.JSON(consts.StatusOK, h.Music.State())
}

func (h Handler) logout(c context.Context, ctx *app.RequestContext) {
	if h.LogoutUC == nil {
		writeNotConfigured(ctx, "logout")
		return
	}
	if err := h.LogoutUC.Execute(c); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, map[string]any{"logged_out": true})
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeNotConfigured(ctx, "kpi")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func (h Handler) drift(_ context.Context, ctx *app.RequestContext) {
	if h.Drift == nil {
		writeNotConfigured(ctx, "drift")
		return
	}
	limit := defaultDriftLimit
	if raw := string(ctx.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeErrorBody(ctx, consts.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}
	recs := h.Drift.Recent(limit)
	if recs == nil {
		recs = []ports.DriftRecord{}
	}
	ctx.JSON(consts.StatusOK, map[string]any{"records": recs})
}

func (h Handler) currentUser() *game.UserSnapshot {
	if h.Store == nil {
		return nil
	}
	u, ok := h.Store.Current()
	if !ok {
		return nil
	}
	return &u
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func (h Handler) writeError(ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, ports.ErrUnauthorized), errors.Is(err, session.ErrNoSession):
		writeErrorBody(ctx, consts.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, auth.ErrAuthMissing):
		writeErrorBody(ctx, consts.StatusUnauthorized, "auth_missing", err.Error())
	case errors.Is(err, ports.ErrRemoteCall):
		msg := ports.RemoteMessage(err)
		if msg == "" {
			msg = err.Error()
		}
		writeErrorBody(ctx, consts.StatusBadGateway, "remote_call_failed", msg)
	case errors.Is(err, boxgame.ErrNoInvoice):
		writeErrorBody(ctx, consts.StatusBadGateway, "no_invoice", err.Error())
	case errors.Is(err, orchestrator.ErrConfiguration):
		writeErrorBody(ctx, consts.StatusConflict, "autopilot_misconfigured", err.Error())
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, reconcile.ErrInvalidRequest),
		errors.Is(err, auth.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeErrorBody(ctx, consts.StatusGatewayTimeout, "timeout", err.Error())
	default:
		h.Logger.Error().Err(err).Msg("control request failed")
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeNotConfigured(ctx *app.RequestContext, what string) {
	writeErrorBody(ctx, consts.StatusNotFound, "not_configured", what+" not configured")
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
