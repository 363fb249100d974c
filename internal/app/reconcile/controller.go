package reconcile

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"tgminer/internal/app/ports"
	"tgminer/internal/app/store"
	"tgminer/internal/domain/game"

	"github.com/rs/zerolog"
)

const (
	OpMine          = "mine"
	OpCollect       = "collect"
	OpSync          = "sync"
	OpRecoverEnergy = "recover_energy"
	OpRecoverHealth = "recover_health"
	OpGetUserData   = "get_user_data"
	OpUpgrade       = "upgrade"
	OpUpgradeStatus = "upgrade_status"
)

var ErrInvalidRequest = errors.New("invalid reconcile request")

type MiningSimulator interface {
	Start()
	Stop()
	Running() bool
}

// Controller applies authoritative server snapshots to the store and drives the
// mining simulator from the reported mining flag. Overlapping calls are not
// deduplicated; callers serialize their triggers.
type Controller struct {
	Game      ports.GameAPI
	Users     ports.UserAPI
	Upgrades  ports.UpgradeAPI
	Store     *store.Store
	Simulator MiningSimulator
	Metrics   ports.CallMetrics
	Journal   ports.DriftJournal
	Logger    zerolog.Logger
	Now       func() time.Time
}

func (c Controller) Mine(ctx context.Context) error {
	u, err := c.Game.StartMining(ctx)
	if err != nil {
		return c.fail(OpMine, err)
	}
	c.apply(OpMine, u)
	return nil
}

func (c Controller) Collect(ctx context.Context) (float64, error) {
	res, err := c.Game.Collect(ctx)
	if err != nil {
		return 0, c.fail(OpCollect, err)
	}
	c.apply(OpCollect, res.User)
	c.Logger.Info().Str("op", OpCollect).Float64("coins_collected", res.CoinsCollected).Msg("coins collected")
	return res.CoinsCollected, nil
}

func (c Controller) Sync(ctx context.Context) error {
	u, err := c.Game.Sync(ctx)
	if err != nil {
		return c.fail(OpSync, err)
	}
	c.apply(OpSync, u)
	return nil
}

// RecoverEnergy refills energy and immediately resumes mining.
func (c Controller) RecoverEnergy(ctx context.Context) error {
	u, err := c.Game.RecoverEnergy(ctx)
	if err != nil {
		return c.fail(OpRecoverEnergy, err)
	}
	c.apply(OpRecoverEnergy, u)
	return c.Mine(ctx)
}

// RecoverHealth refills health and immediately resumes mining.
func (c Controller) RecoverHealth(ctx context.Context) error {
	u, err := c.Game.RecoverHealth(ctx)
	if err != nil {
		return c.fail(OpRecoverHealth, err)
	}
	c.apply(OpRecoverHealth, u)
	return c.Mine(ctx)
}

func (c Controller) GetUserData(ctx context.Context) error {
	u, err := c.Users.CurrentUser(ctx)
	if err != nil {
		return c.fail(OpGetUserData, err)
	}
	c.apply(OpGetUserData, u)
	return nil
}

func (c Controller) Upgrade(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || c.Upgrades == nil {
		return ErrInvalidRequest
	}
	u, err := c.Upgrades.Upgrade(ctx, name)
	if err != nil {
		return c.fail(OpUpgrade, err)
	}
	c.apply(OpUpgrade, u)
	return nil
}

// UpgradeStatus lists upgrades without touching the store.
func (c Controller) UpgradeStatus(ctx context.Context) ([]ports.Upgrade, error) {
	if c.Upgrades == nil {
		return nil, ErrInvalidRequest
	}
	out, err := c.Upgrades.Status(ctx)
	if err != nil {
		return nil, c.fail(OpUpgradeStatus, err)
	}
	if c.Metrics != nil {
		c.Metrics.RecordSuccess(OpUpgradeStatus)
	}
	return out, nil
}

// Reconcile applies a snapshot that arrived outside a request, e.g. a realtime push.
func (c Controller) Reconcile(source string, u game.UserSnapshot) {
	c.apply(source, u)
}

func (c Controller) apply(op string, u game.UserSnapshot) {
	prev, hadLocal := c.Store.Current()
	c.recordDrift(op, prev, hadLocal, u)

	c.Store.Replace(u)
	if u.IsMining {
		c.Simulator.Start()
	} else {
		c.Simulator.Stop()
	}
	if c.Metrics != nil {
		c.Metrics.RecordSuccess(op)
	}
}

func (c Controller) fail(op string, err error) error {
	if c.Metrics != nil {
		c.Metrics.RecordFailure(op)
	}
	c.Logger.Warn().Str("op", op).Err(err).Msg("remote call failed")
	return err
}

func (c Controller) recordDrift(op string, prev game.UserSnapshot, hadLocal bool, next game.UserSnapshot) {
	rec := ports.DriftRecord{
		At:        c.now(),
		Source:    op,
		Predicted: prev.TempCoins,
		Server:    next.TempCoins,
		IsMining:  next.IsMining,
		HadLocal:  hadLocal,
	}
	if hadLocal {
		rec.Drift = next.TempCoins - prev.TempCoins
	}
	if hadLocal && math.Abs(rec.Drift) > 0 {
		c.Logger.Debug().Str("op", op).Float64("predicted", rec.Predicted).Float64("server", rec.Server).Msg("simulation drift")
	}
	if c.Journal == nil {
		return
	}
	if err := c.Journal.Record(rec); err != nil {
		c.Logger.Warn().Err(err).Msg("drift journal write failed")
	}
}

func (c Controller) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
