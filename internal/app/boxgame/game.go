package boxgame

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"tgminer/internal/app/ports"
	"tgminer/internal/domain/game"

	"github.com/rs/zerolog"
)

var ErrNoInvoice = errors.New("no invoice link")

// Invoice statuses reported by the Telegram payment sheet.
const (
	InvoicePaid      = "paid"
	InvoiceFailed    = "failed"
	InvoiceCancelled = "cancelled"
	InvoicePending   = "pending"
)

type State struct {
	CanPlay     bool          `json:"can_play"`
	Loading     bool          `json:"loading"`
	InvoiceLink string        `json:"invoice_link,omitempty"`
	Round       game.BoxRound `json:"round"`
}

type Config struct {
	// Shuffle reorders the reward pool before cards are dealt. Defaults to a
	// uniform rand.Shuffle.
	Shuffle func([]game.BoxReward)
	Logger  zerolog.Logger
}

// Game runs one box mini-game session: eligibility, a dealt round and the
// final claim. Claims are serialized so the teardown claim cannot race a user
// claim.
type Game struct {
	api      ports.BoxAPI
	invoices ports.InvoiceAPI
	cfg      Config

	mu       sync.Mutex
	state    State
	claiming bool
	loading  int
}

func New(api ports.BoxAPI, invoices ports.InvoiceAPI, cfg Config) *Game {
	if cfg.Shuffle == nil {
		cfg.Shuffle = func(rs []game.BoxReward) {
			rand.Shuffle(len(rs), func(i, j int) { rs[i], rs[j] = rs[j], rs[i] })
		}
	}
	return &Game{
		api:      api,
		invoices: invoices,
		cfg:      cfg,
		state:    State{Round: game.NewBoxRound(nil)},
	}
}

func (g *Game) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.state
	out.Round = g.state.Round.Clone()
	return out
}

// Init fetches an invoice link and the eligibility flag, then deals a round
// when play is allowed. A missing invoice link is logged and ignored.
func (g *Game) Init(ctx context.Context) error {
	if g.invoices != nil {
		if err := g.RequestInvoice(ctx); err != nil {
			g.cfg.Logger.Warn().Err(err).Msg("invoice link unavailable")
		}
	}
	canPlay, err := g.refreshCanPlay(ctx)
	if err != nil {
		return err
	}
	if !canPlay {
		return nil
	}
	return g.LoadRewards(ctx)
}

// PayWithCoins buys a round. Eligibility is re-read whether or not the payment
// succeeded, and a round is dealt when play became possible.
func (g *Game) PayWithCoins(ctx context.Context) error {
	done := g.beginLoading()
	payErr := g.api.PayWithCoins(ctx)
	if payErr != nil {
		g.cfg.Logger.Warn().Err(payErr).Msg("box payment failed")
	}
	canPlay, err := g.refreshCanPlay(ctx)
	done()
	if err != nil {
		return errors.Join(payErr, err)
	}
	if canPlay {
		if err := g.LoadRewards(ctx); err != nil {
			return errors.Join(payErr, err)
		}
	}
	return payErr
}

// LoadRewards fetches the reward pool, shuffles it and deals a fresh round.
// On failure, or when the server sends no reward list, the current round is
// kept.
func (g *Game) LoadRewards(ctx context.Context) error {
	done := g.beginLoading()
	defer done()

	rewards, err := g.api.Rewards(ctx)
	if err != nil {
		g.cfg.Logger.Warn().Err(err).Msg("box rewards failed")
		return err
	}
	if rewards == nil {
		g.cfg.Logger.Debug().Msg("box rewards missing, round kept")
		return nil
	}
	pool := append([]game.BoxReward(nil), rewards...)
	g.cfg.Shuffle(pool)

	g.mu.Lock()
	g.state.Round = game.NewBoxRound(pool)
	g.mu.Unlock()
	g.cfg.Logger.Debug().Int("cards", len(pool)).Msg("box round dealt")
	return nil
}

// OpenCard reveals a card by display id and reports whether anything changed.
func (g *Game) OpenCard(cardID int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.claiming {
		return false
	}
	return g.state.Round.Open(cardID)
}

// ClaimRewards sends the selection when the round is claimable. It reports
// false without calling the server when there is nothing to claim or another
// claim is in flight. A failed claim leaves the round claimable.
func (g *Game) ClaimRewards(ctx context.Context) (bool, error) {
	g.mu.Lock()
	if g.claiming || !g.state.Round.Claimable() {
		g.mu.Unlock()
		return false, nil
	}
	g.claiming = true
	ids := append([]int64(nil), g.state.Round.SelectedRewardIDs...)
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.claiming = false
		g.mu.Unlock()
	}()

	done := g.beginLoading()
	defer done()

	if err := g.api.Claim(ctx, ids); err != nil {
		g.cfg.Logger.Warn().Err(err).Ints64("reward_ids", ids).Msg("box claim failed")
		return false, err
	}

	g.mu.Lock()
	g.state.Round.Finish()
	g.mu.Unlock()
	g.cfg.Logger.Info().Ints64("reward_ids", ids).Msg("box rewards claimed")

	if _, err := g.refreshCanPlay(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// Close claims a finished selection the player walked away from.
func (g *Game) Close(ctx context.Context) error {
	_, err := g.ClaimRewards(ctx)
	return err
}

func (g *Game) RequestInvoice(ctx context.Context) error {
	if g.invoices == nil {
		return ErrNoInvoice
	}
	link, err := g.invoices.CreateInvoice(ctx)
	if err != nil {
		return err
	}
	if link == "" {
		return ErrNoInvoice
	}
	g.mu.Lock()
	g.state.InvoiceLink = link
	g.mu.Unlock()
	return nil
}

// HandleInvoiceStatus reacts to the payment sheet closing. Paid and failed
// payments both re-read eligibility; other statuses change nothing.
func (g *Game) HandleInvoiceStatus(ctx context.Context, status string) error {
	switch status {
	case InvoicePaid, InvoiceFailed:
	default:
		return nil
	}
	if status == InvoiceFailed {
		g.cfg.Logger.Warn().Msg("stars payment failed")
	}
	canPlay, err := g.refreshCanPlay(ctx)
	if err != nil || !canPlay {
		return err
	}
	return g.LoadRewards(ctx)
}

func (g *Game) refreshCanPlay(ctx context.Context) (bool, error) {
	canPlay, err := g.api.CanPlay(ctx)
	if err != nil {
		g.cfg.Logger.Warn().Err(err).Msg("box status failed")
		return false, err
	}
	g.mu.Lock()
	g.state.CanPlay = canPlay
	g.mu.Unlock()
	return canPlay, nil
}

func (g *Game) beginLoading() func() {
	g.mu.Lock()
	g.loading++
	g.state.Loading = true
	g.mu.Unlock()
	return func() {
		g.mu.Lock()
		g.loading--
		g.state.Loading = g.loading > 0
		g.mu.Unlock()
	}
}
