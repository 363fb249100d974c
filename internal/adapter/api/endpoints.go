package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"tgminer/internal/app/ports"
	"tgminer/internal/domain/game"
)

// Operation names used in errors and logs.
const (
	OpAuthenticate  = "authenticate"
	OpStartMining   = "start_mining"
	OpCollect       = "collect"
	OpSync          = "sync"
	OpRecoverEnergy = "recover_energy"
	OpRecoverHealth = "recover_health"
	OpCurrentUser   = "current_user"
	OpSpinStatus    = "spin_status"
	OpSpin          = "spin"
	OpBoxStatus     = "box_status"
	OpBoxPay        = "box_pay"
	OpBoxRewards    = "box_rewards"
	OpBoxClaim      = "box_claim"
	OpInvoice       = "create_invoice"
	OpSeason        = "season"
	OpUpgrades      = "upgrades_status"
	OpUpgrade       = "upgrade"
)

var (
	_ ports.AuthAPI      = (*Client)(nil)
	_ ports.GameAPI      = (*Client)(nil)
	_ ports.UserAPI      = (*Client)(nil)
	_ ports.InvoiceAPI   = (*Client)(nil)
	_ ports.SeasonAPI    = (*Client)(nil)
	_ ports.UpgradeAPI   = UpgradeClient{}
	_ ports.SpinWheelAPI = SpinWheelClient{}
	_ ports.BoxAPI       = BoxClient{}
)

// ErrMissingUser marks a successful response whose payload had no user. The
// caller must not treat it as an authoritative snapshot.
var ErrMissingUser = errors.New("response carried no user")

type userPayload struct {
	User *game.UserSnapshot `json:"user"`
}

func missingUser(op string) error {
	return &ports.RemoteCallError{Op: op, Message: ErrMissingUser.Error(), Cause: ErrMissingUser}
}

func (p userPayload) snapshot(op string) (game.UserSnapshot, error) {
	if p.User == nil {
		return game.UserSnapshot{}, missingUser(op)
	}
	return *p.User, nil
}

type authPayload struct {
	Token string             `json:"token"`
	User  *game.UserSnapshot `json:"user"`
}

type authRequest struct {
	InitData string  `json:"initData"`
	Ref      *string `json:"ref"`
}

func (c *Client) Authenticate(ctx context.Context, initData, ref string) (ports.AuthResult, error) {
	body := authRequest{InitData: initData}
	if ref != "" {
		body.Ref = &ref
	}
	var out authPayload
	if err := c.post(ctx, OpAuthenticate, c.paths.Auth, body, &out); err != nil {
		return ports.AuthResult{}, err
	}
	if out.User == nil {
		return ports.AuthResult{}, missingUser(OpAuthenticate)
	}
	return ports.AuthResult{Token: out.Token, User: *out.User}, nil
}

func (c *Client) userCall(ctx context.Context, op, path string) (game.UserSnapshot, error) {
	var out userPayload
	if err := c.post(ctx, op, path, nil, &out); err != nil {
		return game.UserSnapshot{}, err
	}
	return out.snapshot(op)
}

func (c *Client) StartMining(ctx context.Context) (game.UserSnapshot, error) {
	return c.userCall(ctx, OpStartMining, c.paths.StartMining)
}

func (c *Client) Collect(ctx context.Context) (ports.CollectResult, error) {
	var out collectPayload
	if err := c.post(ctx, OpCollect, c.paths.Collect, nil, &out); err != nil {
		return ports.CollectResult{}, err
	}
	if out.User == nil {
		return ports.CollectResult{}, missingUser(OpCollect)
	}
	return ports.CollectResult{User: *out.User, CoinsCollected: out.CoinsCollected}, nil
}

type collectPayload struct {
	User           *game.UserSnapshot `json:"user"`
	CoinsCollected float64            `json:"coinsCollected"`
}

func (c *Client) Sync(ctx context.Context) (game.UserSnapshot, error) {
	return c.userCall(ctx, OpSync, c.paths.Sync)
}

func (c *Client) RecoverEnergy(ctx context.Context) (game.UserSnapshot, error) {
	return c.userCall(ctx, OpRecoverEnergy, c.paths.RecoverEnergy)
}

func (c *Client) RecoverHealth(ctx context.Context) (game.UserSnapshot, error) {
	return c.userCall(ctx, OpRecoverHealth, c.paths.RecoverHealth)
}

func (c *Client) CurrentUser(ctx context.Context) (game.UserSnapshot, error) {
	var out userPayload
	if err := c.get(ctx, OpCurrentUser, c.paths.CurrentUser, &out); err != nil {
		return game.UserSnapshot{}, err
	}
	return out.snapshot(OpCurrentUser)
}

type invoicePayload struct {
	InvoiceLink string `json:"invoiceLink"`
}

func (c *Client) CreateInvoice(ctx context.Context) (string, error) {
	var out invoicePayload
	err := c.post(ctx, OpInvoice, c.paths.Invoice, nil, &out)
	return out.InvoiceLink, err
}

type seasonPayload struct {
	Season ports.Season `json:"season"`
}

func (c *Client) Season(ctx context.Context) (ports.Season, error) {
	var out seasonPayload
	err := c.get(ctx, OpSeason, seasonPath(c.paths.Season, c.seasonID), &out)
	return out.Season, err
}

// Upgrades exposes the upgrade endpoints as a ports.UpgradeAPI.
func (c *Client) Upgrades() UpgradeClient { return UpgradeClient{c: c} }

// SpinWheel exposes the spin wheel endpoints as a ports.SpinWheelAPI.
func (c *Client) SpinWheel() SpinWheelClient { return SpinWheelClient{c: c} }

// Box exposes the box game endpoints as a ports.BoxAPI.
func (c *Client) Box() BoxClient { return BoxClient{c: c} }

type UpgradeClient struct{ c *Client }

type upgradesPayload struct {
	Upgrades []ports.Upgrade `json:"upgrades"`
}

func (u UpgradeClient) Status(ctx context.Context) ([]ports.Upgrade, error) {
	var out upgradesPayload
	err := u.c.get(ctx, OpUpgrades, u.c.paths.Upgrades, &out)
	return out.Upgrades, err
}

func (u UpgradeClient) Upgrade(ctx context.Context, name string) (game.UserSnapshot, error) {
	name = strings.TrimSpace(name)
	return u.c.userCall(ctx, OpUpgrade, expand(u.c.paths.Upgrade, "name", name))
}

type SpinWheelClient struct{ c *Client }

func (s SpinWheelClient) Status(ctx context.Context) (ports.SpinStatus, error) {
	var out ports.SpinStatus
	err := s.c.get(ctx, OpSpinStatus, s.c.paths.SpinStatus, &out)
	return out, err
}

type spinPayload struct {
	Prize      float64 `json:"prize"`
	NextSpinAt string  `json:"nextSpinAt"`
}

func (s SpinWheelClient) Spin(ctx context.Context) (ports.SpinResult, error) {
	var out spinPayload
	if err := s.c.post(ctx, OpSpin, s.c.paths.Spin, nil, &out); err != nil {
		return ports.SpinResult{}, err
	}
	res := ports.SpinResult{Prize: out.Prize}
	if t, err := time.Parse(time.RFC3339, out.NextSpinAt); err == nil {
		res.NextSpinAt = &t
	}
	return res, nil
}

type BoxClient struct{ c *Client }

type boxStatusPayload struct {
	User struct {
		CanPlayBox bool `json:"canPlayBox"`
	} `json:"user"`
}

func (b BoxClient) CanPlay(ctx context.Context) (bool, error) {
	var out boxStatusPayload
	err := b.c.get(ctx, OpBoxStatus, b.c.paths.BoxStatus, &out)
	return out.User.CanPlayBox, err
}

func (b BoxClient) PayWithCoins(ctx context.Context) error {
	return b.c.post(ctx, OpBoxPay, b.c.paths.BoxPay, nil, nil)
}

// rewardsPayload leaves RewardList nil when the field is absent or null, so
// callers can tell "no list" from an empty one.
type rewardsPayload struct {
	RewardList []game.BoxReward `json:"rewardList"`
}

func (b BoxClient) Rewards(ctx context.Context) ([]game.BoxReward, error) {
	var out rewardsPayload
	err := b.c.post(ctx, OpBoxRewards, b.c.paths.BoxRewards, nil, &out)
	return out.RewardList, err
}

type claimRequest struct {
	RewardIDs []int64 `json:"rewardIds"`
}

func (b BoxClient) Claim(ctx context.Context, rewardIDs []int64) error {
	ids := rewardIDs
	if ids == nil {
		ids = []int64{}
	}
	return b.c.post(ctx, OpBoxClaim, b.c.paths.BoxClaim, claimRequest{RewardIDs: ids}, nil)
}
