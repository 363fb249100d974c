package ports

import (
	"context"
	"time"

	"tgminer/internal/domain/game"
)

type AuthResult struct {
	Token string            `json:"token"`
	User  game.UserSnapshot `json:"user"`
}

type AuthAPI interface {
	Authenticate(ctx context.Context, initData, ref string) (AuthResult, error)
}

type CollectResult struct {
	User           game.UserSnapshot `json:"user"`
	CoinsCollected float64           `json:"coinsCollected"`
}

type GameAPI interface {
	StartMining(ctx context.Context) (game.UserSnapshot, error)
	Collect(ctx context.Context) (CollectResult, error)
	Sync(ctx context.Context) (game.UserSnapshot, error)
	RecoverEnergy(ctx context.Context) (game.UserSnapshot, error)
	RecoverHealth(ctx context.Context) (game.UserSnapshot, error)
}

type UserAPI interface {
	CurrentUser(ctx context.Context) (game.UserSnapshot, error)
}

type Upgrade struct {
	Name      string  `json:"name"`
	Level     int     `json:"level"`
	MaxLevel  int     `json:"maxLevel,omitempty"`
	NextCost  float64 `json:"nextCost,omitempty"`
	CanAfford bool    `json:"canAfford"`
}

type UpgradeAPI interface {
	Status(ctx context.Context) ([]Upgrade, error)
	Upgrade(ctx context.Context, name string) (game.UserSnapshot, error)
}

type SpinStatus struct {
	CanSpin   bool            `json:"canSpin"`
	Remaining *game.Remaining `json:"remaining,omitempty"`
}

type SpinResult struct {
	Prize      float64    `json:"prize"`
	NextSpinAt *time.Time `json:"nextSpinAt,omitempty"`
}

type SpinWheelAPI interface {
	Status(ctx context.Context) (SpinStatus, error)
	Spin(ctx context.Context) (SpinResult, error)
}

type BoxAPI interface {
	CanPlay(ctx context.Context) (bool, error)
	PayWithCoins(ctx context.Context) error
	Rewards(ctx context.Context) ([]game.BoxReward, error)
	Claim(ctx context.Context, rewardIDs []int64) error
}

type InvoiceAPI interface {
	CreateInvoice(ctx context.Context) (string, error)
}

type Season struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name,omitempty"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type SeasonAPI interface {
	Season(ctx context.Context) (Season, error)
}
