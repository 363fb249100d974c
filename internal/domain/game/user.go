package game

import (
	"encoding/json"
	"time"
)

type UserSnapshot struct {
	ID         int64  `json:"id"`
	TelegramID int64  `json:"telegramId"`
	Username   string `json:"username,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`

	Coins         float64 `json:"coins"`
	TempCoins     float64 `json:"tempCoins"`
	VaultCapacity float64 `json:"vaultCapacity"`
	MiningRate    float64 `json:"miningRate"`

	IsMining       bool       `json:"isMining"`
	LastMiningTick *time.Time `json:"lastMiningTick"`

	CurrentEnergy   float64 `json:"currentEnergy"`
	MaxEnergy       float64 `json:"maxEnergy"`
	EnergyRegenRate float64 `json:"energyRegenRate"`
	CurrentHealth   float64 `json:"currentHealth"`
	MaxHealth       float64 `json:"maxHealth"`
	HealthRegenRate float64 `json:"healthRegenRate"`

	Level         int    `json:"level,omitempty"`
	ReferralCode  string `json:"referralCode,omitempty"`
	ReferredBy    *int64 `json:"referredBy,omitempty"`
	ReferralCount int    `json:"referralCount,omitempty"`

	CreatedAt string `json:"createdAt,omitempty"`

	// Extra holds server fields this client does not model. They survive a
	// decode/encode round trip untouched.
	Extra map[string]json.RawMessage `json:"-"`
}

type userAlias UserSnapshot

func (u *UserSnapshot) UnmarshalJSON(b []byte) error {
	var a userAlias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for _, k := range knownUserFields {
		delete(all, k)
	}
	if len(all) > 0 {
		a.Extra = all
	} else {
		a.Extra = nil
	}
	*u = UserSnapshot(a)
	return nil
}

func (u UserSnapshot) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(userAlias(u))
	if err != nil || len(u.Extra) == 0 {
		return b, err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return nil, err
	}
	for k, v := range u.Extra {
		if _, known := all[k]; known {
			continue
		}
		all[k] = v
	}
	return json.Marshal(all)
}

var knownUserFields = []string{
	"id", "telegramId", "username", "firstName", "lastName",
	"coins", "tempCoins", "vaultCapacity", "miningRate",
	"isMining", "lastMiningTick",
	"currentEnergy", "maxEnergy", "energyRegenRate",
	"currentHealth", "maxHealth", "healthRegenRate",
	"level", "referralCode", "referredBy", "referralCount",
	"createdAt",
}

// Clone returns a copy that shares no mutable state with u.
func (u UserSnapshot) Clone() UserSnapshot {
	out := u
	if u.LastMiningTick != nil {
		t := *u.LastMiningTick
		out.LastMiningTick = &t
	}
	if u.ReferredBy != nil {
		r := *u.ReferredBy
		out.ReferredBy = &r
	}
	if u.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(u.Extra))
		for k, v := range u.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

func (u UserSnapshot) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		if u.LastName != "" {
			return u.FirstName + " " + u.LastName
		}
		return u.FirstName
	}
	return ""
}
