package api

import (
	"net/url"
	"strconv"
	"strings"
)

// Paths lists the backend route for each remote operation, relative to the
// base URL. Deployments disagree on several of them.
type Paths struct {
	Auth          string `yaml:"auth"`
	StartMining   string `yaml:"start_mining"`
	Collect       string `yaml:"collect"`
	Sync          string `yaml:"sync"`
	RecoverEnergy string `yaml:"recover_energy"`
	RecoverHealth string `yaml:"recover_health"`
	CurrentUser   string `yaml:"current_user"`
	SpinStatus    string `yaml:"spin_status"`
	Spin          string `yaml:"spin"`
	BoxStatus     string `yaml:"box_status"`
	BoxPay        string `yaml:"box_pay"`
	BoxRewards    string `yaml:"box_rewards"`
	BoxClaim      string `yaml:"box_claim"`
	Invoice       string `yaml:"invoice"`
	Season        string `yaml:"season"`
	Upgrades      string `yaml:"upgrades"`
	Upgrade       string `yaml:"upgrade"`
}

func DefaultPaths() Paths {
	return Paths{
		Auth:          "/auth/telegram",
		StartMining:   "/game/mine",
		Collect:       "/game/collect",
		Sync:          "/game/sync",
		RecoverEnergy: "/game/recover-energy",
		RecoverHealth: "/game/recover-health",
		CurrentUser:   "/user/me",
		SpinStatus:    "/game/spin-wheel/status",
		Spin:          "/game/spin-wheel/spin",
		BoxStatus:     "/box/status",
		BoxPay:        "/box/pay-with-coins",
		BoxRewards:    "/box/get-rewards",
		BoxClaim:      "/box/reward-user",
		Invoice:       "/stars/create-invoice",
		Season:        "/leaderboard/season/{id}",
		Upgrades:      "/upgrades/status",
		Upgrade:       "/upgrades/{name}",
	}
}

// WithDefaults fills every empty route from DefaultPaths.
func (p Paths) WithDefaults() Paths {
	d := DefaultPaths()
	fill := func(v *string, def string) {
		if strings.TrimSpace(*v) == "" {
			*v = def
		}
	}
	fill(&p.Auth, d.Auth)
	fill(&p.StartMining, d.StartMining)
	fill(&p.Collect, d.Collect)
	fill(&p.Sync, d.Sync)
	fill(&p.RecoverEnergy, d.RecoverEnergy)
	fill(&p.RecoverHealth, d.RecoverHealth)
	fill(&p.CurrentUser, d.CurrentUser)
	fill(&p.SpinStatus, d.SpinStatus)
	fill(&p.Spin, d.Spin)
	fill(&p.BoxStatus, d.BoxStatus)
	fill(&p.BoxPay, d.BoxPay)
	fill(&p.BoxRewards, d.BoxRewards)
	fill(&p.BoxClaim, d.BoxClaim)
	fill(&p.Invoice, d.Invoice)
	fill(&p.Season, d.Season)
	fill(&p.Upgrades, d.Upgrades)
	fill(&p.Upgrade, d.Upgrade)
	return p
}

func expand(tmpl, key, value string) string {
	return strings.ReplaceAll(tmpl, "{"+key+"}", url.PathEscape(value))
}

func seasonPath(tmpl string, id int64) string {
	return expand(tmpl, "id", strconv.FormatInt(id, 10))
}
