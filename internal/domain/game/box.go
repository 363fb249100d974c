package game

const MaxOpens = 3

type BoxReward struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name,omitempty"`
	Type   string  `json:"type,omitempty"`
	Amount float64 `json:"amount,omitempty"`
	Image  string  `json:"image,omitempty"`
}

type Card struct {
	ID      int       `json:"id"`
	Reward  BoxReward `json:"reward"`
	Flipped bool      `json:"flipped"`
}

// BoxRound is one pick-MaxOpens-of-N play-through. The zero value is an empty,
// unfinished round with no cards.
type BoxRound struct {
	Cards             []Card  `json:"cards"`
	OpenedCount       int     `json:"opened_count"`
	SelectedRewardIDs []int64 `json:"selected_reward_ids"`
	CanClaim          bool    `json:"can_claim"`
	GameFinished      bool    `json:"game_finished"`
}

// NewBoxRound lays out rewards in the given order with display ids 1..n.
func NewBoxRound(rewards []BoxReward) BoxRound {
	cards := make([]Card, len(rewards))
	for i, r := range rewards {
		cards[i] = Card{ID: i + 1, Reward: r}
	}
	return BoxRound{
		Cards:             cards,
		SelectedRewardIDs: []int64{},
	}
}

// Open reveals the card with the given display id. It reports false and leaves
// the round untouched when the round is over, the card is unknown or already
// revealed, or MaxOpens cards are open.
func (r *BoxRound) Open(cardID int) bool {
	if r.GameFinished || r.OpenedCount >= MaxOpens {
		return false
	}
	idx := r.indexOf(cardID)
	if idx < 0 || r.Cards[idx].Flipped {
		return false
	}
	r.Cards[idx].Flipped = true
	r.OpenedCount++
	r.SelectedRewardIDs = append(r.SelectedRewardIDs, r.Cards[idx].Reward.ID)
	if r.OpenedCount == MaxOpens {
		r.CanClaim = true
	}
	return true
}

func (r BoxRound) Claimable() bool {
	return r.CanClaim && !r.GameFinished
}

// Finish closes the round after a successful claim and hides the cards.
func (r *BoxRound) Finish() {
	r.GameFinished = true
	r.CanClaim = false
	r.Cards = nil
}

func (r BoxRound) Clone() BoxRound {
	out := r
	out.Cards = append([]Card(nil), r.Cards...)
	out.SelectedRewardIDs = append([]int64(nil), r.SelectedRewardIDs...)
	return out
}

func (r BoxRound) indexOf(cardID int) int {
	for i := range r.Cards {
		if r.Cards[i].ID == cardID {
			return i
		}
	}
	return -1
}
