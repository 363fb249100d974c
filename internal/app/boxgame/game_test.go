package boxgame

import (
	"context"
	"errors"
	"sort"
	"testing"

	"tgminer/internal/app/ports"
	"tgminer/internal/domain/game"

	"github.com/google/go-cmp/cmp"
)

type fakeBoxAPI struct {
	canPlay     []bool
	statusErr   error
	statusCalls int
	payErr      error
	payCalls    int
	rewards     []game.BoxReward
	rewardsErr  error
	claimErr    error
	claims      [][]int64
	claimHook   func()
}

func (f *fakeBoxAPI) CanPlay(context.Context) (bool, error) {
	f.statusCalls++
	if f.statusErr != nil {
		return false, f.statusErr
	}
	if len(f.canPlay) == 0 {
		return false, nil
	}
	v := f.canPlay[0]
	if len(f.canPlay) > 1 {
		f.canPlay = f.canPlay[1:]
	}
	return v, nil
}

func (f *fakeBoxAPI) PayWithCoins(context.Context) error {
	f.payCalls++
	return f.payErr
}

func (f *fakeBoxAPI) Rewards(context.Context) ([]game.BoxReward, error) {
	return f.rewards, f.rewardsErr
}

func (f *fakeBoxAPI) Claim(_ context.Context, ids []int64) error {
	if f.claimHook != nil {
		f.claimHook()
	}
	f.claims = append(f.claims, ids)
	return f.claimErr
}

type fakeInvoices struct {
	link string
	err  error
}

func (f fakeInvoices) CreateInvoice(context.Context) (string, error) { return f.link, f.err }

func pool() []game.BoxReward {
	return []game.BoxReward{
		{ID: 10, Name: "coins", Amount: 100},
		{ID: 20, Name: "energy", Amount: 5},
		{ID: 30, Name: "health", Amount: 5},
		{ID: 40, Name: "coins", Amount: 500},
		{ID: 50, Name: "nothing"},
	}
}

func reverse(rs []game.BoxReward) {
	for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
		rs[i], rs[j] = rs[j], rs[i]
	}
}

func readyGame(t *testing.T, api *fakeBoxAPI) *Game {
	t.Helper()
	g := New(api, fakeInvoices{link: "https://t.me/$invoice"}, Config{Shuffle: reverse})
	if err := g.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return g
}

func TestInit_DealsShuffledRound(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{true}, rewards: pool()}
	g := readyGame(t, api)

	st := g.State()
	if !st.CanPlay || st.Loading {
		t.Fatalf("unexpected flags: %+v", st)
	}
	if st.InvoiceLink != "https://t.me/$invoice" {
		t.Fatalf("invoice link mismatch: %q", st.InvoiceLink)
	}
	if len(st.Round.Cards) != 5 {
		t.Fatalf("card count mismatch: got=%d want=5", len(st.Round.Cards))
	}
	for i, c := range st.Round.Cards {
		if c.ID != i+1 || c.Flipped {
			t.Fatalf("card %d not sequential and hidden: %+v", i, c)
		}
	}
	if st.Round.Cards[0].Reward.ID != 50 {
		t.Fatalf("shuffle not applied: first reward=%d", st.Round.Cards[0].Reward.ID)
	}
	if api.rewards[0].ID != 10 {
		t.Fatalf("server pool mutated by shuffle")
	}
}

func TestInit_DefaultShuffleKeepsRewardSet(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{true}, rewards: pool()}
	g := New(api, nil, Config{})
	if err := g.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	var got []int64
	for _, c := range g.State().Round.Cards {
		got = append(got, c.Reward.ID)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	if diff := cmp.Diff([]int64{10, 20, 30, 40, 50}, got); diff != "" {
		t.Fatalf("reward set mismatch (-want +got):\n%s", diff)
	}
}

func TestInit_NotEligibleSkipsRewards(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{false}, rewards: pool()}
	g := readyGame(t, api)
	if st := g.State(); st.CanPlay || len(st.Round.Cards) != 0 {
		t.Fatalf("expected no round when ineligible: %+v", st)
	}
}

func TestOpenCard_FourthOpenIsNoop(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{true}, rewards: pool()}
	g := readyGame(t, api)

	for _, id := range []int{1, 2, 3} {
		if !g.OpenCard(id) {
			t.Fatalf("open %d rejected", id)
		}
	}
	before := g.State()
	if !before.Round.CanClaim || before.Round.OpenedCount != 3 {
		t.Fatalf("expected claimable after 3 opens: %+v", before.Round)
	}
	if g.OpenCard(4) {
		t.Fatalf("fourth open accepted")
	}
	if diff := cmp.Diff(before, g.State()); diff != "" {
		t.Fatalf("state changed on fourth open (-before +after):\n%s", diff)
	}
}

func TestOpenCard_RepeatIsNoop(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{true}, rewards: pool()}
	g := readyGame(t, api)
	g.OpenCard(2)
	if g.OpenCard(2) {
		t.Fatalf("re-opened a revealed card")
	}
	if got := g.State().Round.OpenedCount; got != 1 {
		t.Fatalf("opened count mismatch: got=%d want=1", got)
	}
}

func TestClaimRewards_NotClaimableIsNoop(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{true}, rewards: pool()}
	g := readyGame(t, api)
	g.OpenCard(1)
	before := g.State()

	claimed, err := g.ClaimRewards(context.Background())
	if claimed || err != nil {
		t.Fatalf("expected no-op claim, got claimed=%v err=%v", claimed, err)
	}
	if len(api.claims) != 0 {
		t.Fatalf("claim reached server")
	}
	if diff := cmp.Diff(before, g.State()); diff != "" {
		t.Fatalf("state changed (-before +after):\n%s", diff)
	}
}

func TestClaimRewards_FinishesRoundAndRefreshes(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{true, false}, rewards: pool()}
	g := readyGame(t, api)
	g.OpenCard(1)
	g.OpenCard(3)
	g.OpenCard(5)

	claimed, err := g.ClaimRewards(context.Background())
	if err != nil || !claimed {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}
	if diff := cmp.Diff([][]int64{{50, 30, 10}}, api.claims); diff != "" {
		t.Fatalf("claimed ids mismatch (-want +got):\n%s", diff)
	}
	st := g.State()
	if !st.Round.GameFinished || st.Round.CanClaim || len(st.Round.Cards) != 0 {
		t.Fatalf("round not finished: %+v", st.Round)
	}
	if st.CanPlay {
		t.Fatalf("eligibility not refreshed after claim")
	}

	claimed, _ = g.ClaimRewards(context.Background())
	if claimed || len(api.claims) != 1 {
		t.Fatalf("second claim reached server")
	}
}

func TestClaimRewards_FailureKeepsRoundClaimable(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{true}, rewards: pool(), claimErr: &ports.RemoteCallError{Op: "reward_user", Status: 500}}
	g := readyGame(t, api)
	g.OpenCard(1)
	g.OpenCard(2)
	g.OpenCard(3)

	_, err := g.ClaimRewards(context.Background())
	if !errors.Is(err, ports.ErrRemoteCall) {
		t.Fatalf("expected remote error, got %v", err)
	}
	if !g.State().Round.Claimable() {
		t.Fatalf("round should remain claimable after failure")
	}
	api.claimErr = nil
	if claimed, err := g.ClaimRewards(context.Background()); !claimed || err != nil {
		t.Fatalf("retry claim: claimed=%v err=%v", claimed, err)
	}
}

func TestClaimRewards_ReentrantClaimIsNoop(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{true}, rewards: pool()}
	g := readyGame(t, api)
	g.OpenCard(1)
	g.OpenCard(2)
	g.OpenCard(3)

	var inner bool
	api.claimHook = func() {
		api.claimHook = nil
		inner, _ = g.ClaimRewards(context.Background())
	}
	if claimed, err := g.ClaimRewards(context.Background()); !claimed || err != nil {
		t.Fatalf("claim: claimed=%v err=%v", claimed, err)
	}
	if inner {
		t.Fatalf("nested claim ran while first was in flight")
	}
	if len(api.claims) != 1 {
		t.Fatalf("expected one server claim, got %d", len(api.claims))
	}
}

func TestClose_ClaimsOnlyWhenClaimable(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{true}, rewards: pool()}
	g := readyGame(t, api)
	if err := g.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(api.claims) != 0 {
		t.Fatalf("close claimed an empty selection")
	}

	g.OpenCard(1)
	g.OpenCard(2)
	g.OpenCard(3)
	if err := g.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(api.claims) != 1 {
		t.Fatalf("close did not claim a finished selection")
	}
}

func TestPayWithCoins_RefreshesEvenOnFailure(t *testing.T) {
	payErr := &ports.RemoteCallError{Op: "pay_with_coins", Status: 400, Message: "not enough coins"}
	api := &fakeBoxAPI{canPlay: []bool{false, false}, payErr: payErr, rewards: pool()}
	g := readyGame(t, api)

	err := g.PayWithCoins(context.Background())
	if !errors.Is(err, ports.ErrRemoteCall) {
		t.Fatalf("expected payment error, got %v", err)
	}
	if api.statusCalls != 2 {
		t.Fatalf("status not refreshed after failed payment: calls=%d", api.statusCalls)
	}
	if len(g.State().Round.Cards) != 0 {
		t.Fatalf("round dealt while ineligible")
	}
}

func TestPayWithCoins_DealsRoundWhenEligible(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{false, true}, rewards: pool()}
	g := readyGame(t, api)

	if err := g.PayWithCoins(context.Background()); err != nil {
		t.Fatalf("pay: %v", err)
	}
	st := g.State()
	if !st.CanPlay || len(st.Round.Cards) != 5 {
		t.Fatalf("expected dealt round after payment: %+v", st)
	}
}

func TestHandleInvoiceStatus(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{false, true}, rewards: pool()}
	g := readyGame(t, api)

	if err := g.HandleInvoiceStatus(context.Background(), InvoiceCancelled); err != nil {
		t.Fatalf("cancelled: %v", err)
	}
	if api.statusCalls != 1 {
		t.Fatalf("cancelled invoice triggered refresh")
	}
	if err := g.HandleInvoiceStatus(context.Background(), InvoicePaid); err != nil {
		t.Fatalf("paid: %v", err)
	}
	if st := g.State(); !st.CanPlay || len(st.Round.Cards) != 5 {
		t.Fatalf("paid invoice did not deal a round: %+v", st)
	}
}

func TestRequestInvoice_Errors(t *testing.T) {
	api := &fakeBoxAPI{}
	if err := New(api, nil, Config{}).RequestInvoice(context.Background()); !errors.Is(err, ErrNoInvoice) {
		t.Fatalf("expected ErrNoInvoice without api, got %v", err)
	}
	if err := New(api, fakeInvoices{}, Config{}).RequestInvoice(context.Background()); !errors.Is(err, ErrNoInvoice) {
		t.Fatalf("expected ErrNoInvoice for empty link, got %v", err)
	}
}

func TestLoadRewards_MissingListKeepsRound(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{true}, rewards: pool()}
	g := readyGame(t, api)
	if !g.OpenCard(1) {
		t.Fatalf("open card 1 had no effect")
	}
	before := g.State().Round

	api.rewards = nil
	if err := g.LoadRewards(context.Background()); err != nil {
		t.Fatalf("load rewards: %v", err)
	}
	if diff := cmp.Diff(before, g.State().Round); diff != "" {
		t.Fatalf("round changed on missing list (-want +got):\n%s", diff)
	}
	if g.State().Loading {
		t.Fatalf("loading flag left set")
	}
}

func TestLoadRewards_EmptyListDealsEmptyRound(t *testing.T) {
	api := &fakeBoxAPI{canPlay: []bool{true}, rewards: pool()}
	g := readyGame(t, api)

	api.rewards = []game.BoxReward{}
	if err := g.LoadRewards(context.Background()); err != nil {
		t.Fatalf("load rewards: %v", err)
	}
	if n := len(g.State().Round.Cards); n != 0 {
		t.Fatalf("card count mismatch: got=%d want=0", n)
	}
}
