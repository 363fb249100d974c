package spinwheel

import (
	"context"
	"sync"
	"time"

	"tgminer/internal/app/ports"
	"tgminer/internal/domain/game"

	"github.com/rs/zerolog"
)

const (
	DefaultCountdownTick = time.Second
	DefaultNotifyDelay   = 3 * time.Second

	// SubMinuteRecheck is the countdown used when the server reports an
	// ineligible wheel with {0h 0m} left. The backend only has minute
	// resolution, so the real wait is anywhere under a minute.
	SubMinuteRecheck = 10 * time.Second
)

type Phase string

const (
	PhaseIneligible Phase = "ineligible"
	PhaseEligible   Phase = "eligible"
	PhaseSpinning   Phase = "spinning"
)

type State struct {
	Phase            Phase           `json:"phase"`
	CanSpin          bool            `json:"can_spin"`
	Remaining        *game.Remaining `json:"remaining"`
	RemainingSeconds *int            `json:"remaining_seconds"`
	IsSpinning       bool            `json:"is_spinning"`
	LastPrize        *float64        `json:"last_prize"`
}

type Config struct {
	CountdownTick time.Duration
	NotifyDelay   time.Duration
	// Notify receives the prize after NotifyDelay, e.g. to show a toast once
	// the wheel animation would have settled.
	Notify func(prize float64)
	Logger zerolog.Logger
}

// Machine tracks eligibility for the spin wheel. The local countdown only
// predicts expiry; the server is asked again when it reaches zero.
type Machine struct {
	api   ports.SpinWheelAPI
	sched ports.Scheduler
	cfg   Config

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	countdown ports.Handle
	notices   map[ports.Handle]struct{}
	closed    bool
}

func New(api ports.SpinWheelAPI, sched ports.Scheduler, cfg Config) *Machine {
	if cfg.CountdownTick <= 0 {
		cfg.CountdownTick = DefaultCountdownTick
	}
	if cfg.NotifyDelay <= 0 {
		cfg.NotifyDelay = DefaultNotifyDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		api:     api,
		sched:   sched,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		state:   State{Phase: PhaseIneligible},
		notices: map[ports.Handle]struct{}{},
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state)
}

// FetchStatus asks the server for eligibility and restarts the local countdown
// from the reported remaining time.
func (m *Machine) FetchStatus(ctx context.Context) error {
	st, err := m.api.Status(ctx)
	if err != nil {
		m.cfg.Logger.Warn().Err(err).Msg("spin wheel status failed")
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.state.CanSpin = st.CanSpin
	m.stopCountdownLocked()
	switch {
	case st.Remaining != nil && st.Remaining.TotalSeconds() > 0:
		r := *st.Remaining
		m.startCountdownLocked(r, r.TotalSeconds())
	case st.Remaining != nil && !st.CanSpin:
		// Under a minute left: re-check every SubMinuteRecheck instead of
		// expiring on the next tick and polling once a second.
		secs := game.CeilSeconds(SubMinuteRecheck)
		m.startCountdownLocked(game.RemainingFromSeconds(secs), secs)
	default:
		m.state.Remaining = nil
		m.state.RemainingSeconds = nil
	}
	m.refreshPhaseLocked()
	return nil
}

// Spin resolves a prize. It returns nil without calling the server unless the
// wheel is eligible and not already spinning.
func (m *Machine) Spin(ctx context.Context) (*ports.SpinResult, error) {
	m.mu.Lock()
	if m.closed || !m.state.CanSpin || m.state.IsSpinning {
		m.mu.Unlock()
		return nil, nil
	}
	m.state.IsSpinning = true
	m.refreshPhaseLocked()
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.state.IsSpinning = false
		m.refreshPhaseLocked()
		m.mu.Unlock()
	}()

	res, err := m.api.Spin(ctx)
	if err != nil {
		m.cfg.Logger.Warn().Err(err).Msg("spin failed")
		return nil, err
	}

	m.mu.Lock()
	prize := res.Prize
	m.state.LastPrize = &prize
	m.state.CanSpin = false
	m.scheduleNoticeLocked(prize)
	m.mu.Unlock()

	m.cfg.Logger.Info().Float64("prize", prize).Msg("wheel spun")

	if err := m.FetchStatus(ctx); err != nil && res.NextSpinAt != nil {
		// Keep a countdown from the spin response until the next status succeeds.
		secs := game.CeilSeconds(res.NextSpinAt.Sub(m.sched.Now()))
		m.mu.Lock()
		if !m.closed && secs > 0 {
			m.stopCountdownLocked()
			m.startCountdownLocked(game.RemainingFromSeconds(secs), secs)
		}
		m.mu.Unlock()
	}
	return &res, nil
}

// Close cancels the countdown and any pending notification. Later ticks and
// refreshes are ignored.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.stopCountdownLocked()
	for h := range m.notices {
		h.Stop()
	}
	m.notices = map[ports.Handle]struct{}{}
	m.cancel()
}

func (m *Machine) startCountdownLocked(r game.Remaining, secs int) {
	m.state.Remaining = &r
	m.state.RemainingSeconds = &secs
	m.countdown = m.sched.Every(m.cfg.CountdownTick, m.tick)
}

func (m *Machine) stopCountdownLocked() {
	if m.countdown != nil {
		m.countdown.Stop()
		m.countdown = nil
	}
}

func (m *Machine) tick() {
	m.mu.Lock()
	if m.closed || m.state.RemainingSeconds == nil {
		m.stopCountdownLocked()
		m.mu.Unlock()
		return
	}
	left := *m.state.RemainingSeconds - 1
	m.state.RemainingSeconds = &left
	if left > 0 {
		r := game.RemainingFromSeconds(left)
		m.state.Remaining = &r
		m.mu.Unlock()
		return
	}
	m.stopCountdownLocked()
	m.state.RemainingSeconds = nil
	m.state.Remaining = nil
	m.state.CanSpin = true
	m.state.LastPrize = nil
	m.refreshPhaseLocked()
	ctx := m.ctx
	m.mu.Unlock()

	if err := m.FetchStatus(ctx); err != nil {
		m.cfg.Logger.Warn().Err(err).Msg("spin wheel refresh after cooldown failed")
	}
}

func (m *Machine) scheduleNoticeLocked(prize float64) {
	if m.cfg.Notify == nil {
		return
	}
	notify := m.cfg.Notify
	var h ports.Handle
	h = m.sched.After(m.cfg.NotifyDelay, func() {
		m.mu.Lock()
		_, pending := m.notices[h]
		delete(m.notices, h)
		m.mu.Unlock()
		if pending {
			notify(prize)
		}
	})
	m.notices[h] = struct{}{}
}

func (m *Machine) refreshPhaseLocked() {
	switch {
	case m.state.IsSpinning:
		m.state.Phase = PhaseSpinning
	case m.state.CanSpin:
		m.state.Phase = PhaseEligible
	default:
		m.state.Phase = PhaseIneligible
	}
}

func cloneState(s State) State {
	out := s
	if s.Remaining != nil {
		r := *s.Remaining
		out.Remaining = &r
	}
	if s.RemainingSeconds != nil {
		n := *s.RemainingSeconds
		out.RemainingSeconds = &n
	}
	if s.LastPrize != nil {
		p := *s.LastPrize
		out.LastPrize = &p
	}
	return out
}
