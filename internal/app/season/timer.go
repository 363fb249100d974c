package season

import (
	"context"
	"sync"
	"time"

	"tgminer/internal/app/ports"
	"tgminer/internal/domain/game"

	"github.com/rs/zerolog"
)

type State struct {
	Season   *ports.Season `json:"season"`
	TimeLeft game.TimeLeft `json:"time_left"`
	Label    string        `json:"label"`
}

// Timer counts down to the end of the current leaderboard season.
type Timer struct {
	API       ports.SeasonAPI
	Scheduler ports.Scheduler
	Tick      time.Duration
	Logger    zerolog.Logger

	mu     sync.Mutex
	season *ports.Season
	left   game.TimeLeft
	handle ports.Handle
}

func NewTimer(api ports.SeasonAPI, sched ports.Scheduler, logger zerolog.Logger) *Timer {
	return &Timer{API: api, Scheduler: sched, Tick: time.Second, Logger: logger}
}

// Start loads the season and begins ticking. A previous countdown is replaced.
func (t *Timer) Start(ctx context.Context) error {
	s, err := t.API.Season(ctx)
	if err != nil {
		t.Logger.Warn().Err(err).Msg("season fetch failed")
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.season = &s
	if t.updateLocked() {
		return nil
	}
	tick := t.Tick
	if tick <= 0 {
		tick = time.Second
	}
	t.handle = t.Scheduler.Every(tick, t.onTick)
	t.Logger.Info().Int64("season_id", s.ID).Time("end", s.End).Msg("season timer started")
	return nil
}

func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := State{TimeLeft: t.left, Label: t.left.Label()}
	if t.season != nil {
		s := *t.season
		out.Season = &s
	}
	return out
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handle != nil
}

func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Timer) onTick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle == nil {
		return
	}
	if t.updateLocked() {
		t.stopLocked()
	}
}

// updateLocked recomputes the split and reports whether the season is over.
func (t *Timer) updateLocked() bool {
	if t.season == nil {
		return false
	}
	t.left = game.TimeLeftUntil(t.season.End, t.Scheduler.Now())
	return t.left.Expired
}

func (t *Timer) stopLocked() {
	if t.handle != nil {
		t.handle.Stop()
		t.handle = nil
	}
}
