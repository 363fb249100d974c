package mining

import (
	"sync"
	"time"

	"tgminer/internal/app/ports"
	"tgminer/internal/app/store"
	"tgminer/internal/domain/game"

	"github.com/rs/zerolog"
)

const DefaultTick = time.Second

// Simulator extrapolates tempCoins locally between server syncs. It owns at
// most one periodic task at a time.
type Simulator struct {
	Store     *store.Store
	Scheduler ports.Scheduler
	Tick      time.Duration
	Logger    zerolog.Logger

	mu     sync.Mutex
	handle ports.Handle
	gen    uint64
	// base is the store version the running task last wrote or started
	// from. Any other write in between supersedes the local prediction.
	base uint64

	beforeWrite func()
}

func NewSimulator(st *store.Store, sched ports.Scheduler, logger zerolog.Logger) *Simulator {
	return &Simulator{Store: st, Scheduler: sched, Tick: DefaultTick, Logger: logger}
}

// Start cancels any running timer and begins accrual from the stored snapshot.
func (s *Simulator) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	u, version, ok := s.Store.CurrentAt()
	if !ok {
		return
	}
	if game.IsVaultFull(u) {
		s.Logger.Debug().Float64("temp_coins", u.TempCoins).Msg("vault full, simulation not started")
		return
	}
	tick := s.Tick
	if tick <= 0 {
		tick = DefaultTick
	}
	s.gen++
	gen := s.gen
	s.base = version
	s.handle = s.Scheduler.Every(tick, func() { s.tick(gen) })
	s.Logger.Debug().Float64("rate", u.MiningRate).Float64("capacity", u.VaultCapacity).Msg("mining simulation started")
}

func (s *Simulator) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}

func (s *Simulator) tick(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.handle == nil {
		s.mu.Unlock()
		return
	}
	base := s.base
	s.mu.Unlock()

	if s.beforeWrite != nil {
		s.beforeWrite()
	}
	saturated := false
	version, wrote := s.Store.UpdateAt(base, func(u *game.UserSnapshot) {
		saturated = game.AdvanceMining(u)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	if !wrote {
		if _, ok := s.Store.Current(); !ok {
			s.stopLocked()
			return
		}
		// An authoritative write landed without restarting the simulation.
		// Accrue from it on the next tick instead of this stale one.
		s.base = version
		return
	}
	s.base = version
	if saturated {
		s.stopLocked()
		s.Logger.Debug().Msg("vault saturated, mining simulation stopped")
	}
}

func (s *Simulator) stopLocked() {
	if s.handle == nil {
		return
	}
	s.handle.Stop()
	s.handle = nil
	s.gen++
}
