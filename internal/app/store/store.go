package store

import (
	"sync"

	"tgminer/internal/domain/game"
)

// Store holds the session's authoritative user snapshot. Writers are the
// reconciliation controller and the mining simulator; everyone else observes.
type Store struct {
	mu        sync.RWMutex
	user      *game.UserSnapshot
	version   uint64
	nextSubID int
	subs      map[int]func(game.UserSnapshot)
}

func New() *Store {
	return &Store{subs: map[int]func(game.UserSnapshot){}}
}

func (s *Store) Current() (game.UserSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return game.UserSnapshot{}, false
	}
	return s.user.Clone(), true
}

// CurrentAt returns the snapshot together with the version it was read at.
func (s *Store) CurrentAt() (game.UserSnapshot, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return game.UserSnapshot{}, s.version, false
	}
	return s.user.Clone(), s.version, true
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Replace swaps the snapshot wholesale.
func (s *Store) Replace(u game.UserSnapshot) {
	u = u.Clone()
	s.mu.Lock()
	s.user = &u
	s.version++
	subs := s.subscribersLocked()
	s.mu.Unlock()
	notify(subs, u)
}

// Update mutates the current snapshot in place. It reports false when the
// store is empty; fn is not called then.
func (s *Store) Update(fn func(u *game.UserSnapshot)) bool {
	s.mu.Lock()
	if s.user == nil {
		s.mu.Unlock()
		return false
	}
	fn(s.user)
	s.version++
	u := s.user.Clone()
	subs := s.subscribersLocked()
	s.mu.Unlock()
	notify(subs, u)
	return true
}

// UpdateAt is Update guarded by version: fn runs only while the store is still
// at the given version. It returns the version after the write and whether
// the write happened.
func (s *Store) UpdateAt(version uint64, fn func(u *game.UserSnapshot)) (uint64, bool) {
	s.mu.Lock()
	if s.user == nil || s.version != version {
		v := s.version
		s.mu.Unlock()
		return v, false
	}
	fn(s.user)
	s.version++
	v := s.version
	u := s.user.Clone()
	subs := s.subscribersLocked()
	s.mu.Unlock()
	notify(subs, u)
	return v, true
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.version++
}

// Subscribe registers fn for every write. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(game.UserSnapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) subscribersLocked() []func(game.UserSnapshot) {
	out := make([]func(game.UserSnapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(game.UserSnapshot), u game.UserSnapshot) {
	for _, fn := range subs {
		fn(u.Clone())
	}
}
