package uistate

import "sync"

// Player drives the actual audio output.
type Player interface {
	Play() error
	Pause()
}

type MusicState struct {
	Enabled   bool `json:"enabled"`
	Playing   bool `json:"playing"`
	Available bool `json:"available"`
}

// Music tracks background-music preferences. A failed Play marks music
// unavailable, which also disables it.
type Music struct {
	mu     sync.Mutex
	state  MusicState
	player Player
}

func NewMusic() *Music {
	return &Music{state: MusicState{Enabled: true, Available: true}}
}

func (m *Music) State() MusicState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Music) SetPlayer(p Player) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.player = p
}

// Toggle flips the enabled flag and returns it. While music is unavailable the
// flag is forced on and nothing is played.
func (m *Music) Toggle() bool {
	m.mu.Lock()
	if !m.state.Available {
		m.state.Enabled = true
		m.mu.Unlock()
		return true
	}
	m.state.Enabled = !m.state.Enabled
	enabled := m.state.Enabled
	p := m.player
	m.mu.Unlock()

	m.sync(p, enabled)
	return m.State().Enabled
}

func (m *Music) SetEnabled(enabled bool) {
	m.mu.Lock()
	m.state.Enabled = enabled
	p := m.player
	m.mu.Unlock()
	m.sync(p, enabled)
}

func (m *Music) SetPlaying(playing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Playing = playing
}

func (m *Music) SetAvailable(available bool) {
	m.mu.Lock()
	m.state.Available = available
	var p Player
	if !available {
		m.state.Enabled = false
		m.state.Playing = false
		p = m.player
	}
	m.mu.Unlock()
	if p != nil {
		p.Pause()
	}
}

func (m *Music) sync(p Player, enabled bool) {
	if p == nil {
		return
	}
	if !enabled {
		p.Pause()
		return
	}
	if err := p.Play(); err != nil {
		m.SetAvailable(false)
	}
}
