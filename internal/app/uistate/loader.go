package uistate

import "sync"

const DefaultLoadingMessage = "Loading..."

type LoaderState struct {
	Visible  bool   `json:"visible"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}

// Loader is the boot/loading overlay state shared by the session.
type Loader struct {
	mu    sync.RWMutex
	state LoaderState
}

func NewLoader() *Loader {
	return &Loader{state: LoaderState{Message: DefaultLoadingMessage}}
}

func (l *Loader) State() LoaderState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Show resets progress and displays message, or the default one when empty.
func (l *Loader) Show(message string) {
	if message == "" {
		message = DefaultLoadingMessage
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = LoaderState{Visible: true, Progress: 0, Message: message}
}

func (l *Loader) Hide() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Visible = false
	l.state.Progress = 100
}

// SetProgress clamps p to 0..100. An empty message keeps the current one.
func (l *Loader) SetProgress(p int, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Progress = min(100, max(0, p))
	if message != "" {
		l.state.Message = message
	}
}

func (l *Loader) SetMessage(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Message = message
}
