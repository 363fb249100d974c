package scheduler

import (
	"sort"
	"sync"
	"time"

	"tgminer/internal/app/ports"
)

// Manual is a virtual clock. Tasks fire only inside Advance, synchronously and
// in due-time order, so timer-driven code can be stepped without waiting.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks map[uint64]*manualTask
}

type manualTask struct {
	id       uint64
	due      time.Time
	interval time.Duration
	fn       func()
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start, tasks: map[uint64]*manualTask{}}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Every(interval time.Duration, fn func()) ports.Handle {
	if interval <= 0 {
		interval = time.Nanosecond
	}
	return m.add(interval, interval, fn)
}

func (m *Manual) After(delay time.Duration, fn func()) ports.Handle {
	if delay < 0 {
		delay = 0
	}
	return m.add(delay, 0, fn)
}

func (m *Manual) add(delay, interval time.Duration, fn func()) ports.Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTask{id: m.seq, due: m.now.Add(delay), interval: interval, fn: fn}
	m.tasks[t.id] = t
	return manualHandle{m: m, id: t.id}
}

// Advance moves the clock forward by d, firing every task that falls due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.nextDueLocked(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.due
		if next.interval > 0 {
			next.due = next.due.Add(next.interval)
		} else {
			delete(m.tasks, next.id)
		}
		fn := next.fn
		m.mu.Unlock()

		fn()
	}
}

// Tick advances by one interval step of d, n times.
func (m *Manual) Tick(d time.Duration, n int) {
	for i := 0; i < n; i++ {
		m.Advance(d)
	}
}

// Active is the number of pending tasks.
func (m *Manual) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

func (m *Manual) nextDueLocked(target time.Time) *manualTask {
	due := make([]*manualTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		if !t.due.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].id < due[j].id
		}
		return due[i].due.Before(due[j].due)
	})
	return due[0]
}

type manualHandle struct {
	m  *Manual
	id uint64
}

func (h manualHandle) Stop() {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	delete(h.m.tasks, h.id)
}
