package scheduler

import (
	"sync"
	"time"

	"tgminer/internal/app/ports"
)

// Wall runs tasks on the system clock, one goroutine per task.
type Wall struct{}

func (Wall) Now() time.Time {
	return time.Now()
}

func (Wall) Every(interval time.Duration, fn func()) ports.Handle {
	h := newWallHandle()
	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-t.C:
				if h.stopped() {
					return
				}
				fn()
			}
		}
	}()
	return h
}

func (Wall) After(delay time.Duration, fn func()) ports.Handle {
	h := newWallHandle()
	t := time.NewTimer(delay)
	go func() {
		defer t.Stop()
		select {
		case <-h.done:
		case <-t.C:
			if !h.stopped() {
				fn()
			}
		}
	}()
	return h
}

type wallHandle struct {
	once sync.Once
	done chan struct{}
}

func newWallHandle() *wallHandle {
	return &wallHandle{done: make(chan struct{})}
}

func (h *wallHandle) Stop() {
	h.once.Do(func() { close(h.done) })
}

func (h *wallHandle) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
