package ports

import "time"

// Handle cancels a scheduled task. Stop is idempotent and safe to call from
// inside the task's own callback.
type Handle interface {
	Stop()
}

type Scheduler interface {
	Now() time.Time
	Every(interval time.Duration, fn func()) Handle
	After(delay time.Duration, fn func()) Handle
}
