package game

import (
	"fmt"
	"time"
)

// Remaining is the server-reported wait until the next spin.
type Remaining struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds,omitempty"`
}

func (r Remaining) TotalSeconds() int {
	total := r.Hours*3600 + r.Minutes*60 + r.Seconds
	if total < 0 {
		return 0
	}
	return total
}

func RemainingFromSeconds(total int) Remaining {
	if total < 0 {
		total = 0
	}
	return Remaining{
		Hours:   total / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
	}
}

// CeilSeconds rounds a positive duration up to whole seconds, never below one.
func CeilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	n := int((d + time.Second - 1) / time.Second)
	if n < 1 {
		n = 1
	}
	return n
}

type TimeLeft struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Expired bool `json:"expired"`
}

func TimeLeftUntil(end, now time.Time) TimeLeft {
	diff := end.Sub(now)
	if diff <= 0 {
		return TimeLeft{Expired: true}
	}
	secs := int64(diff / time.Second)
	return TimeLeft{
		Days:    int(secs / 86400),
		Hours:   int((secs % 86400) / 3600),
		Minutes: int((secs % 3600) / 60),
		Seconds: int(secs % 60),
	}
}

func (t TimeLeft) Label() string {
	if t.Expired {
		return "Season ended"
	}
	return fmt.Sprintf("%dd %dh %dm %ds", t.Days, t.Hours, t.Minutes, t.Seconds)
}
