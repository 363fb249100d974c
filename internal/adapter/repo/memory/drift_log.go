package memory

import (
	"sync"

	"tgminer/internal/app/ports"
)

const defaultDriftLimit = 256

// DriftLog keeps the most recent drift records for the ops endpoint.
type DriftLog struct {
	mu      sync.Mutex
	limit   int
	records []ports.DriftRecord
}

func NewDriftLog(limit int) *DriftLog {
	if limit <= 0 {
		limit = defaultDriftLimit
	}
	return &DriftLog{limit: limit}
}

func (l *DriftLog) Record(rec ports.DriftRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	if over := len(l.records) - l.limit; over > 0 {
		l.records = append(l.records[:0:0], l.records[over:]...)
	}
	return nil
}

// Recent returns up to n records, newest last. n <= 0 returns all of them.
func (l *DriftLog) Recent(n int) []ports.DriftRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	start := 0
	if n > 0 && n < len(l.records) {
		start = len(l.records) - n
	}
	return append([]ports.DriftRecord(nil), l.records[start:]...)
}
