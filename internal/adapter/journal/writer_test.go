package journal

import (
	"errors"
	"testing"
	"time"

	"tgminer/internal/adapter/repo/memory"
	"tgminer/internal/app/ports"

	"github.com/google/go-cmp/cmp"
)

func TestWriter_RoundTripAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	w := NewWriter(dir, "drift")
	first := ports.DriftRecord{At: day, Source: "sync", Predicted: 4.5, Server: 5, Drift: 0.5, IsMining: true, HadLocal: true}
	if err := w.Record(first); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	w = NewWriter(dir, "drift")
	second := ports.DriftRecord{At: day.Add(time.Hour), Source: "collect", Server: 0}
	if err := w.Record(second); err != nil {
		t.Fatalf("record after reopen: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := ReadFile(w.PathFor(day))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := cmp.Diff([]ports.DriftRecord{first, second}, got); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestWriter_RotatesByDay(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, "")
	d1 := time.Date(2026, 5, 4, 23, 59, 0, 0, time.UTC)
	d2 := d1.Add(2 * time.Minute)
	_ = w.Record(ports.DriftRecord{At: d1, Source: "a"})
	_ = w.Record(ports.DriftRecord{At: d2, Source: "b"})
	_ = w.Close()

	for _, tc := range []struct {
		day  time.Time
		want string
	}{{d1, "a"}, {d2, "b"}} {
		recs, err := ReadFile(w.PathFor(tc.day))
		if err != nil {
			t.Fatalf("read %s: %v", tc.day, err)
		}
		if len(recs) != 1 || recs[0].Source != tc.want {
			t.Fatalf("unexpected records for %s: %+v", tc.day, recs)
		}
	}
}

type failingJournal struct{}

func (failingJournal) Record(ports.DriftRecord) error { return errors.New("disk full") }

func TestTee_WritesAllAndJoinsErrors(t *testing.T) {
	log := memory.NewDriftLog(10)
	err := Tee{log, nil, failingJournal{}}.Record(ports.DriftRecord{Source: "sync"})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if got := log.Recent(0); len(got) != 1 {
		t.Fatalf("memory journal skipped: %+v", got)
	}
}
