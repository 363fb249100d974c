package memory

import (
	"context"
	"errors"
	"testing"

	"tgminer/internal/app/ports"
)

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, err := s.Get(ctx, "token"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetAll(ctx, map[string]string{"token": "abc", "user": "{}"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := s.Get(ctx, "token"); got != "abc" {
		t.Fatalf("token mismatch: got=%q want=%q", got, "abc")
	}
	if err := s.Delete(ctx, "token", "missing"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "token"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected token deleted, got %v", err)
	}
	if got, _ := s.Get(ctx, "user"); got != "{}" {
		t.Fatalf("user should survive token delete, got %q", got)
	}
}

func TestDriftLog_KeepsNewest(t *testing.T) {
	l := NewDriftLog(3)
	for i := 1; i <= 5; i++ {
		_ = l.Record(ports.DriftRecord{Server: float64(i)})
	}
	all := l.Recent(0)
	if len(all) != 3 || all[0].Server != 3 || all[2].Server != 5 {
		t.Fatalf("unexpected retained records: %+v", all)
	}
	last := l.Recent(1)
	if len(last) != 1 || last[0].Server != 5 {
		t.Fatalf("unexpected recent(1): %+v", last)
	}
}
