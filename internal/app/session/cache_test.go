package session

import (
	"context"
	"errors"
	"testing"

	"tgminer/internal/adapter/repo/memory"
	"tgminer/internal/app/ports"
	"tgminer/internal/domain/game"
)

func TestCache_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	c := Cache{KV: kv}

	u := game.UserSnapshot{ID: 7, TelegramID: 42, Username: "miner", Coins: 10, TempCoins: 1.5, VaultCapacity: 5}
	if err := c.Save(ctx, Session{Token: "tok", User: &u}); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := kv.Get(ctx, ports.SessionKeyUser)
	if err != nil || raw == "" {
		t.Fatalf("user key not written: %q %v", raw, err)
	}

	got, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Token != "tok" || got.User == nil || got.User.Username != "miner" || got.User.TempCoins != 1.5 {
		t.Fatalf("unexpected session: %+v user=%+v", got, got.User)
	}
}

func TestCache_LoadWithoutToken(t *testing.T) {
	c := Cache{KV: memory.NewStore()}
	if _, err := c.Load(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestCache_ClearTokenKeepsUser(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	c := Cache{KV: kv}
	_ = c.Save(ctx, Session{Token: "tok", User: &game.UserSnapshot{ID: 1}})

	if err := c.ClearToken(ctx); err != nil {
		t.Fatalf("clear token: %v", err)
	}
	if tok, err := c.Token(ctx); err != nil || tok != "" {
		t.Fatalf("token not cleared: %q %v", tok, err)
	}
	if _, err := kv.Get(ctx, ports.SessionKeyUser); err != nil {
		t.Fatalf("user removed with token: %v", err)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := kv.Get(ctx, ports.SessionKeyUser); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("user not cleared: %v", err)
	}
}

func TestCache_RejectsEmptyToken(t *testing.T) {
	c := Cache{KV: memory.NewStore()}
	if err := c.Save(context.Background(), Session{Token: "  "}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestCache_CorruptUser(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewStore()
	_ = kv.SetAll(ctx, map[string]string{ports.SessionKeyToken: "tok", ports.SessionKeyUser: "{not json"})
	if _, err := (Cache{KV: kv}).Load(ctx); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}
