//go:build e2e

package e2e

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"tgminer/internal/adapter/api"
	"tgminer/internal/adapter/repo/memory"
	"tgminer/internal/app/ports"
	"tgminer/internal/app/session"
)

func TestBackend_LoginAndReadOnlyCalls(t *testing.T) {
	baseURL := strings.TrimSpace(os.Getenv("E2E_BASE_URL"))
	initData := strings.TrimSpace(os.Getenv("E2E_INIT_DATA"))
	if baseURL == "" || initData == "" {
		t.Skip("E2E_BASE_URL and E2E_INIT_DATA are required")
	}

	sessions := session.Cache{KV: memory.NewStore()}
	client, err := api.New(api.Options{BaseURL: baseURL, Timeout: 20 * time.Second, Tokens: sessions})
	if err != nil {
		t.Fatalf("api client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	t.Run("bad init data is rejected", func(t *testing.T) {
		_, err := client.Authenticate(ctx, "query_id=bogus", "")
		if !errors.Is(err, ports.ErrRemoteCall) {
			t.Fatalf("expected remote call error, got %v", err)
		}
	})

	res, err := client.Authenticate(ctx, initData, os.Getenv("E2E_REF"))
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("authenticate returned an empty token")
	}
	if err := sessions.Save(ctx, session.Session{Token: res.Token, User: &res.User}); err != nil {
		t.Fatalf("save session: %v", err)
	}

	t.Run("user and sync agree on identity", func(t *testing.T) {
		me, err := client.CurrentUser(ctx)
		if err != nil {
			t.Fatalf("current user: %v", err)
		}
		synced, err := client.Sync(ctx)
		if err != nil {
			t.Fatalf("sync: %v", err)
		}
		if me.ID != synced.ID {
			t.Fatalf("user id mismatch: me=%d sync=%d", me.ID, synced.ID)
		}
	})

	t.Run("status endpoints", func(t *testing.T) {
		if _, err := client.SpinWheel().Status(ctx); err != nil {
			t.Fatalf("spin wheel status: %v", err)
		}
		if _, err := client.Box().CanPlay(ctx); err != nil {
			t.Fatalf("box status: %v", err)
		}
		if _, err := client.Upgrades().Status(ctx); err != nil {
			t.Fatalf("upgrade status: %v", err)
		}
		if _, err := client.Season(ctx); err != nil {
			t.Fatalf("season: %v", err)
		}
	})

	t.Run("cleared token is unauthorized", func(t *testing.T) {
		if err := sessions.ClearToken(ctx); err != nil {
			t.Fatalf("clear token: %v", err)
		}
		_, err := client.CurrentUser(ctx)
		if !errors.Is(err, ports.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}
