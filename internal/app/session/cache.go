package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tgminer/internal/app/ports"
	"tgminer/internal/domain/game"
)

var (
	ErrNoSession      = errors.New("no stored session")
	ErrInvalidSession = errors.New("invalid session")
)

type Session struct {
	Token string
	User  *game.UserSnapshot
}

// Cache persists the bearer token and the last known user under the fixed
// token/user keys of a key-value store.
type Cache struct {
	KV ports.KeyValueStore
}

func (c Cache) Save(ctx context.Context, s Session) error {
	if c.KV == nil || strings.TrimSpace(s.Token) == "" {
		return ErrInvalidSession
	}
	values := map[string]string{ports.SessionKeyToken: s.Token}
	if s.User != nil {
		b, err := json.Marshal(s.User)
		if err != nil {
			return fmt.Errorf("encode session user: %w", err)
		}
		values[ports.SessionKeyUser] = string(b)
	}
	return c.KV.SetAll(ctx, values)
}

// Load returns the stored session. The user is optional; a missing token is
// ErrNoSession.
func (c Cache) Load(ctx context.Context) (Session, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return Session{}, err
	}
	if token == "" {
		return Session{}, ErrNoSession
	}
	out := Session{Token: token}
	raw, err := c.KV.Get(ctx, ports.SessionKeyUser)
	if errors.Is(err, ports.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return Session{}, err
	}
	var u game.UserSnapshot
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return Session{}, fmt.Errorf("%w: decode user: %v", ErrInvalidSession, err)
	}
	out.User = &u
	return out, nil
}

// Token returns the stored bearer token, or "" when none is stored.
func (c Cache) Token(ctx context.Context) (string, error) {
	if c.KV == nil {
		return "", nil
	}
	token, err := c.KV.Get(ctx, ports.SessionKeyToken)
	if errors.Is(err, ports.ErrNotFound) {
		return "", nil
	}
	return token, err
}

func (c Cache) ClearToken(ctx context.Context) error {
	if c.KV == nil {
		return nil
	}
	return c.KV.Delete(ctx, ports.SessionKeyToken)
}

func (c Cache) Clear(ctx context.Context) error {
	if c.KV == nil {
		return nil
	}
	return c.KV.Delete(ctx, ports.SessionKeyToken, ports.SessionKeyUser)
}
