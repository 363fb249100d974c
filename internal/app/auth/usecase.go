package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tgminer/internal/app/ports"
	"tgminer/internal/app/session"
	"tgminer/internal/app/store"
	"tgminer/internal/app/uistate"
	"tgminer/internal/domain/game"

	"github.com/rs/zerolog"
)

const (
	DefaultLaunchAttempts = 20
	DefaultLaunchDelay    = 250 * time.Millisecond
)

var (
	ErrInvalidRequest = errors.New("invalid login request")
	ErrAuthMissing    = errors.New("telegram launch data missing")
)

// AuthMissingError reports that the host never supplied initData.
type AuthMissingError struct {
	Attempts int
	Delay    time.Duration
}

func (e *AuthMissingError) Error() string {
	return fmt.Sprintf("%s after %d attempts %s apart", ErrAuthMissing.Error(), e.Attempts, e.Delay)
}

func (e *AuthMissingError) Unwrap() error {
	return ErrAuthMissing
}

type SessionStore interface {
	Save(ctx context.Context, s session.Session) error
	Load(ctx context.Context) (session.Session, error)
	ClearToken(ctx context.Context) error
}

type LoginResponse struct {
	Token string            `json:"token"`
	User  game.UserSnapshot `json:"user"`
}

// LoginUseCase exchanges Telegram launch data for a session token and seeds
// the state store with the returned user.
type LoginUseCase struct {
	Host     ports.HostEnvironment
	API      ports.AuthAPI
	Sessions SessionStore
	Store    *store.Store
	Loader   *uistate.Loader
	Metrics  ports.CallMetrics

	Attempts int
	Delay    time.Duration
	Sleep    func(ctx context.Context, d time.Duration) error
	Logger   zerolog.Logger
}

func (u LoginUseCase) Execute(ctx context.Context) (LoginResponse, error) {
	if u.Host == nil || u.API == nil || u.Sessions == nil || u.Store == nil {
		return LoginResponse{}, ErrInvalidRequest
	}
	u.progress(10, "Waiting for Telegram")
	initData, ref, err := u.WaitForLaunchParams(ctx)
	if err != nil {
		u.Logger.Error().Err(err).Msg("launch params unavailable")
		return LoginResponse{}, err
	}

	u.progress(40, "Signing in")
	res, err := u.API.Authenticate(ctx, initData, ref)
	if err != nil {
		u.record("authenticate", false)
		u.Logger.Error().Err(err).Msg("telegram login failed")
		return LoginResponse{}, err
	}
	u.record("authenticate", true)
	if strings.TrimSpace(res.Token) == "" {
		return LoginResponse{}, fmt.Errorf("%w: empty token", ErrInvalidRequest)
	}

	user := res.User
	if err := u.Sessions.Save(ctx, session.Session{Token: res.Token, User: &user}); err != nil {
		return LoginResponse{}, err
	}
	u.Store.Replace(user)
	u.progress(70, "Loading game")

	u.Logger.Info().
		Int64("user_id", user.ID).
		Int64("telegram_id", user.TelegramID).
		Bool("referred", ref != "").
		Msg("logged in")
	return LoginResponse{Token: res.Token, User: user}, nil
}

// Resume seeds the store from a cached session without contacting the
// server. It returns session.ErrNoSession when no token and user are cached.
func (u LoginUseCase) Resume(ctx context.Context) (LoginResponse, error) {
	if u.Sessions == nil || u.Store == nil {
		return LoginResponse{}, ErrInvalidRequest
	}
	s, err := u.Sessions.Load(ctx)
	if err != nil {
		return LoginResponse{}, err
	}
	if s.User == nil {
		return LoginResponse{}, session.ErrNoSession
	}
	u.Store.Replace(*s.User)
	u.Logger.Info().Int64("user_id", s.User.ID).Msg("session resumed from cache")
	return LoginResponse{Token: s.Token, User: *s.User}, nil
}

// WaitForLaunchParams polls the host a fixed number of times with a fixed
// delay between attempts.
func (u LoginUseCase) WaitForLaunchParams(ctx context.Context) (string, string, error) {
	attempts := u.Attempts
	if attempts <= 0 {
		attempts = DefaultLaunchAttempts
	}
	delay := u.Delay
	if delay <= 0 {
		delay = DefaultLaunchDelay
	}
	sleep := u.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	for i := 0; i < attempts; i++ {
		if initData, ref, ok := u.Host.LaunchParams(); ok && strings.TrimSpace(initData) != "" {
			return initData, ref, nil
		}
		if i == attempts-1 {
			break
		}
		if err := sleep(ctx, delay); err != nil {
			return "", "", err
		}
	}
	return "", "", &AuthMissingError{Attempts: attempts, Delay: delay}
}

func (u LoginUseCase) progress(p int, msg string) {
	if u.Loader != nil {
		u.Loader.SetProgress(p, msg)
	}
}

func (u LoginUseCase) record(op string, ok bool) {
	if u.Metrics == nil {
		return
	}
	if ok {
		u.Metrics.RecordSuccess(op)
	} else {
		u.Metrics.RecordFailure(op)
	}
}

// LogoutUseCase drops the bearer token and the in-memory snapshot.
type LogoutUseCase struct {
	Sessions SessionStore
	Store    *store.Store
}

func (u LogoutUseCase) Execute(ctx context.Context) error {
	if u.Sessions == nil {
		return ErrInvalidRequest
	}
	if err := u.Sessions.ClearToken(ctx); err != nil {
		return err
	}
	if u.Store != nil {
		u.Store.Clear()
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
