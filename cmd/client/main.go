package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tgminer/internal/adapter/api"
	"tgminer/internal/adapter/host"
	httpadapter "tgminer/internal/adapter/http"
	"tgminer/internal/adapter/journal"
	metricsinmem "tgminer/internal/adapter/metrics/inmemory"
	"tgminer/internal/adapter/realtime"
	gormrepo "tgminer/internal/adapter/repo/gorm"
	"tgminer/internal/adapter/repo/memory"
	"tgminer/internal/adapter/repo/sqlite"
	"tgminer/internal/adapter/scheduler"
	"tgminer/internal/app/auth"
	"tgminer/internal/app/autopilot"
	"tgminer/internal/app/boxgame"
	"tgminer/internal/app/mining"
	"tgminer/internal/app/orchestrator"
	"tgminer/internal/app/ports"
	"tgminer/internal/app/reconcile"
	"tgminer/internal/app/season"
	"tgminer/internal/app/session"
	"tgminer/internal/app/spinwheel"
	"tgminer/internal/app/store"
	"tgminer/internal/app/uistate"
	"tgminer/internal/config"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	envConfig     = "TGMINER_CONFIG"
	defaultConfig = "tgminer.yaml"
	bootTimeout   = 30 * time.Second
)

func main() {
	flagPath := flag.String("config", "", "path to tgminer.yaml")
	flag.Parse()

	cfg, err := config.Load(resolveConfigPath(*flagPath, os.Getenv, fileExists))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(2)
	}
	logger := newLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("client stopped")
	}
}

// resolveConfigPath prefers the flag, then TGMINER_CONFIG, then ./tgminer.yaml
// when present. An empty result runs on defaults and env overrides.
func resolveConfigPath(flagPath string, getenv func(string) string, exists func(string) bool) string {
	if p := strings.TrimSpace(flagPath); p != "" {
		return p
	}
	if p := strings.TrimSpace(getenv(envConfig)); p != "" {
		return p
	}
	if exists(defaultConfig) {
		return defaultConfig
	}
	return ""
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func newLogger(cfg config.Log, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	w := out
	if !strings.EqualFold(cfg.Format, "json") {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("app", "tgminer").Logger()
}

// openSessionKV picks the token/user cache backend. The returned closer is
// never nil.
func openSessionKV(ctx context.Context, cfg config.Session, logger zerolog.Logger) (ports.KeyValueStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case config.SessionMemory:
		return memory.NewStore(), noop, nil
	case config.SessionSQLite:
		st, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, noop, err
		}
		logger.Info().Str("path", cfg.Path).Msg("session cache on sqlite")
		return st, st.Close, nil
	case config.SessionPostgres:
		db, err := gormrepo.OpenPostgres(cfg.DSN)
		if err != nil {
			return nil, noop, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, noop, err
		}
		if err := gormrepo.ApplyMigrations(ctx, db, gormrepo.Migrations()); err != nil {
			_ = sqlDB.Close()
			return nil, noop, err
		}
		logger.Info().Str("profile", cfg.Profile).Msg("session cache on postgres")
		return gormrepo.NewSessionStore(db, cfg.Profile), sqlDB.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: session driver %q", config.ErrInvalidConfig, cfg.Driver)
	}
}

func launchSources(cfg config.Launch) ports.HostEnvironment {
	chain := host.Chain{host.Env{}}
	if cfg.File != "" {
		chain = append(chain, host.File{Path: cfg.File})
	}
	if cfg.InitData != "" {
		chain = append(chain, host.Static{InitData: cfg.InitData, Ref: cfg.Ref})
	}
	return chain
}

func autopilotWeights(in []config.TaskWeight) []autopilot.Weight {
	out := make([]autopilot.Weight, 0, len(in))
	for _, w := range in {
		out = append(out, autopilot.Weight{Name: w.Name, Probability: w.Probability})
	}
	return out
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	kv, closeKV, err := openSessionKV(ctx, cfg.Session, logger)
	if err != nil {
		return fmt.Errorf("open session cache: %w", err)
	}
	defer func() {
		if err := closeKV(); err != nil {
			logger.Warn().Err(err).Msg("close session cache")
		}
	}()
	sessions := session.Cache{KV: kv}

	client, err := api.New(api.Options{
		BaseURL:  cfg.Backend.BaseURL,
		Timeout:  cfg.Backend.Timeout.D(),
		Paths:    cfg.Backend.Paths,
		SeasonID: cfg.Backend.SeasonID,
		Tokens:   sessions,
		Logger:   logger.With().Str("component", "api").Logger(),
	})
	if err != nil {
		return err
	}

	sched := scheduler.Wall{}
	kpi := metricsinmem.NewRecorder()
	st := store.New()
	loader := uistate.NewLoader()
	music := uistate.NewMusic()

	driftLog := memory.NewDriftLog(cfg.Journal.Recent)
	journals := journal.Tee{driftLog}
	var driftFile *journal.Writer
	if cfg.Journal.Dir != "" {
		driftFile = journal.NewWriter(cfg.Journal.Dir, "drift")
		journals = append(journals, driftFile)
	}

	sim := mining.NewSimulator(st, sched, logger.With().Str("component", "mining").Logger())
	sim.Tick = cfg.Timers.MiningTick.D()

	ctrl := reconcile.Controller{
		Game:      client,
		Users:     client,
		Upgrades:  client.Upgrades(),
		Store:     st,
		Simulator: sim,
		Metrics:   kpi,
		Journal:   journals,
		Logger:    logger.With().Str("component", "reconcile").Logger(),
	}

	wheel := spinwheel.New(client.SpinWheel(), sched, spinwheel.Config{
		NotifyDelay: cfg.Timers.SpinNotifyDelay.D(),
		Notify: func(prize float64) {
			logger.Info().Float64("prize", prize).Msg("spin wheel prize")
		},
		Logger: logger.With().Str("component", "spinwheel").Logger(),
	})
	box := boxgame.New(client.Box(), client, boxgame.Config{
		Logger: logger.With().Str("component", "boxgame").Logger(),
	})
	seasonTimer := season.NewTimer(client, sched, logger.With().Str("component", "season").Logger())

	login := auth.LoginUseCase{
		Host:     launchSources(cfg.Launch),
		API:      client,
		Sessions: sessions,
		Store:    st,
		Loader:   loader,
		Metrics:  kpi,
		Attempts: cfg.Launch.Attempts,
		Delay:    cfg.Launch.Delay.D(),
		Logger:   logger.With().Str("component", "auth").Logger(),
	}

	tasks, err := autopilot.Tasks(autopilotWeights(cfg.Autopilot.Tasks), ctrl, wheel, logger)
	if err != nil {
		return fmt.Errorf("autopilot tasks: %w", err)
	}
	pilot := &autopilot.Runner{
		Orchestrator: orchestrator.New(tasks),
		Scheduler:    sched,
		Interval:     cfg.Autopilot.Interval.D(),
		Timeout:      cfg.Backend.Timeout.D(),
		Logger:       logger.With().Str("component", "autopilot").Logger(),
	}

	var live *realtime.Client
	if cfg.Backend.RealtimeURL != "" {
		live = realtime.New(realtime.Config{
			URL:    cfg.Backend.RealtimeURL,
			Tokens: sessions,
			Logger: logger.With().Str("component", "realtime").Logger(),
		}, ctrl)
	}

	boot(ctx, logger, login, ctrl, wheel, box, seasonTimer, loader)

	if live != nil {
		live.Start()
	}
	syncEvery := sched.Every(cfg.Timers.SyncInterval.D(), func() {
		c, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout.D())
		defer cancel()
		if err := ctrl.Sync(c); err != nil {
			logger.Warn().Err(err).Msg("periodic sync failed")
		}
	})
	if cfg.Autopilot.Enabled {
		if err := pilot.Start(); err != nil {
			syncEvery.Stop()
			return fmt.Errorf("start autopilot: %w", err)
		}
	}

	h := httpadapter.Handler{
		Game:      ctrl,
		Store:     st,
		Mining:    sim,
		SpinWheel: wheel,
		Box:       box,
		Season:    seasonTimer,
		Loader:    loader,
		Music:     music,
		Autopilot: pilot,
		Drift:     driftLog,
		LogoutUC:  auth.LogoutUseCase{Sessions: sessions, Store: st},
		KPI:       kpi,
		Logger:    logger.With().Str("component", "control").Logger(),
	}
	if live != nil {
		h.Realtime = live
	}

	s := server.Default(server.WithHostPorts(cfg.Listen))
	h.RegisterRoutes(s)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("listen", cfg.Listen).Msg("control api listening")
		if err := s.Run(); err != nil && gctx.Err() == nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	err = g.Wait()

	pilot.Stop()
	syncEvery.Stop()
	if live != nil {
		live.Close()
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := box.Close(closeCtx); cerr != nil {
		logger.Warn().Err(cerr).Msg("box teardown claim failed")
	}
	wheel.Close()
	seasonTimer.Close()
	sim.Stop()
	if driftFile != nil {
		if cerr := driftFile.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("close drift journal")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// boot restores or creates the session and pulls first state. Failures are
// logged; the control API stays up so the operator can inspect them.
func boot(ctx context.Context, logger zerolog.Logger, login auth.LoginUseCase, ctrl reconcile.Controller,
	wheel *spinwheel.Machine, box *boxgame.Game, seasonTimer *season.Timer, loader *uistate.Loader) {
	ctx, cancel := context.WithTimeout(ctx, bootTimeout)
	defer cancel()

	loader.Show(uistate.DefaultLoadingMessage)
	defer loader.Hide()

	if _, err := login.Resume(ctx); err != nil {
		logger.Info().Err(err).Msg("no cached session, logging in")
		if _, err := login.Execute(ctx); err != nil {
			logger.Error().Err(err).Msg("login failed")
			return
		}
	}
	loader.SetProgress(80, "Syncing")
	if err := ctrl.Sync(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial sync failed")
	}
	if err := wheel.FetchStatus(ctx); err != nil {
		logger.Warn().Err(err).Msg("spin wheel status failed")
	}
	if err := box.Init(ctx); err != nil {
		logger.Warn().Err(err).Msg("box init failed")
	}
	if err := seasonTimer.Start(ctx); err != nil {
		logger.Warn().Err(err).Msg("season timer failed")
	}
}
