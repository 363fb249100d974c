package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tgminer/internal/adapter/api"

	"gopkg.in/yaml.v3"
)

const (
	SessionMemory   = "memory"
	SessionSQLite   = "sqlite"
	SessionPostgres = "postgres"
)

var ErrInvalidConfig = errors.New("invalid config")

// Duration accepts Go duration strings ("1s", "250ms") in YAML.
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

type Config struct {
	Listen    string    `yaml:"listen"`
	Backend   Backend   `yaml:"backend"`
	Session   Session   `yaml:"session"`
	Launch    Launch    `yaml:"launch"`
	Timers    Timers    `yaml:"timers"`
	Journal   Journal   `yaml:"journal"`
	Log       Log       `yaml:"log"`
	Autopilot Autopilot `yaml:"autopilot"`
}

type Backend struct {
	BaseURL     string    `yaml:"base_url"`
	RealtimeURL string    `yaml:"realtime_url"`
	Timeout     Duration  `yaml:"timeout"`
	SeasonID    int64     `yaml:"season_id"`
	Paths       api.Paths `yaml:"paths"`
}

type Session struct {
	Driver  string `yaml:"driver"`
	Path    string `yaml:"path"`
	DSN     string `yaml:"dsn"`
	Profile string `yaml:"profile"`
}

type Launch struct {
	File     string   `yaml:"file"`
	InitData string   `yaml:"init_data"`
	Ref      string   `yaml:"ref"`
	Attempts int      `yaml:"attempts"`
	Delay    Duration `yaml:"delay"`
}

type Timers struct {
	MiningTick      Duration `yaml:"mining_tick"`
	SyncInterval    Duration `yaml:"sync_interval"`
	SpinNotifyDelay Duration `yaml:"spin_notify_delay"`
}

type Journal struct {
	Dir    string `yaml:"dir"`
	Recent int    `yaml:"recent"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Autopilot struct {
	Enabled  bool         `yaml:"enabled"`
	Interval Duration     `yaml:"interval"`
	Tasks    []TaskWeight `yaml:"tasks"`
}

type TaskWeight struct {
	Name        string  `yaml:"name"`
	Probability float64 `yaml:"probability"`
}

func Default() Config {
	return Config{
		Listen: "127.0.0.1:8787",
		Backend: Backend{
			BaseURL:  "http://localhost:8080/api",
			Timeout:  Duration(10 * time.Second),
			SeasonID: 1,
			Paths:    api.DefaultPaths(),
		},
		Session: Session{Driver: SessionSQLite, Path: "./data/session.db", Profile: "default"},
		Launch:  Launch{Attempts: 20, Delay: Duration(250 * time.Millisecond)},
		Timers: Timers{
			MiningTick:      Duration(time.Second),
			SyncInterval:    Duration(time.Minute),
			SpinNotifyDelay: Duration(3 * time.Second),
		},
		Journal: Journal{Recent: 256},
		Log:     Log{Level: "info", Format: "console"},
		Autopilot: Autopilot{
			Interval: Duration(30 * time.Second),
			Tasks: []TaskWeight{
				{Name: "sync", Probability: 40},
				{Name: "collect", Probability: 20},
				{Name: "mine", Probability: 20},
				{Name: "spin", Probability: 10},
				{Name: "idle", Probability: 10},
			},
		},
	}
}

// Load reads path over the defaults, then applies TGMINER_* overrides. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) fillDefaults() {
	d := Default()
	c.Backend.Paths = c.Backend.Paths.WithDefaults()
	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = d.Backend.Timeout
	}
	if c.Backend.SeasonID <= 0 {
		c.Backend.SeasonID = d.Backend.SeasonID
	}
	if c.Session.Driver == "" {
		c.Session.Driver = d.Session.Driver
	}
	if c.Launch.Attempts <= 0 {
		c.Launch.Attempts = d.Launch.Attempts
	}
	if c.Launch.Delay <= 0 {
		c.Launch.Delay = d.Launch.Delay
	}
	if c.Timers.MiningTick <= 0 {
		c.Timers.MiningTick = d.Timers.MiningTick
	}
	if c.Timers.SyncInterval <= 0 {
		c.Timers.SyncInterval = d.Timers.SyncInterval
	}
	if c.Timers.SpinNotifyDelay <= 0 {
		c.Timers.SpinNotifyDelay = d.Timers.SpinNotifyDelay
	}
	if c.Autopilot.Interval <= 0 {
		c.Autopilot.Interval = d.Autopilot.Interval
	}
	if c.Journal.Recent <= 0 {
		c.Journal.Recent = d.Journal.Recent
	}
	if c.Session.Profile == "" {
		c.Session.Profile = d.Session.Profile
	}
	if c.Listen == "" {
		c.Listen = d.Listen
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return fmt.Errorf("%w: backend.base_url is required", ErrInvalidConfig)
	}
	switch c.Session.Driver {
	case SessionMemory:
	case SessionSQLite:
		if strings.TrimSpace(c.Session.Path) == "" {
			return fmt.Errorf("%w: session.path is required for sqlite", ErrInvalidConfig)
		}
	case SessionPostgres:
		if strings.TrimSpace(c.Session.DSN) == "" {
			return fmt.Errorf("%w: session.dsn is required for postgres", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown session.driver %q", ErrInvalidConfig, c.Session.Driver)
	}
	if c.Autopilot.Enabled && len(c.Autopilot.Tasks) == 0 {
		return fmt.Errorf("%w: autopilot.tasks is empty", ErrInvalidConfig)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Listen = stringEnv("TGMINER_LISTEN", c.Listen)
	c.Backend.BaseURL = stringEnv("TGMINER_BASE_URL", c.Backend.BaseURL)
	c.Backend.RealtimeURL = stringEnv("TGMINER_REALTIME_URL", c.Backend.RealtimeURL)
	c.Backend.SeasonID = int64(intEnv("TGMINER_SEASON_ID", int(c.Backend.SeasonID)))
	c.Backend.Timeout = secondsEnv("TGMINER_TIMEOUT_SECONDS", c.Backend.Timeout)
	c.Session.Driver = stringEnv("TGMINER_SESSION_DRIVER", c.Session.Driver)
	c.Session.Path = stringEnv("TGMINER_SESSION_PATH", c.Session.Path)
	c.Session.DSN = stringEnv("TGMINER_DB_DSN", c.Session.DSN)
	c.Session.Profile = stringEnv("TGMINER_PROFILE", c.Session.Profile)
	c.Launch.File = stringEnv("TGMINER_LAUNCH_FILE", c.Launch.File)
	c.Launch.Attempts = intEnv("TGMINER_LAUNCH_ATTEMPTS", c.Launch.Attempts)
	c.Timers.SyncInterval = secondsEnv("TGMINER_SYNC_SECONDS", c.Timers.SyncInterval)
	c.Journal.Dir = stringEnv("TGMINER_JOURNAL_DIR", c.Journal.Dir)
	c.Log.Level = stringEnv("TGMINER_LOG_LEVEL", c.Log.Level)
	c.Log.Format = stringEnv("TGMINER_LOG_FORMAT", c.Log.Format)
	if v, ok := boolEnv("TGMINER_AUTOPILOT"); ok {
		c.Autopilot.Enabled = v
	}
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func secondsEnv(key string, fallback Duration) Duration {
	n := intEnv(key, -1)
	if n < 0 {
		return fallback
	}
	return Duration(time.Duration(n) * time.Second)
}

func boolEnv(key string) (bool, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
