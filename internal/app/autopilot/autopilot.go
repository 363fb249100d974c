package autopilot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tgminer/internal/app/orchestrator"
	"tgminer/internal/app/ports"

	"github.com/rs/zerolog"
)

const (
	TaskSync    = "sync"
	TaskCollect = "collect"
	TaskMine    = "mine"
	TaskRecover = "recover"
	TaskSpin    = "spin"
	TaskIdle    = "idle"
)

var ErrUnknownTask = errors.New("unknown autopilot task")

type Game interface {
	Sync(ctx context.Context) error
	Collect(ctx context.Context) (float64, error)
	Mine(ctx context.Context) error
	RecoverEnergy(ctx context.Context) error
	RecoverHealth(ctx context.Context) error
}

type Spinner interface {
	Spin(ctx context.Context) (*ports.SpinResult, error)
}

type Weight struct {
	Name        string
	Probability float64
}

// Tasks maps named weights onto game actions in the given order.
func Tasks(weights []Weight, g Game, spin Spinner, logger zerolog.Logger) ([]orchestrator.Task, error) {
	out := make([]orchestrator.Task, 0, len(weights))
	for _, w := range weights {
		name := strings.ToLower(strings.TrimSpace(w.Name))
		var action func(context.Context) (any, error)
		switch name {
		case TaskSync:
			action = func(ctx context.Context) (any, error) { return nil, g.Sync(ctx) }
		case TaskCollect:
			action = func(ctx context.Context) (any, error) { return g.Collect(ctx) }
		case TaskMine:
			action = func(ctx context.Context) (any, error) { return nil, g.Mine(ctx) }
		case TaskRecover:
			action = func(ctx context.Context) (any, error) {
				return orchestrator.RunUntilSuccess(ctx, logger,
					orchestrator.Step{Name: "recover_energy", Run: g.RecoverEnergy},
					orchestrator.Step{Name: "recover_health", Run: g.RecoverHealth},
				)
			}
		case TaskSpin:
			if spin == nil {
				return nil, fmt.Errorf("%w: %s needs a spin wheel", ErrUnknownTask, name)
			}
			action = func(ctx context.Context) (any, error) { return spin.Spin(ctx) }
		case TaskIdle:
			action = nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownTask, w.Name)
		}
		out = append(out, orchestrator.Task{Name: name, Probability: w.Probability, Action: action})
	}
	return out, nil
}

// Runner draws one weighted task per interval.
type Runner struct {
	Orchestrator *orchestrator.Orchestrator
	Scheduler    ports.Scheduler
	Interval     time.Duration
	Timeout      time.Duration
	Logger       zerolog.Logger

	mu     sync.Mutex
	handle ports.Handle
	busy   bool
	steps  uint64
}

type StepReport struct {
	Task  string `json:"task"`
	Value any    `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Step runs one draw now. Configuration errors are returned; task failures are
// reported in the StepReport.
func (r *Runner) Step(ctx context.Context) (StepReport, error) {
	v, err := r.Orchestrator.Run(ctx)
	if errors.Is(err, orchestrator.ErrConfiguration) {
		return StepReport{}, err
	}
	rep := StepReport{Task: r.Orchestrator.LastExecuted(), Value: v}
	if err != nil {
		rep.Error = err.Error()
		r.Logger.Warn().Str("task", rep.Task).Err(err).Msg("autopilot task failed")
	} else {
		r.Logger.Debug().Str("task", rep.Task).Msg("autopilot task done")
	}
	r.mu.Lock()
	r.steps++
	r.mu.Unlock()
	return rep, nil
}

// Start validates the task set and schedules periodic steps. A tick that
// lands while the previous step is still running is skipped.
func (r *Runner) Start() error {
	if err := r.Orchestrator.Validate(); err != nil {
		return err
	}
	interval := r.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle != nil {
		r.handle.Stop()
	}
	r.handle = r.Scheduler.Every(interval, r.tick)
	r.Logger.Info().Dur("interval", interval).Msg("autopilot started")
	return nil
}

func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle != nil {
		r.handle.Stop()
		r.handle = nil
	}
}

func (r *Runner) Steps() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.steps
}

func (r *Runner) tick() {
	r.mu.Lock()
	if r.busy || r.handle == nil {
		r.mu.Unlock()
		return
	}
	r.busy = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
	}()

	ctx := context.Background()
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	if _, err := r.Step(ctx); err != nil {
		r.Logger.Error().Err(err).Msg("autopilot misconfigured")
	}
}
