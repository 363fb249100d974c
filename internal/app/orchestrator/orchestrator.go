package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

var (
	ErrConfiguration = errors.New("orchestrator misconfigured")
	ErrEmptyTaskSet  = fmt.Errorf("%w: no tasks registered", ErrConfiguration)
)

// ConfigurationError reports a task set whose probabilities do not total 100.
type ConfigurationError struct {
	Total float64
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: total probability must equal 100, got %v", ErrConfiguration, e.Total)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

type Task struct {
	Name        string
	Probability float64
	Action      func(ctx context.Context) (any, error)
}

type Result struct {
	Task  string
	Value any
	Err   error
}

// Orchestrator runs one task per invocation, chosen at random in proportion to
// its probability.
type Orchestrator struct {
	tasks []Task
	rand  func() float64

	mu   sync.Mutex
	last string
}

type Option func(*Orchestrator)

// WithRand replaces the uniform [0,1) source used for draws.
func WithRand(fn func() float64) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.rand = fn
		}
	}
}

func New(tasks []Task, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		tasks: append([]Task(nil), tasks...),
		rand:  rand.Float64,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Validate() error {
	if len(o.tasks) == 0 {
		return ErrEmptyTaskSet
	}
	total := 0.0
	for _, t := range o.tasks {
		total += t.Probability
	}
	if total != 100 {
		return &ConfigurationError{Total: total}
	}
	return nil
}

// Run selects a task, records it as last executed and runs its action on the
// calling goroutine.
func (o *Orchestrator) Run(ctx context.Context) (any, error) {
	task, err := o.selectTask()
	if err != nil {
		return nil, err
	}
	o.setLast(task.Name)
	return invoke(ctx, task)
}

// RunAsync validates and selects synchronously, then runs the action in its own
// goroutine. The channel receives exactly one Result.
func (o *Orchestrator) RunAsync(ctx context.Context) (<-chan Result, error) {
	task, err := o.selectTask()
	if err != nil {
		return nil, err
	}
	o.setLast(task.Name)
	out := make(chan Result, 1)
	go func() {
		v, err := invoke(ctx, task)
		out <- Result{Task: task.Name, Value: v, Err: err}
	}()
	return out, nil
}

func (o *Orchestrator) LastExecuted() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

func (o *Orchestrator) Tasks() []Task {
	return append([]Task(nil), o.tasks...)
}

func (o *Orchestrator) selectTask() (Task, error) {
	if err := o.Validate(); err != nil {
		return Task{}, err
	}
	draw := o.rand() * 100
	cumulative := 0.0
	for _, t := range o.tasks {
		cumulative += t.Probability
		if draw < cumulative {
			return t, nil
		}
	}
	// Float accumulation can leave the final bound a hair under 100.
	return o.tasks[len(o.tasks)-1], nil
}

func (o *Orchestrator) setLast(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.last = name
}

func invoke(ctx context.Context, t Task) (any, error) {
	if t.Action == nil {
		return nil, nil
	}
	return t.Action(ctx)
}
