package orchestrator

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

func constTask(name string, p float64) Task {
	return Task{Name: name, Probability: p, Action: func(context.Context) (any, error) { return name, nil }}
}

func TestOrchestrator_DistributionApproximatesWeights(t *testing.T) {
	src := rand.New(rand.NewPCG(42, 1337))
	o := New([]Task{constTask("a", 30), constTask("b", 70)}, WithRand(src.Float64))

	const draws = 100000
	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		v, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		counts[v.(string)]++
	}
	share := float64(counts["a"]) / draws
	if math.Abs(share-0.30) > 0.01 {
		t.Fatalf("share of a out of tolerance: got=%.4f want=0.30±0.01", share)
	}
}

func TestOrchestrator_RejectsBadTotalsBeforeDrawing(t *testing.T) {
	for _, total := range [][]float64{{30, 69}, {30, 71}} {
		drawn := false
		o := New([]Task{constTask("a", total[0]), constTask("b", total[1])}, WithRand(func() float64 {
			drawn = true
			return 0
		}))
		_, err := o.Run(context.Background())
		var cfgErr *ConfigurationError
		if !errors.As(err, &cfgErr) || !errors.Is(err, ErrConfiguration) {
			t.Fatalf("expected ConfigurationError, got %v", err)
		}
		if cfgErr.Total != total[0]+total[1] {
			t.Fatalf("reported total mismatch: got=%v", cfgErr.Total)
		}
		if drawn {
			t.Fatalf("draw happened before validation")
		}
		if o.LastExecuted() != "" {
			t.Fatalf("last executed set on failure: %q", o.LastExecuted())
		}
	}
}

func TestOrchestrator_EmptyTaskSet(t *testing.T) {
	o := New(nil)
	if _, err := o.Run(context.Background()); !errors.Is(err, ErrEmptyTaskSet) || !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrEmptyTaskSet, got %v", err)
	}
	if _, err := o.RunAsync(context.Background()); !errors.Is(err, ErrEmptyTaskSet) {
		t.Fatalf("expected ErrEmptyTaskSet from RunAsync, got %v", err)
	}
}

func TestOrchestrator_HalfOpenIntervals(t *testing.T) {
	cases := []struct {
		draw float64
		want string
	}{
		{draw: 0, want: "a"},
		{draw: 0.2999, want: "a"},
		{draw: 0.30, want: "b"},
		{draw: 0.9999, want: "b"},
	}
	for _, tc := range cases {
		draw := tc.draw
		o := New([]Task{constTask("a", 30), constTask("b", 70)}, WithRand(func() float64 { return draw }))
		v, err := o.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if v != tc.want || o.LastExecuted() != tc.want {
			t.Fatalf("draw %v: got=%v last=%q want=%q", tc.draw, v, o.LastExecuted(), tc.want)
		}
	}
}

func TestOrchestrator_FallsBackToLastTask(t *testing.T) {
	o := New([]Task{constTask("a", 50), constTask("b", 50)}, WithRand(func() float64 { return 1 }))
	v, err := o.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if v != "b" {
		t.Fatalf("expected fallback to last task, got %v", v)
	}
}

func TestOrchestrator_ZeroWeightTaskNeverRuns(t *testing.T) {
	src := rand.New(rand.NewPCG(7, 7))
	o := New([]Task{constTask("never", 0), constTask("always", 100)}, WithRand(src.Float64))
	for i := 0; i < 1000; i++ {
		if v, _ := o.Run(context.Background()); v != "always" {
			t.Fatalf("zero-weight task selected")
		}
	}
}

func TestOrchestrator_RunAsyncDeliversResult(t *testing.T) {
	boom := errors.New("boom")
	o := New([]Task{{Name: "fail", Probability: 100, Action: func(context.Context) (any, error) { return nil, boom }}})
	ch, err := o.RunAsync(context.Background())
	if err != nil {
		t.Fatalf("run async: %v", err)
	}
	res := <-ch
	if res.Task != "fail" || !errors.Is(res.Err, boom) {
		t.Fatalf("unexpected result: %+v", res)
	}
	if o.LastExecuted() != "fail" {
		t.Fatalf("last executed mismatch: %q", o.LastExecuted())
	}
}

func TestOrchestrator_TaskSetIsImmutable(t *testing.T) {
	tasks := []Task{constTask("a", 100)}
	o := New(tasks)
	tasks[0].Probability = 1
	if err := o.Validate(); err != nil {
		t.Fatalf("caller mutation leaked into orchestrator: %v", err)
	}
}
