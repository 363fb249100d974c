package game

import (
	"math"
	"testing"
)

func TestAdvanceMining_SaturatesAfterCeilTicks(t *testing.T) {
	cases := []struct {
		name     string
		rate     float64
		capacity float64
	}{
		{name: "even", rate: 5, capacity: 100},
		{name: "remainder", rate: 3, capacity: 10},
		{name: "rate above cap", rate: 50, capacity: 20},
		{name: "fractional", rate: 0.1, capacity: 1},
		{name: "fractional large", rate: 0.3, capacity: 123.4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := UserSnapshot{MiningRate: tc.rate, VaultCapacity: tc.capacity}
			ticks := int(math.Ceil(tc.capacity / tc.rate))
			for i := 1; i < ticks; i++ {
				if AdvanceMining(&u) {
					t.Fatalf("saturated early at tick %d: temp=%v", i, u.TempCoins)
				}
			}
			if !AdvanceMining(&u) {
				t.Fatalf("expected saturation at tick %d, temp=%v", ticks, u.TempCoins)
			}
			if u.TempCoins != tc.capacity {
				t.Fatalf("temp coins mismatch: got=%v want=%v", u.TempCoins, tc.capacity)
			}
			if !AdvanceMining(&u) || u.TempCoins != tc.capacity {
				t.Fatalf("expected idempotent cap, got temp=%v", u.TempCoins)
			}
		})
	}
}

func TestAdvanceMining_ZeroCapacityIsFull(t *testing.T) {
	u := UserSnapshot{MiningRate: 1, TempCoins: 3}
	if !AdvanceMining(&u) {
		t.Fatalf("expected zero-capacity vault to be full")
	}
	if u.TempCoins != 0 {
		t.Fatalf("expected temp coins clamped to 0, got %v", u.TempCoins)
	}
}

func TestAdvanceMining_ClampsOverfilledVault(t *testing.T) {
	u := UserSnapshot{MiningRate: 1, TempCoins: 12, VaultCapacity: 10}
	if !AdvanceMining(&u) {
		t.Fatalf("expected full vault")
	}
	if u.TempCoins != 10 {
		t.Fatalf("expected clamp to capacity, got %v", u.TempCoins)
	}
}

func TestTicksToFill(t *testing.T) {
	if got := TicksToFill(UserSnapshot{MiningRate: 3, VaultCapacity: 10}); got != 4 {
		t.Fatalf("ticks mismatch: got=%d want=4", got)
	}
	if got := TicksToFill(UserSnapshot{MiningRate: 0, VaultCapacity: 10}); got != -1 {
		t.Fatalf("expected -1 for zero rate, got %d", got)
	}
	if got := TicksToFill(UserSnapshot{MiningRate: 1, TempCoins: 10, VaultCapacity: 10}); got != 0 {
		t.Fatalf("expected 0 for full vault, got %d", got)
	}
}
