package core

import (
	"testing"
	"time"
)

func TestDelayFor_TransientLadder(t *testing.T) {
	table := NewPolicyTable(DefaultMaxAttempts)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 30 * time.Second},
		{1, 5 * time.Minute},
		{2, 15 * time.Minute},
		{3, time.Hour},
	}

	for _, tt := range tests {
		got := table.DelayFor(CategoryTransient, tt.attempt)
		if got != tt.want {
			t.Errorf("DelayFor(transient, %d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDelayFor_RateLimitedLadder(t *testing.T) {
	table := NewPolicyTable(DefaultMaxAttempts)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 5 * time.Minute},
		{1, 15 * time.Minute},
		{2, time.Hour},
	}

	for _, tt := range tests {
		got := table.DelayFor(CategoryRateLimited, tt.attempt)
		if got != tt.want {
			t.Errorf("DelayFor(rate_limited, %d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDelayFor_ClampsBeyondLadder(t *testing.T) {
	table := NewPolicyTable(10)

	if got := table.DelayFor(CategoryRateLimited, 7); got != time.Hour {
		t.Errorf("DelayFor(rate_limited, 7) = %v, want clamp to 1h", got)
	}
	if got := table.DelayFor(CategoryTransient, 99); got != time.Hour {
		t.Errorf("DelayFor(transient, 99) = %v, want clamp to 1h", got)
	}
}

func TestDelayFor_NegativeAttemptUsesFirstRung(t *testing.T) {
	table := NewPolicyTable(DefaultMaxAttempts)

	if got := table.DelayFor(CategoryTransient, -1); got != 30*time.Second {
		t.Errorf("DelayFor(transient, -1) = %v, want 30s", got)
	}
}

func TestDelayFor_UnknownCategoryFallsBackToTransient(t *testing.T) {
	table := NewPolicyTable(DefaultMaxAttempts)

	if got := table.DelayFor(ErrorCategory("mystery"), 0); got != 30*time.Second {
		t.Errorf("DelayFor(mystery, 0) = %v, want transient 30s", got)
	}
}

func TestDelayFor_PositiveAndNonDecreasing(t *testing.T) {
	table := NewPolicyTable(DefaultMaxAttempts)

	for _, category := range []ErrorCategory{CategoryTransient, CategoryRateLimited} {
		prev := time.Duration(0)
		for attempt := 0; attempt < table.MaxAttempts(); attempt++ {
			d := table.DelayFor(category, attempt)
			if d <= 0 {
				t.Errorf("DelayFor(%s, %d) = %v, want > 0", category, attempt, d)
			}
			if d < prev {
				t.Errorf("DelayFor(%s, %d) = %v, decreased from %v", category, attempt, d, prev)
			}
			prev = d
		}
	}
}

func TestDelayFor_RateLimitedStrictlyLongerThanTransient(t *testing.T) {
	table := NewPolicyTable(DefaultMaxAttempts)

	for attempt := 0; attempt < table.MaxAttempts(); attempt++ {
		transient := table.DelayFor(CategoryTransient, attempt)
		rateLimited := table.DelayFor(CategoryRateLimited, attempt)
		if rateLimited <= transient {
			t.Errorf("attempt %d: rate_limited delay %v not strictly longer than transient %v",
				attempt, rateLimited, transient)
		}
	}
}

func TestGiveUp_Ceiling(t *testing.T) {
	table := NewPolicyTable(3)

	tests := []struct {
		retryCount int
		want       bool
	}{
		{0, false},
		{1, false},
		{2, false},
		{3, true},
		{4, true},
	}

	for _, tt := range tests {
		if got := table.GiveUp(tt.retryCount); got != tt.want {
			t.Errorf("GiveUp(%d) = %v, want %v", tt.retryCount, got, tt.want)
		}
	}
}

func TestNewPolicyTable_DefaultsCeiling(t *testing.T) {
	if got := NewPolicyTable(0).MaxAttempts(); got != DefaultMaxAttempts {
		t.Errorf("MaxAttempts() = %d, want %d", got, DefaultMaxAttempts)
	}
	if got := NewPolicyTable(-5).MaxAttempts(); got != DefaultMaxAttempts {
		t.Errorf("MaxAttempts() = %d, want %d", got, DefaultMaxAttempts)
	}
}

func TestDistinctDelays(t *testing.T) {
	delays := NewPolicyTable(DefaultMaxAttempts).DistinctDelays()

	want := []time.Duration{30 * time.Second, 5 * time.Minute, 15 * time.Minute, time.Hour}
	if len(delays) != len(want) {
		t.Fatalf("DistinctDelays() returned %d entries, want %d", len(delays), len(want))
	}
	for i, d := range delays {
		if d != want[i] {
			t.Errorf("DistinctDelays()[%d] = %v, want %v", i, d, want[i])
		}
	}
}

func TestDelayLabel(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{15 * time.Minute, "15m"},
		{time.Hour, "1h"},
	}

	for _, tt := range tests {
		if got := DelayLabel(tt.d); got != tt.want {
			t.Errorf("DelayLabel(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
