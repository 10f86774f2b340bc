package retry

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestSchedule(t *testing.T) {
	policy := Policy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
	}
	params := Params{Operation: "ChangeEmail", Key: "k1"}

	schedule := Schedule(params, policy)
	if len(schedule) != 5 {
		t.Fatalf("Expected 5 items in schedule, got %d", len(schedule))
	}

	want := []time.Duration{0, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second}
	for i, d := range want {
		if schedule[i] != d {
			t.Errorf("Attempt %d delay = %v, want %v", i, schedule[i], d)
		}
	}
}

func TestJitter_Deterministic(t *testing.T) {
	policy := Policy{BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second, MaxJitter: 50 * time.Millisecond}
	params := Params{Operation: "HireEmployee", Key: "abc", Attempt: 2}

	first := Backoff(params, policy)
	for i := 0; i < 10; i++ {
		if got := Backoff(params, policy); got != first {
			t.Fatalf("Backoff not deterministic: %v != %v", got, first)
		}
	}

	j := Jitter(params, policy)
	if j < 0 || j >= policy.MaxJitter {
		t.Errorf("Jitter %v out of range", j)
	}
	if first != 40*time.Millisecond+j {
		t.Errorf("Backoff = %v, want %v", first, 40*time.Millisecond+j)
	}
}

func TestBackoff_OverflowCapped(t *testing.T) {
	policy := Policy{BaseDelay: time.Hour, MaxDelay: time.Minute}
	if got := Backoff(Params{Attempt: 64}, policy); got != time.Minute {
		t.Errorf("Backoff = %v, want cap %v", got, time.Minute)
	}
}

func TestBackoff_SaturatesWithJitter(t *testing.T) {
	policy := Policy{BaseDelay: time.Hour, MaxJitter: time.Second}
	params := Params{Operation: "HireEmployee", Key: "k", Attempt: 64}
	if Jitter(params, policy) == 0 {
		t.Fatal("expected non-zero jitter for this seed")
	}
	if got := Backoff(params, policy); got != time.Duration(math.MaxInt64) {
		t.Errorf("Backoff = %v, want saturation at %v", got, time.Duration(math.MaxInt64))
	}
}

func TestPolicy_Enabled(t *testing.T) {
	if (Policy{}).Enabled() || (Policy{MaxAttempts: 1}).Enabled() {
		t.Error("single attempt policy must not be enabled")
	}
	if !(Policy{MaxAttempts: 2}).Enabled() {
		t.Error("two attempt policy must be enabled")
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); err != context.Canceled {
		t.Errorf("Sleep err = %v, want context.Canceled", err)
	}
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) err = %v", err)
	}
}
