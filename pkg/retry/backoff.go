// Package retry computes deterministic backoff schedules for re-running
// units of work that lost an optimistic concurrency race.
package retry

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Policy bounds the retries of one operation. MaxAttempts counts the first
// attempt, so 1 means no retry.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxJitter   time.Duration
}

// Enabled reports whether the policy allows more than one attempt.
func (p Policy) Enabled() bool { return p.MaxAttempts > 1 }

// Params seed the jitter so the same operation backs off identically on
// every replica.
type Params struct {
	Operation string
	Key       string
	Attempt   int
}

// Backoff returns the delay before the given attempt: base * 2^attempt,
// capped at MaxDelay, plus deterministic jitter.
func Backoff(params Params, policy Policy) time.Duration {
	factor := int64(1)
	if params.Attempt > 0 {
		if params.Attempt > 30 {
			factor = 1 << 30
		} else {
			factor = 1 << params.Attempt
		}
	}

	var delay time.Duration
	switch {
	case policy.BaseDelay <= 0:
	case policy.MaxDelay > 0 && factor > int64(policy.MaxDelay/policy.BaseDelay):
		delay = policy.MaxDelay
	case factor > math.MaxInt64/int64(policy.BaseDelay):
		delay = time.Duration(math.MaxInt64)
	default:
		delay = time.Duration(int64(policy.BaseDelay) * factor)
	}
	jitter := Jitter(params, policy)
	if delay > time.Duration(math.MaxInt64)-jitter {
		return time.Duration(math.MaxInt64)
	}
	return delay + jitter
}

// Jitter derives a value in [0, MaxJitter) from params.
func Jitter(params Params, policy Policy) time.Duration {
	if policy.MaxJitter <= 0 {
		return 0
	}
	seed := fmt.Sprintf("%s:%s:%d", params.Operation, params.Key, params.Attempt)
	hash := sha256.Sum256([]byte(seed))
	basis := binary.BigEndian.Uint64(hash[:8])
	return time.Duration(basis % uint64(policy.MaxJitter)) //nolint:gosec // MaxJitter is positive
}

// Schedule lists the delay before each attempt. The first attempt never
// waits.
func Schedule(params Params, policy Policy) []time.Duration {
	if policy.MaxAttempts <= 0 {
		return nil
	}
	out := make([]time.Duration, policy.MaxAttempts)
	for i := 1; i < policy.MaxAttempts; i++ {
		p := params
		p.Attempt = i
		out[i] = Backoff(p, policy)
	}
	return out
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
