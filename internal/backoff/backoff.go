// Package backoff implements per-instrument exponential backoff with jitter,
// scheduled on the monotonic clock so wall-clock adjustments never skip or
// delay a poll.
package backoff

import (
	"math/rand/v2"
	"time"
)

// Config holds the backoff schedule parameters.
type Config struct {
	Base       time.Duration
	Cap        time.Duration
	JitterFrac float64
}

// State is one instrument's poller-local backoff state. It is created on
// first failure and deleted on success or when the instrument leaves the
// ActiveSet; it is never persisted.
type State struct {
	NextEligibleAt      time.Time
	ConsecutiveFailures int
}

// Eligible reports whether the instrument may be dispatched at now.
func (s State) Eligible(now time.Time) bool {
	return !now.Before(s.NextEligibleAt)
}

// Advance computes the next backoff state after another consecutive failure,
// using now as the failure observation time.
//
//	delay = min(base * 2^(n-1), cap) * uniform(1-jitter, 1+jitter)
func Advance(cfg Config, prev State, now time.Time) State {
	n := prev.ConsecutiveFailures + 1
	delay := expDelay(cfg.Base, cfg.Cap, n)
	delay = jitter(delay, cfg.JitterFrac)
	return State{
		NextEligibleAt:      now.Add(delay),
		ConsecutiveFailures: n,
	}
}

func expDelay(base, cap_ time.Duration, n int) time.Duration {
	if n <= 0 {
		return 0
	}
	// 2^(n-1), guarding against overflow for pathologically large n.
	shift := uint(n - 1)
	if shift > 32 {
		return cap_
	}
	d := base * time.Duration(int64(1)<<shift)
	if d <= 0 || d > cap_ {
		return cap_
	}
	return d
}

// jitter scales d by a uniform factor in [1-frac, 1+frac].
func jitter(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	factor := (1 - frac) + rand.Float64()*(2*frac)
	return time.Duration(float64(d) * factor)
}
