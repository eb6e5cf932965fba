// Package aimd implements the per-venue additive-increase/multiplicative-
// decrease congestion controller that governs how many polls a venue
// scheduler may keep in flight at once.
package aimd

import (
	"sort"
	"time"
)

// Config holds the controller's thresholds. Ceilings and thresholds are
// plain per-venue configuration, not derived or learned.
type Config struct {
	Ceiling           int
	InitialLimit      int
	CooldownOn429     time.Duration
	HighFailRate      float64
	HighLatencyMs     int64
	StableSeconds     time.Duration
	LowLatencyMs      int64
	MinAdjustInterval time.Duration
	WindowSize        int
}

// Outcome is one fetch result fed to the controller's rolling window.
type Outcome struct {
	Success     bool
	RateLimited bool
	LatencyMs   int64
}

// Controller tracks one venue's inflight_limit and the rolling window used
// to derive fail_rate and p95_latency_ms. It is owned exclusively by that
// venue's scheduler goroutine; no locking is required.
type Controller struct {
	cfg Config

	inflightLimit int
	cooldownUntil time.Time
	stableSince   time.Time
	lastAdjust    time.Time

	window       *window
	tick429Count int
}

// New creates a Controller seeded at cfg.InitialLimit.
func New(cfg Config) *Controller {
	limit := cfg.InitialLimit
	if limit < 1 {
		limit = 1
	}
	if limit > cfg.Ceiling {
		limit = cfg.Ceiling
	}
	return &Controller{
		cfg:           cfg,
		inflightLimit: limit,
		window:        newWindow(cfg.WindowSize),
	}
}

// InflightLimit returns the current control variable.
func (c *Controller) InflightLimit() int {
	return c.inflightLimit
}

// P50LatencyMs returns the current rolling window's median latency, for
// telemetry emission alongside the AIMD-driving p95 figure.
func (c *Controller) P50LatencyMs() int64 {
	return c.window.percentileLatencyMs(50)
}

// P95LatencyMs returns the current rolling window's p95 latency.
func (c *Controller) P95LatencyMs() int64 {
	return c.window.p95LatencyMs()
}

// CooldownRemaining reports how long (from now) the venue should not accept
// new dispatches, or zero if not in cooldown.
func (c *Controller) CooldownRemaining(now time.Time) time.Duration {
	if c.cooldownUntil.IsZero() || !now.Before(c.cooldownUntil) {
		return 0
	}
	return c.cooldownUntil.Sub(now)
}

// InCooldown reports whether new dispatches should be withheld at now.
func (c *Controller) InCooldown(now time.Time) bool {
	return c.CooldownRemaining(now) > 0
}

// RecordOutcome appends one fetch result to the rolling window that backs
// fail_rate / p95_latency_ms, and counts it toward the current tick's 429
// observations. Call once per completed fetch, then Tick once per scheduler
// tick to re-evaluate inflight_limit.
func (c *Controller) RecordOutcome(o Outcome) {
	c.window.add(o)
	if o.RateLimited {
		c.tick429Count++
	}
}

// Tick evaluates the AIMD rules in priority order (429 > fail_rate > latency
// > stability) and adjusts inflight_limit / cooldown_until / stable_since
// accordingly. It must be called once per scheduler tick, after the tick's
// outcomes have been recorded. "Any 429 this tick" is judged only against
// outcomes recorded since the previous Tick call; fail_rate and p95 latency
// are judged against the longer-lived rolling window, per spec.
func (c *Controller) Tick(now time.Time) {
	if c.stableSince.IsZero() {
		c.stableSince = now
	}

	any429 := c.tick429Count > 0
	failRate := c.window.failRate()
	p95 := c.window.p95LatencyMs()

	switch {
	case any429:
		c.halve()
		c.cooldownUntil = now.Add(c.cfg.CooldownOn429)
		c.resetStability(now)

	case failRate >= c.cfg.HighFailRate:
		c.decrement()
		c.resetStability(now)

	case p95 >= c.cfg.HighLatencyMs:
		c.decrement()
		c.resetStability(now)

	default:
		if c.eligibleForIncrease(now, failRate, p95) {
			c.increment()
			c.lastAdjust = now
		}
	}

	c.tick429Count = 0
}

func (c *Controller) eligibleForIncrease(now time.Time, failRate float64, p95 int64) bool {
	if now.Sub(c.stableSince) < c.cfg.StableSeconds {
		return false
	}
	if failRate >= c.cfg.HighFailRate/2 {
		return false
	}
	if p95 >= c.cfg.LowLatencyMs {
		return false
	}
	if !c.lastAdjust.IsZero() && now.Sub(c.lastAdjust) < c.cfg.MinAdjustInterval {
		return false
	}
	return true
}

func (c *Controller) halve() {
	c.inflightLimit = max(1, c.inflightLimit/2)
}

func (c *Controller) decrement() {
	c.inflightLimit = max(1, c.inflightLimit-1)
}

func (c *Controller) increment() {
	c.inflightLimit = min(c.cfg.Ceiling, c.inflightLimit+1)
}

func (c *Controller) resetStability(now time.Time) {
	c.stableSince = now
}

// window is a fixed-capacity ring buffer of Outcome samples, distinct from
// ringbuf.Buffer: it never grows and it overwrites the oldest sample once
// full, since only the most recent WindowSize observations matter for
// fail_rate / p95 calculations.
type window struct {
	samples []Outcome
	next    int
	count   int
}

func newWindow(size int) *window {
	if size < 1 {
		size = 1
	}
	return &window{samples: make([]Outcome, size)}
}

func (w *window) add(o Outcome) {
	w.samples[w.next] = o
	w.next = (w.next + 1) % len(w.samples)
	if w.count < len(w.samples) {
		w.count++
	}
}

func (w *window) failRate() float64 {
	if w.count == 0 {
		return 0
	}
	var fails int
	for i := 0; i < w.count; i++ {
		if !w.samples[i].Success {
			fails++
		}
	}
	return float64(fails) / float64(w.count)
}

func (w *window) p95LatencyMs() int64 {
	return w.percentileLatencyMs(95)
}

func (w *window) percentileLatencyMs(pct int) int64 {
	if w.count == 0 {
		return 0
	}
	latencies := make([]int64, 0, w.count)
	for i := 0; i < w.count; i++ {
		latencies = append(latencies, w.samples[i].LatencyMs)
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	idx := (len(latencies) * pct) / 100
	if idx >= len(latencies) {
		idx = len(latencies) - 1
	}
	return latencies[idx]
}
