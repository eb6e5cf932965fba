package aimd

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Ceiling:           16,
		InitialLimit:      8,
		CooldownOn429:     30 * time.Second,
		HighFailRate:      0.5,
		HighLatencyMs:     2000,
		StableSeconds:     60 * time.Second,
		LowLatencyMs:      500,
		MinAdjustInterval: 30 * time.Second,
		WindowSize:        100,
	}
}

func TestNewClampsInitialLimit(t *testing.T) {
	cfg := testConfig()
	cfg.InitialLimit = 0
	c := New(cfg)
	if c.InflightLimit() != 1 {
		t.Fatalf("InflightLimit() = %d, want 1", c.InflightLimit())
	}

	cfg.InitialLimit = 100
	c = New(cfg)
	if c.InflightLimit() != cfg.Ceiling {
		t.Fatalf("InflightLimit() = %d, want ceiling %d", c.InflightLimit(), cfg.Ceiling)
	}
}

func TestTick429Halves(t *testing.T) {
	c := New(testConfig())
	now := time.Now()

	c.RecordOutcome(Outcome{Success: false, RateLimited: true, LatencyMs: 100})
	c.Tick(now)

	if c.InflightLimit() != 4 {
		t.Fatalf("InflightLimit() = %d, want 4 after halving from 8", c.InflightLimit())
	}
	if !c.InCooldown(now.Add(time.Second)) {
		t.Fatal("expected controller to be in cooldown after a 429")
	}
	if c.InCooldown(now.Add(31 * time.Second)) {
		t.Fatal("cooldown should have expired after cooldown_on_429")
	}
}

func TestTickDoesNotRehalveOnStale429Sample(t *testing.T) {
	c := New(testConfig())
	now := time.Now()

	c.RecordOutcome(Outcome{Success: false, RateLimited: true, LatencyMs: 100})
	c.Tick(now)
	if c.InflightLimit() != 4 {
		t.Fatalf("InflightLimit() = %d, want 4 after halving from 8", c.InflightLimit())
	}

	// The 429 sample is still present in the rolling window (it backs
	// fail_rate/p95 for WindowSize ticks), but only outcomes recorded since
	// the previous Tick should trigger the "any 429 this tick" halving rule.
	next := now.Add(time.Second)
	c.RecordOutcome(Outcome{Success: true, LatencyMs: 50})
	c.Tick(next)
	if c.InflightLimit() != 4 {
		t.Fatalf("InflightLimit() = %d, want unchanged 4 on a tick with no new 429s", c.InflightLimit())
	}
}

func TestTickHighFailRateDecrements(t *testing.T) {
	c := New(testConfig())
	now := time.Now()

	for i := 0; i < 10; i++ {
		c.RecordOutcome(Outcome{Success: i%2 == 0, LatencyMs: 100})
	}
	c.Tick(now)

	if c.InflightLimit() != 7 {
		t.Fatalf("InflightLimit() = %d, want 7 after a single decrement from 8", c.InflightLimit())
	}
}

func TestTickHighLatencyDecrements(t *testing.T) {
	c := New(testConfig())
	now := time.Now()

	for i := 0; i < 10; i++ {
		c.RecordOutcome(Outcome{Success: true, LatencyMs: 3000})
	}
	c.Tick(now)

	if c.InflightLimit() != 7 {
		t.Fatalf("InflightLimit() = %d, want 7 after latency-triggered decrement", c.InflightLimit())
	}
}

func TestTickIncrementsAfterStabilityWindow(t *testing.T) {
	c := New(testConfig())
	start := time.Now()

	// First tick establishes stableSince; no increase yet since the window
	// hasn't been open for StableSeconds.
	c.RecordOutcome(Outcome{Success: true, LatencyMs: 50})
	c.Tick(start)
	if c.InflightLimit() != 8 {
		t.Fatalf("InflightLimit() = %d, want unchanged 8 on first stable tick", c.InflightLimit())
	}

	later := start.Add(61 * time.Second)
	c.RecordOutcome(Outcome{Success: true, LatencyMs: 50})
	c.Tick(later)

	if c.InflightLimit() != 9 {
		t.Fatalf("InflightLimit() = %d, want 9 after stability window elapsed", c.InflightLimit())
	}
}

func TestTickRespectsMinAdjustInterval(t *testing.T) {
	c := New(testConfig())
	start := time.Now()
	c.RecordOutcome(Outcome{Success: true, LatencyMs: 50})
	c.Tick(start)

	t1 := start.Add(61 * time.Second)
	c.RecordOutcome(Outcome{Success: true, LatencyMs: 50})
	c.Tick(t1)
	if c.InflightLimit() != 9 {
		t.Fatalf("InflightLimit() = %d, want 9 after first increment", c.InflightLimit())
	}

	t2 := t1.Add(5 * time.Second)
	c.RecordOutcome(Outcome{Success: true, LatencyMs: 50})
	c.Tick(t2)
	if c.InflightLimit() != 9 {
		t.Fatalf("InflightLimit() = %d, want still 9 (min_adjust_interval not elapsed)", c.InflightLimit())
	}
}

func TestInflightLimitNeverExceedsCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.InitialLimit = cfg.Ceiling
	c := New(cfg)
	now := time.Now()

	for i := 0; i < 5; i++ {
		now = now.Add(2 * time.Minute)
		c.RecordOutcome(Outcome{Success: true, LatencyMs: 50})
		c.Tick(now)
	}

	if c.InflightLimit() != cfg.Ceiling {
		t.Fatalf("InflightLimit() = %d, want clamped at ceiling %d", c.InflightLimit(), cfg.Ceiling)
	}
}

func TestInflightLimitNeverBelowOne(t *testing.T) {
	cfg := testConfig()
	cfg.InitialLimit = 1
	c := New(cfg)
	now := time.Now()

	c.RecordOutcome(Outcome{Success: false, RateLimited: true, LatencyMs: 100})
	c.Tick(now)

	if c.InflightLimit() != 1 {
		t.Fatalf("InflightLimit() = %d, want floor of 1", c.InflightLimit())
	}
}
