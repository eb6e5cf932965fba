package config

import "time"

// Config is the root configuration for both run-discovery and run-logger.
// Each process only exercises the sections relevant to it, but both share one
// schema so operators maintain a single file.
type Config struct {
	Venues    map[string]VenueConfig `yaml:"venues"`
	Discovery DiscoveryConfig        `yaml:"discovery"`
	Scheduler SchedulerConfig        `yaml:"scheduler"`
	Writer    WriterConfig           `yaml:"writer"`
	Backoff   BackoffConfig          `yaml:"backoff"`
	Telemetry TelemetryConfig        `yaml:"telemetry"`
}

// VenueConfig holds the per-venue knobs: which client implementation to use,
// its connection details, static worker-pool size, and AIMD ceiling/thresholds.
type VenueConfig struct {
	// Kind selects the venue client adapter: "rest" (novx-style, single-book) or
	// "ws" (ksh-style, dual-book YES/NO over a persistent per-worker connection).
	Kind string `yaml:"kind"`

	MaxWorkers     int           `yaml:"max_workers"`
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// REST client settings (Kind == "rest").
	BaseURL string `yaml:"base_url"`

	// WebSocket client settings (Kind == "ws").
	WSURL string `yaml:"ws_url"`

	APIKey         string `yaml:"api_key"`
	PrivateKeyPath string `yaml:"private_key_path"`

	AIMD AIMDConfig `yaml:"aimd"`
}

// AIMDConfig holds the per-venue AIMD controller thresholds.
type AIMDConfig struct {
	Ceiling           int           `yaml:"ceiling"`
	InitialLimit      int           `yaml:"initial_limit"`
	CooldownOn429     time.Duration `yaml:"cooldown_on_429"`
	HighFailRate      float64       `yaml:"high_fail_rate"`
	HighLatencyMs     int64         `yaml:"high_latency_ms"`
	StableSeconds     time.Duration `yaml:"stable_seconds"`
	LowLatencyMs      int64         `yaml:"low_latency_ms"`
	MinAdjustInterval time.Duration `yaml:"min_adjust_interval"`
	WindowSize        int           `yaml:"window_size"`
}

// DiscoveryConfig holds Discovery loop cadence.
type DiscoveryConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// SchedulerConfig holds Venue Scheduler cadence and shutdown behavior.
type SchedulerConfig struct {
	TickInterval       time.Duration `yaml:"tick_interval"`
	StatsInterval      time.Duration `yaml:"stats_interval"`
	SnapshotReadPeriod time.Duration `yaml:"snapshot_read_period"`
	ShutdownGrace      time.Duration `yaml:"shutdown_grace"`
}

// WriterConfig holds the rotating JSONL writer's flush/fsync policy.
type WriterConfig struct {
	FsyncInterval time.Duration `yaml:"fsync_interval"`
	FsyncRecords  int           `yaml:"fsync_records"`
}

// BackoffConfig holds the per-instrument exponential backoff parameters.
type BackoffConfig struct {
	Base       time.Duration `yaml:"base"`
	Cap        time.Duration `yaml:"cap"`
	JitterFrac float64       `yaml:"jitter_frac"`
}

// TelemetryConfig holds poll_errors sampling policy.
type TelemetryConfig struct {
	MaxErrorsPerSecond int `yaml:"max_errors_per_second"`
}
