package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDiscoveryInterval = 60 * time.Second

	DefaultTickInterval       = 1 * time.Second
	DefaultStatsInterval      = 10 * time.Second
	DefaultSnapshotReadPeriod = 1 * time.Second
	DefaultShutdownGrace      = 5 * time.Second

	DefaultFsyncInterval = 1 * time.Second
	DefaultFsyncRecords  = 256

	DefaultBackoffBase       = 1 * time.Second
	DefaultBackoffCap        = 300 * time.Second
	DefaultBackoffJitterFrac = 0.25

	DefaultMaxErrorsPerSecond = 50

	DefaultRequestTimeout = 5 * time.Second
	DefaultMaxWorkers     = 16

	DefaultAIMDCooldownOn429     = 30 * time.Second
	DefaultAIMDHighFailRate      = 0.5
	DefaultAIMDHighLatencyMs     = int64(2000)
	DefaultAIMDStableSeconds     = 60 * time.Second
	DefaultAIMDLowLatencyMs      = int64(500)
	DefaultAIMDMinAdjustInterval = 30 * time.Second
	DefaultAIMDWindowSize        = 100

	// DefaultRestVenue and DefaultWSVenue are the two initial venues: a
	// single-book CLOB reached over REST and a dual-book YES/NO CLOB reached
	// over a persistent WebSocket connection per worker.
	DefaultRestVenue   = "novx"
	DefaultWSVenue     = "ksh"
	DefaultRestBaseURL = "https://api.novex.example/v1"
	DefaultWSURL       = "wss://api.ksh.example/ws/v1"
)

func (c *Config) applyDefaults() {
	if c.Venues == nil {
		c.Venues = map[string]VenueConfig{
			DefaultRestVenue: {Kind: "rest", BaseURL: DefaultRestBaseURL, AIMD: AIMDConfig{Ceiling: 16}},
			DefaultWSVenue:   {Kind: "ws", WSURL: DefaultWSURL, AIMD: AIMDConfig{Ceiling: 4}},
		}
	}
	for name, v := range c.Venues {
		applyVenueDefaults(&v)
		c.Venues[name] = v
	}

	if c.Discovery.Interval == 0 {
		c.Discovery.Interval = DefaultDiscoveryInterval
	}

	if c.Scheduler.TickInterval == 0 {
		c.Scheduler.TickInterval = DefaultTickInterval
	}
	if c.Scheduler.StatsInterval == 0 {
		c.Scheduler.StatsInterval = DefaultStatsInterval
	}
	if c.Scheduler.SnapshotReadPeriod == 0 {
		c.Scheduler.SnapshotReadPeriod = DefaultSnapshotReadPeriod
	}
	if c.Scheduler.ShutdownGrace == 0 {
		c.Scheduler.ShutdownGrace = DefaultShutdownGrace
	}

	if c.Writer.FsyncInterval == 0 {
		c.Writer.FsyncInterval = DefaultFsyncInterval
	}
	if c.Writer.FsyncRecords == 0 {
		c.Writer.FsyncRecords = DefaultFsyncRecords
	}

	if c.Backoff.Base == 0 {
		c.Backoff.Base = DefaultBackoffBase
	}
	if c.Backoff.Cap == 0 {
		c.Backoff.Cap = DefaultBackoffCap
	}
	if c.Backoff.JitterFrac == 0 {
		c.Backoff.JitterFrac = DefaultBackoffJitterFrac
	}

	if c.Telemetry.MaxErrorsPerSecond == 0 {
		c.Telemetry.MaxErrorsPerSecond = DefaultMaxErrorsPerSecond
	}
}

func applyVenueDefaults(v *VenueConfig) {
	if v.MaxWorkers == 0 {
		v.MaxWorkers = DefaultMaxWorkers
	}
	if v.RequestTimeout == 0 {
		v.RequestTimeout = DefaultRequestTimeout
	}
	if v.AIMD.Ceiling == 0 {
		v.AIMD.Ceiling = DefaultMaxWorkers
	}
	if v.AIMD.InitialLimit == 0 {
		v.AIMD.InitialLimit = v.AIMD.Ceiling
	}
	if v.AIMD.CooldownOn429 == 0 {
		v.AIMD.CooldownOn429 = DefaultAIMDCooldownOn429
	}
	if v.AIMD.HighFailRate == 0 {
		v.AIMD.HighFailRate = DefaultAIMDHighFailRate
	}
	if v.AIMD.HighLatencyMs == 0 {
		v.AIMD.HighLatencyMs = DefaultAIMDHighLatencyMs
	}
	if v.AIMD.StableSeconds == 0 {
		v.AIMD.StableSeconds = DefaultAIMDStableSeconds
	}
	if v.AIMD.LowLatencyMs == 0 {
		v.AIMD.LowLatencyMs = DefaultAIMDLowLatencyMs
	}
	if v.AIMD.MinAdjustInterval == 0 {
		v.AIMD.MinAdjustInterval = DefaultAIMDMinAdjustInterval
	}
	if v.AIMD.WindowSize == 0 {
		v.AIMD.WindowSize = DefaultAIMDWindowSize
	}
}
