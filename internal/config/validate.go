package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if len(c.Venues) == 0 {
		return errors.New("venues: at least one venue must be configured")
	}
	for name, v := range c.Venues {
		if err := v.validate(name); err != nil {
			return err
		}
	}

	if c.Discovery.Interval <= 0 {
		return errors.New("discovery.interval must be > 0")
	}
	if c.Scheduler.TickInterval <= 0 {
		return errors.New("scheduler.tick_interval must be > 0")
	}
	if c.Scheduler.StatsInterval <= 0 {
		return errors.New("scheduler.stats_interval must be > 0")
	}
	if c.Scheduler.ShutdownGrace <= 0 {
		return errors.New("scheduler.shutdown_grace must be > 0")
	}

	if c.Writer.FsyncRecords < 1 {
		return errors.New("writer.fsync_records must be >= 1")
	}
	if c.Writer.FsyncInterval <= 0 {
		return errors.New("writer.fsync_interval must be > 0")
	}

	if c.Backoff.Base <= 0 {
		return errors.New("backoff.base must be > 0")
	}
	if c.Backoff.Cap < c.Backoff.Base {
		return errors.New("backoff.cap must be >= backoff.base")
	}
	if c.Backoff.JitterFrac < 0 || c.Backoff.JitterFrac > 1 {
		return errors.New("backoff.jitter_frac must be within [0, 1]")
	}

	if c.Telemetry.MaxErrorsPerSecond < 1 {
		return errors.New("telemetry.max_errors_per_second must be >= 1")
	}

	return nil
}

func (v VenueConfig) validate(name string) error {
	switch v.Kind {
	case "rest":
		if v.BaseURL == "" {
			return fmt.Errorf("venues.%s.base_url is required for kind=rest", name)
		}
	case "ws":
		if v.WSURL == "" {
			return fmt.Errorf("venues.%s.ws_url is required for kind=ws", name)
		}
	default:
		return fmt.Errorf("venues.%s.kind must be \"rest\" or \"ws\", got %q", name, v.Kind)
	}
	if v.MaxWorkers < 1 {
		return fmt.Errorf("venues.%s.max_workers must be >= 1", name)
	}
	if v.RequestTimeout <= 0 {
		return fmt.Errorf("venues.%s.request_timeout must be > 0", name)
	}
	if v.AIMD.Ceiling < 1 {
		return fmt.Errorf("venues.%s.aimd.ceiling must be >= 1", name)
	}
	if v.AIMD.InitialLimit < 1 || v.AIMD.InitialLimit > v.AIMD.Ceiling {
		return fmt.Errorf("venues.%s.aimd.initial_limit must be within [1, ceiling]", name)
	}
	return nil
}
