package discovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mdragan85/venuepoll/internal/model"
	"github.com/mdragan85/venuepoll/internal/snapshot"
	"github.com/mdragan85/venuepoll/internal/venue"
)

// MarketsWriter is the subset of writer.RotatingWriter the discovery loop
// needs, kept as an interface so tests can substitute a fake.
type MarketsWriter interface {
	Append(tsMs int64, record any) error
}

// Config holds one venue's discovery cadence.
type Config struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultConfig returns sensible discovery defaults.
func DefaultConfig() Config {
	return Config{Interval: 60 * time.Second, Timeout: 30 * time.Second}
}

// Loop runs one venue's discovery cycle on a fixed cadence. It is
// single-threaded: Start spawns exactly one goroutine per Loop.
type Loop struct {
	venue  string
	root   string
	client venue.Client
	rules  any
	writer MarketsWriter
	cfg    Config
	logger *slog.Logger

	prev model.ActiveSet

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a discovery loop for one venue.
func New(venueName, root string, client venue.Client, rules any, writer MarketsWriter, cfg Config, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		venue:  venueName,
		root:   root,
		client: client,
		rules:  rules,
		writer: writer,
		cfg:    cfg,
		logger: logger.With("component", "discovery", "venue", venueName),
	}
}

// Start begins the discovery loop, running one cycle immediately.
func (l *Loop) Start(ctx context.Context) error {
	l.ctx, l.cancel = context.WithCancel(ctx)

	l.wg.Add(1)
	go l.run()

	l.logger.Info("discovery loop started", "interval", l.cfg.Interval)
	return nil
}

// Stop cancels the loop and waits for its goroutine to exit.
func (l *Loop) Stop(ctx context.Context) error {
	if l.cancel != nil {
		l.cancel()
	}
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		l.logger.Info("discovery loop stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	l.runOnce()

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			l.runOnce()
		}
	}
}

// runOnce executes a single discovery cycle: discover, diff, log changes,
// write the snapshot. A discovery failure skips the snapshot write entirely
// (the prior snapshot remains authoritative until the next cycle succeeds).
func (l *Loop) runOnce() {
	start := time.Now()

	ctx, cancel := context.WithTimeout(l.ctx, l.cfg.Timeout)
	defer cancel()

	instruments, err := l.client.Discover(ctx, l.rules)
	if err != nil {
		l.logger.Warn("discovery failed", "error", &venue.DiscoveryError{Venue: l.venue, Err: err})
		return
	}

	nowMs := start.UnixMilli()
	next := model.NewActiveSet(l.venue, instruments, nowMs, nowMs)

	changed := changedInstruments(l.prev, next)
	for _, inst := range changed {
		if err := l.writer.Append(nowMs, model.NewMarketRecord(inst)); err != nil {
			l.logger.Error("failed to append market record", "error", err, "instrument", inst.Key())
		}
	}

	if err := snapshot.Write(l.root, next); err != nil {
		l.logger.Error("failed to write snapshot", "error", err)
		return
	}

	l.prev = next

	if len(changed) > 0 {
		l.logger.Info("discovery cycle complete", "active", next.Count, "changed", len(changed), "duration", time.Since(start))
	} else {
		l.logger.Debug("discovery cycle complete", "active", next.Count, "duration", time.Since(start))
	}
}
