package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mdragan85/venuepoll/internal/aimd"
	"github.com/mdragan85/venuepoll/internal/backoff"
	"github.com/mdragan85/venuepoll/internal/model"
	"github.com/mdragan85/venuepoll/internal/snapshot"
	"github.com/mdragan85/venuepoll/internal/telemetry"
	"github.com/mdragan85/venuepoll/internal/venue"
)

// StatsWriter is the minimal append contract the scheduler needs from the
// rotating JSONL writers (orderbooks, poll_errors and poll_stats alike), kept
// as an interface for testability.
type StatsWriter interface {
	Append(tsMs int64, record any) error
}

// Config holds one venue scheduler's cadence and shutdown behavior.
type Config struct {
	TickInterval       time.Duration
	StatsInterval      time.Duration
	SnapshotReadPeriod time.Duration
	ShutdownGrace      time.Duration
	MaxWorkers         int
	RequestTimeout     time.Duration
}

// DefaultConfig returns sensible scheduler defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval:       time.Second,
		StatsInterval:      10 * time.Second,
		SnapshotReadPeriod: time.Second,
		ShutdownGrace:      5 * time.Second,
		MaxWorkers:         8,
		RequestTimeout:     5 * time.Second,
	}
}

// Scheduler is the polling core for one venue. It owns exactly one goroutine
// for all state mutation (ActiveSet cache, backoff, AIMD, dispatch cursor);
// only its worker pool runs additional goroutines.
type Scheduler struct {
	venueName string
	root      string
	cfg       Config

	normalizer venue.Normalizer
	pool       *workerPool

	reader   *snapshot.Reader
	backoff  *backoff.Store
	aimd     *aimd.Controller
	sampler  *telemetry.ErrorSampler
	counters telemetry.Counters

	obWriter    StatsWriter
	errWriter   StatsWriter
	statsWriter StatsWriter

	logger *slog.Logger

	activeSet      model.ActiveSet
	keys           []string
	cursor         int
	inflight       map[string]struct{}
	lastSnapshotAt time.Time
	lastStatsAt    time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a venue scheduler from its fully-wired collaborators.
func New(
	venueName, root string,
	newWorkerClient func() venue.Client,
	normalizer venue.Normalizer,
	backoffStore *backoff.Store,
	aimdCtrl *aimd.Controller,
	sampler *telemetry.ErrorSampler,
	obWriter, errWriter, statsWriter StatsWriter,
	cfg Config,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	maxWorkers := cfg.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Scheduler{
		venueName:   venueName,
		root:        root,
		cfg:         cfg,
		normalizer:  normalizer,
		pool:        newWorkerPool(maxWorkers, newWorkerClient, cfg.RequestTimeout),
		reader:      snapshot.NewReader(root, venueName),
		backoff:     backoffStore,
		aimd:        aimdCtrl,
		sampler:     sampler,
		obWriter:    obWriter,
		errWriter:   errWriter,
		statsWriter: statsWriter,
		logger:      logger.With("component", "scheduler", "venue", venueName),
		inflight:    make(map[string]struct{}),
	}
}

// Start begins the scheduler's tick loop and worker pool.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.pool.start(s.ctx, s.cfg.MaxWorkers)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("scheduler started", "max_workers", s.cfg.MaxWorkers, "tick_interval", s.cfg.TickInterval)
	return nil
}

// Stop cancels the scheduler's context, which stops dispatching and also
// cancels fetches still in flight: they are not awaited to completion.
// ShutdownGrace (or ctx) bounds only the wait for the tick loop to exit; the
// worker pool is then closed and its workers are waited for without a bound.
// Writers are flushed by their own owners.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 5 * time.Second
	}
	select {
	case <-done:
	case <-time.After(grace):
		s.logger.Warn("scheduler shutdown grace period elapsed with work still inflight")
	case <-ctx.Done():
	}

	s.pool.stop()
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.tick(time.Now())
		}
	}
}

func (s *Scheduler) tick(now time.Time) {
	s.refreshSnapshot(now)
	s.processResults(now)
	s.dispatch(now)
	s.aimd.Tick(now)
	s.emitStatsIfDue(now)
}

func (s *Scheduler) refreshSnapshot(now time.Time) {
	if !s.lastSnapshotAt.IsZero() && now.Sub(s.lastSnapshotAt) < s.cfg.SnapshotReadPeriod {
		return
	}
	s.lastSnapshotAt = now

	set, changed, err := s.reader.Poll()
	if err != nil {
		if !errors.Is(err, snapshot.ErrSnapshotMissing) && !errors.Is(err, snapshot.ErrSnapshotCorrupt) {
			s.logger.Warn("unexpected snapshot read error", "error", err)
			return
		}
		s.logger.Warn("snapshot not yet available", "error", err)
		return
	}
	if !changed {
		return
	}

	s.activeSet = set
	s.keys = make([]string, 0, len(set.Instruments))
	for k := range set.Instruments {
		s.keys = append(s.keys, k)
	}
	sort.Strings(s.keys)
	if s.cursor >= len(s.keys) {
		s.cursor = 0
	}

	live := make(map[string]struct{}, len(s.keys))
	for _, k := range s.keys {
		live[k] = struct{}{}
	}
	s.backoff.GC(live)
}

func (s *Scheduler) dispatch(now time.Time) {
	if s.aimd.InCooldown(now) {
		return
	}
	n := len(s.keys)
	if n == 0 {
		return
	}

	limit := min(s.aimd.InflightLimit(), s.cfg.MaxWorkers)
	slots := limit - len(s.inflight)

	for i := 0; i < n && slots > 0; i++ {
		idx := (s.cursor + i) % n
		key := s.keys[idx]

		if _, busy := s.inflight[key]; busy {
			continue
		}
		inst, ok := s.activeSet.Instruments[key]
		if !ok {
			continue
		}
		if !s.backoff.Eligible(key, now) {
			continue
		}

		j := job{
			key:            key,
			pollKey:        inst.PollKey,
			requestID:      uuid.New(),
			dispatchedAtMs: now.UnixMilli(),
		}
		if !s.pool.submit(j) {
			break // worker pool saturated; retry remaining keys next tick
		}
		s.inflight[key] = struct{}{}
		s.counters.RecordSubmit()
		s.logger.Debug("dispatched fetch", "instrument", key, "request_id", j.requestID)
		slots--
	}

	if n > 0 {
		s.cursor = (s.cursor + 1) % n
	}
}

func (s *Scheduler) processResults(now time.Time) {
	for _, r := range s.pool.drainResults() {
		delete(s.inflight, r.job.key)

		if r.err != nil {
			s.handleFailure(now, r, classifyFetchError(r.err))
			continue
		}

		rec, err := s.normalizer(r.raw, r.job.pollKey, r.job.dispatchedAtMs, r.obTsMs)
		if err != nil {
			s.handleFailure(now, r, &venue.FetchError{Kind: venue.KindProtocol, Err: err})
			continue
		}

		if err := s.obWriter.Append(r.job.dispatchedAtMs, rec); err != nil {
			s.logger.Error("failed to append orderbook record", "error", err, "instrument", r.job.key, "request_id", r.job.requestID)
		}
		s.logger.Debug("fetch completed", "instrument", r.job.key, "request_id", r.job.requestID, "latency_ms", r.latencyMs)
		s.backoff.RecordSuccess(r.job.key)
		s.aimd.RecordOutcome(aimd.Outcome{Success: true, LatencyMs: r.latencyMs})
		s.counters.RecordSuccess()
	}
}

func (s *Scheduler) handleFailure(now time.Time, r result, fe *venue.FetchError) {
	s.backoff.RecordFailure(r.job.key, now)
	s.aimd.RecordOutcome(aimd.Outcome{
		Success:     false,
		RateLimited: fe.Kind == venue.KindHTTP429,
		LatencyMs:   r.latencyMs,
	})
	s.counters.RecordFailure(string(fe.Kind))
	s.logger.Debug("fetch failed", "instrument", r.job.key, "request_id", r.job.requestID, "error_kind", fe.Kind)

	if s.sampler != nil && !s.sampler.Allow(now) {
		return
	}
	inst := s.activeSet.Instruments[r.job.key]
	perr := model.PollError{
		Venue:         s.venueName,
		TsMs:          now.UnixMilli(),
		InstrumentKey: r.job.key,
		MarketID:      inst.MarketID,
		Slug:          inst.Slug,
		HTTPStatus:    fe.StatusCode,
		LatencyMs:     r.latencyMs,
		ErrorKind:     string(fe.Kind),
		Message:       model.TruncateMessage(fe.Error()),
		RequestID:     r.job.requestID.String(),
	}
	if err := s.errWriter.Append(now.UnixMilli(), perr); err != nil {
		s.logger.Error("failed to append poll error record", "error", err, "request_id", r.job.requestID)
	}
}

func (s *Scheduler) emitStatsIfDue(now time.Time) {
	if !s.lastStatsAt.IsZero() && now.Sub(s.lastStatsAt) < s.cfg.StatsInterval {
		return
	}
	s.lastStatsAt = now

	stats := s.counters.Snapshot(
		s.venueName,
		now.UnixMilli(),
		len(s.activeSet.Instruments),
		s.aimd.P50LatencyMs(),
		s.aimd.P95LatencyMs(),
		s.aimd.CooldownRemaining(now).Milliseconds(),
		s.aimd.InflightLimit(),
		s.cfg.MaxWorkers,
	)
	if err := s.statsWriter.Append(now.UnixMilli(), stats); err != nil {
		s.logger.Error("failed to append poll stats record", "error", err)
	}
}

// classifyFetchError recovers the *venue.FetchError category a worker
// returned, defaulting to network for any error that escaped that contract.
func classifyFetchError(err error) *venue.FetchError {
	var fe *venue.FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &venue.FetchError{Kind: venue.KindNetwork, Err: err}
}
