package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mdragan85/venuepoll/internal/aimd"
	"github.com/mdragan85/venuepoll/internal/backoff"
	"github.com/mdragan85/venuepoll/internal/config"
	"github.com/mdragan85/venuepoll/internal/scheduler"
	"github.com/mdragan85/venuepoll/internal/telemetry"
	"github.com/mdragan85/venuepoll/internal/version"
	"github.com/mdragan85/venuepoll/internal/wiring"
	"github.com/mdragan85/venuepoll/internal/writer"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional; defaults are used if absent)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	outputDir, ok := os.LookupEnv("OUTPUT_DIR")
	if !ok || outputDir == "" {
		logger.Error("OUTPUT_DIR env var is required")
		os.Exit(1)
	}

	logger.Info("starting run-logger", "version", version.Version, "commit", version.Commit, "output_dir", outputDir)

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	runtimes, err := wiring.BuildRuntimes(cfg)
	if err != nil {
		logger.Error("failed to build venue runtimes", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	writerCfg := writer.Config{FsyncInterval: cfg.Writer.FsyncInterval, FsyncRecords: cfg.Writer.FsyncRecords}

	var writers []*writer.RotatingWriter
	g, gctx := errgroup.WithContext(ctx)

	for name, rt := range runtimes {
		venueName, rt := name, rt
		vc := cfg.Venues[venueName]
		venueLogger := logger.With("venue", venueName)

		obWriter := writer.New(outputDir, venueName, "orderbooks", "orderbooks", writerCfg, venueLogger)
		errWriter := writer.New(outputDir, venueName, "poll_errors", "errors", writerCfg, venueLogger)
		statsWriter := writer.New(outputDir, venueName, "poll_stats", "stats", writerCfg, venueLogger)
		for _, w := range []*writer.RotatingWriter{obWriter, errWriter, statsWriter} {
			if err := w.Start(ctx); err != nil {
				logger.Error("failed to start writer", "venue", venueName, "error", err)
				os.Exit(1)
			}
			writers = append(writers, w)
		}

		backoffStore := backoff.NewStore(backoff.Config{
			Base:       cfg.Backoff.Base,
			Cap:        cfg.Backoff.Cap,
			JitterFrac: cfg.Backoff.JitterFrac,
		})
		aimdCtrl := aimd.New(aimd.Config{
			Ceiling:           vc.AIMD.Ceiling,
			InitialLimit:      vc.AIMD.InitialLimit,
			CooldownOn429:     vc.AIMD.CooldownOn429,
			HighFailRate:      vc.AIMD.HighFailRate,
			HighLatencyMs:     vc.AIMD.HighLatencyMs,
			StableSeconds:     vc.AIMD.StableSeconds,
			LowLatencyMs:      vc.AIMD.LowLatencyMs,
			MinAdjustInterval: vc.AIMD.MinAdjustInterval,
			WindowSize:        vc.AIMD.WindowSize,
		})
		sampler := telemetry.NewErrorSampler(cfg.Telemetry.MaxErrorsPerSecond)

		sched := scheduler.New(
			venueName, outputDir,
			rt.NewWorkerClient,
			rt.Normalizer,
			backoffStore,
			aimdCtrl,
			sampler,
			obWriter, errWriter, statsWriter,
			scheduler.Config{
				TickInterval:       cfg.Scheduler.TickInterval,
				StatsInterval:      cfg.Scheduler.StatsInterval,
				SnapshotReadPeriod: cfg.Scheduler.SnapshotReadPeriod,
				ShutdownGrace:      cfg.Scheduler.ShutdownGrace,
				MaxWorkers:         rt.MaxWorkers,
				RequestTimeout:     rt.RequestTimeout,
			},
			venueLogger,
		)

		g.Go(func() error {
			if err := sched.Start(gctx); err != nil {
				return fmt.Errorf("venue %s: %w", venueName, err)
			}
			<-gctx.Done()
			return sched.Stop(context.Background())
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("run-logger exited with error", "error", err)
	}

	shutdownCtx := context.Background()
	for _, w := range writers {
		if err := w.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop writer", "error", err)
		}
	}

	logger.Info("run-logger stopped")
}
