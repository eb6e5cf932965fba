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

	"github.com/mdragan85/venuepoll/internal/config"
	"github.com/mdragan85/venuepoll/internal/discovery"
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

	logger.Info("starting run-discovery", "version", version.Version, "commit", version.Commit, "output_dir", outputDir)

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

	var loops []*discovery.Loop
	var writers []*writer.RotatingWriter
	g, gctx := errgroup.WithContext(ctx)

	for name, rt := range runtimes {
		venueName, rt := name, rt
		venueLogger := logger.With("venue", venueName)

		marketsWriter := writer.New(outputDir, venueName, "markets", "markets", writerCfg, venueLogger)
		if err := marketsWriter.Start(ctx); err != nil {
			logger.Error("failed to start markets writer", "venue", venueName, "error", err)
			os.Exit(1)
		}
		writers = append(writers, marketsWriter)

		loop := discovery.New(venueName, outputDir, rt.Client, rt.Rules, marketsWriter, discovery.Config{
			Interval: cfg.Discovery.Interval,
			Timeout:  rt.RequestTimeout * 4,
		}, venueLogger)
		loops = append(loops, loop)

		g.Go(func() error {
			if err := loop.Start(gctx); err != nil {
				return fmt.Errorf("venue %s: %w", venueName, err)
			}
			<-gctx.Done()
			return loop.Stop(context.Background())
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("run-discovery exited with error", "error", err)
	}

	shutdownCtx := context.Background()
	for _, w := range writers {
		if err := w.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop writer", "error", err)
		}
	}

	logger.Info("run-discovery stopped")
}
