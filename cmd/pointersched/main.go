// Command pointersched runs the scheduler daemon: it polls every
// configured repository on its own interval, fetches configured branch
// patterns, runs the indexer against changed branches, and runs
// pre-index/post-upload/finish hooks around each cycle.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ferg-cod3s/pointerindex/internal/observability"
	"github.com/ferg-cod3s/pointerindex/internal/scheduler"
)

func main() {
	var (
		configPath = flag.String("config", "scheduler.yaml", "path to scheduler config file")
		logLevel   = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		logFormat  = flag.String("log-format", "json", "log format (json, text)")
		once       = flag.Bool("once", false, "run a single cycle over every repo and exit")
	)
	flag.Parse()

	logger := observability.NewLogger(observability.LoggerConfig{
		Level:     *logLevel,
		Format:    *logFormat,
		Output:    os.Stdout,
		AddSource: true,
	})

	cfg, err := scheduler.LoadConfig(*configPath)
	if err != nil {
		logger.Error("Failed to load scheduler config", "error", err)
		os.Exit(1)
	}

	sched, err := scheduler.NewScheduler(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize scheduler", "error", err)
		os.Exit(1)
	}

	if err := sched.ValidateRuntime(); err != nil {
		logger.Error("Scheduler runtime validation failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("pointersched starting",
		"config", *configPath,
		"repos", len(cfg.Repos),
		"once", *once,
	)

	if *once {
		if err := sched.RunOnce(ctx); err != nil {
			logger.Error("Scheduler cycle failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := sched.RunForever(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Scheduler stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("pointersched stopped")
}
