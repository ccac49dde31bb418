package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/frostlabs-io/icekeeper/internal/config"
	"github.com/frostlabs-io/icekeeper/internal/logging"
	"github.com/frostlabs-io/icekeeper/internal/maintenance"
	"github.com/frostlabs-io/icekeeper/internal/policy"
	"github.com/frostlabs-io/icekeeper/internal/version"
	"github.com/frostlabs-io/icekeeper/pkg/trinoconn"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file (default: ./config.yaml or /etc/icekeeper/config.yaml)")
	runOnce := flag.Bool("once", false, "Run a single maintenance cycle and exit, ignoring schedule.cron")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		info := version.Get()
		fmt.Printf("icekeeper %s\n", info.Version)
		fmt.Printf("  Commit:     %s\n", info.Commit)
		fmt.Printf("  Built:      %s\n", info.BuildDate)
		fmt.Printf("  Go version: %s\n", info.GoVersion)
		fmt.Printf("  OS/Arch:    %s\n", info.Platform)
		os.Exit(0)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	info := version.Get()
	logger.Info("starting icekeeper",
		"version", info.Version,
		"commit", info.Commit,
		"built", info.BuildDate,
		"catalog", cfg.Trino.Catalog,
		"schema", cfg.Trino.Schema,
	)

	// Setup graceful shutdown: first signal cancels the cycle context
	// (running tables finish, nothing new is dispatched).
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	if err := run(ctx, cfg, *runOnce, logger); err != nil {
		logger.Error("icekeeper exiting with failure", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, runOnce bool, logger *slog.Logger) error {
	trino := trinoconn.Config{
		Host:     cfg.Trino.Host,
		Port:     cfg.Trino.Port,
		User:     cfg.Trino.User,
		Password: cfg.Trino.Password,
		Catalog:  cfg.Trino.Catalog,
		Schema:   cfg.Trino.Schema,
	}

	// Control connection: policy reads and schema creation. Per-task
	// connections come from the factory.
	control, err := trinoconn.Open(ctx, trino)
	if err != nil {
		return fmt.Errorf("connect to trino: %w", err)
	}
	defer control.Close()

	store := policy.NewStore(control, cfg.Maintenance.ScheduleTable)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	runner := maintenance.NewRunner(
		maintenance.Config{Workers: cfg.Maintenance.Workers},
		store,
		trinoconn.Factory(trino),
		logger,
	)

	if runOnce || cfg.Schedule.Cron == "" {
		report, err := runner.RunCycle(ctx)
		if err != nil {
			return err
		}
		if report.HasFailures() {
			return fmt.Errorf("%d of %d tables failed maintenance", report.Failed, report.Failed+report.Succeeded)
		}
		return nil
	}

	return runScheduled(ctx, cfg.Schedule.Cron, runner, logger)
}

// runScheduled runs a cycle per cron firing until the context is cancelled.
// A firing is skipped when the previous cycle is still running.
func runScheduled(ctx context.Context, spec string, runner *maintenance.Runner, logger *slog.Logger) error {
	var running atomic.Bool

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if !running.CompareAndSwap(false, true) {
			logger.Warn("previous maintenance cycle still running, skipping this firing")
			return
		}
		defer running.Store(false)

		if _, err := runner.RunCycle(ctx); err != nil {
			logger.Error("maintenance cycle failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cycles: %w", err)
	}

	logger.Info("running on schedule", "cron", spec)
	c.Start()

	<-ctx.Done()
	// Stop firing and wait for an in-flight cycle to finish.
	<-c.Stop().Done()
	logger.Info("icekeeper stopped")
	return nil
}
