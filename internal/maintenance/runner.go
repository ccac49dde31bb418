// Package maintenance schedules and executes table maintenance cycles: it
// loads the policy rows, fans one task per table out over a bounded worker
// pool, and aggregates the outcomes into a report.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/frostlabs-io/icekeeper/internal/engine"
	"github.com/frostlabs-io/icekeeper/internal/policy"
)

// DefaultWorkers bounds cycle concurrency when no override is configured.
const DefaultWorkers = 5

// Config controls a runner. Zero values fall back to documented defaults.
type Config struct {
	// Workers is the maximum number of tables maintained concurrently.
	Workers int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	return c
}

// Runner dispatches one maintenance cycle at a time.
type Runner struct {
	cfg     Config
	store   PolicyStore
	connect ConnFactory
	exec    Executor
	logger  *slog.Logger
	now     func() time.Time
}

// NewRunner creates a runner over an already-established policy store and a
// factory for per-task engine connections.
func NewRunner(cfg Config, store PolicyStore, connect ConnFactory, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "maintenance_runner")
	return &Runner{
		cfg:     cfg.withDefaults(),
		store:   store,
		connect: connect,
		exec:    engine.NewExecutor(logger),
		logger:  logger,
		now:     time.Now,
	}
}

// RunCycle loads all policy rows and runs one task per table with bounded
// concurrency. A failed task never aborts its siblings; failures only show
// up in the aggregate report. Cancelling ctx stops dispatching further
// tasks, while tasks already running are left to reach a terminal state.
func (r *Runner) RunCycle(ctx context.Context) (*Report, error) {
	policies, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load maintenance policies: %w", err)
	}

	report := &Report{
		Started: time.Now(),
		OpsRun:  make(map[policy.Operation]int),
	}
	r.logger.Info("starting maintenance cycle", "tables", len(policies), "workers", r.cfg.Workers)

	// Dispatched tasks run under a detached context so cancellation never
	// kills an engine command mid-operation; ctx only gates dispatch.
	execCtx := context.WithoutCancel(ctx)

	p := pool.NewWithResults[Result]().WithMaxGoroutines(r.cfg.Workers)
	for _, pol := range policies {
		if ctx.Err() != nil {
			report.Skipped++
			r.logger.Warn("cycle cancelled, skipping table", "table", pol.TableName)
			continue
		}
		p.Go(func() Result {
			// Re-check once a worker picks this up: dispatch may have
			// queued it just before cancellation.
			if ctx.Err() != nil {
				return Result{Table: pol.TableName, Skipped: true}
			}
			task := NewTask(pol, r.connect, r.store, r.exec, r.logger, r.now)
			return task.Run(execCtx)
		})
	}

	for _, res := range p.Wait() {
		report.Results = append(report.Results, res)
		switch {
		case res.Skipped:
			report.Skipped++
		case res.Err != nil:
			report.Failed++
			report.Failures = append(report.Failures, Failure{Table: res.Table, Err: res.Err})
		default:
			report.Succeeded++
		}
		for _, op := range res.OpsRun {
			report.OpsRun[op]++
		}
	}

	report.Finished = time.Now()
	r.logCycleSummary(report)
	return report, nil
}

// logCycleSummary emits one structured entry for the cycle, and a separate
// warning listing failures when there are any.
func (r *Runner) logCycleSummary(report *Report) {
	ops := make(map[string]int, len(report.OpsRun))
	for op, n := range report.OpsRun {
		ops[string(op)] = n
	}

	r.logger.Info("maintenance cycle complete",
		slog.Group("cycle",
			slog.Duration("duration", report.Finished.Sub(report.Started).Round(time.Millisecond)),
			slog.Int("succeeded", report.Succeeded),
			slog.Int("failed", report.Failed),
			slog.Int("skipped", report.Skipped),
		),
		slog.Any("operations", ops),
	)

	if len(report.Failures) > 0 {
		failures := make([]string, 0, len(report.Failures))
		for _, f := range report.Failures {
			failures = append(failures, f.Err.Error())
		}
		r.logger.Warn("cycle failures",
			slog.Int("count", len(failures)),
			slog.Any("errors", failures),
		)
	}
}
