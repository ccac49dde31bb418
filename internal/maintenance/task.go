package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/frostlabs-io/icekeeper/internal/engine"
	"github.com/frostlabs-io/icekeeper/internal/policy"
)

// ConnFactory opens a dedicated engine connection for one task. The task
// closes it on every exit path.
type ConnFactory func(ctx context.Context) (*sql.DB, error)

// PolicyStore is the slice of the schedule-table store the runner and its
// tasks use.
type PolicyStore interface {
	List(ctx context.Context) ([]policy.Policy, error)
	MarkOptimized(ctx context.Context, conn policy.Execer, tableName string) error
	MarkAnalyzed(ctx context.Context, conn policy.Execer, tableName string) error
}

// Executor is the engine command surface a task drives. *engine.Executor is
// the production implementation.
type Executor interface {
	RemoveOrphanFiles(ctx context.Context, conn engine.Execer, table string, retentionDays int) error
	ExpireSnapshots(ctx context.Context, conn engine.Execer, table string, retentionDays int) error
	Optimize(ctx context.Context, conn engine.Execer, table string) error
	Analyze(ctx context.Context, conn engine.Execer, table string, columns []string) error
}

// Task runs the due operations for a single table, in order, on its own
// connection. It is the failure-isolation unit: any error ends this task
// without touching its siblings.
type Task struct {
	policy  policy.Policy
	connect ConnFactory
	store   PolicyStore
	exec    Executor
	logger  *slog.Logger
	now     func() time.Time

	state State
}

// NewTask binds one policy row to its connection factory and collaborators.
func NewTask(p policy.Policy, connect ConnFactory, store PolicyStore, exec Executor, logger *slog.Logger, now func() time.Time) *Task {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Task{
		policy:  p,
		connect: connect,
		store:   store,
		exec:    exec,
		logger:  logger.With("table", p.TableName),
		now:     now,
		state:   StateCreated,
	}
}

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	return t.state
}

// Run executes the ordered due operations and returns a terminal Result.
// Errors are wrapped with the table name and carried in the Result; they are
// never propagated as a bare error across the dispatch boundary.
func (t *Task) Run(ctx context.Context) Result {
	t.state = StateRunning
	start := time.Now()

	res := Result{Table: t.policy.TableName}
	if err := t.run(ctx, &res); err != nil {
		t.state = StateFailed
		res.Err = fmt.Errorf("maintenance for %s: %w", t.policy.TableName, err)
		t.logger.Error("maintenance task failed", "error", err, "ops_completed", len(res.OpsRun))
	} else {
		t.state = StateSucceeded
	}
	res.State = t.state
	res.Duration = time.Since(start)
	return res
}

func (t *Task) run(ctx context.Context, res *Result) error {
	due := policy.Due(t.policy, t.now())
	if len(due) == 0 {
		t.logger.Debug("no maintenance due")
		return nil
	}

	db, err := t.connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()

	// Fail fast within the table: the first error aborts the remaining
	// operations, the watermark for anything unfinished stays put.
	for _, op := range due {
		if err := t.runOp(ctx, db, op); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		res.OpsRun = append(res.OpsRun, op)
	}
	return nil
}

func (t *Task) runOp(ctx context.Context, db *sql.DB, op policy.Operation) error {
	name := t.policy.TableName
	switch op {
	case policy.OpRemoveOrphanFiles:
		return t.exec.RemoveOrphanFiles(ctx, db, name, t.policy.RetentionDaysOrphanFiles)
	case policy.OpExpireSnapshots:
		return t.exec.ExpireSnapshots(ctx, db, name, t.policy.RetentionDaysSnapshots)
	case policy.OpOptimize:
		if err := t.exec.Optimize(ctx, db, name); err != nil {
			return err
		}
		// Bookkeeping is a separate statement, not a transaction with the
		// action: a crash in between leaves the watermark stale, and the
		// next cycle redoes an already-compacted table. That is accepted;
		// the reverse (watermark advanced without the action) is not.
		if err := t.store.MarkOptimized(ctx, db, name); err != nil {
			return fmt.Errorf("record watermark: %w", err)
		}
		return nil
	case policy.OpAnalyze:
		if err := t.exec.Analyze(ctx, db, name, t.policy.ColumnsToAnalyze); err != nil {
			return err
		}
		if err := t.store.MarkAnalyzed(ctx, db, name); err != nil {
			return fmt.Errorf("record watermark: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown operation %q", op)
	}
}
