// Package engine issues Iceberg table maintenance commands against a Trino
// coordinator. It owns the command text only; connections are supplied by
// the caller so each maintenance task can use its own.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Execer is the statement-execution surface the executor needs. Both *sql.DB
// and *sql.Conn satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Trino does not accept bind parameters inside ALTER TABLE EXECUTE argument
// positions, so table names are interpolated. This keeps the interpolation
// honest: optionally schema-qualified bare identifiers only.
var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*){0,2}$`)

// Executor runs single maintenance operations against single tables.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor creates an executor logging through the given logger.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{logger: logger.With("component", "executor")}
}

// RemoveOrphanFiles deletes files no snapshot references anymore, keeping
// those newer than retentionDays.
func (e *Executor) RemoveOrphanFiles(ctx context.Context, conn Execer, table string, retentionDays int) error {
	if err := validTableName(table); err != nil {
		return err
	}
	e.logger.Info("removing orphan files", "table", table, "retention_days", retentionDays)
	stmt := fmt.Sprintf(
		"ALTER TABLE %s EXECUTE remove_orphan_files(retention_threshold => '%dd')",
		table, retentionDays,
	)
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("remove orphan files: %w", err)
	}
	e.logger.Info("removing orphan files completed", "table", table)
	return nil
}

// ExpireSnapshots drops snapshots older than retentionDays.
func (e *Executor) ExpireSnapshots(ctx context.Context, conn Execer, table string, retentionDays int) error {
	if err := validTableName(table); err != nil {
		return err
	}
	e.logger.Info("expiring snapshots", "table", table, "retention_days", retentionDays)
	stmt := fmt.Sprintf(
		"ALTER TABLE %s EXECUTE expire_snapshots(retention_threshold => '%dd')",
		table, retentionDays,
	)
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("expire snapshots: %w", err)
	}
	e.logger.Info("expiring snapshots completed", "table", table)
	return nil
}

// Optimize compacts the table's data files.
func (e *Executor) Optimize(ctx context.Context, conn Execer, table string) error {
	if err := validTableName(table); err != nil {
		return err
	}
	e.logger.Info("optimizing", "table", table)
	stmt := fmt.Sprintf("ALTER TABLE %s EXECUTE optimize", table)
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("optimize: %w", err)
	}
	e.logger.Info("optimizing completed", "table", table)
	return nil
}

// Analyze refreshes table statistics, scoped to the given columns when any
// are listed and to all columns otherwise.
func (e *Executor) Analyze(ctx context.Context, conn Execer, table string, columns []string) error {
	if err := validTableName(table); err != nil {
		return err
	}
	e.logger.Info("analyzing", "table", table, "columns", len(columns))
	stmt := "ANALYZE " + table
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = "'" + strings.ReplaceAll(c, "'", "''") + "'"
		}
		stmt += fmt.Sprintf(" WITH (columns = ARRAY[%s])", strings.Join(quoted, ", "))
	}
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	e.logger.Info("analyzing completed", "table", table)
	return nil
}

func validTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}
