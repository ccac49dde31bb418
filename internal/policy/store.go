package policy

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Execer is the statement-execution surface the store needs for watermark
// updates. It is satisfied by *sql.DB and *sql.Conn, so a task can record
// its own watermarks on the connection it already holds.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store reads and writes the maintenance schedule table. Reads go through the
// control connection it was constructed with; watermark writes ride whichever
// connection the caller passes in, because each task owns its own.
type Store struct {
	db    *sql.DB
	table string
}

// NewStore returns a store over the given schedule table. The table name must
// already be validated as a bare identifier by the config layer.
func NewStore(db *sql.DB, table string) *Store {
	return &Store{db: db, table: table}
}

// Table returns the schedule table name.
func (s *Store) Table() string {
	return s.table
}

// EnsureSchema creates the schedule table if it does not exist. It never
// drops or alters an existing table.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		table_name VARCHAR NOT NULL,
		should_analyze INTEGER,
		last_analyzed_on TIMESTAMP(6),
		days_to_analyze INTEGER,
		columns_to_analyze ARRAY(VARCHAR),
		should_optimize INTEGER,
		last_optimized_on TIMESTAMP(6),
		days_to_optimize INTEGER,
		should_expire_snapshots INTEGER,
		retention_days_snapshots INTEGER,
		should_remove_orphan_files INTEGER,
		retention_days_orphan_files INTEGER
	)`, s.table)

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create schedule table %s: %w", s.table, err)
	}
	return nil
}

// List loads every policy row. Columns are selected by name and scanned into
// named fields; NULL flags and intervals read as false/zero.
func (s *Store) List(ctx context.Context) ([]Policy, error) {
	query := fmt.Sprintf(`SELECT
		table_name,
		should_analyze, last_analyzed_on, days_to_analyze, columns_to_analyze,
		should_optimize, last_optimized_on, days_to_optimize,
		should_expire_snapshots, retention_days_snapshots,
		should_remove_orphan_files, retention_days_orphan_files
	FROM %s`, s.table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query schedule table %s: %w", s.table, err)
	}
	defer rows.Close()

	var policies []Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// MarkOptimized advances the optimize watermark for one table to the engine's
// current timestamp. Issued on the caller's connection, right after the
// compaction succeeded and outside any shared transaction.
func (s *Store) MarkOptimized(ctx context.Context, conn Execer, tableName string) error {
	return s.mark(ctx, conn, "last_optimized_on", tableName)
}

// MarkAnalyzed advances the analyze watermark for one table.
func (s *Store) MarkAnalyzed(ctx context.Context, conn Execer, tableName string) error {
	return s.mark(ctx, conn, "last_analyzed_on", tableName)
}

func (s *Store) mark(ctx context.Context, conn Execer, column, tableName string) error {
	stmt := fmt.Sprintf(
		"UPDATE %s SET %s = current_timestamp(6) WHERE table_name = '%s'",
		s.table, column, escapeLiteral(tableName),
	)
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("update %s for %s: %w", column, tableName, err)
	}
	return nil
}

func scanPolicy(rows *sql.Rows) (Policy, error) {
	var (
		p                             Policy
		shouldAnalyze, daysToAnalyze  sql.NullInt64
		lastAnalyzed, lastOptimized   sql.NullTime
		columns                       columnList
		shouldOptimize, daysToOpt     sql.NullInt64
		shouldExpire, retainSnapshots sql.NullInt64
		shouldOrphans, retainOrphans  sql.NullInt64
	)

	err := rows.Scan(
		&p.TableName,
		&shouldAnalyze, &lastAnalyzed, &daysToAnalyze, &columns,
		&shouldOptimize, &lastOptimized, &daysToOpt,
		&shouldExpire, &retainSnapshots,
		&shouldOrphans, &retainOrphans,
	)
	if err != nil {
		return Policy{}, err
	}

	p.ShouldAnalyze = shouldAnalyze.Int64 != 0
	p.DaysToAnalyze = int(daysToAnalyze.Int64)
	p.ColumnsToAnalyze = []string(columns)
	p.ShouldOptimize = shouldOptimize.Int64 != 0
	p.DaysToOptimize = int(daysToOpt.Int64)
	p.ShouldExpireSnapshots = shouldExpire.Int64 != 0
	p.RetentionDaysSnapshots = int(retainSnapshots.Int64)
	p.ShouldRemoveOrphanFiles = shouldOrphans.Int64 != 0
	p.RetentionDaysOrphanFiles = int(retainOrphans.Int64)
	if lastAnalyzed.Valid {
		t := lastAnalyzed.Time
		p.LastAnalyzedOn = &t
	}
	if lastOptimized.Valid {
		t := lastOptimized.Time
		p.LastOptimizedOn = &t
	}
	return p, nil
}

// columnList scans an ARRAY(VARCHAR) column. The trino driver delivers arrays
// as []interface{}; a NULL array reads as an empty list. A plain string form
// ("[a, b]") is also accepted for drivers that hand arrays back as text.
type columnList []string

func (l *columnList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
	case []string:
		*l = append((*l)[:0], v...)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return fmt.Errorf("columns_to_analyze element %v is %T, want string", e, e)
			}
			out = append(out, s)
		}
		*l = out
	case string:
		*l = parseArrayText(v)
	case []byte:
		*l = parseArrayText(string(v))
	default:
		return fmt.Errorf("cannot scan %T into columns_to_analyze", src)
	}
	return nil
}

func parseArrayText(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.Trim(strings.TrimSpace(p), "'\""))
	}
	return out
}

// escapeLiteral doubles single quotes for embedding in a SQL string literal.
func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
