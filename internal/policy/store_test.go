package policy

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listColumns = []string{
	"table_name",
	"should_analyze", "last_analyzed_on", "days_to_analyze", "columns_to_analyze",
	"should_optimize", "last_optimized_on", "days_to_optimize",
	"should_expire_snapshots", "retention_days_snapshots",
	"should_remove_orphan_files", "retention_days_orphan_files",
}

func TestEnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS iceberg_maintenance_schedule").
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db, "iceberg_maintenance_schedule")
	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	analyzed := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	optimized := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(listColumns).
		AddRow("events", int64(1), analyzed, int64(7), "[user_id, event_type]",
			int64(1), optimized, int64(10), int64(1), int64(14), int64(1), int64(3)).
		AddRow("sparse", nil, nil, nil, nil,
			int64(0), nil, nil, nil, nil, nil, nil)

	mock.ExpectQuery("SELECT(?s:.*)FROM iceberg_maintenance_schedule").WillReturnRows(rows)

	store := NewStore(db, "iceberg_maintenance_schedule")
	policies, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, policies, 2)

	full := policies[0]
	assert.Equal(t, "events", full.TableName)
	assert.True(t, full.ShouldAnalyze)
	require.NotNil(t, full.LastAnalyzedOn)
	assert.Equal(t, analyzed, *full.LastAnalyzedOn)
	assert.Equal(t, 7, full.DaysToAnalyze)
	assert.Equal(t, []string{"user_id", "event_type"}, full.ColumnsToAnalyze)
	assert.True(t, full.ShouldOptimize)
	require.NotNil(t, full.LastOptimizedOn)
	assert.Equal(t, optimized, *full.LastOptimizedOn)
	assert.Equal(t, 10, full.DaysToOptimize)
	assert.True(t, full.ShouldExpireSnapshots)
	assert.Equal(t, 14, full.RetentionDaysSnapshots)
	assert.True(t, full.ShouldRemoveOrphanFiles)
	assert.Equal(t, 3, full.RetentionDaysOrphanFiles)

	// NULL flags and intervals read as disabled/zero, NULL watermarks as never run
	sparse := policies[1]
	assert.Equal(t, "sparse", sparse.TableName)
	assert.False(t, sparse.ShouldAnalyze)
	assert.Nil(t, sparse.LastAnalyzedOn)
	assert.Empty(t, sparse.ColumnsToAnalyze)
	assert.False(t, sparse.ShouldOptimize)
	assert.Nil(t, sparse.LastOptimizedOn)
	assert.False(t, sparse.ShouldExpireSnapshots)
	assert.False(t, sparse.ShouldRemoveOrphanFiles)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkOptimized(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE iceberg_maintenance_schedule SET last_optimized_on = current_timestamp(6) WHERE table_name = 'events'",
	)).WillReturnResult(sqlmock.NewResult(0, 1))

	// watermark updates ride the caller's connection, not the store's own
	store := NewStore(nil, "iceberg_maintenance_schedule")
	require.NoError(t, store.MarkOptimized(context.Background(), db, "events"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAnalyzedEscapesLiteral(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE iceberg_maintenance_schedule SET last_analyzed_on = current_timestamp(6) WHERE table_name = 'o''brien'",
	)).WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(nil, "iceberg_maintenance_schedule")
	require.NoError(t, store.MarkAnalyzed(context.Background(), db, "o'brien"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestColumnListScan(t *testing.T) {
	tests := []struct {
		name    string
		src     any
		want    []string
		wantErr bool
	}{
		{name: "nil reads as empty", src: nil, want: nil},
		{name: "driver array", src: []interface{}{"a", "b"}, want: []string{"a", "b"}},
		{name: "string slice", src: []string{"a"}, want: []string{"a"}},
		{name: "array literal text", src: "[a, b]", want: []string{"a", "b"}},
		{name: "quoted literal text", src: "['a', 'b']", want: []string{"a", "b"}},
		{name: "empty literal text", src: "[]", want: nil},
		{name: "bytes", src: []byte("[x]"), want: []string{"x"}},
		{name: "non-string element", src: []interface{}{1}, wantErr: true},
		{name: "unsupported type", src: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l columnList
			err := l.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, []string(l))
		})
	}
}
