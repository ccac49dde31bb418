package policy

import "time"

// Operation identifies one kind of table maintenance.
type Operation string

const (
	OpRemoveOrphanFiles Operation = "remove_orphan_files"
	OpExpireSnapshots   Operation = "expire_snapshots"
	OpOptimize          Operation = "optimize"
	OpAnalyze           Operation = "analyze"
)

// ExecutionOrder is the fixed order of operations within one table's run.
// Cleanup runs first so optimize and analyze see less data; optimize runs
// before analyze so statistics reflect the compacted file layout.
var ExecutionOrder = []Operation{
	OpRemoveOrphanFiles,
	OpExpireSnapshots,
	OpOptimize,
	OpAnalyze,
}

// Policy is one row of the maintenance schedule table. It describes which
// operations are enabled for a table, how often the interval-gated ones may
// run, and when they last succeeded.
type Policy struct {
	TableName string

	ShouldAnalyze    bool
	LastAnalyzedOn   *time.Time
	DaysToAnalyze    int
	ColumnsToAnalyze []string // empty means all columns

	ShouldOptimize  bool
	LastOptimizedOn *time.Time
	DaysToOptimize  int

	ShouldExpireSnapshots  bool
	RetentionDaysSnapshots int

	ShouldRemoveOrphanFiles  bool
	RetentionDaysOrphanFiles int
}
