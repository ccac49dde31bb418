package policy

import "time"

// Due returns the operations due for p at the given instant, in execution
// order. It is a pure function: callers inject now so schedules can be
// evaluated deterministically.
func Due(p Policy, now time.Time) []Operation {
	var due []Operation
	for _, op := range ExecutionOrder {
		var d bool
		switch op {
		case OpRemoveOrphanFiles:
			d = p.ShouldRemoveOrphanFiles
		case OpExpireSnapshots:
			d = p.ShouldExpireSnapshots
		case OpOptimize:
			d = p.OptimizeDue(now)
		case OpAnalyze:
			d = p.AnalyzeDue(now)
		}
		if d {
			due = append(due, op)
		}
	}
	return due
}

// OptimizeDue reports whether compaction is due at now. Disabled policies are
// never due, regardless of the watermark.
func (p Policy) OptimizeDue(now time.Time) bool {
	return p.ShouldOptimize && intervalElapsed(p.LastOptimizedOn, p.DaysToOptimize, now)
}

// AnalyzeDue reports whether a statistics refresh is due at now.
func (p Policy) AnalyzeDue(now time.Time) bool {
	return p.ShouldAnalyze && intervalElapsed(p.LastAnalyzedOn, p.DaysToAnalyze, now)
}

// intervalElapsed implements the staleness window: a nil watermark means the
// operation never ran and is immediately due; otherwise the operation is due
// once the full interval has passed, boundary inclusive.
func intervalElapsed(last *time.Time, days int, now time.Time) bool {
	if last == nil {
		return true
	}
	return !last.Add(time.Duration(days) * 24 * time.Hour).After(now)
}
