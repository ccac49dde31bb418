package maintenance

import (
	"time"

	"github.com/frostlabs-io/icekeeper/internal/policy"
)

// State is the lifecycle of a task: Created -> Running -> Succeeded | Failed.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the terminal outcome of one table's task.
type Result struct {
	Table    string
	State    State
	OpsRun   []policy.Operation
	Err      error
	Duration time.Duration
	// Skipped marks a task that was never run because the cycle was
	// cancelled before it could be dispatched.
	Skipped bool
}

// Failure pairs a table with the error that stopped its maintenance.
type Failure struct {
	Table string
	Err   error
}

// Report aggregates one full cycle over the schedule table.
type Report struct {
	Started  time.Time
	Finished time.Time

	Succeeded int
	Failed    int
	Skipped   int

	// OpsRun counts executed operations across all tables.
	OpsRun map[policy.Operation]int

	Failures []Failure
	Results  []Result
}

// HasFailures reports whether any task failed this cycle.
func (r *Report) HasFailures() bool {
	return r.Failed > 0
}
