package policy

import (
	"testing"
	"time"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func TestOptimizeDue(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   bool
	}{
		{
			name:   "disabled is never due even with stale watermark",
			policy: Policy{ShouldOptimize: false, LastOptimizedOn: ago(days(100)), DaysToOptimize: 1},
			want:   false,
		},
		{
			name:   "disabled is never due even when never run",
			policy: Policy{ShouldOptimize: false, DaysToOptimize: 1},
			want:   false,
		},
		{
			name:   "never run is immediately due",
			policy: Policy{ShouldOptimize: true, DaysToOptimize: 10},
			want:   true,
		},
		{
			name:   "interval boundary is inclusive",
			policy: Policy{ShouldOptimize: true, LastOptimizedOn: ago(days(10)), DaysToOptimize: 10},
			want:   true,
		},
		{
			name:   "just inside the interval is not due",
			policy: Policy{ShouldOptimize: true, LastOptimizedOn: ago(days(10) - time.Minute), DaysToOptimize: 10},
			want:   false,
		},
		{
			name:   "well past the interval is due",
			policy: Policy{ShouldOptimize: true, LastOptimizedOn: ago(days(30)), DaysToOptimize: 10},
			want:   true,
		},
		{
			name:   "zero-day interval is always due",
			policy: Policy{ShouldOptimize: true, LastOptimizedOn: ago(0), DaysToOptimize: 0},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.OptimizeDue(now); got != tt.want {
				t.Errorf("OptimizeDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeDue(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   bool
	}{
		{
			name:   "disabled short-circuits before the watermark",
			policy: Policy{ShouldAnalyze: false, DaysToAnalyze: 7},
			want:   false,
		},
		{
			name:   "never analyzed is due",
			policy: Policy{ShouldAnalyze: true, DaysToAnalyze: 7},
			want:   true,
		},
		{
			name:   "boundary is inclusive",
			policy: Policy{ShouldAnalyze: true, LastAnalyzedOn: ago(days(7)), DaysToAnalyze: 7},
			want:   true,
		},
		{
			name:   "fresh watermark is not due",
			policy: Policy{ShouldAnalyze: true, LastAnalyzedOn: ago(days(1)), DaysToAnalyze: 7},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.AnalyzeDue(now); got != tt.want {
				t.Errorf("AnalyzeDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDue(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   []Operation
	}{
		{
			name: "all enabled and never run yields the full ordered sequence",
			policy: Policy{
				ShouldRemoveOrphanFiles: true,
				ShouldExpireSnapshots:   true,
				ShouldOptimize:          true,
				ShouldAnalyze:           true,
			},
			want: []Operation{OpRemoveOrphanFiles, OpExpireSnapshots, OpOptimize, OpAnalyze},
		},
		{
			name: "cleanup operations have no staleness gate",
			policy: Policy{
				ShouldRemoveOrphanFiles: true,
				ShouldExpireSnapshots:   true,
				ShouldOptimize:          true,
				LastOptimizedOn:         ago(time.Hour),
				DaysToOptimize:          10,
			},
			want: []Operation{OpRemoveOrphanFiles, OpExpireSnapshots},
		},
		{
			name:   "nothing enabled yields nothing",
			policy: Policy{LastOptimizedOn: ago(days(100)), LastAnalyzedOn: ago(days(100))},
			want:   nil,
		},
		{
			name: "analyze alone keeps its position",
			policy: Policy{
				ShouldAnalyze: true,
				DaysToAnalyze: 1,
			},
			want: []Operation{OpAnalyze},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Due(tt.policy, now)
			if len(got) != len(tt.want) {
				t.Fatalf("Due() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Due()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}
