package bench

import (
	"fmt"
	"time"

	"github.com/antoninbas/cmdbench/internal/runner"
	"github.com/antoninbas/cmdbench/internal/stats"
)

type PolicyKind int

const (
	// FixedCount takes exactly Runs samples.
	FixedCount PolicyKind = iota
	// TimeBudget samples until the cumulative measured time reaches Budget.
	TimeBudget
	// Adaptive samples until the relative standard error of the mean drops
	// below Threshold.
	Adaptive
)

func (k PolicyKind) String() string {
	switch k {
	case FixedCount:
		return "fixed"
	case TimeBudget:
		return "time"
	case Adaptive:
		return "adaptive"
	}
	return fmt.Sprintf("PolicyKind(%d)", int(k))
}

// StopPolicy decides when SampleCollector stops. TimeBudget and Adaptive
// always take at least Runs and at most MaxRuns samples.
type StopPolicy struct {
	Kind      PolicyKind
	Runs      int
	Budget    time.Duration
	Threshold float64
	MaxRuns   int
}

func Fixed(runs int) StopPolicy {
	return StopPolicy{Kind: FixedCount, Runs: runs}
}

func MinTime(budget time.Duration, minRuns, maxRuns int) StopPolicy {
	return StopPolicy{Kind: TimeBudget, Budget: budget, Runs: minRuns, MaxRuns: maxRuns}
}

func AdaptiveRSE(threshold float64, minRuns, maxRuns int) StopPolicy {
	return StopPolicy{Kind: Adaptive, Threshold: threshold, Runs: minRuns, MaxRuns: maxRuns}
}

func (p StopPolicy) Validate() error {
	switch p.Kind {
	case FixedCount:
		if p.Runs < 1 {
			return fmt.Errorf("fixed run count must be at least 1, got %d", p.Runs)
		}
		return nil
	case TimeBudget:
		if p.Budget <= 0 {
			return fmt.Errorf("time budget must be positive, got %s", p.Budget)
		}
	case Adaptive:
		if p.Threshold <= 0 {
			return fmt.Errorf("relative standard error threshold must be positive, got %g", p.Threshold)
		}
	default:
		return fmt.Errorf("unknown stop policy %s", p.Kind)
	}
	if p.MaxRuns < 1 {
		return fmt.Errorf("%s policy needs an upper bound on runs, got %d", p.Kind, p.MaxRuns)
	}
	if p.Runs > p.MaxRuns {
		return fmt.Errorf("minimum runs %d exceeds maximum runs %d", p.Runs, p.MaxRuns)
	}
	return nil
}

// Limit is the largest number of samples the policy can take.
func (p StopPolicy) Limit() int {
	if p.Kind == FixedCount {
		return p.Runs
	}
	return p.MaxRuns
}

func (p StopPolicy) String() string {
	switch p.Kind {
	case TimeBudget:
		return fmt.Sprintf("time(%s, runs %d..%d)", p.Budget, p.Runs, p.MaxRuns)
	case Adaptive:
		return fmt.Sprintf("adaptive(rse<%g, runs %d..%d)", p.Threshold, p.Runs, p.MaxRuns)
	}
	return fmt.Sprintf("fixed(%d)", p.Runs)
}

func (p StopPolicy) done(set *runner.SampleSet) bool {
	n := set.Len()
	if n >= p.Limit() {
		return true
	}
	if n < p.Runs {
		return false
	}
	switch p.Kind {
	case TimeBudget:
		return set.Elapsed() >= p.Budget
	case Adaptive:
		ok := set.Successful()
		xs := make([]float64, len(ok))
		for i, s := range ok {
			xs[i] = float64(s.Duration)
		}
		return stats.RelativeStandardError(xs) < p.Threshold
	}
	return false
}
