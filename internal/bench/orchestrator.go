package bench

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/antoninbas/cmdbench/internal/runner"
	"github.com/antoninbas/cmdbench/internal/stats"
)

type State int

const (
	Pending State = iota
	Warming
	Sampling
	Summarized
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Warming:
		return "Warming"
	case Sampling:
		return "Sampling"
	case Summarized:
		return "Summarized"
	case Done:
		return "Done"
	case Failed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Job is one command with the warmup count and stop policy it is measured
// with.
type Job struct {
	Spec   *runner.CommandSpec
	Warmup int
	Policy StopPolicy
}

// Outcome records what happened to one Job.
type Outcome struct {
	Name  string
	State State
	Set   *runner.SampleSet
	// Stats is nil unless the command produced at least one successful
	// sample.
	Stats *stats.Statistics
	// Err is a *runner.SpawnError (State is Failed), a context error (State
	// is Failed) or stats.ErrEmptyStatistics (State is Done).
	Err error
}

// Fatal reports whether the command produced no measurable data.
func (o *Outcome) Fatal() bool { return o.Err != nil }

type Result struct {
	// Outcomes are in job order.
	Outcomes   []*Outcome
	Comparison *stats.ComparisonResult
}

func (r *Result) FatalCount() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Fatal() {
			n++
		}
	}
	return n
}

// Observer is notified of state changes and collected samples. Calls for
// one job are sequential; calls for different jobs may be concurrent when
// Parallelism > 1.
type Observer interface {
	StateChanged(job *Job, state State)
	SampleCollected(job *Job, set *runner.SampleSet)
}

type Config struct {
	// Parallelism is the number of jobs measured at once. Values below 2
	// measure jobs one after the other.
	Parallelism  int
	OutlierSigma float64
	Observer     Observer
}

type Orchestrator struct {
	runner Runner
	config Config
}

func NewOrchestrator(r Runner, config Config) *Orchestrator {
	return &Orchestrator{runner: r, config: config}
}

// resultSink holds one slot per job. Workers only write their own slot.
type resultSink struct {
	mu       sync.Mutex
	outcomes []*Outcome
}

func (s *resultSink) set(i int, state State, update func(o *Outcome)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.outcomes[i]
	o.State = state
	if update != nil {
		update(o)
	}
}

// Run measures jobs in order and compares the ones that produced
// statistics. A spawn failure only ends its own job. The returned error is
// the context error when ctx was cancelled, or stats.ErrNoData when no job
// produced statistics. Result is non-nil in both cases and its Comparison
// covers every job summarized before the cancellation.
func (o *Orchestrator) Run(ctx context.Context, jobs []Job) (*Result, error) {
	seen := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if seen[job.Spec.Name] {
			return nil, fmt.Errorf("more than one command named '%s'", job.Spec.Name)
		}
		seen[job.Spec.Name] = true
		if err := job.Policy.Validate(); err != nil {
			return nil, fmt.Errorf("invalid stop policy for '%s': %w", job.Spec.Name, err)
		}
		if job.Warmup < 0 {
			return nil, fmt.Errorf("negative warmup count for '%s'", job.Spec.Name)
		}
	}

	sink := &resultSink{outcomes: make([]*Outcome, len(jobs))}
	for i, job := range jobs {
		sink.outcomes[i] = &Outcome{Name: job.Spec.Name, State: Pending}
	}

	if o.config.Parallelism > 1 {
		var g errgroup.Group
		g.SetLimit(o.config.Parallelism)
		for i := range jobs {
			i := i
			g.Go(func() error {
				o.runJob(ctx, &jobs[i], i, sink)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range jobs {
			o.runJob(ctx, &jobs[i], i, sink)
		}
	}

	// Commands summarized before a cancellation are still ranked.
	result := &Result{Outcomes: sink.outcomes}
	var named []stats.Named
	for _, outcome := range result.Outcomes {
		if outcome.Stats != nil {
			named = append(named, stats.Named{Name: outcome.Name, Stats: *outcome.Stats})
		}
	}
	comparison, compareErr := stats.Compare(named)
	result.Comparison = comparison
	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, compareErr
}

func (o *Orchestrator) runJob(ctx context.Context, job *Job, i int, sink *resultSink) {
	name := job.Spec.Name
	fail := func(err error) {
		sink.set(i, Failed, func(out *Outcome) { out.Err = err })
		o.notify(job, Failed)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			klog.V(2).InfoS("Benchmark aborted", "command", name, "err", err)
			return
		}
		klog.ErrorS(err, "Benchmark failed", "command", name)
	}
	if err := ctx.Err(); err != nil {
		fail(err)
		return
	}

	sink.set(i, Warming, nil)
	o.notify(job, Warming)
	klog.V(2).InfoS("Warming up", "command", name, "runs", job.Warmup)
	if err := Warmup(ctx, o.runner, job.Spec, job.Warmup); err != nil {
		fail(err)
		return
	}

	sink.set(i, Sampling, nil)
	o.notify(job, Sampling)
	klog.V(2).InfoS("Sampling", "command", name, "policy", job.Policy)
	set, err := Collect(ctx, o.runner, job.Spec, job.Policy, func(set *runner.SampleSet) {
		if o.config.Observer != nil {
			o.config.Observer.SampleCollected(job, set)
		}
	})
	set.Warmups = job.Warmup
	if err != nil {
		sink.set(i, Sampling, func(out *Outcome) { out.Set = set })
		fail(err)
		return
	}

	st, err := stats.Summarize(set, o.config.OutlierSigma)
	sink.set(i, Summarized, func(out *Outcome) {
		out.Set = set
		if err != nil {
			out.Err = err
			return
		}
		out.Stats = &st
	})
	o.notify(job, Summarized)
	if err != nil {
		klog.InfoS("Every timed run failed", "command", name, "runs", set.Len())
	} else {
		klog.V(2).InfoS("Summarized", "command", name, "runs", st.Runs, "failures", st.Failures, "mean", st.Mean)
	}

	sink.set(i, Done, nil)
	o.notify(job, Done)
}

func (o *Orchestrator) notify(job *Job, state State) {
	if o.config.Observer != nil {
		o.config.Observer.StateChanged(job, state)
	}
}
