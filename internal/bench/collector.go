// Package bench drives warmup and measurement of benchmarked commands.
package bench

import (
	"context"
	"errors"

	"k8s.io/klog/v2"

	"github.com/antoninbas/cmdbench/internal/runner"
)

// Runner executes a command once. *runner.ProcessRunner implements it.
type Runner interface {
	Run(ctx context.Context, spec *runner.CommandSpec) (runner.Sample, error)
}

// Warmup runs spec count times and discards the results. Failed runs are
// ignored; a spawn failure or cancellation is returned at once.
func Warmup(ctx context.Context, r Runner, spec *runner.CommandSpec, count int) error {
	for i := 0; i < count; i++ {
		sample, err := r.Run(ctx, spec)
		if err != nil {
			return err
		}
		if !sample.Success {
			klog.V(3).InfoS("Ignoring failed warmup run", "command", spec.Name, "run", i+1, "err", sample.Err)
		}
	}
	return nil
}

// Collect samples spec sequentially until policy is satisfied. On error the
// samples taken so far are returned along with it.
func Collect(ctx context.Context, r Runner, spec *runner.CommandSpec, policy StopPolicy, onSample func(*runner.SampleSet)) (*runner.SampleSet, error) {
	set := &runner.SampleSet{}
	if err := policy.Validate(); err != nil {
		return set, err
	}
	for !policy.done(set) {
		sample, err := r.Run(ctx, spec)
		if err != nil {
			var spawnErr *runner.SpawnError
			if !errors.As(err, &spawnErr) && ctx.Err() == nil {
				klog.ErrorS(err, "Unexpected runner error", "command", spec.Name)
			}
			return set, err
		}
		set.Samples = append(set.Samples, sample)
		if onSample != nil {
			onSample(set)
		}
	}
	return set, nil
}
