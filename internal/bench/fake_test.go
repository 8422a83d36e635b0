package bench

import (
	"context"
	"sync"
	"time"

	"github.com/antoninbas/cmdbench/internal/runner"
)

// fakeRunner answers Run with the result of fn, per command name, and
// counts calls.
type fakeRunner struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(spec *runner.CommandSpec, call int) (runner.Sample, error)
}

func newFakeRunner(fn func(spec *runner.CommandSpec, call int) (runner.Sample, error)) *fakeRunner {
	return &fakeRunner{calls: map[string]int{}, fn: fn}
}

func (f *fakeRunner) Run(ctx context.Context, spec *runner.CommandSpec) (runner.Sample, error) {
	if err := ctx.Err(); err != nil {
		return runner.Sample{}, err
	}
	f.mu.Lock()
	call := f.calls[spec.Name]
	f.calls[spec.Name]++
	f.mu.Unlock()
	return f.fn(spec, call)
}

func (f *fakeRunner) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func constant(d time.Duration) func(*runner.CommandSpec, int) (runner.Sample, error) {
	return func(*runner.CommandSpec, int) (runner.Sample, error) {
		return runner.Sample{Duration: d, Success: true}, nil
	}
}

func spec(name string) *runner.CommandSpec {
	return &runner.CommandSpec{Name: name, Path: name}
}
