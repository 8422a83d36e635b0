package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/antoninbas/cmdbench/internal/bench"
	"github.com/antoninbas/cmdbench/internal/runner"
)

// Progress draws one progress bar per command while it is sampled. It is
// meant for sequential runs; concurrent jobs would share one line.
type Progress struct {
	w      io.Writer
	colour bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func NewProgress(w io.Writer, colour bool) *Progress {
	return &Progress{w: w, colour: colour}
}

func (p *Progress) StateChanged(job *bench.Job, state bench.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch state {
	case bench.Warming:
		if job.Warmup > 0 {
			fmt.Fprintf(p.w, "Benchmark %s: %d warmup runs\n", job.Spec.Name, job.Warmup)
		}
	case bench.Sampling:
		p.bar = progressbar.NewOptions(job.Policy.Limit(), p.options(job.Spec.Name)...)
	case bench.Summarized, bench.Failed:
		if p.bar != nil {
			_ = p.bar.Finish()
			p.bar = nil
		}
	}
}

func (p *Progress) SampleCollected(job *bench.Job, set *runner.SampleSet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		return
	}
	if estimate, ok := runningMean(set); ok {
		p.bar.Describe(p.describe(fmt.Sprintf("%s: current estimate %s", job.Spec.Name, formatDuration(estimate))))
	}
	_ = p.bar.Add(1)
}

func (p *Progress) options(name string) []progressbar.Option {
	opts := []progressbar.Option{
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription(p.describe(name)),
	}
	if p.colour {
		opts = append(opts,
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "|",
				BarEnd:        "|",
			}))
	}
	return opts
}

func (p *Progress) describe(s string) string {
	if p.colour {
		return "[magenta]" + s + "[reset]"
	}
	return s
}

func runningMean(set *runner.SampleSet) (time.Duration, bool) {
	ok := set.Successful()
	if len(ok) == 0 {
		return 0, false
	}
	var total time.Duration
	for _, s := range ok {
		total += s.Duration
	}
	return total / time.Duration(len(ok)), true
}
