package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"k8s.io/klog/v2"
)

const (
	stderrTail = 4096
	// waitDelay bounds how long Wait blocks on output pipes still held by
	// grandchildren after the command itself exited or was killed.
	waitDelay = time.Second
)

type Options struct {
	// Timeout is the per-run limit. Zero disables the watchdog.
	Timeout time.Duration
	// Stdout and Stderr receive the child's output when set. Stdout is
	// discarded otherwise; the tail of stderr is always kept for errors.
	Stdout io.Writer
	Stderr io.Writer
	// SpawnAttempts bounds retries of transient spawn failures such as a
	// full process table.
	SpawnAttempts uint
	SpawnBackoff  time.Duration
}

// ProcessRunner spawns one child process per Run call. It holds no state
// between calls and may be shared by concurrent callers.
type ProcessRunner struct {
	opts Options
}

func New(opts Options) *ProcessRunner {
	if opts.SpawnAttempts == 0 {
		opts.SpawnAttempts = 3
	}
	if opts.SpawnBackoff == 0 {
		opts.SpawnBackoff = 50 * time.Millisecond
	}
	return &ProcessRunner{opts: opts}
}

type process struct {
	cmd    *exec.Cmd
	stdin  io.Closer
	stderr *tailBuffer
	start  time.Time
}

func (p *process) closeStdin() {
	if p.stdin != nil {
		_ = p.stdin.Close()
	}
}

// Run executes spec once and measures it. A failed run (timeout, non-zero
// exit) is reported through the returned Sample; the error is only set for
// a *SpawnError or when ctx is done, in which case the child has been
// killed. A shell command exiting with status 127 is a *SpawnError
// wrapping ErrCommandNotFound.
func (r *ProcessRunner) Run(ctx context.Context, spec *CommandSpec) (Sample, error) {
	p, err := r.start(ctx, spec)
	if err != nil {
		return Sample{}, err
	}
	defer p.closeStdin()

	timeout := r.opts.Timeout
	if spec.Timeout > 0 {
		timeout = spec.Timeout
	}
	var watchdog *time.Timer
	if timeout > 0 {
		watchdog = time.AfterFunc(timeout, func() {
			if err := killProcessGroup(p.cmd.Process); err != nil {
				klog.ErrorS(err, "Unable to kill timed out command", "command", spec.Name)
			}
		})
	}

	waitErr := p.cmd.Wait()
	sample := Sample{Duration: time.Since(p.start), ExitCode: -1}
	// Stop fails only when the watchdog already fired.
	timedOut := watchdog != nil && !watchdog.Stop()
	if ps := p.cmd.ProcessState; ps != nil {
		sample.User = ps.UserTime()
		sample.System = ps.SystemTime()
		sample.ExitCode = ps.ExitCode()
	}
	if err := ctx.Err(); err != nil {
		return sample, err
	}

	switch {
	case timedOut:
		sample.Duration = timeout
		sample.Err = &TimeoutError{Command: spec.String(), Timeout: timeout}
	case spec.Shell && sample.ExitCode == commandNotFound:
		err := fmt.Errorf("%w: %s", ErrCommandNotFound, strings.TrimSpace(p.stderr.String()))
		return sample, &SpawnError{Command: spec.String(), Err: err}
	case waitErr != nil && !(errors.Is(waitErr, exec.ErrWaitDelay) && sample.ExitCode == 0):
		sample.Err = &NonZeroExit{Command: spec.String(), ExitCode: sample.ExitCode, Stderr: p.stderr.String()}
	default:
		sample.Success = true
	}
	if !sample.Success {
		klog.V(3).InfoS("Run failed", "command", spec.Name, "err", sample.Err)
	}
	return sample, nil
}

func (r *ProcessRunner) start(ctx context.Context, spec *CommandSpec) (*process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.SpawnBackoff

	attempt := 0
	p, err := backoff.Retry(ctx, func() (*process, error) {
		attempt++
		p, err := r.command(ctx, spec)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		p.start = time.Now()
		if err := p.cmd.Start(); err != nil {
			p.closeStdin()
			if transientSpawnError(err) {
				klog.V(2).InfoS("Transient spawn failure", "command", spec.Name, "attempt", attempt, "err", err)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return p, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(r.opts.SpawnAttempts))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &SpawnError{Command: spec.String(), Err: err}
	}
	return p, nil
}

func (r *ProcessRunner) command(ctx context.Context, spec *CommandSpec) (*process, error) {
	stdin, err := spec.Stdin.Open()
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	if stdin != nil {
		cmd.Stdin = stdin
	}
	cmd.Stdout = r.opts.Stdout
	tail := &tailBuffer{limit: stderrTail}
	if r.opts.Stderr != nil {
		cmd.Stderr = io.MultiWriter(r.opts.Stderr, tail)
	} else {
		cmd.Stderr = tail
	}
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return killProcessGroup(cmd.Process)
	}
	cmd.WaitDelay = waitDelay
	return &process{cmd: cmd, stdin: stdin, stderr: tail}, nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
