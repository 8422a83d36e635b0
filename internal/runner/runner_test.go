package runner

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestRunSuccess(t *testing.T) {
	requireShell(t)
	r := New(Options{})
	sample, err := r.Run(context.Background(), NewShellCommand("true", "sh", "exit 0", Input{}))
	require.NoError(t, err)
	assert.True(t, sample.Success)
	assert.Equal(t, 0, sample.ExitCode)
	assert.NoError(t, sample.Err)
	assert.Greater(t, int64(sample.Duration), int64(0))
}

func TestRunNonZeroExit(t *testing.T) {
	requireShell(t)
	r := New(Options{})
	sample, err := r.Run(context.Background(), NewShellCommand("fail", "sh", "echo oops >&2; exit 3", Input{}))
	require.NoError(t, err, "a non-zero exit is data, not an error")
	assert.False(t, sample.Success)
	assert.Equal(t, 3, sample.ExitCode)

	var exitErr *NonZeroExit
	require.ErrorAs(t, sample.Err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitCode)
	assert.Contains(t, exitErr.Stderr, "oops")
}

func TestRunSpawnError(t *testing.T) {
	testCases := []struct {
		name string
		path string
	}{
		{name: "not in PATH", path: "cmdbench-does-not-exist"},
		{name: "absolute path", path: "/nonexistent/cmdbench-does-not-exist"},
	}
	r := New(Options{SpawnBackoff: time.Millisecond})
	for _, tCase := range testCases {
		t.Run(tCase.name, func(t *testing.T) {
			_, err := r.Run(context.Background(), &CommandSpec{Name: "missing", Path: tCase.path})
			var spawnErr *SpawnError
			require.ErrorAs(t, err, &spawnErr)
			assert.Contains(t, spawnErr.Command, "cmdbench-does-not-exist")
		})
	}
}

func TestRunShellCommandNotFound(t *testing.T) {
	requireShell(t)
	r := New(Options{})
	_, err := r.Run(context.Background(), NewShellCommand("missing", "sh", "cmdbench-does-not-exist --flag", Input{}))
	var spawnErr *SpawnError
	require.ErrorAs(t, err, &spawnErr)
	assert.ErrorIs(t, err, ErrCommandNotFound)
	assert.Contains(t, err.Error(), "cmdbench-does-not-exist")
}

func TestRunExitStatus127WithoutShell(t *testing.T) {
	requireShell(t)
	r := New(Options{})
	sample, err := r.Run(context.Background(), &CommandSpec{Name: "direct", Path: "sh", Args: []string{"-c", "exit 127"}})
	require.NoError(t, err, "only shell commands treat 127 as a missing command")
	var exitErr *NonZeroExit
	require.ErrorAs(t, sample.Err, &exitErr)
	assert.Equal(t, 127, exitErr.ExitCode)
}

func TestRunFinishedBeforeTimeout(t *testing.T) {
	requireShell(t)
	r := New(Options{Timeout: 2 * time.Second})
	for i := 0; i < 20; i++ {
		sample, err := r.Run(context.Background(), NewShellCommand("true", "sh", "true", Input{}))
		require.NoError(t, err)
		assert.True(t, sample.Success, "run %d: %v", i, sample.Err)
		assert.Less(t, sample.Duration, 2*time.Second)
	}
}

func TestRunTimeout(t *testing.T) {
	requireShell(t)
	timeout := 100 * time.Millisecond
	r := New(Options{Timeout: time.Minute})
	spec := NewShellCommand("sleep", "sh", "sleep 5", Input{})
	spec.Timeout = timeout

	start := time.Now()
	sample, err := r.Run(context.Background(), spec)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.False(t, sample.Success)
	assert.Equal(t, timeout, sample.Duration)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, sample.Err, &timeoutErr)
	assert.Equal(t, timeout, timeoutErr.Timeout)
}

func TestRunStdin(t *testing.T) {
	requireShell(t)
	testCases := []struct {
		name  string
		input Input
		check string
	}{
		{name: "seq", input: Input{Seq: 1000}, check: `[ $(wc -l) -eq 1000 ]`},
		{name: "text", input: Input{Text: "hello\n"}, check: `[ "$(cat)" = hello ]`},
		{name: "none", input: Input{}, check: `[ -z "$(cat)" ]`},
	}
	r := New(Options{})
	for _, tCase := range testCases {
		t.Run(tCase.name, func(t *testing.T) {
			sample, err := r.Run(context.Background(), NewShellCommand(tCase.name, "sh", tCase.check, tCase.input))
			require.NoError(t, err)
			assert.True(t, sample.Success, "stdin check failed: %v", sample.Err)
		})
	}
}

func TestRunIgnoresUnreadStdin(t *testing.T) {
	requireShell(t)
	r := New(Options{})
	sample, err := r.Run(context.Background(), NewShellCommand("echo", "sh", "echo done", Input{Seq: 100000}))
	require.NoError(t, err)
	assert.True(t, sample.Success, "unexpected failure: %v", sample.Err)
}

func TestRunCancelled(t *testing.T) {
	requireShell(t)
	r := New(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	_, err := r.Run(ctx, NewShellCommand("sleep", "sh", "sleep 10", Input{}))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), 5*time.Second)

	_, err = r.Run(ctx, NewShellCommand("true", "sh", "true", Input{}))
	assert.True(t, errors.Is(err, context.Canceled), "runs after cancellation must not start")
}

func TestTailBuffer(t *testing.T) {
	tail := &tailBuffer{limit: 8}
	_, _ = tail.Write([]byte("0123"))
	assert.Equal(t, "0123", tail.String())
	_, _ = tail.Write([]byte(strings.Repeat("x", 6)))
	assert.Equal(t, "23xxxxxx", tail.String())
}
