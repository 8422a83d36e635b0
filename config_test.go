package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoninbas/cmdbench/internal/bench"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "benchmarks.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func defaultFlags() *BenchmarkConfiguration {
	warmup, shell := 3, "/bin/sh"
	return &BenchmarkConfiguration{Warmup: &warmup, Runs: 10, MaxRuns: 1000, Shell: &shell}
}

func TestBuildJobs(t *testing.T) {
	path := writeConfig(t, `
requires: ">=0.1.0"
warmup: 1
runs: 5
shell: ""
commands:
- name: echo
  command: echo 'hello world'
- command: /bin/true
  args: ["-x"]
  runs: 2
  warmup: 0
- name: home
  command: echo $HOME
  shell: /bin/bash
  timeout: 2s
- name: adaptive
  command: "true"
  rse: 0.05
  maxRuns: 50
- name: budget
  command: "true"
  minTime: 500ms
  stdin:
    seq: 100
`)
	list := &BenchmarkList{}
	require.NoError(t, parseBenchmarks(path, list))
	require.NoError(t, validateBenchmarks(list))

	jobs, err := buildJobs(list, defaultFlags())
	require.NoError(t, err)
	require.Len(t, jobs, 5)

	echo := jobs[0]
	assert.Equal(t, "echo", echo.Spec.Name)
	assert.Equal(t, "echo", echo.Spec.Path)
	assert.Equal(t, []string{"hello world"}, echo.Spec.Args)
	assert.Equal(t, 1, echo.Warmup)
	assert.Equal(t, bench.Fixed(5), echo.Policy)

	direct := jobs[1]
	assert.Equal(t, "/bin/true", direct.Spec.Name, "the command is the default name")
	assert.Equal(t, []string{"-x"}, direct.Spec.Args)
	assert.Equal(t, 0, direct.Warmup)
	assert.Equal(t, bench.Fixed(2), direct.Policy)

	home := jobs[2]
	assert.Equal(t, "/bin/bash", home.Spec.Path)
	assert.Equal(t, []string{"-c", "echo $HOME"}, home.Spec.Args)
	assert.Equal(t, 2*time.Second, home.Spec.Timeout)

	assert.Equal(t, bench.AdaptiveRSE(0.05, 5, 50), jobs[3].Policy)

	budget := jobs[4]
	assert.Equal(t, bench.MinTime(500*time.Millisecond, 5, 1000), budget.Policy)
	assert.Equal(t, 100, budget.Spec.Stdin.Seq)
}

func TestApplyDefaultsPrecedence(t *testing.T) {
	runs := 7
	file := &BenchmarkConfiguration{Runs: 20, Timeout: "1s", Warmup: &runs}
	flags := defaultFlags()

	own := &BenchmarkConfiguration{Runs: 2}
	own.applyDefaults(file).applyDefaults(flags)
	assert.Equal(t, 2, own.Runs, "per-command values win")
	assert.Equal(t, "1s", own.Timeout, "file values come next")
	assert.Equal(t, 7, *own.Warmup)
	assert.Equal(t, 1000, own.MaxRuns, "flags fill in the rest")
	assert.Equal(t, "/bin/sh", *own.Shell)
}

func TestShellCommandsByDefault(t *testing.T) {
	list := &BenchmarkList{Commands: []Benchmark{{Command: "seq 10 | wc -l"}}}
	jobs, err := buildJobs(list, defaultFlags())
	require.NoError(t, err)
	assert.Equal(t, "/bin/sh", jobs[0].Spec.Path)
	assert.Equal(t, []string{"-c", "seq 10 | wc -l"}, jobs[0].Spec.Args)
	assert.Equal(t, 3, jobs[0].Warmup)
}

func TestBuildJobsErrors(t *testing.T) {
	noShell := defaultFlags()
	*noShell.Shell = ""

	testCases := []struct {
		name      string
		benchmark Benchmark
	}{
		{name: "unbalanced quotes", benchmark: Benchmark{Command: `echo "oops`}},
		{name: "bad timeout", benchmark: Benchmark{Command: "true", BenchmarkConfiguration: BenchmarkConfiguration{Timeout: "soon"}}},
		{name: "bad min time", benchmark: Benchmark{Command: "true", BenchmarkConfiguration: BenchmarkConfiguration{MinTime: "1 minute"}}},
	}
	for _, tCase := range testCases {
		_, err := buildJobs(&BenchmarkList{Commands: []Benchmark{tCase.benchmark}}, noShell)
		assert.Error(t, err, tCase.name)
	}
}

func TestValidateBenchmarks(t *testing.T) {
	testCases := []struct {
		name     string
		config   string
		expectOk bool
	}{
		{
			name:     "valid",
			config:   "commands:\n- command: ls\n",
			expectOk: true,
		},
		{
			name:     "no commands",
			config:   "runs: 3\n",
			expectOk: false,
		},
		{
			name:     "missing command",
			config:   "commands:\n- name: nothing\n",
			expectOk: false,
		},
		{
			name:     "newer version required",
			config:   "requires: \">=99.0.0\"\ncommands:\n- command: ls\n",
			expectOk: false,
		},
		{
			name:     "two stdin sources",
			config:   "stdin:\n  seq: 3\n  text: abc\ncommands:\n- command: ls\n",
			expectOk: false,
		},
		{
			name:     "two stdin sources on a command",
			config:   "commands:\n- command: ls\n  stdin:\n    file: /etc/hosts\n    text: abc\n",
			expectOk: false,
		},
		{
			name:     "negative runs",
			config:   "runs: -1\ncommands:\n- command: ls\n",
			expectOk: false,
		},
	}
	for _, tCase := range testCases {
		list := &BenchmarkList{}
		require.NoError(t, parseBenchmarks(writeConfig(t, tCase.config), list), tCase.name)
		err := validateBenchmarks(list)
		if tCase.expectOk {
			assert.NoError(t, err, tCase.name)
		} else {
			assert.Error(t, err, tCase.name)
		}
	}
}

func TestParseBenchmarksUnknownField(t *testing.T) {
	list := &BenchmarkList{}
	err := parseBenchmarks(writeConfig(t, "commands:\n- command: ls\n  repeat: 3\n"), list)
	assert.Error(t, err)

	err = parseBenchmarks(filepath.Join(t.TempDir(), "missing.yml"), list)
	assert.Error(t, err)
}

func TestVersionRequired(t *testing.T) {
	testCases := []struct {
		requirement string
		version     string
		expected    bool
	}{
		{"", "0.4.0", true},
		{">=0.3.0", "0.4.0", true},
		{">=0.4.0", "0.4.0", true},
		{">=0.5.0", "0.4.0", false},
		{">v0.3.0", "v0.4.0", true},
		{">0.4.0", "v0.4.0", false},
		{"0.4.0", "0.4.1", false},
		{">=0.3.0 <1.0.0", "0.4.0", true},
		{">=0.3.0 <0.4.0", "0.4.0", false},
		{">=0.3.0", "dev", false},
		{"newest", "0.4.0", false},
	}
	for _, tCase := range testCases {
		assert.Equal(t, tCase.expected, versionRequired(tCase.requirement, tCase.version), "%q against %q", tCase.version, tCase.requirement)
	}
	assert.True(t, versionRequired(">=0.1.0", Version))
}
