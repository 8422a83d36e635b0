package main

import (
	"fmt"
	"io/ioutil"
	"regexp"
	"strings"
	"time"

	"github.com/blang/semver/v4"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"github.com/antoninbas/cmdbench/internal/bench"
	"github.com/antoninbas/cmdbench/internal/runner"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(StdinConfiguration)
		set := 0
		if in.Seq > 0 {
			set++
		}
		if in.File != "" {
			set++
		}
		if in.Text != "" {
			set++
		}
		if set > 1 {
			sl.ReportError(in, "stdin", "Stdin", "single_source", "")
		}
	}, StdinConfiguration{})
	// format:path
	if err := v.RegisterValidation("export", func(fl validator.FieldLevel) bool {
		format, path, ok := strings.Cut(fl.Field().String(), ":")
		return ok && path != "" && isFormat(format)
	}); err != nil {
		panic(err)
	}
	return v
}

func parseBenchmarks(path string, list *BenchmarkList) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(data, list); err != nil {
		return fmt.Errorf("unable to parse '%s': %w", path, err)
	}
	return nil
}

func validateBenchmarks(list *BenchmarkList) error {
	if !versionRequired(list.Requires, Version) {
		return fmt.Errorf("configuration requires version %s, this is %s", list.Requires, Version)
	}
	if len(list.Commands) == 0 {
		return fmt.Errorf("no commands to benchmark")
	}
	if err := validate.Struct(list); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

var versionPrefix = regexp.MustCompile(`v(\d)`)

// versionRequired reports whether version satisfies requirement, a semver
// range such as ">=1.2.0". A leading "v" is accepted on both sides and an
// empty requirement is always satisfied.
func versionRequired(requirement, version string) bool {
	if requirement == "" {
		return true
	}
	v, err := semver.ParseTolerant(version)
	if err != nil {
		return false
	}
	r, err := semver.ParseRange(versionPrefix.ReplaceAllString(requirement, "$1"))
	if err != nil {
		return false
	}
	return r(v)
}

func (c *BenchmarkConfiguration) applyDefaults(d *BenchmarkConfiguration) *BenchmarkConfiguration {
	if c.Warmup == nil {
		c.Warmup = d.Warmup
	}
	if c.Runs == 0 {
		c.Runs = d.Runs
	}
	if c.MinTime == "" {
		c.MinTime = d.MinTime
	}
	if c.MaxRuns == 0 {
		c.MaxRuns = d.MaxRuns
	}
	if c.RSE == 0 {
		c.RSE = d.RSE
	}
	if c.Timeout == "" {
		c.Timeout = d.Timeout
	}
	if c.Shell == nil {
		c.Shell = d.Shell
	}
	if c.Stdin == nil {
		c.Stdin = d.Stdin
	}
	return c
}

func (c *BenchmarkConfiguration) policy() (bench.StopPolicy, error) {
	switch {
	case c.RSE > 0:
		return bench.AdaptiveRSE(c.RSE, c.Runs, c.MaxRuns), nil
	case c.MinTime != "":
		d, err := time.ParseDuration(c.MinTime)
		if err != nil {
			return bench.StopPolicy{}, fmt.Errorf("invalid minTime: %w", err)
		}
		return bench.MinTime(d, c.Runs, c.MaxRuns), nil
	}
	return bench.Fixed(c.Runs), nil
}

func (c *BenchmarkConfiguration) input() runner.Input {
	if c.Stdin == nil {
		return runner.Input{}
	}
	return runner.Input{Seq: c.Stdin.Seq, File: c.Stdin.File, Text: c.Stdin.Text}
}

// job resolves b, whose defaults must already be applied.
func (b *Benchmark) job() (bench.Job, error) {
	name := b.Name
	if name == "" {
		name = b.Command
	}

	var spec *runner.CommandSpec
	switch {
	case len(b.Args) > 0:
		spec = &runner.CommandSpec{Name: name, Path: b.Command, Args: b.Args, Stdin: b.input()}
	case b.Shell != nil && *b.Shell != "":
		spec = runner.NewShellCommand(name, *b.Shell, b.Command, b.input())
	default:
		var err error
		spec, err = runner.ParseCommandLine(name, b.Command, b.input())
		if err != nil {
			return bench.Job{}, err
		}
	}

	if b.Timeout != "" {
		d, err := time.ParseDuration(b.Timeout)
		if err != nil {
			return bench.Job{}, fmt.Errorf("invalid timeout for '%s': %w", name, err)
		}
		spec.Timeout = d
	}

	policy, err := b.policy()
	if err != nil {
		return bench.Job{}, fmt.Errorf("invalid stop policy for '%s': %w", name, err)
	}
	warmup := 0
	if b.Warmup != nil {
		warmup = *b.Warmup
	}
	return bench.Job{Spec: spec, Warmup: warmup, Policy: policy}, nil
}

// buildJobs applies defaults to every command, the configuration file first
// and then the flags, and resolves them in order.
func buildJobs(list *BenchmarkList, flags *BenchmarkConfiguration) ([]bench.Job, error) {
	jobs := make([]bench.Job, 0, len(list.Commands))
	for idx := range list.Commands {
		benchmark := &list.Commands[idx]
		benchmark.applyDefaults(&list.BenchmarkConfiguration).applyDefaults(flags)
		job, err := benchmark.job()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
