package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/antoninbas/cmdbench/internal/bench"
	"github.com/antoninbas/cmdbench/internal/report"
	"github.com/antoninbas/cmdbench/internal/runner"
)

type options struct {
	ConfigPath     string
	Names          []string
	Output         string   `validate:"oneof=table json csv gobench"`
	Exports        []string `validate:"dive,export"`
	Baseline       string
	Threshold      float64 `validate:"gte=0"`
	OnlyRegression bool
	Parallel       int     `validate:"gte=1"`
	OutlierSigma   float64 `validate:"gt=0"`
	PromTextfile   string
	ShowOutput     bool
	NoProgress     bool
	NoColor        bool
	StdinSeq       int `validate:"gte=0"`
	StdinFile      string
}

type app struct {
	opts              options
	flagConfiguration *BenchmarkConfiguration
	stdout            io.Writer
	stderr            io.Writer
	// fatal is the number of commands without statistics, the exit code.
	fatal int
}

func newApp() *app {
	return &app{
		flagConfiguration: &BenchmarkConfiguration{Warmup: new(int), Shell: new(string)},
		stdout:            os.Stdout,
		stderr:            os.Stderr,
	}
}

func isFormat(format string) bool {
	switch format {
	case "table", "json", "csv", "gobench":
		return true
	}
	return false
}

func (a *app) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cmdbench [flags] command...",
		Short: "Benchmark and compare command lines",
		Long: `cmdbench runs every command a number of times after some warmup runs,
then ranks the commands by mean wall-clock time. Commands come from the
arguments, from a YAML configuration file (--config), or both.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), args)
		},
	}

	c := a.flagConfiguration
	fs := cmd.Flags()
	fs.StringVar(&a.opts.ConfigPath, "config", "", "YAML file listing the commands to benchmark")
	fs.StringArrayVarP(&a.opts.Names, "name", "n", nil, "name of the command given at the same position (repeatable)")
	fs.IntVarP(c.Warmup, "warmup", "w", 3, "untimed runs before measuring each command")
	fs.IntVarP(&c.Runs, "runs", "r", 10, "number of timed runs, or the minimum with --min-time and --rse")
	fs.StringVar(&c.MinTime, "min-time", "", "keep sampling until the measured time reaches this duration")
	fs.IntVar(&c.MaxRuns, "max-runs", 1000, "upper bound on timed runs with --min-time and --rse")
	fs.Float64Var(&c.RSE, "rse", 0, "keep sampling until the relative standard error of the mean is below this value")
	fs.StringVarP(&c.Timeout, "timeout", "t", "", "kill a run that takes longer than this duration")
	fs.StringVarP(c.Shell, "shell", "S", "/bin/sh", "shell used to run commands given as a single string; empty runs them directly")
	fs.IntVar(&a.opts.StdinSeq, "stdin-seq", 0, "feed the integers 1..N on stdin")
	fs.StringVar(&a.opts.StdinFile, "stdin-file", "", "feed this file on stdin")
	fs.IntVarP(&a.opts.Parallel, "parallel", "j", 1, "number of commands measured at the same time")
	fs.Float64Var(&a.opts.OutlierSigma, "outlier-sigma", 3, "robust standard deviations (scaled median absolute deviation) from the median beyond which a run is an outlier")
	fs.StringVarP(&a.opts.Output, "output", "o", "table", "output format: table, json, csv or gobench")
	fs.StringArrayVar(&a.opts.Exports, "export", nil, "also write results as format:path (repeatable)")
	fs.StringVar(&a.opts.Baseline, "baseline", "", "Go benchmark format file to compare mean times against")
	fs.Float64Var(&a.opts.Threshold, "threshold", 0.2, "relative slowdown against the baseline considered a regression")
	fs.BoolVar(&a.opts.OnlyRegression, "only-regression", false, "only show regressions in the baseline comparison")
	fs.StringVar(&a.opts.PromTextfile, "prom-textfile", "", "write results in Prometheus text format to this file")
	fs.BoolVar(&a.opts.ShowOutput, "show-output", false, "forward the output of benchmarked commands to stderr")
	fs.BoolVar(&a.opts.NoProgress, "no-progress", false, "do not draw progress bars")
	fs.BoolVar(&a.opts.NoColor, "no-color", false, "disable coloured output")

	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	fs.AddGoFlagSet(klogFlags)
	return cmd
}

// loadBenchmarks merges the configuration file with the commands given as
// arguments, which are appended after the file's commands.
func (a *app) loadBenchmarks(args []string) (*BenchmarkList, error) {
	if err := validate.Struct(&a.opts); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	if len(a.opts.Names) > len(args) {
		return nil, fmt.Errorf("%d names given for %d commands", len(a.opts.Names), len(args))
	}

	list := &BenchmarkList{}
	if a.opts.ConfigPath != "" {
		if err := parseBenchmarks(a.opts.ConfigPath, list); err != nil {
			return nil, err
		}
	}
	for i, arg := range args {
		benchmark := Benchmark{Command: arg}
		if i < len(a.opts.Names) {
			benchmark.Name = a.opts.Names[i]
		}
		list.Commands = append(list.Commands, benchmark)
	}

	if a.opts.StdinSeq > 0 || a.opts.StdinFile != "" {
		a.flagConfiguration.Stdin = &StdinConfiguration{Seq: a.opts.StdinSeq, File: a.opts.StdinFile}
	}
	if err := validate.Struct(a.flagConfiguration); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	if err := validateBenchmarks(list); err != nil {
		return nil, err
	}
	return list, nil
}

func (a *app) run(ctx context.Context, args []string) error {
	list, err := a.loadBenchmarks(args)
	if err != nil {
		return err
	}
	jobs, err := buildJobs(list, a.flagConfiguration)
	if err != nil {
		return err
	}

	runnerOpts := runner.Options{}
	if a.opts.ShowOutput {
		runnerOpts.Stdout = a.stderr
		runnerOpts.Stderr = a.stderr
	}
	colour := !a.opts.NoColor && isTerminal(a.stdout)
	config := bench.Config{
		Parallelism:  a.opts.Parallel,
		OutlierSigma: a.opts.OutlierSigma,
	}
	if !a.opts.NoProgress && !a.opts.ShowOutput && a.opts.Parallel <= 1 && isTerminal(a.stderr) {
		config.Observer = report.NewProgress(a.stderr, !a.opts.NoColor)
	}

	meta := report.NewMetadata(Version, ".")
	klog.InfoS("Starting benchmarks", "runId", meta.RunID, "commands", len(jobs), "parallel", a.opts.Parallel)
	orchestrator := bench.NewOrchestrator(runner.New(runnerOpts), config)
	result, runErr := orchestrator.Run(ctx, jobs)
	if result == nil {
		return runErr
	}
	a.fatal = result.FatalCount()

	if err := a.write(a.stdout, a.opts.Output, meta, result, colour); err != nil {
		return err
	}
	for _, export := range a.opts.Exports {
		format, path, _ := strings.Cut(export, ":")
		if err := a.export(path, format, meta, result); err != nil {
			return fmt.Errorf("failed to export results to '%s': %w", path, err)
		}
	}
	if a.opts.PromTextfile != "" {
		if err := report.WritePrometheus(a.opts.PromTextfile, meta, result); err != nil {
			return fmt.Errorf("failed to write Prometheus textfile: %w", err)
		}
	}
	if runErr != nil {
		return runErr
	}

	if a.opts.Baseline != "" {
		baseline, err := report.LoadBaseline(a.opts.Baseline)
		if err != nil {
			return err
		}
		w := a.stdout
		if a.opts.Output != "table" {
			w = a.stderr
		}
		deltas := report.CompareBaseline(result.Comparison, baseline)
		if report.ShowBaseline(w, deltas, a.opts.Threshold, a.opts.OnlyRegression, colour) {
			return fmt.Errorf("mean time regressed by more than %.0f%% against the baseline", 100*a.opts.Threshold)
		}
	}
	klog.InfoS("Benchmarks complete", "runId", meta.RunID, "fatal", a.fatal)
	return nil
}

func (a *app) write(w io.Writer, format string, meta report.Metadata, result *bench.Result, colour bool) error {
	switch format {
	case "json":
		return report.WriteJSON(w, meta, result)
	case "csv":
		return report.WriteCSV(w, report.Records(result.Comparison))
	case "gobench":
		if result.Comparison == nil {
			return nil
		}
		return report.WriteGoBench(w, result.Comparison)
	}
	if result.Comparison != nil {
		report.Table(w, result.Comparison, colour)
		fmt.Fprintln(w)
	}
	report.Warnings(w, result.Outcomes)
	report.Failures(w, result.Outcomes)
	return nil
}

func (a *app) export(path, format string, meta report.Metadata, result *bench.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.write(f, format, meta, result, false); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
