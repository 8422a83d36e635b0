// Command cmdbench measures and compares the wall-clock time of command
// lines, such as different ways of fanning a stream of lines out to
// subprocesses:
//
//	cmdbench --stdin-seq 1000 -n xargs 'xargs -P 8 -n 1 echo' \
//		-n parallel 'parallel echo'
//
// Commands run one after another, each with warmup runs followed by timed
// runs, and are then ranked by mean time. The exit code is the number of
// commands that produced no statistics, capped at 125.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"k8s.io/klog/v2"
)

var Version = "0.4.0"

func main() {
	os.Exit(execute())
}

func execute() int {
	defer klog.Flush()
	a := newApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			klog.InfoS("Received signal, stopping benchmarks", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	err := a.command().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return exitCode(a.fatal, err)
}

// maxExitCode keeps the fatal count clear of the 8-bit truncation of exit
// statuses and of the codes shells reserve from 126 up.
const maxExitCode = 125

// exitCode is the number of commands without statistics, at least 1 when
// err is set.
func exitCode(fatal int, err error) int {
	code := min(fatal, maxExitCode)
	if err != nil {
		return max(code, 1)
	}
	return code
}
