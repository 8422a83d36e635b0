package runner

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCommandNotFound is wrapped in the SpawnError of a shell command whose
// shell exited with status 127.
var ErrCommandNotFound = errors.New("command not found")

// commandNotFound is the exit status POSIX shells use when a command
// cannot be found.
const commandNotFound = 127

// SpawnError means the command never started. It is fatal for the command:
// retrying a missing or non-executable binary does not help.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start '%s': %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// TimeoutError marks a run that was killed by the watchdog.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("'%s' did not finish within %s", e.Command, e.Timeout)
}

// NonZeroExit marks a run that terminated unsuccessfully.
type NonZeroExit struct {
	Command  string
	ExitCode int
	// Stderr holds the tail of the command's standard error.
	Stderr string
}

func (e *NonZeroExit) Error() string {
	msg := fmt.Sprintf("'%s' exited with code %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}
