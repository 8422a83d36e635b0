//go:build unix

package runner

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// Children run in their own process group so that a timeout or an abort
// also reaches anything a shell spawned.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(p *os.Process) error {
	if p == nil {
		return nil
	}
	err := syscall.Kill(-p.Pid, syscall.SIGKILL)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return p.Kill()
}

func transientSpawnError(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.ENOMEM) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.EMFILE)
}
