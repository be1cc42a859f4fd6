//go:build !windows

package operator

import (
	"context"
	"errors"
	"os/exec"
	"syscall"
)

func shellCommand(ctx context.Context, cmd string) *exec.Cmd {
	c := exec.CommandContext(ctx, "/bin/sh", "-c", cmd)
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Kill the entire process group so children of the shell die with it.
	c.Cancel = func() error {
		killGroup(c)
		return nil
	}
	return c
}

// killGroup sends SIGKILL to the command's process group. A group that is
// already gone is not an error.
func killGroup(c *exec.Cmd) {
	if c.Process == nil {
		return
	}
	err := syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
	if err != nil && !errors.Is(err, syscall.ESRCH) {
		log.WithError(err).WithField("pid", c.Process.Pid).Warn("failed to kill process group")
	}
}

// exitStatus reports the exit code, using the shell convention 128+N for a
// process terminated by signal N.
func exitStatus(c *exec.Cmd) int {
	st := c.ProcessState
	if st == nil {
		return 0
	}
	if ws, ok := st.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	if code := st.ExitCode(); code > 0 {
		return code
	}
	return 0
}
