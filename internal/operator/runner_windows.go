//go:build windows

package operator

import (
	"context"
	"os/exec"
)

func shellCommand(ctx context.Context, cmd string) *exec.Cmd {
	c := exec.CommandContext(ctx, "cmd", "/C", cmd)
	c.Cancel = func() error {
		killGroup(c)
		return nil
	}
	return c
}

// killGroup kills the shell. cmd.exe children are not tracked.
func killGroup(c *exec.Cmd) {
	if c.Process != nil {
		_ = c.Process.Kill()
	}
}

func exitStatus(c *exec.Cmd) int {
	if c.ProcessState == nil {
		return 0
	}
	if code := c.ProcessState.ExitCode(); code > 0 {
		return code
	}
	return 0
}
