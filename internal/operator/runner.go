package operator

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/michaelbrown/envop/internal/textenc"
)

const (
	// maxOutputBytes caps each captured stream; the rest is discarded.
	maxOutputBytes = 1 << 20

	// waitDelay bounds how long Wait blocks on pipes still held by background
	// children after the shell exits or is killed.
	waitDelay = 2 * time.Second
)

// runLocal executes cmd through the platform shell, killing its whole process
// group if it outlives timeout.
func runLocal(ctx context.Context, cmd string, timeout time.Duration, encodings []string) (CommandResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := shellCommand(runCtx, cmd)
	c.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	c.Stdout = &limitedWriter{w: &stdout, remaining: maxOutputBytes}
	c.Stderr = &limitedWriter{w: &stderr, remaining: maxOutputBytes}

	fields := logrus.Fields{"command": cmd, "timeout": timeout}
	log.WithFields(fields).Debug("running local command")

	start := time.Now()
	err := c.Run()
	duration := time.Since(start)

	// Background children may outlive the shell; they go with it.
	killGroup(c)

	// ErrWaitDelay means the shell exited but a background child still held
	// its output pipes. The command itself completed.
	if errors.Is(err, exec.ErrWaitDelay) && runCtx.Err() == nil {
		log.WithFields(fields).Debug("background output abandoned after shell exit")
		err = nil
	}

	if err != nil {
		if ctx.Err() != nil {
			return CommandResult{}, &CommandError{Command: cmd, Err: ctx.Err()}
		}
		if runCtx.Err() != nil {
			log.WithFields(fields).WithField("duration", duration).Warn("local command timed out")
			return CommandResult{}, &TimeoutError{Command: cmd, Timeout: timeout, Err: runCtx.Err()}
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return CommandResult{}, &CommandError{Command: cmd, Err: err}
		}
	}

	exitCode := exitStatus(c)
	log.WithFields(fields).WithFields(logrus.Fields{
		"exit_code": exitCode,
		"duration":  duration,
	}).Debug("local command completed")

	return CommandResult{
		ExitCode: exitCode,
		Stdout:   textenc.Decode(stdout.Bytes(), encodings),
		Stderr:   textenc.Decode(stderr.Bytes(), encodings),
	}, nil
}

// limitedWriter wraps a writer and stops writing after a byte limit.
// Excess data is silently discarded.
type limitedWriter struct {
	w         io.Writer
	remaining int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if lw.remaining <= 0 {
		return len(p), nil
	}
	n := len(p)
	if n > lw.remaining {
		p = p[:lw.remaining]
	}
	written, err := lw.w.Write(p)
	lw.remaining -= written
	if err != nil {
		return written, err
	}
	return n, nil
}
