// Package sandbox defines the remote execution environment the sandbox
// operator talks to, plus Docker and MCP implementations of it.
package sandbox

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is wrapped by Session.RunCommand errors when a command outlives
// its timeout.
var ErrTimeout = errors.New("sandbox command timed out")

// Client creates sandbox sessions.
type Client interface {
	Create(ctx context.Context, settings Settings) (Session, error)
}

// Session is a live connection to one sandbox.
type Session interface {
	ReadFile(ctx context.Context, path string) (string, error)
	WriteFile(ctx context.Context, path, content string) error

	// RunCommand runs cmd and returns its output. The error wraps ErrTimeout
	// when the command did not finish within timeout.
	RunCommand(ctx context.Context, cmd string, timeout time.Duration) (string, error)

	// Close releases the sandbox.
	Close(ctx context.Context) error
}

// ResultRunner is implemented by sessions that can report a real exit code
// and a separate stderr stream.
type ResultRunner interface {
	RunCommandResult(ctx context.Context, cmd string, timeout time.Duration) (*ExecResult, error)
}

// ExecResult is the output of a sandboxed execution.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// Combined joins stdout and stderr the way a terminal would show them.
func (r *ExecResult) Combined() string {
	switch {
	case r.Stderr == "":
		return r.Stdout
	case r.Stdout == "":
		return r.Stderr
	}
	return r.Stdout + r.Stderr
}
