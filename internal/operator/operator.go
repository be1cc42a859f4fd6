// Package operator gives callers one contract for reading files, writing files,
// querying paths and running shell commands, whether the target is the local
// machine or a remote sandbox.
package operator

import (
	"context"
	"fmt"
	"time"
)

// DefaultTimeout applies when RunCommand is called with a zero timeout.
const DefaultTimeout = 120 * time.Second

// Environment names used for selection, journaling and metrics.
const (
	EnvLocal   = "local"
	EnvSandbox = "sandbox"
)

// Operator is implemented by every environment.
type Operator interface {
	// ReadFile returns the decoded content of path. It fails with *ReadError.
	ReadFile(ctx context.Context, path string) (string, error)

	// WriteFile replaces the content of path, creating parent directories.
	// It fails with *WriteError.
	WriteFile(ctx context.Context, path, content string) error

	// IsDirectory reports whether path is a directory. A missing path is false,
	// not an error.
	IsDirectory(ctx context.Context, path string) (bool, error)

	// Exists reports whether path exists. A missing path is false, not an error.
	Exists(ctx context.Context, path string) (bool, error)

	// RunCommand runs cmd through the environment's shell. A zero timeout means
	// DefaultTimeout. A non-zero exit status is reported in the result, not as an
	// error; only a timeout (*TimeoutError) or a failure to launch is an error.
	RunCommand(ctx context.Context, cmd string, timeout time.Duration) (CommandResult, error)
}

// CommandResult is the outcome of a completed command.
type CommandResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

// ParseEnv validates an environment name.
func ParseEnv(name string) (string, error) {
	switch name {
	case EnvLocal, EnvSandbox:
		return name, nil
	case "":
		return EnvLocal, nil
	}
	return "", fmt.Errorf("unknown environment %q (want %s or %s)", name, EnvLocal, EnvSandbox)
}

func effectiveTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	return timeout
}
