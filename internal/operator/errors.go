package operator

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout matches every *TimeoutError via errors.Is.
var ErrTimeout = errors.New("command timed out")

// ReadError is returned when a file cannot be read.
type ReadError struct {
	Path string
	Env  string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read %s%s: %v", e.Path, where(e.Env), e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError is returned when a file cannot be created or written.
type WriteError struct {
	Path string
	Env  string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write to %s%s: %v", e.Path, where(e.Env), e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// TimeoutError is returned when a command does not finish within its timeout.
// The process has been killed (local) or left to the sandbox to reap by the time
// the caller sees it.
type TimeoutError struct {
	Command string
	Timeout time.Duration
	Env     string
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out after %s%s", e.Command, e.Timeout, where(e.Env))
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.Err }

// CommandError is returned when a local command could not be started or was
// abandoned because the caller's context ended.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("running %q: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

func where(env string) string {
	if env == "" || env == EnvLocal {
		return ""
	}
	return " in " + env
}
