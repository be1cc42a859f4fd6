package operator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/michaelbrown/envop/internal/metrics"
	"github.com/michaelbrown/envop/internal/sandbox"
)

// SessionState is the lifecycle of a Sandbox operator's session.
type SessionState int32

const (
	StateUninitialized SessionState = iota
	StateInitializing
	StateReady
)

func (s SessionState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("SessionState(%d)", int32(s))
}

// sandboxErrorPrefix starts the stderr of a command the sandbox failed to run.
const sandboxErrorPrefix = "Error executing command in sandbox: "

// Sandbox operates on a remote sandbox. The session is created on first use
// and kept for the operator's lifetime; closing it is the owner's job.
type Sandbox struct {
	client   sandbox.Client
	settings sandbox.Settings
	metrics  *metrics.Collector

	session atomic.Pointer[liveSession]
	state   atomic.Int32
	flight  singleflight.Group
}

type liveSession struct {
	sandbox.Session
}

// SandboxOption configures a Sandbox operator.
type SandboxOption func(*Sandbox)

// WithMetrics counts session creations on m.
func WithMetrics(m *metrics.Collector) SandboxOption {
	return func(s *Sandbox) { s.metrics = m }
}

// NewSandbox creates a sandbox operator. No remote resource is allocated until
// the first call.
func NewSandbox(client sandbox.Client, settings sandbox.Settings, opts ...SandboxOption) *Sandbox {
	s := &Sandbox{client: client, settings: settings}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports where the session is in its lifecycle.
func (s *Sandbox) State() SessionState {
	return SessionState(s.state.Load())
}

// Session returns the live session, or nil before the first successful call.
func (s *Sandbox) Session() sandbox.Session {
	if live := s.session.Load(); live != nil {
		return live.Session
	}
	return nil
}

// ensureSession creates the session at most once. Concurrent first callers
// share one Create; a failed Create leaves no session so the next call retries.
func (s *Sandbox) ensureSession(ctx context.Context) (sandbox.Session, error) {
	if live := s.session.Load(); live != nil {
		return live.Session, nil
	}

	v, err, _ := s.flight.Do("session", func() (any, error) {
		if live := s.session.Load(); live != nil {
			return live.Session, nil
		}

		s.state.Store(int32(StateInitializing))
		// Detached so one caller giving up does not fail the others sharing
		// this flight.
		sess, err := s.client.Create(context.WithoutCancel(ctx), s.settings)
		s.metrics.ObserveSessionCreate(err)
		if err != nil {
			s.state.Store(int32(StateUninitialized))
			return nil, fmt.Errorf("creating sandbox session: %w", err)
		}

		s.session.Store(&liveSession{sess})
		s.state.Store(int32(StateReady))
		log.WithField("image", s.settings.Image).Info("sandbox session ready")
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(sandbox.Session), nil
}

func (s *Sandbox) ReadFile(ctx context.Context, path string) (string, error) {
	sess, err := s.ensureSession(ctx)
	if err != nil {
		return "", err
	}
	content, err := sess.ReadFile(ctx, path)
	if err != nil {
		return "", &ReadError{Path: path, Env: EnvSandbox, Err: err}
	}
	return content, nil
}

func (s *Sandbox) WriteFile(ctx context.Context, path, content string) error {
	sess, err := s.ensureSession(ctx)
	if err != nil {
		return err
	}
	if err := sess.WriteFile(ctx, path, content); err != nil {
		return &WriteError{Path: path, Env: EnvSandbox, Err: err}
	}
	return nil
}

func (s *Sandbox) IsDirectory(ctx context.Context, path string) (bool, error) {
	return s.test(ctx, "-d", path)
}

func (s *Sandbox) Exists(ctx context.Context, path string) (bool, error) {
	return s.test(ctx, "-e", path)
}

// test evaluates a shell test expression remotely; only a literal "true" on
// stdout counts as true.
func (s *Sandbox) test(ctx context.Context, flag, path string) (bool, error) {
	sess, err := s.ensureSession(ctx)
	if err != nil {
		return false, err
	}
	expr := fmt.Sprintf("test %s %s && echo 'true' || echo 'false'", flag, shellescape.Quote(path))
	out, err := sess.RunCommand(ctx, expr, DefaultTimeout)
	if err != nil {
		return false, fmt.Errorf("checking %s in sandbox: %w", path, err)
	}
	return strings.TrimSpace(out) == "true", nil
}

// RunCommand runs cmd in the sandbox. Sessions that implement
// sandbox.ResultRunner report their real exit code and stderr. Other sessions
// only return output, so success is reported as exit code 0 with empty stderr.
// Any non-timeout failure becomes exit code 1 with the error text as stderr.
func (s *Sandbox) RunCommand(ctx context.Context, cmd string, timeout time.Duration) (CommandResult, error) {
	timeout = effectiveTimeout(timeout)
	sess, err := s.ensureSession(ctx)
	if err != nil {
		return CommandResult{}, err
	}

	fields := logrus.Fields{"command": cmd, "timeout": timeout}
	log.WithFields(fields).Debug("running sandbox command")

	if rr, ok := sess.(sandbox.ResultRunner); ok {
		res, err := rr.RunCommandResult(ctx, cmd, timeout)
		if err != nil {
			return s.commandFailure(cmd, timeout, err)
		}
		return CommandResult{ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}, nil
	}

	out, err := sess.RunCommand(ctx, cmd, timeout)
	if err != nil {
		return s.commandFailure(cmd, timeout, err)
	}
	return CommandResult{ExitCode: 0, Stdout: out}, nil
}

func (s *Sandbox) commandFailure(cmd string, timeout time.Duration, err error) (CommandResult, error) {
	if errors.Is(err, sandbox.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		log.WithField("command", cmd).WithField("timeout", timeout).Warn("sandbox command timed out")
		return CommandResult{}, &TimeoutError{Command: cmd, Timeout: timeout, Env: EnvSandbox, Err: err}
	}
	log.WithError(err).WithField("command", cmd).Debug("sandbox command failed")
	return CommandResult{ExitCode: 1, Stderr: sandboxErrorPrefix + err.Error()}, nil
}
