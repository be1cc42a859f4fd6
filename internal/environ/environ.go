// Package environ assembles ready-to-use operators from configuration: the
// base environment, its journal and its metrics.
package environ

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/michaelbrown/envop/internal/config"
	"github.com/michaelbrown/envop/internal/metrics"
	"github.com/michaelbrown/envop/internal/operator"
	"github.com/michaelbrown/envop/internal/sandbox"
	"github.com/michaelbrown/envop/internal/storage"
)

// Environment is an opened operator plus what is needed to shut it down.
type Environment struct {
	Name     string
	Operator operator.Operator

	// DefaultTimeout is applied by callers that were given no timeout.
	DefaultTimeout time.Duration

	sandbox *operator.Sandbox
}

// Open builds the operator for name ("local" or "sandbox") from cfg. store and
// m may be nil to skip journaling or metrics. Opening a sandbox environment does
// not start the sandbox; that happens on its first call.
func Open(cfg *config.Config, name string, store storage.Store, m *metrics.Collector) (*Environment, error) {
	name, err := operator.ParseEnv(name)
	if err != nil {
		return nil, err
	}

	var base operator.Operator
	switch name {
	case operator.EnvLocal:
		base = operator.NewLocal(cfg.Operator.Encodings())
	case operator.EnvSandbox:
		client, err := sandboxClient(cfg)
		if err != nil {
			return nil, err
		}
		base = operator.NewSandbox(client, cfg.Sandbox.Settings, operator.WithMetrics(m))
	}

	env := New(name, base, store, m)
	env.DefaultTimeout = cfg.Operator.DefaultTimeout
	return env, nil
}

func sandboxClient(cfg *config.Config) (sandbox.Client, error) {
	switch cfg.Sandbox.Backend {
	case config.BackendDocker, "":
		return sandbox.NewDockerClient(), nil
	case config.BackendMCP:
		return sandbox.NewMCPClient(operator.EnvSandbox, cfg.Sandbox.MCP), nil
	}
	return nil, fmt.Errorf("unknown sandbox backend %q", cfg.Sandbox.Backend)
}

// New wraps base with the journal and metrics decorators.
func New(name string, base operator.Operator, store storage.Store, m *metrics.Collector) *Environment {
	env := &Environment{Name: name, DefaultTimeout: operator.DefaultTimeout}
	if sb, ok := base.(*operator.Sandbox); ok {
		env.sandbox = sb
	}

	op := base
	if store != nil {
		op = operator.NewJournaled(op, name, store)
	}
	if m != nil {
		op = operator.NewInstrumented(op, name, m)
	}
	env.Operator = op
	return env
}

// Timeout returns t, or the environment default when t is zero.
func (e *Environment) Timeout(t time.Duration) time.Duration {
	if t > 0 {
		return t
	}
	return e.DefaultTimeout
}

// State describes the environment for health checks: "ready" for local, the
// session state for a sandbox.
func (e *Environment) State() string {
	if e.sandbox == nil {
		return operator.StateReady.String()
	}
	return e.sandbox.State().String()
}

// Close releases the sandbox session if one was created.
func (e *Environment) Close(ctx context.Context) error {
	if e.sandbox == nil {
		return nil
	}
	sess := e.sandbox.Session()
	if sess == nil {
		return nil
	}
	logrus.WithField("env", e.Name).Info("closing sandbox session")
	if err := sess.Close(ctx); err != nil {
		return fmt.Errorf("closing sandbox session: %w", err)
	}
	return nil
}
