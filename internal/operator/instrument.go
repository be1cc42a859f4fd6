package operator

import (
	"context"
	"errors"
	"time"

	"github.com/michaelbrown/envop/internal/metrics"
)

// Instrumented feeds every call of the wrapped operator into a metrics collector.
type Instrumented struct {
	next    Operator
	env     string
	metrics *metrics.Collector
}

// NewInstrumented wraps op so its calls are observed under env.
func NewInstrumented(op Operator, env string, m *metrics.Collector) *Instrumented {
	return &Instrumented{next: op, env: env, metrics: m}
}

func (i *Instrumented) observe(op string, start time.Time, err error) {
	i.metrics.ObserveOperation(i.env, op, time.Since(start), err)
}

func (i *Instrumented) ReadFile(ctx context.Context, path string) (string, error) {
	start := time.Now()
	content, err := i.next.ReadFile(ctx, path)
	i.observe("read_file", start, err)
	return content, err
}

func (i *Instrumented) WriteFile(ctx context.Context, path, content string) error {
	start := time.Now()
	err := i.next.WriteFile(ctx, path, content)
	i.observe("write_file", start, err)
	return err
}

func (i *Instrumented) IsDirectory(ctx context.Context, path string) (bool, error) {
	start := time.Now()
	ok, err := i.next.IsDirectory(ctx, path)
	i.observe("is_directory", start, err)
	return ok, err
}

func (i *Instrumented) Exists(ctx context.Context, path string) (bool, error) {
	start := time.Now()
	ok, err := i.next.Exists(ctx, path)
	i.observe("exists", start, err)
	return ok, err
}

func (i *Instrumented) RunCommand(ctx context.Context, cmd string, timeout time.Duration) (CommandResult, error) {
	start := time.Now()
	res, err := i.next.RunCommand(ctx, cmd, timeout)
	i.observe("run_command", start, err)

	switch {
	case errors.Is(err, ErrTimeout):
		i.metrics.ObserveTimeout(i.env)
	case err == nil:
		i.metrics.ObserveExit(i.env, res.ExitCode)
	}
	return res, err
}
