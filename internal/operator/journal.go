package operator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/michaelbrown/envop/internal/storage"
)

// Journaled records every RunCommand of the wrapped operator in a store. File
// operations pass through untouched. A failed journal write is logged and never
// changes the command's outcome.
type Journaled struct {
	Operator
	env   string
	store storage.Store
}

// NewJournaled wraps op so its commands are recorded under env.
func NewJournaled(op Operator, env string, store storage.Store) *Journaled {
	return &Journaled{Operator: op, env: env, store: store}
}

func (j *Journaled) RunCommand(ctx context.Context, cmd string, timeout time.Duration) (CommandResult, error) {
	start := time.Now()
	res, err := j.Operator.RunCommand(ctx, cmd, timeout)

	rec := &storage.CommandRecord{
		ID:        uuid.New().String(),
		Env:       j.env,
		Command:   cmd,
		ExitCode:  res.ExitCode,
		Stdout:    res.Stdout,
		Stderr:    res.Stderr,
		TimedOut:  errors.Is(err, ErrTimeout),
		Duration:  time.Since(start),
		CreatedAt: start.UTC(),
	}
	if err != nil {
		rec.Error = err.Error()
	}

	// Record even when the caller's context is done.
	if jerr := j.store.RecordCommand(context.WithoutCancel(ctx), rec); jerr != nil {
		log.WithError(jerr).WithField("command", cmd).Warn("failed to journal command")
	}
	return res, err
}
