// Package storage defines the command journal: a record of every command run
// through an operator.
package storage

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"
)

// MaxOutputBytes caps the stdout and stderr kept per record.
const MaxOutputBytes = 64 << 10

// ErrNotFound is returned when no record matches an ID or ID prefix.
var ErrNotFound = errors.New("command record not found")

// CommandRecord is one journaled command.
type CommandRecord struct {
	ID        string        `json:"id" yaml:"id"`
	Env       string        `json:"env" yaml:"env"`
	Command   string        `json:"command" yaml:"command"`
	ExitCode  int           `json:"exit_code" yaml:"exit_code"`
	Stdout    string        `json:"stdout" yaml:"stdout"`
	Stderr    string        `json:"stderr" yaml:"stderr"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	TimedOut  bool          `json:"timed_out" yaml:"timed_out"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
}

// Failed reports whether the command errored, timed out or exited non-zero.
func (r *CommandRecord) Failed() bool {
	return r.Error != "" || r.TimedOut || r.ExitCode != 0
}

// ListOptions controls filtering and pagination for ListCommands.
type ListOptions struct {
	Env    string
	Failed bool
	Limit  int
	Offset int
}

// Store is the persistence interface for the command journal.
type Store interface {
	// RecordCommand inserts a record. The ID must be set by the caller;
	// CreatedAt is set by the store when zero.
	RecordCommand(ctx context.Context, rec *CommandRecord) error

	// GetCommand returns a record by ID or unambiguous ID prefix.
	GetCommand(ctx context.Context, id string) (*CommandRecord, error)

	// ListCommands returns records newest first.
	ListCommands(ctx context.Context, opts ListOptions) ([]CommandRecord, error)

	// DeleteCommand removes a record by ID or unambiguous ID prefix.
	DeleteCommand(ctx context.Context, id string) error

	// Prune removes records created before cutoff and reports how many.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases resources.
	Close() error
}

// Truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
