package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/michaelbrown/envop/internal/storage"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const commandColumns = `id, env, command, exit_code, stdout, stderr, error, timed_out, duration_ns, created_at`

// SQLiteStore implements storage.Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and runs migrations.
// Use ":memory:" for an in-memory database (useful for testing).
func Open(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Every connection to ":memory:" is its own database.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) RecordCommand(ctx context.Context, rec *storage.CommandRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Stdout = storage.Truncate(rec.Stdout, storage.MaxOutputBytes)
	rec.Stderr = storage.Truncate(rec.Stderr, storage.MaxOutputBytes)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commands (`+commandColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Env, rec.Command, rec.ExitCode, rec.Stdout, rec.Stderr,
		rec.Error, rec.TimedOut, int64(rec.Duration), rec.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting command record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCommand(ctx context.Context, id string) (*storage.CommandRecord, error) {
	// Try exact match first, then prefix match
	rec, err := scanRecord(s.db.QueryRowContext(ctx,
		`SELECT `+commandColumns+` FROM commands WHERE id = ?`, id))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("querying command record: %w", err)
	}

	if id == "" {
		return nil, fmt.Errorf("%w: empty id", storage.ErrNotFound)
	}

	// substr keeps % and _ in the prefix literal.
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+commandColumns+` FROM commands WHERE substr(id, 1, length(?1)) = ?1`, id)
	if err != nil {
		return nil, fmt.Errorf("querying command record: %w", err)
	}
	defer rows.Close()

	var matches []*storage.CommandRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous command prefix %q matches %d records", id, len(matches))
	}
}

func (s *SQLiteStore) ListCommands(ctx context.Context, opts storage.ListOptions) ([]storage.CommandRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + commandColumns + ` FROM commands WHERE 1 = 1`
	var args []any

	if opts.Env != "" {
		query += ` AND env = ?`
		args = append(args, opts.Env)
	}
	if opts.Failed {
		query += ` AND (exit_code != 0 OR timed_out = 1 OR error != '')`
	}

	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing command records: %w", err)
	}
	defer rows.Close()

	var records []storage.CommandRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) DeleteCommand(ctx context.Context, id string) error {
	// Resolve prefix first
	rec, err := s.GetCommand(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM commands WHERE id = ?`, rec.ID)
	return err
}

func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM commands WHERE created_at < ?`,
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning command records: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Scanner interface to work with both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*storage.CommandRecord, error) {
	var rec storage.CommandRecord
	var durationNS int64
	var createdAt string
	err := s.Scan(&rec.ID, &rec.Env, &rec.Command, &rec.ExitCode, &rec.Stdout,
		&rec.Stderr, &rec.Error, &rec.TimedOut, &durationNS, &createdAt)
	if err != nil {
		return nil, err
	}
	rec.Duration = time.Duration(durationNS)
	rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	return &rec, nil
}
