package operator

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/michaelbrown/envop/internal/textenc"
)

// Local operates on the local filesystem and process table. It holds no
// mutable state and is safe for concurrent use.
type Local struct {
	encodings []string
}

// NewLocal creates a local operator. encodings lists the preferred text
// encodings, primary first; empty means UTF-8.
func NewLocal(encodings []string) *Local {
	if len(encodings) == 0 {
		encodings = []string{textenc.Primary}
	}
	return &Local{encodings: append([]string(nil), encodings...)}
}

// Encodings returns the preference list, primary first.
func (l *Local) Encodings() []string {
	return append([]string(nil), l.encodings...)
}

func (l *Local) ReadFile(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &ReadError{Path: path, Err: err}
	}
	return textenc.Decode(data, l.encodings), nil
}

func (l *Local) WriteFile(_ context.Context, path, content string) error {
	data, err := textenc.Encode(content, l.encodings[0])
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &WriteError{Path: path, Err: err}
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func (l *Local) IsDirectory(_ context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, nil
	}
	return info.IsDir(), nil
}

// Exists follows symlinks; a dangling link does not exist. Permission errors
// are reported as absence.
func (l *Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		log.WithError(err).WithField("path", path).Debug("stat failed, treating path as absent")
	}
	return false, nil
}

func (l *Local) RunCommand(ctx context.Context, cmd string, timeout time.Duration) (CommandResult, error) {
	return runLocal(ctx, cmd, effectiveTimeout(timeout), l.encodings)
}
