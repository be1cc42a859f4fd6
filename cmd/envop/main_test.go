package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/michaelbrown/envop/internal/environ"
	"github.com/michaelbrown/envop/internal/operator"
	"github.com/michaelbrown/envop/internal/storage"
)

func newTestRepl() (*repl, *bytes.Buffer) {
	var buf bytes.Buffer
	env := environ.New(operator.EnvLocal, operator.NewLocal(nil), nil, nil)
	return &repl{env: env, out: &buf}, &buf
}

func TestReplSlashCommands(t *testing.T) {
	r, out := newTestRepl()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "note.txt")
	assert.NilError(t, os.WriteFile(path, []byte("hello"), 0o644))

	assert.Check(t, !r.handle(ctx, "/read "+path))
	assert.Check(t, is.Contains(out.String(), "hello\n"))

	out.Reset()
	r.handle(ctx, "/stat "+path)
	assert.Check(t, is.Equal(out.String(), "exists: true, directory: false\n"))

	out.Reset()
	r.handle(ctx, "/stat "+filepath.Dir(path))
	assert.Check(t, is.Equal(out.String(), "exists: true, directory: true\n"))

	out.Reset()
	r.handle(ctx, "/timeout 5s")
	assert.Equal(t, r.timeout, 5*time.Second)

	out.Reset()
	r.handle(ctx, "/timeout soon")
	assert.Check(t, is.Contains(out.String(), "invalid duration"))
	assert.Equal(t, r.timeout, 5*time.Second)

	out.Reset()
	r.handle(ctx, "/env")
	assert.Check(t, is.Equal(out.String(), "local (ready)\n"))

	out.Reset()
	r.handle(ctx, "/bogus")
	assert.Check(t, is.Contains(out.String(), "Unknown command"))

	assert.Check(t, r.handle(ctx, "/quit"))
}

func TestReplRunsCommands(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	r, out := newTestRepl()
	ctx := context.Background()

	r.handle(ctx, "echo hi")
	assert.Check(t, is.Equal(out.String(), "hi\n"))

	out.Reset()
	r.handle(ctx, "echo boom >&2; exit 2")
	assert.Check(t, is.Contains(out.String(), "boom"))
	assert.Check(t, is.Contains(out.String(), "[exit 2]"))

	out.Reset()
	r.timeout = 100 * time.Millisecond
	r.handle(ctx, "sleep 5")
	assert.Check(t, is.Contains(out.String(), "timed out"))
}

func TestExitLabel(t *testing.T) {
	assert.Equal(t, exitLabel(&storage.CommandRecord{ExitCode: 3}), "3")
	assert.Equal(t, exitLabel(&storage.CommandRecord{TimedOut: true}), "timeout")
	assert.Equal(t, exitLabel(&storage.CommandRecord{Error: "no shell"}), "error")
}

func TestHistoryHelpers(t *testing.T) {
	assert.Equal(t, shortID("0123456789abcdef"), "01234567")
	assert.Equal(t, shortID("abc"), "abc")
	assert.Equal(t, oneLine("echo a\n  echo b"), "echo a echo b")
	assert.Equal(t, truncate("abcdef", 3), "abc...")
	assert.Equal(t, timeAgo(time.Now()), "just now")
	assert.Equal(t, timeAgo(time.Now().Add(-3*time.Hour)), "3h ago")
	assert.Check(t, strings.HasSuffix(timeAgo(time.Now().Add(-72*time.Hour)), "d ago"))
}

func TestWithNewline(t *testing.T) {
	assert.Equal(t, withNewline("a"), "a\n")
	assert.Equal(t, withNewline("a\n"), "a\n")
}
