package opserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/michaelbrown/envop/internal/operator"
	"github.com/michaelbrown/envop/internal/tools"
)

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	assert.Equal(t, len(res.Content), 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	assert.Assert(t, ok)
	return tc.Text
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestFileWriteThenRead(t *testing.T) {
	ctx := context.Background()
	s := New(operator.NewLocal(nil), 0)
	path := filepath.Join(t.TempDir(), "sub", "f.txt")

	res, err := s.handleFileWrite(ctx, call(map[string]any{"path": path, "content": "one\ntwo\nthree"}))
	assert.NilError(t, err)
	assert.Assert(t, !res.IsError)
	assert.Equal(t, text(t, res), "wrote 13 bytes to "+path)

	res, err = s.handleFileRead(ctx, call(map[string]any{"path": path}))
	assert.NilError(t, err)
	assert.Equal(t, text(t, res), "one\ntwo\nthree")

	res, err = s.handleFileRead(ctx, call(map[string]any{"path": path, "start_line": float64(2), "end_line": float64(3)}))
	assert.NilError(t, err)
	assert.Equal(t, text(t, res), "two\nthree")
}

func TestFileWriteEmptyContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	res, err := New(operator.NewLocal(nil), 0).handleFileWrite(context.Background(), call(map[string]any{"path": path, "content": ""}))
	assert.NilError(t, err)
	assert.Assert(t, !res.IsError)

	info, err := os.Stat(path)
	assert.NilError(t, err)
	assert.Equal(t, info.Size(), int64(0))
}

func TestFileErrors(t *testing.T) {
	ctx := context.Background()
	s := New(operator.NewLocal(nil), 0)

	res, _ := s.handleFileRead(ctx, call(map[string]any{}))
	assert.Assert(t, res.IsError)
	assert.Equal(t, text(t, res), "error: 'path' is required")

	res, _ = s.handleFileRead(ctx, call(map[string]any{"path": filepath.Join(t.TempDir(), "missing")}))
	assert.Assert(t, res.IsError)
	assert.Assert(t, is.Contains(text(t, res), "failed to read"))

	res, _ = s.handleFileWrite(ctx, call(map[string]any{"path": "x"}))
	assert.Assert(t, res.IsError)
}

func TestPathStat(t *testing.T) {
	ctx := context.Background()
	s := New(operator.NewLocal(nil), 0)
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	assert.NilError(t, os.WriteFile(file, nil, 0o644))

	tests := []struct {
		path string
		want tools.PathStat
	}{
		{dir, tools.PathStat{Exists: true, IsDirectory: true}},
		{file, tools.PathStat{Exists: true}},
		{filepath.Join(dir, "nope"), tools.PathStat{}},
	}
	for _, tt := range tests {
		res, err := s.handlePathStat(ctx, call(map[string]any{"path": tt.path}))
		assert.NilError(t, err)
		var got tools.PathStat
		assert.NilError(t, json.Unmarshal([]byte(text(t, res)), &got))
		assert.Equal(t, got, tt.want)
	}
}

func TestShellExec(t *testing.T) {
	skipWithoutShell(t)
	s := New(operator.NewLocal(nil), 0)

	res, err := s.handleShellExec(context.Background(), call(map[string]any{"command": "echo out; echo boom >&2; exit 2"}))
	assert.NilError(t, err)
	assert.Assert(t, !res.IsError)

	var got tools.ShellExecResult
	assert.NilError(t, json.Unmarshal([]byte(text(t, res)), &got))
	assert.Equal(t, got.ExitCode, 2)
	assert.Equal(t, got.Stdout, "out\n")
	assert.Equal(t, strings.TrimSpace(got.Stderr), "boom")
}

func TestShellExecWorkdir(t *testing.T) {
	skipWithoutShell(t)
	dir := t.TempDir()
	s := New(operator.NewLocal(nil), 0)

	res, err := s.handleShellExec(context.Background(), call(map[string]any{"command": "pwd", "workdir": dir}))
	assert.NilError(t, err)

	var got tools.ShellExecResult
	assert.NilError(t, json.Unmarshal([]byte(text(t, res)), &got))
	resolved, err := filepath.EvalSymlinks(dir)
	assert.NilError(t, err)
	assert.Equal(t, strings.TrimSpace(got.Stdout), resolved)
}

func TestShellExecTimeout(t *testing.T) {
	skipWithoutShell(t)
	s := New(operator.NewLocal(nil), time.Minute)

	start := time.Now()
	res, err := s.handleShellExec(context.Background(), call(map[string]any{"command": "sleep 10", "timeout_seconds": 0.3}))
	assert.NilError(t, err)
	assert.Assert(t, res.IsError)
	assert.Assert(t, strings.HasPrefix(text(t, res), tools.TimeoutPrefix), text(t, res))
	assert.Assert(t, time.Since(start) < 5*time.Second)
}

func TestShellExecBadArgs(t *testing.T) {
	s := New(operator.NewLocal(nil), 0)

	res, _ := s.handleShellExec(context.Background(), call(nil))
	assert.Assert(t, res.IsError)

	res, _ = s.handleShellExec(context.Background(), call(map[string]any{"command": 42}))
	assert.Assert(t, res.IsError)
	assert.Equal(t, text(t, res), "error: 'command' argument must be a string")
}

func TestMCPServerRegistersTools(t *testing.T) {
	srv := New(operator.NewLocal(nil), 0).MCPServer("envop-operator", "test")
	assert.Assert(t, srv != nil)
}
