package sandbox_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/michaelbrown/envop/internal/sandbox"
	"github.com/michaelbrown/envop/internal/tools"
)

// Requires the tool binaries: make build-tools && go test ./internal/sandbox/

func skipIfNoBinary(t *testing.T, name string) string {
	t.Helper()
	wd, _ := os.Getwd()
	for d := wd; d != filepath.Dir(d); d = filepath.Dir(d) {
		candidate := filepath.Join(d, "bin", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	t.Skipf("binary %s not found (run make build-tools first)", name)
	return ""
}

func TestMCPSession(t *testing.T) {
	bin := skipIfNoBinary(t, "envop-tool-operator")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := sandbox.NewMCPClient("test", tools.ToolServerConfig{Binary: bin})
	sess, err := client.Create(ctx, sandbox.Settings{Timeout: 10 * time.Second})
	assert.NilError(t, err)
	defer sess.Close(ctx)

	dir := t.TempDir()
	path := filepath.Join(dir, "a", "note.txt")

	assert.NilError(t, sess.WriteFile(ctx, path, "first line\nsecond line\n"))
	got, err := sess.ReadFile(ctx, path)
	assert.NilError(t, err)
	assert.Equal(t, got, "first line\nsecond line\n")

	_, err = sess.ReadFile(ctx, filepath.Join(dir, "missing.txt"))
	assert.Assert(t, err != nil)

	runner, ok := sess.(sandbox.ResultRunner)
	assert.Assert(t, ok)
	res, err := runner.RunCommandResult(ctx, "echo out; echo err >&2; exit 4", 0)
	assert.NilError(t, err)
	assert.Equal(t, res.Stdout, "out\n")
	assert.Equal(t, res.Stderr, "err\n")
	assert.Equal(t, res.ExitCode, 4)

	out, err := sess.RunCommand(ctx, "echo hi", 0)
	assert.NilError(t, err)
	assert.Equal(t, out, "hi\n")

	_, err = sess.RunCommand(ctx, "sleep 5", time.Second)
	assert.Check(t, errors.Is(err, sandbox.ErrTimeout), "err = %v", err)
}

func TestMCPCreateRequiresOperatorTools(t *testing.T) {
	bin := skipIfNoBinary(t, "envop-tool-code-runner")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := sandbox.NewMCPClient("runner", tools.ToolServerConfig{Binary: bin})
	_, err := client.Create(ctx, sandbox.DefaultSettings())
	assert.ErrorContains(t, err, "does not provide")
}

func TestMCPCreateMissingBinary(t *testing.T) {
	client := sandbox.NewMCPClient("", tools.ToolServerConfig{Binary: "/nonexistent/envop-tool-operator"})
	_, err := client.Create(context.Background(), sandbox.DefaultSettings())
	assert.Assert(t, err != nil)
}
