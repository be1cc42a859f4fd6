package tools_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/michaelbrown/envop/internal/tools"
)

// These integration tests require the tool server binaries to be built first.
// Run: make build-tools && go test ./internal/tools/ -v

func binPath(name string) string {
	// Walk up from the test's working directory to find the project root bin/
	wd, _ := os.Getwd()
	for d := wd; d != filepath.Dir(d); d = filepath.Dir(d) {
		candidate := filepath.Join(d, "bin", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return filepath.Join("bin", name) // fallback
}

func skipIfNoBinary(t *testing.T, name string) string {
	t.Helper()
	path := binPath(name)
	if _, err := os.Stat(path); err != nil {
		t.Skipf("binary %s not found at %s (run make build-tools first)", name, path)
	}
	return path
}

// --- Registry tests ---

func TestRegistryEmpty(t *testing.T) {
	r := tools.NewRegistry()
	defer r.Close()

	if r.HasTools() {
		t.Fatal("empty registry should not have tools")
	}
	if got := r.AllTools(); len(got) != 0 {
		t.Fatalf("AllTools() = %d, want 0", len(got))
	}
	if r.HasTool(tools.ToolShellExec) {
		t.Fatal("empty registry should not have shell_exec")
	}

	_, err := r.CallTool(context.Background(), "nonexistent", nil)
	if err == nil {
		t.Fatal("CallTool on empty registry should return error")
	}
}

func TestRegistrySkipsDisabled(t *testing.T) {
	r := tools.NewRegistry()
	defer r.Close()

	err := r.Register(context.Background(), "disabled-server", tools.ToolServerConfig{
		Binary:  "/nonexistent/binary",
		Enabled: false,
	})
	if err != nil {
		t.Fatalf("Register disabled server should not error: %v", err)
	}
	if r.HasTools() {
		t.Fatal("disabled server should not register tools")
	}
}

func TestRegistryBadBinary(t *testing.T) {
	r := tools.NewRegistry()
	defer r.Close()

	err := r.Register(context.Background(), "bad", tools.ToolServerConfig{
		Binary:  "/nonexistent/binary",
		Enabled: true,
	})
	if err == nil {
		t.Fatal("Register with bad binary should return error")
	}
}

func TestTruncateOutput(t *testing.T) {
	if got := tools.TruncateOutput("short", 10); got != "short" {
		t.Errorf("TruncateOutput short = %q", got)
	}
	got := tools.TruncateOutput(strings.Repeat("é", 10), 5)
	if got != "éé\n... (output truncated)" {
		t.Errorf("TruncateOutput = %q", got)
	}
}

// --- operator server integration tests ---

func registerOperator(t *testing.T) *tools.Registry {
	t.Helper()
	bin := skipIfNoBinary(t, "envop-tool-operator")

	r := tools.NewRegistry()
	t.Cleanup(r.Close)

	if err := r.Register(context.Background(), "operator", tools.ToolServerConfig{Binary: bin, Enabled: true}); err != nil {
		t.Fatalf("Register operator: %v", err)
	}
	return r
}

func TestOperatorToolsDiscovered(t *testing.T) {
	r := registerOperator(t)

	expected := map[string]bool{
		tools.ToolFileRead:  false,
		tools.ToolFileWrite: false,
		tools.ToolPathStat:  false,
		tools.ToolShellExec: false,
	}
	for _, td := range r.AllTools() {
		if _, ok := expected[td.Name]; ok {
			expected[td.Name] = true
			if td.Description == "" {
				t.Errorf("%s should have a description", td.Name)
			}
			if td.Server != "operator" {
				t.Errorf("%s server = %q, want operator", td.Name, td.Server)
			}
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("tool %s not discovered", name)
		}
	}
}

func TestOperatorShellExecMCP(t *testing.T) {
	r := registerOperator(t)

	res, err := r.Call(context.Background(), tools.ToolShellExec, map[string]any{
		"command": "echo hello from mcp; exit 3",
	})
	if err != nil {
		t.Fatalf("Call shell_exec: %v", err)
	}
	if res.IsError {
		t.Fatalf("shell_exec returned tool error: %s", res.Text)
	}

	var out tools.ShellExecResult
	if err := json.Unmarshal([]byte(res.Text), &out); err != nil {
		t.Fatalf("decoding result %q: %v", res.Text, err)
	}
	if out.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", out.ExitCode)
	}
	if out.Stdout != "hello from mcp\n" {
		t.Errorf("stdout = %q", out.Stdout)
	}
}

func TestOperatorShellExecTimeout(t *testing.T) {
	r := registerOperator(t)

	result, err := r.CallTool(context.Background(), tools.ToolShellExec, map[string]any{
		"command":         "sleep 10",
		"timeout_seconds": 0.5,
	})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !strings.HasPrefix(result, "error: "+tools.TimeoutPrefix) {
		t.Errorf("expected timeout error, got: %q", result)
	}
}

func TestOperatorFileOpsMCP(t *testing.T) {
	r := registerOperator(t)
	ctx := context.Background()
	testFile := filepath.Join(t.TempDir(), "nested", "test.txt")

	// file_write
	result, err := r.CallTool(ctx, tools.ToolFileWrite, map[string]any{
		"path":    testFile,
		"content": "line1\nline2\nline3\n",
	})
	if err != nil {
		t.Fatalf("file_write: %v", err)
	}
	if !strings.Contains(result, "wrote") {
		t.Errorf("file_write result: %q", result)
	}

	// file_read (line range)
	result, err = r.CallTool(ctx, tools.ToolFileRead, map[string]any{
		"path":       testFile,
		"start_line": float64(2), // JSON numbers come as float64
		"end_line":   float64(2),
	})
	if err != nil {
		t.Fatalf("file_read range: %v", err)
	}
	if result != "line2" {
		t.Errorf("file_read range = %q, want %q", result, "line2")
	}

	// path_stat
	result, err = r.CallTool(ctx, tools.ToolPathStat, map[string]any{"path": filepath.Dir(testFile)})
	if err != nil {
		t.Fatalf("path_stat: %v", err)
	}
	var stat tools.PathStat
	if err := json.Unmarshal([]byte(result), &stat); err != nil {
		t.Fatalf("decoding path_stat %q: %v", result, err)
	}
	if !stat.Exists || !stat.IsDirectory {
		t.Errorf("path_stat = %+v, want existing directory", stat)
	}

	// Read nonexistent file
	result, err = r.CallTool(ctx, tools.ToolFileRead, map[string]any{"path": "/nonexistent/file.txt"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !strings.HasPrefix(result, "error: ") {
		t.Errorf("expected error for nonexistent file, got: %q", result)
	}
}
