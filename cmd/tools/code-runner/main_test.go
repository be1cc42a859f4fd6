package main

import (
	"context"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"gotest.tools/v3/assert"

	"github.com/michaelbrown/envop/internal/operator"
)

type recorder struct {
	operator.Operator
	files    map[string]string
	commands []string
}

func (r *recorder) WriteFile(_ context.Context, path, content string) error {
	r.files[path] = content
	return nil
}

func (r *recorder) RunCommand(_ context.Context, cmd string, _ time.Duration) (operator.CommandResult, error) {
	r.commands = append(r.commands, cmd)
	return operator.CommandResult{Stdout: "ok\n"}, nil
}

func TestRunWritesSourceAndStdin(t *testing.T) {
	r := &recorder{files: map[string]string{}}

	res, err := run(context.Background(), r, "/workspace", languages["python"], "print(input())", "hi\n")
	assert.NilError(t, err)
	assert.Equal(t, res.Stdout, "ok\n")
	assert.DeepEqual(t, r.files, map[string]string{
		"/workspace/main.py": "print(input())",
		"/workspace/stdin":   "hi\n",
	})
	assert.DeepEqual(t, r.commands, []string{"python main.py < stdin"})
}

func TestHandleCodeRunValidates(t *testing.T) {
	res, err := handleCodeRun(context.Background(), mcpRequest(map[string]any{"language": "cobol", "code": "x"}))
	assert.NilError(t, err)
	assert.Assert(t, res.IsError)

	res, err = handleCodeRun(context.Background(), mcpRequest(map[string]any{"language": "python"}))
	assert.NilError(t, err)
	assert.Assert(t, res.IsError)
}

func mcpRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}
