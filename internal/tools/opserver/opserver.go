// Package opserver exposes an operator as an MCP tool server. It is the server
// side of sandbox.MCPClient: the tools it registers are exactly the ones the
// client calls.
package opserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/michaelbrown/envop/internal/operator"
	"github.com/michaelbrown/envop/internal/tools"
)

// Server answers operator tool calls.
type Server struct {
	op             operator.Operator
	defaultTimeout time.Duration
}

// New serves op. defaultTimeout applies to shell_exec calls without
// timeout_seconds; zero means operator.DefaultTimeout.
func New(op operator.Operator, defaultTimeout time.Duration) *Server {
	if defaultTimeout <= 0 {
		defaultTimeout = operator.DefaultTimeout
	}
	return &Server{op: op, defaultTimeout: defaultTimeout}
}

// MCPServer builds an mcp-go server with every operator tool registered.
func (s *Server) MCPServer(name, version string) *server.MCPServer {
	srv := server.NewMCPServer(name, version)

	srv.AddTool(mcp.Tool{
		Name:        tools.ToolFileRead,
		Description: "Read the contents of a file. Optionally specify a line range.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the file to read",
				},
				"start_line": map[string]any{
					"type":        "integer",
					"description": "First line to read (1-based, optional)",
				},
				"end_line": map[string]any{
					"type":        "integer",
					"description": "Last line to read (1-based, inclusive, optional)",
				},
			},
			Required: []string{"path"},
		},
	}, s.handleFileRead)

	srv.AddTool(mcp.Tool{
		Name:        tools.ToolFileWrite,
		Description: "Write content to a file, creating it and its parent directories if needed. Overwrites existing content.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the file to write",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Content to write to the file",
				},
			},
			Required: []string{"path", "content"},
		},
	}, s.handleFileWrite)

	srv.AddTool(mcp.Tool{
		Name:        tools.ToolPathStat,
		Description: "Report whether a path exists and whether it is a directory.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to inspect",
				},
			},
			Required: []string{"path"},
		},
	}, s.handlePathStat)

	srv.AddTool(mcp.Tool{
		Name:        tools.ToolShellExec,
		Description: "Execute a shell command and return its exit code, stdout and stderr as JSON.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "The shell command to execute",
				},
				"workdir": map[string]any{
					"type":        "string",
					"description": "Working directory for the command (optional)",
				},
				"timeout_seconds": map[string]any{
					"type":        "number",
					"description": "Seconds before the command is killed (optional)",
				},
			},
			Required: []string{"command"},
		},
	}, s.handleShellExec)

	return srv
}

// Serve runs the server on stdin/stdout until the client disconnects.
func (s *Server) Serve(name, version string) error {
	return server.ServeStdio(s.MCPServer(name, version))
}

func getArgs(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	return args
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
	}
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return textResult(string(data)), nil
}

func (s *Server) handleFileRead(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	path, _ := args["path"].(string)
	if path == "" {
		return errResult("error: 'path' is required"), nil
	}

	start, _ := toInt(args["start_line"])
	end, _ := toInt(args["end_line"])

	content, err := operator.ReadLines(ctx, s.op, path, start, end)
	if err != nil {
		return errResult(err.Error()), nil
	}
	return textResult(content), nil
}

func (s *Server) handleFileWrite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	path, _ := args["path"].(string)
	content, ok := args["content"].(string)
	if path == "" || !ok {
		return errResult("error: 'path' and 'content' are required"), nil
	}

	if err := s.op.WriteFile(ctx, path, content); err != nil {
		return errResult(err.Error()), nil
	}
	return textResult(fmt.Sprintf("wrote %d bytes to %s", len(content), path)), nil
}

func (s *Server) handlePathStat(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	path, _ := args["path"].(string)
	if path == "" {
		return errResult("error: 'path' is required"), nil
	}

	exists, err := s.op.Exists(ctx, path)
	if err != nil {
		return errResult(err.Error()), nil
	}
	var isDir bool
	if exists {
		if isDir, err = s.op.IsDirectory(ctx, path); err != nil {
			return errResult(err.Error()), nil
		}
	}
	return jsonResult(tools.PathStat{Exists: exists, IsDirectory: isDir})
}

func (s *Server) handleShellExec(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := getArgs(request)
	if args == nil {
		return errResult("error: invalid arguments"), nil
	}
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return errResult("error: 'command' argument must be a string"), nil
	}
	if workdir, _ := args["workdir"].(string); workdir != "" {
		command = "cd " + shellescape.Quote(workdir) + " && " + command
	}

	timeout := s.defaultTimeout
	if secs, ok := toFloat(args["timeout_seconds"]); ok && secs > 0 {
		timeout = time.Duration(secs * float64(time.Second))
	}

	res, err := s.op.RunCommand(ctx, command, timeout)
	if errors.Is(err, operator.ErrTimeout) {
		return errResult(tools.TimeoutPrefix + err.Error()), nil
	}
	if err != nil {
		return errResult("error: " + err.Error()), nil
	}
	return jsonResult(tools.ShellExecResult{ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr})
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
