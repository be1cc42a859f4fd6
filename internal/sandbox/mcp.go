package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/michaelbrown/envop/internal/tools"
)

// MCPClient reaches a sandbox through an envop operator MCP server, typically
// started inside the isolated environment (for example via "docker exec -i" or
// "ssh").
type MCPClient struct {
	Name   string
	Server tools.ToolServerConfig
}

// NewMCPClient creates a client for the given tool server.
func NewMCPClient(name string, server tools.ToolServerConfig) *MCPClient {
	server.Enabled = true
	return &MCPClient{Name: name, Server: server}
}

// Create launches the tool server and checks that it serves the operator tools.
// Settings are not forwarded: the server decides its own isolation.
func (c *MCPClient) Create(ctx context.Context, settings Settings) (Session, error) {
	name := c.Name
	if name == "" {
		name = "sandbox"
	}

	registry := tools.NewRegistry()
	if err := registry.Register(ctx, name, c.Server); err != nil {
		return nil, err
	}
	for _, tool := range []string{tools.ToolFileRead, tools.ToolFileWrite, tools.ToolShellExec} {
		if !registry.HasTool(tool) {
			registry.Close()
			return nil, fmt.Errorf("MCP server %s does not provide %s", name, tool)
		}
	}

	logrus.WithFields(logrus.Fields{
		"server": name,
		"binary": c.Server.Binary,
	}).Info("connected to MCP sandbox")

	return &MCPSession{registry: registry, settings: settings}, nil
}

// MCPSession calls operator tools on a connected MCP server.
type MCPSession struct {
	registry *tools.Registry
	settings Settings
}

func (s *MCPSession) ReadFile(ctx context.Context, path string) (string, error) {
	res, err := s.registry.Call(ctx, tools.ToolFileRead, map[string]any{"path": path})
	if err != nil {
		return "", err
	}
	if res.IsError {
		return "", errors.New(res.Text)
	}
	return res.Text, nil
}

func (s *MCPSession) WriteFile(ctx context.Context, path, content string) error {
	res, err := s.registry.Call(ctx, tools.ToolFileWrite, map[string]any{
		"path":    path,
		"content": content,
	})
	if err != nil {
		return err
	}
	if res.IsError {
		return errors.New(res.Text)
	}
	return nil
}

func (s *MCPSession) RunCommand(ctx context.Context, cmd string, timeout time.Duration) (string, error) {
	res, err := s.RunCommandResult(ctx, cmd, timeout)
	if err != nil {
		return "", err
	}
	return res.Combined(), nil
}

func (s *MCPSession) RunCommandResult(ctx context.Context, cmd string, timeout time.Duration) (*ExecResult, error) {
	timeout = s.settings.clampTimeout(timeout)
	args := map[string]any{"command": cmd}
	if timeout > 0 {
		args["timeout_seconds"] = math.Ceil(timeout.Seconds())
	}

	res, err := s.registry.Call(ctx, tools.ToolShellExec, args)
	if err != nil {
		return nil, err
	}
	if res.IsError {
		if strings.HasPrefix(res.Text, tools.TimeoutPrefix) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, strings.TrimPrefix(res.Text, tools.TimeoutPrefix))
		}
		return nil, errors.New(res.Text)
	}

	var out tools.ShellExecResult
	if err := json.Unmarshal([]byte(res.Text), &out); err != nil {
		return nil, fmt.Errorf("decoding %s result: %w", tools.ToolShellExec, err)
	}
	return &ExecResult{Stdout: out.Stdout, Stderr: out.Stderr, ExitCode: out.ExitCode}, nil
}

// Close shuts down the MCP server process.
func (s *MCPSession) Close(context.Context) error {
	s.registry.Close()
	return nil
}
