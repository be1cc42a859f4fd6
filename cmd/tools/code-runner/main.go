// Command envop-tool-code-runner executes code snippets in a throwaway Docker
// sandbox over MCP stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/michaelbrown/envop/internal/operator"
	"github.com/michaelbrown/envop/internal/sandbox"
	"github.com/michaelbrown/envop/internal/tools"
)

type language struct {
	image   string
	file    string
	command string
}

var languages = map[string]language{
	"python":     {image: "python:3.12-slim", file: "main.py", command: "python main.py"},
	"javascript": {image: "node:22-slim", file: "main.js", command: "node main.js"},
	"go":         {image: "golang:1.23-alpine", file: "main.go", command: "go run main.go"},
	"ruby":       {image: "ruby:3.3-slim", file: "main.rb", command: "ruby main.rb"},
	"shell":      {image: "python:3.12-slim", file: "main.sh", command: "sh main.sh"},
}

const runTimeout = 60 * time.Second

func main() {
	// stdout carries the protocol
	logrus.SetOutput(os.Stderr)

	s := server.NewMCPServer("envop-code-runner", "0.1.0")

	var langs []string
	for lang := range languages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	s.AddTool(mcp.Tool{
		Name:        "code_run",
		Description: fmt.Sprintf("Execute code in a Docker sandbox. Supported languages: %s.", strings.Join(langs, ", ")),
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"language": map[string]any{
					"type":        "string",
					"description": "Programming language (" + strings.Join(langs, ", ") + ")",
				},
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to execute",
				},
				"stdin": map[string]any{
					"type":        "string",
					"description": "Standard input to provide to the program (optional)",
				},
			},
			Required: []string{"language", "code"},
		},
	}, handleCodeRun)

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleCodeRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return errResult("error: invalid arguments"), nil
	}

	lang, _ := args["language"].(string)
	code, _ := args["code"].(string)
	stdin, _ := args["stdin"].(string)

	if lang == "" || code == "" {
		return errResult("error: 'language' and 'code' are required"), nil
	}

	cfg, ok := languages[lang]
	if !ok {
		return errResult(fmt.Sprintf("error: unsupported language %q", lang)), nil
	}

	settings := sandbox.DefaultSettings()
	settings.Image = cfg.image
	settings.Timeout = runTimeout
	settings.NamePrefix = "envop-code-runner"

	sb := operator.NewSandbox(sandbox.NewDockerClient(), settings)
	defer func() {
		if sess := sb.Session(); sess != nil {
			if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
				logrus.WithError(err).Warn("failed to remove code-runner sandbox")
			}
		}
	}()

	result, err := run(ctx, sb, settings.WorkDir, cfg, code, stdin)
	if err != nil {
		return errResult(fmt.Sprintf("error: %v", err)), nil
	}

	var output strings.Builder
	output.WriteString(result.Stdout)
	if result.Stderr != "" {
		if output.Len() > 0 {
			output.WriteString("\n")
		}
		output.WriteString("STDERR:\n" + result.Stderr)
	}
	if result.ExitCode != 0 {
		output.WriteString(fmt.Sprintf("\nexit code: %d", result.ExitCode))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: tools.TruncateOutput(output.String(), tools.MaxDisplayOutput)}},
		IsError: result.ExitCode != 0,
	}, nil
}

func run(ctx context.Context, op operator.Operator, workDir string, cfg language, code, stdin string) (operator.CommandResult, error) {
	if err := op.WriteFile(ctx, workDir+"/"+cfg.file, code); err != nil {
		return operator.CommandResult{}, err
	}

	command := cfg.command
	if stdin != "" {
		if err := op.WriteFile(ctx, workDir+"/stdin", stdin); err != nil {
			return operator.CommandResult{}, err
		}
		command += " < stdin"
	}
	return op.RunCommand(ctx, command, runTimeout)
}

func errResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: text}},
		IsError: true,
	}
}
