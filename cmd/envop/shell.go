package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/envop/internal/environ"
	"github.com/michaelbrown/envop/internal/operator"
	"github.com/michaelbrown/envop/internal/tools"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell on the selected environment",
	Long: `Start an interactive prompt. Each line is run as a shell command in the
selected environment; lines starting with / are envop commands.

Examples:
  envop shell
  envop shell --env sandbox`,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

// repl holds the interactive state between lines.
type repl struct {
	env     *environ.Environment
	out     io.Writer
	timeout time.Duration
}

func runShell(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("envop - interactive shell\n")
	fmt.Printf("Environment: %s | Timeout: %s\n", s.env.Name, s.env.Timeout(0))
	fmt.Printf("Type /help for commands, /quit to exit\n\n")

	historyFile := ""
	if home, err := os.UserHomeDir(); err == nil {
		historyFile = filepath.Join(home, ".envop", "shell_history")
		os.MkdirAll(filepath.Dir(historyFile), 0o755)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("\033[36m%s>\033[0m ", s.env.Name),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	r := &repl{env: s.env, out: os.Stdout}

	// Ctrl+C cancels the running command, not the shell.
	var (
		mu        sync.Mutex
		reqCancel context.CancelFunc
	)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		for range sigCh {
			mu.Lock()
			if reqCancel != nil {
				reqCancel()
			}
			mu.Unlock()
		}
	}()

	for {
		input, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		mu.Lock()
		reqCancel = cancel
		mu.Unlock()

		quit := r.handle(ctx, input)

		mu.Lock()
		reqCancel = nil
		mu.Unlock()
		cancel()

		if quit {
			fmt.Println("Goodbye!")
			return nil
		}
	}
}

// handle runs one line and reports whether the shell should exit.
func (r *repl) handle(ctx context.Context, input string) bool {
	if strings.HasPrefix(input, "/") {
		return r.command(ctx, input)
	}

	res, err := r.env.Operator.RunCommand(ctx, input, r.env.Timeout(r.timeout))
	switch {
	case errors.Is(err, operator.ErrTimeout):
		fmt.Fprintf(r.out, "\033[31m%s\033[0m\n", err)
		return false
	case ctx.Err() != nil:
		fmt.Fprintln(r.out, "(interrupted)")
		return false
	case err != nil:
		fmt.Fprintf(r.out, "\033[31merror: %s\033[0m\n", err)
		return false
	}

	if res.Stdout != "" {
		fmt.Fprint(r.out, withNewline(tools.TruncateOutput(res.Stdout, tools.MaxDisplayOutput)))
	}
	if res.Stderr != "" {
		fmt.Fprintf(r.out, "\033[33m%s\033[0m", withNewline(tools.TruncateOutput(res.Stderr, tools.MaxDisplayOutput)))
	}
	if res.ExitCode != 0 {
		fmt.Fprintf(r.out, "\033[90m[exit %d]\033[0m\n", res.ExitCode)
	}
	return false
}

func (r *repl) command(ctx context.Context, input string) bool {
	fields := strings.Fields(input)
	arg := strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit", "/q":
		return true
	case "/read":
		if arg == "" {
			fmt.Fprintln(r.out, "usage: /read <path>")
			break
		}
		content, err := r.env.Operator.ReadFile(ctx, arg)
		if err != nil {
			fmt.Fprintf(r.out, "\033[31m%s\033[0m\n", err)
			break
		}
		fmt.Fprint(r.out, withNewline(tools.TruncateOutput(content, tools.MaxDisplayOutput)))
	case "/stat":
		if arg == "" {
			fmt.Fprintln(r.out, "usage: /stat <path>")
			break
		}
		exists, err := r.env.Operator.Exists(ctx, arg)
		if err != nil {
			fmt.Fprintf(r.out, "\033[31m%s\033[0m\n", err)
			break
		}
		isDir, err := r.env.Operator.IsDirectory(ctx, arg)
		if err != nil {
			fmt.Fprintf(r.out, "\033[31m%s\033[0m\n", err)
			break
		}
		fmt.Fprintf(r.out, "exists: %t, directory: %t\n", exists, isDir)
	case "/timeout":
		if arg == "" {
			fmt.Fprintf(r.out, "timeout: %s\n", r.env.Timeout(r.timeout))
			break
		}
		d, err := time.ParseDuration(arg)
		if err != nil || d <= 0 {
			fmt.Fprintf(r.out, "invalid duration %q\n", arg)
			break
		}
		r.timeout = d
		fmt.Fprintf(r.out, "timeout set to %s\n", d)
	case "/env":
		fmt.Fprintf(r.out, "%s (%s)\n", r.env.Name, r.env.State())
	case "/help":
		fmt.Fprintln(r.out, "Commands:")
		fmt.Fprintln(r.out, "  /help            - Show this help")
		fmt.Fprintln(r.out, "  /read <path>     - Print a file")
		fmt.Fprintln(r.out, "  /stat <path>     - Show whether a path exists and is a directory")
		fmt.Fprintln(r.out, "  /timeout [dur]   - Show or set the command timeout")
		fmt.Fprintln(r.out, "  /env             - Show the environment and its state")
		fmt.Fprintln(r.out, "  /quit            - Exit")
	default:
		fmt.Fprintf(r.out, "Unknown command: %s (try /help)\n", input)
	}
	return false
}

func withNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
