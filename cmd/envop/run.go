package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var timeoutFlag time.Duration

var runCmd = &cobra.Command{
	Use:   "run <command>",
	Short: "Run a shell command and mirror its exit code",
	Long: `Run a shell command in the selected environment. stdout and stderr are
copied to envop's own, and envop exits with the command's exit code.

Examples:
  envop run 'ls -la'
  envop run --env sandbox --timeout 30s 'pip install requests && python main.py'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().DurationVar(&timeoutFlag, "timeout", 0, "Kill the command after this long (default: operator.default_timeout)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := s.env.Operator.RunCommand(ctx, strings.Join(args, " "), s.env.Timeout(timeoutFlag))
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), res.Stdout)
	fmt.Fprint(os.Stderr, res.Stderr)
	if res.ExitCode != 0 {
		return &exitError{code: res.ExitCode}
	}
	return nil
}
