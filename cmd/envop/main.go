package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	envFlag    string
	configFlag string
	debugFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "envop",
	Short: "envop - one interface to files and commands, local or sandboxed",
	Long: `envop reads and writes files, inspects paths and runs shell commands
against either the local machine or a lazily created sandbox, through the same
interface.

The environment is chosen with --env (local or sandbox) or operator.env in
envop.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logrus.SetOutput(os.Stderr)
		if debugFlag {
			logrus.SetLevel(logrus.DebugLevel)
		} else {
			logrus.SetLevel(logrus.WarnLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", "", "Environment to operate on (local, sandbox)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: ./envop.yaml or ~/.envop/envop.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Enable debug logging")
}

func main() {
	err := rootCmd.Execute()

	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitError makes the process exit with a command's exit code without printing
// anything more.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
