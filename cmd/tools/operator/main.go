// Command envop-tool-operator serves the local machine's files and shell over
// MCP stdio. Run it inside a container or on a remote host and point the mcp
// sandbox backend at it.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/envop/internal/operator"
	"github.com/michaelbrown/envop/internal/textenc"
	"github.com/michaelbrown/envop/internal/tools/opserver"
)

var (
	encodingsFlag string
	timeoutFlag   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "envop-tool-operator",
	Short: "Serve file and shell operations over MCP stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.Flags().StringVar(&encodingsFlag, "encodings", textenc.Primary, "Comma-separated encoding preference, primary first")
	rootCmd.Flags().DurationVar(&timeoutFlag, "default-timeout", operator.DefaultTimeout, "Timeout for shell_exec calls that set none")

	// stdout carries the protocol
	rootCmd.SetOut(os.Stderr)
	logrus.SetOutput(os.Stderr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	op := operator.NewLocal(parseEncodings(encodingsFlag))
	srv := opserver.New(op, timeoutFlag)

	if err := srv.Serve("envop-operator", "0.1.0"); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// parseEncodings splits a comma-separated list, dropping blank entries. An
// empty result leaves the operator on its UTF-8 default.
func parseEncodings(s string) []string {
	var out []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
