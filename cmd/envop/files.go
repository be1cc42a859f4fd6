package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/envop/internal/operator"
)

var (
	startLineFlag int
	endLineFlag   int
	contentFlag   string
)

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Print a file",
	Long: `Print a file, decoded with the configured encodings.

Examples:
  envop read /etc/hostname
  envop read --env sandbox /workspace/main.py --start-line 10 --end-line 20`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

var writeCmd = &cobra.Command{
	Use:   "write <path>",
	Short: "Write a file from --content or stdin",
	Long: `Replace a file's content, creating parent directories as needed.
Without --content the content is read from stdin.

Examples:
  envop write notes.txt --content "hello"
  echo 'print(1)' | envop write --env sandbox /workspace/main.py`,
	Args: cobra.ExactArgs(1),
	RunE: runWrite,
}

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Report whether a path exists and is a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStat,
}

func init() {
	readCmd.Flags().IntVar(&startLineFlag, "start-line", 0, "First line to print (1-based)")
	readCmd.Flags().IntVar(&endLineFlag, "end-line", 0, "Last line to print (1-based, inclusive)")
	writeCmd.Flags().StringVar(&contentFlag, "content", "", "Content to write (default: read stdin)")

	rootCmd.AddCommand(readCmd, writeCmd, statCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	content, err := operator.ReadLines(context.Background(), s.env.Operator, args[0], startLineFlag, endLineFlag)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), content)
	return nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	content := contentFlag
	if !cmd.Flags().Changed("content") {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		content = string(data)
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.env.Operator.WriteFile(context.Background(), args[0], content); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s (%s)\n", len(content), args[0], s.env.Name)
	return nil
}

func runStat(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	exists, err := s.env.Operator.Exists(ctx, args[0])
	if err != nil {
		return err
	}
	isDir, err := s.env.Operator.IsDirectory(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "path:         %s\n", args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "environment:  %s\n", s.env.Name)
	fmt.Fprintf(cmd.OutOrStdout(), "exists:       %t\n", exists)
	fmt.Fprintf(cmd.OutOrStdout(), "is directory: %t\n", isDir)
	return nil
}
