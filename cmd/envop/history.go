package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/michaelbrown/envop/internal/storage"
)

var (
	failedFlag    bool
	limitFlag     int
	exportFormat  string
	exportOutput  string
	forceFlag     bool
	olderThanFlag time.Duration
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"hist", "h"},
	Short:   "Inspect the command journal",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journaled commands",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <command-id>",
	Short: "Show a journaled command and its output",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <command-id>",
	Short: "Delete a journaled command",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyExportCmd = &cobra.Command{
	Use:   "export [command-id...]",
	Short: "Export journaled commands as markdown, JSON or YAML",
	Long: `Export journaled commands. With no IDs, the records matching --env,
--failed and --limit are exported.`,
	RunE: runHistoryExport,
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete journaled commands older than a duration",
	RunE:  runHistoryPrune,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyExportCmd, historyPruneCmd)

	for _, c := range []*cobra.Command{historyListCmd, historyExportCmd} {
		c.Flags().BoolVar(&failedFlag, "failed", false, "Only show failed commands")
		c.Flags().IntVar(&limitFlag, "limit", 20, "Max commands to show")
	}

	historyExportCmd.Flags().StringVar(&exportFormat, "format", "md", "Export format: md, json or yaml")
	historyExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")

	historyDeleteCmd.Flags().BoolVar(&forceFlag, "force", false, "Skip confirmation")

	historyPruneCmd.Flags().DurationVar(&olderThanFlag, "older-than", 30*24*time.Hour, "Delete commands older than this")
}

// journal opens the command journal, failing when storage is disabled.
func journal() (storage.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, errors.New("command history is disabled (storage.enabled is false)")
	}
	return store, nil
}

func listOptions() storage.ListOptions {
	return storage.ListOptions{
		Env:    envFlag,
		Failed: failedFlag,
		Limit:  limitFlag,
	}
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := journal()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListCommands(context.Background(), listOptions())
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No commands found.")
		return nil
	}

	fmt.Printf("%-10s %-8s %-6s %-50s %s\n", "ID", "ENV", "EXIT", "COMMAND", "WHEN")
	fmt.Println(strings.Repeat("─", 90))

	for _, r := range records {
		fmt.Printf("%-10s %-8s %-6s %-50s %s\n",
			shortID(r.ID), r.Env, exitLabel(&r), truncate(oneLine(r.Command), 48), timeAgo(r.CreatedAt))
	}

	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := journal()
	if err != nil {
		return err
	}
	defer store.Close()

	r, err := store.GetCommand(context.Background(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Command:  %s\n", r.ID)
	fmt.Printf("Env:      %s\n", r.Env)
	fmt.Printf("Run:      %s\n", r.Command)
	fmt.Printf("Exit:     %s\n", exitLabel(r))
	fmt.Printf("Duration: %s\n", r.Duration.Round(time.Millisecond))
	fmt.Printf("Created:  %s\n", r.CreatedAt.Format(time.RFC3339))
	if r.Error != "" {
		fmt.Printf("Error:    %s\n", r.Error)
	}

	if r.Stdout != "" {
		fmt.Println("\nstdout:")
		fmt.Println(strings.Repeat("─", 60))
		fmt.Print(withNewline(r.Stdout))
	}
	if r.Stderr != "" {
		fmt.Println("\nstderr:")
		fmt.Println(strings.Repeat("─", 60))
		fmt.Printf("\033[33m%s\033[0m", withNewline(r.Stderr))
	}

	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := journal()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	r, err := store.GetCommand(ctx, args[0])
	if err != nil {
		return err
	}

	if !forceFlag {
		fmt.Printf("Delete command %s - %q? [y/N] ", shortID(r.ID), truncate(oneLine(r.Command), 60))
		var confirm string
		fmt.Scanln(&confirm)
		if strings.ToLower(confirm) != "y" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := store.DeleteCommand(ctx, r.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted command %s\n", shortID(r.ID))
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	store, err := journal()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	var records []storage.CommandRecord
	if len(args) == 0 {
		records, err = store.ListCommands(ctx, listOptions())
		if err != nil {
			return err
		}
	} else {
		for _, id := range args {
			r, err := store.GetCommand(ctx, id)
			if err != nil {
				return err
			}
			records = append(records, *r)
		}
	}

	var output []byte
	switch exportFormat {
	case "json":
		output, err = storage.ExportJSON(records)
	case "yaml", "yml":
		output, err = storage.ExportYAML(records)
	case "md", "markdown":
		output = []byte(storage.ExportMarkdown(records))
	default:
		return fmt.Errorf("unknown export format %q (want md, json or yaml)", exportFormat)
	}
	if err != nil {
		return err
	}

	if exportOutput != "" {
		return os.WriteFile(exportOutput, output, 0o644)
	}

	fmt.Print(string(output))
	return nil
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	if olderThanFlag <= 0 {
		return fmt.Errorf("--older-than must be positive")
	}

	store, err := journal()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Prune(context.Background(), time.Now().Add(-olderThanFlag))
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d command(s)\n", n)
	return nil
}

func exitLabel(r *storage.CommandRecord) string {
	switch {
	case r.TimedOut:
		return "timeout"
	case r.Error != "":
		return "error"
	default:
		return fmt.Sprintf("%d", r.ExitCode)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
