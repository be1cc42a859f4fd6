package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/michaelbrown/envop/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect configured MCP tool servers",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Start each enabled tool server and list the tools it exposes",
	RunE:  runToolsList,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.AddCommand(toolsListCmd)
}

func runToolsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reg := tools.NewRegistry()
	defer reg.Close()

	names := make([]string, 0, len(cfg.Tools))
	for name := range cfg.Tools {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tc := cfg.Tools[name]
		if !tc.Enabled {
			continue
		}
		if err := reg.Register(ctx, name, tc); err != nil {
			logrus.WithError(err).WithField("server", name).Warn("failed to start tool server")
			fmt.Printf("\033[31m✗ %s: %s\033[0m\n", name, err)
		}
	}

	if !reg.HasTools() {
		fmt.Println("No tools available.")
		return nil
	}

	defs := reg.AllTools()
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Server != defs[j].Server {
			return defs[i].Server < defs[j].Server
		}
		return defs[i].Name < defs[j].Name
	})

	fmt.Printf("%-16s %-20s %s\n", "SERVER", "TOOL", "DESCRIPTION")
	fmt.Println(strings.Repeat("─", 90))
	for _, d := range defs {
		fmt.Printf("%-16s %-20s %s\n", d.Server, d.Name, truncate(oneLine(d.Description), 50))
	}
	return nil
}
