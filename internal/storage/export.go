package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ExportMarkdown renders records as a markdown document, one section each.
func ExportMarkdown(records []CommandRecord) string {
	var b strings.Builder

	b.WriteString("# Command history\n\n")
	for _, r := range records {
		b.WriteString(fmt.Sprintf("## `%s`\n\n", r.Command))
		b.WriteString(fmt.Sprintf("- **ID:** %s\n", r.ID))
		b.WriteString(fmt.Sprintf("- **Environment:** %s\n", r.Env))
		b.WriteString(fmt.Sprintf("- **Run at:** %s\n", r.CreatedAt.Format("2006-01-02 15:04:05")))
		b.WriteString(fmt.Sprintf("- **Duration:** %s\n", r.Duration))
		switch {
		case r.TimedOut:
			b.WriteString("- **Result:** timed out\n")
		case r.Error != "":
			b.WriteString(fmt.Sprintf("- **Result:** error: %s\n", r.Error))
		default:
			b.WriteString(fmt.Sprintf("- **Exit code:** %d\n", r.ExitCode))
		}
		b.WriteString("\n")

		if r.Stdout != "" {
			b.WriteString(fmt.Sprintf("<details>\n<summary>stdout</summary>\n\n```\n%s\n```\n</details>\n\n", strings.TrimRight(r.Stdout, "\n")))
		}
		if r.Stderr != "" {
			b.WriteString(fmt.Sprintf("<details>\n<summary>stderr</summary>\n\n```\n%s\n```\n</details>\n\n", strings.TrimRight(r.Stderr, "\n")))
		}
	}

	return b.String()
}

type export struct {
	Commands []CommandRecord `json:"commands" yaml:"commands"`
}

// ExportJSON renders records as formatted JSON.
func ExportJSON(records []CommandRecord) ([]byte, error) {
	return json.MarshalIndent(export{Commands: nonNil(records)}, "", "  ")
}

// ExportYAML renders records as YAML.
func ExportYAML(records []CommandRecord) ([]byte, error) {
	return yaml.Marshal(export{Commands: nonNil(records)})
}

func nonNil(records []CommandRecord) []CommandRecord {
	if records == nil {
		return []CommandRecord{}
	}
	return records
}
