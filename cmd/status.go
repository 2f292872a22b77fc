package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ytget/tg-harvest/internal/model"
	"github.com/ytget/tg-harvest/internal/report"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show link counts by status and type",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newManager()
		if err != nil {
			return err
		}

		summary, err := report.StatusSummary(manager)
		if err != nil {
			return err
		}

		for _, slug := range summary.Inaccessible {
			fmt.Fprintf(os.Stderr, "warning: store %s could not be read, skipped\n", slug)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)

		t.AppendRow(table.Row{"Channels", summary.Sources})
		t.AppendRow(table.Row{"Total links", summary.Total})
		t.AppendSeparator()
		for _, status := range []model.Status{model.StatusPending, model.StatusCompleted, model.StatusFailed} {
			t.AppendRow(table.Row{status.Glyph() + " " + titleCase(status.String()), summary.ByStatus[status]})
		}
		t.AppendSeparator()
		for _, linkType := range model.LinkTypes() {
			t.AppendRow(table.Row{strings.ToUpper(linkType.String()), summary.ByType[linkType]})
		}
		t.Render()
		return nil
	},
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
