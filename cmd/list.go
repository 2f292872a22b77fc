package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ytget/tg-harvest/internal/report"
)

// captionPreviewLength bounds the caption column in listings
const captionPreviewLength = 60

var listFilter string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List collected links across all channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newManager()
		if err != nil {
			return err
		}

		listing, err := report.List(manager, listFilter)
		if err != nil {
			return err
		}

		for _, slug := range listing.Inaccessible {
			fmt.Fprintf(os.Stderr, "warning: store %s could not be read, skipped\n", slug)
		}

		if len(listing.Entries) == 0 {
			fmt.Println("No links found")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "", "Type", "URL", "Channel", "Caption", "Error"})

		for i, entry := range listing.Entries {
			rec := entry.Record
			t.AppendRow(table.Row{
				i + 1,
				rec.Status.Glyph(),
				strings.ToUpper(rec.Type.String()),
				rec.URL,
				entry.Source,
				previewCaption(rec.Caption),
				rec.LastError,
			})
		}
		t.Render()

		fmt.Printf("\nTotal links: %d\n", len(listing.Entries))
		return nil
	},
}

func previewCaption(caption string) string {
	caption = strings.ReplaceAll(caption, "\n", " ")
	runes := []rune(caption)
	if len(runes) <= captionPreviewLength {
		return caption
	}
	return string(runes[:captionPreviewLength]) + "..."
}

func init() {
	listCmd.Flags().StringVar(&listFilter, "filter", "", "only show links whose caption contains this text")
	rootCmd.AddCommand(listCmd)
}
