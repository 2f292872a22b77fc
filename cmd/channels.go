package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ytget/tg-harvest/internal/model"
)

var channelsCmd = &cobra.Command{
	Use:     "channels",
	Aliases: []string{"list-channels"},
	Short:   "List your channels and groups and save a snapshot",
	Long: `Channels lists every channel and group reachable from your account with
the identifiers the scan command accepts, and saves the listing to the
data directory for later reference.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := newReader()
		if err != nil {
			return err
		}
		manager, err := newManager()
		if err != nil {
			return err
		}

		channels, err := reader.Dialogs(cmd.Context())
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Kind", "Name", "ID", "Username", "Scan with"})
		for _, ch := range channels {
			t.AppendRow(table.Row{ch.Kind, ch.Name, ch.ID, usernameOrDash(ch), scanArg(ch)})
		}
		t.Render()

		if err := manager.SaveChannels(channels); err != nil {
			return err
		}
		fmt.Printf("\nChannel list saved to %s\n", manager.SnapshotPath())
		return nil
	},
}

func usernameOrDash(ch model.Channel) string {
	if ch.Username == "" {
		return "-"
	}
	return "@" + ch.Username
}

func scanArg(ch model.Channel) string {
	if ch.Username != "" {
		return fmt.Sprintf("tg-harvest scan @%s", ch.Username)
	}
	return fmt.Sprintf("tg-harvest scan %d", ch.ID)
}

func init() {
	rootCmd.AddCommand(channelsCmd)
}
