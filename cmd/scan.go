package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ytget/tg-harvest/internal/scan"
)

var scanLimit int

var scanCmd = &cobra.Command{
	Use:   "scan <channel>",
	Short: "Scan a channel or group for links",
	Long: `Scan iterates the message history of one channel (by @username or numeric
id), extracts recognized links and records the new ones. Re-scanning is
safe: already known links are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := newReader()
		if err != nil {
			return err
		}
		manager, err := newManager()
		if err != nil {
			return err
		}

		scanner := scan.New(reader, manager, log)
		scanner.SetProgressEvery(cfg.ScanProgressEvery)

		result, err := scanner.Run(cmd.Context(), args[0], scanLimit)
		if err != nil {
			return err
		}

		fmt.Printf("Scanned %d messages in %s: %d links found, %d added, %d already known\n",
			result.MessagesScanned, result.Source, result.LinksFound, result.Added, result.Skipped)
		return nil
	},
}

func init() {
	scanCmd.Flags().IntVar(&scanLimit, "limit", 0, "maximum number of messages to scan (0 = all)")
	rootCmd.AddCommand(scanCmd)
}
