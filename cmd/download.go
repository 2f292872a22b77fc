package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/spf13/cobra"

	"github.com/ytget/tg-harvest/internal/download"
	"github.com/ytget/tg-harvest/internal/fetch"
	"github.com/ytget/tg-harvest/internal/model"
)

// maxPrintedFailures bounds the failure list in the run summary
const maxPrintedFailures = 10

var (
	downloadAll     bool
	downloadFilter  string
	downloadType    string
	downloadWorkers int
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download pending and previously failed links",
	Long: `Download runs the collected links through a pool of parallel workers.
Only pending and failed records are attempted; completed ones are never
touched, so an interrupted run simply resumes on the next invocation.

Individual download failures are recorded and do not fail the command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !downloadAll && downloadFilter == "" {
			return errors.New("specify --all or --filter")
		}

		linkType, err := model.ParseLinkType(downloadType)
		if err != nil {
			return err
		}

		manager, err := newManager()
		if err != nil {
			return err
		}

		registry := fetch.NewRegistry(cfg.DownloadDir)
		coord := download.New(manager, registry, log)

		pw := progress.NewWriter()
		pw.SetOutputWriter(os.Stdout)
		pw.SetAutoStop(false)
		pw.SetTrackerLength(25)
		pw.SetMessageWidth(64)
		pw.SetUpdateFrequency(100 * time.Millisecond)
		coord.SetProgressWriter(pw)
		go pw.Render()

		workers := downloadWorkers
		if workers == 0 {
			workers = cfg.Workers
		}

		summary, runErr := coord.Run(cmd.Context(), download.Options{
			All:     downloadAll,
			Keyword: downloadFilter,
			Type:    linkType,
			Workers: workers,
			Delay:   cfg.DownloadDelay,
			Timeout: cfg.FetchTimeout,
		})

		pw.Stop()
		for pw.IsRenderInProgress() {
			time.Sleep(10 * time.Millisecond)
		}

		printSummary(summary)
		// Per-item failures are recorded, not fatal; only infrastructure
		// errors (store enumeration, persistence) make the command fail.
		return runErr
	},
}

func printSummary(s download.Summary) {
	if s.Attempted == 0 {
		fmt.Println("No pending links to download")
		return
	}

	fmt.Printf("\nDownload summary (run %s)\n", s.RunID)
	fmt.Printf("  Attempted: %d\n", s.Attempted)
	fmt.Printf("  Succeeded: %d\n", s.Succeeded)
	fmt.Printf("  Failed:    %d\n", s.Failed)
	fmt.Printf("  Elapsed:   %s\n", s.Elapsed.Round(time.Millisecond))
	fmt.Printf("  Avg/item:  %s\n", s.AvgPerItem.Round(time.Millisecond))
	fmt.Printf("  Workers:   %d\n", s.Workers)

	if len(s.Failures) > 0 {
		fmt.Println("\nFailed downloads:")
		for i, f := range s.Failures {
			if i >= maxPrintedFailures {
				fmt.Printf("  ... and %d more (see 'tg-harvest list')\n", len(s.Failures)-maxPrintedFailures)
				break
			}
			fmt.Printf("  %s - %s\n", f.URL, f.Reason)
		}
	}
}

func init() {
	downloadCmd.Flags().BoolVar(&downloadAll, "all", false, "download every pending link")
	downloadCmd.Flags().StringVar(&downloadFilter, "filter", "", "download links whose caption contains this text")
	downloadCmd.Flags().StringVar(&downloadType, "type", "", "download only one link type (video|drive)")
	downloadCmd.Flags().IntVar(&downloadWorkers, "workers", 0, "number of parallel workers (default from config, max 8)")
	rootCmd.AddCommand(downloadCmd)
}
