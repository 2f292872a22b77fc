// Package cmd implements the command-line interface: scan, list, download,
// status and channels, plus the shared configuration and logger setup.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ytget/tg-harvest/internal/config"
	"github.com/ytget/tg-harvest/internal/logger"
	"github.com/ytget/tg-harvest/internal/source"
	"github.com/ytget/tg-harvest/internal/store"
)

// Version is set during build via -ldflags "-X .../cmd.Version=X.Y.Z"
var Version = "dev"

var (
	cfgFile string
	debug   bool

	cfg *config.Config
	log *zap.Logger

	rootCmd = &cobra.Command{
		Use:   "tg-harvest",
		Short: "Harvest and download links from Telegram channels",
		Long: `tg-harvest scans Telegram channels and groups for video and drive links,
keeps a per-channel record of everything it has seen, and downloads the
linked content through a pool of parallel workers. Interrupted or failed
downloads are picked up again on the next run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if log, err = logger.New(debug); err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			if cfg, err = config.Load(cfgFile); err != nil {
				return err
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.json)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tg-harvest version %s\n", Version)
		},
	})
}

// newManager opens the data directory shared by all commands
func newManager() (*store.Manager, error) {
	return store.NewManager(cfg.DataDir)
}

// newReader builds the Telegram reader; credentials are required
func newReader() (*source.Telegram, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	return source.NewTelegram(cfg.APIID, cfg.APIHash, cfg.Phone, cfg.SessionFile, log), nil
}
