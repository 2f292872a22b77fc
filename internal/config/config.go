// Package config loads application configuration from config.json,
// environment variables (TG_HARVEST_*) and an optional .env file, in the
// usual precedence order: explicit file, environment, defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Defaults
const (
	DefaultDataDir           = ".harvester_data"
	DefaultDownloadDir       = "downloads"
	DefaultSessionFile       = "session.json"
	DefaultWorkers           = 4
	DefaultDownloadDelay     = 100 * time.Millisecond
	DefaultFetchTimeout      = 15 * time.Minute
	DefaultScanProgressEvery = 100

	envPrefix = "TG_HARVEST"
)

// ErrMissingCredentials aborts commands that need the Telegram client
var ErrMissingCredentials = errors.New("missing telegram credentials (api_id, api_hash, phone)")

// Config carries everything the commands need
type Config struct {
	APIID   int    `mapstructure:"api_id"`
	APIHash string `mapstructure:"api_hash"`
	Phone   string `mapstructure:"phone"`

	DataDir     string `mapstructure:"data_dir"`
	DownloadDir string `mapstructure:"download_dir"`
	SessionFile string `mapstructure:"session_file"`

	Workers           int           `mapstructure:"workers"`
	DownloadDelay     time.Duration `mapstructure:"download_delay"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	ScanProgressEvery int           `mapstructure:"scan_progress_every"`
}

// Load reads configuration. With an empty path it looks for config.json in
// the working directory; a missing file is fine, credentials can come from
// the environment.
func Load(path string) (*Config, error) {
	// Environment variables from .env are loaded first so viper sees them.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_id", 0)
	v.SetDefault("api_hash", "")
	v.SetDefault("phone", "")
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("download_dir", DefaultDownloadDir)
	v.SetDefault("session_file", DefaultSessionFile)
	v.SetDefault("workers", DefaultWorkers)
	v.SetDefault("download_delay", DefaultDownloadDelay)
	v.SetDefault("fetch_timeout", DefaultFetchTimeout)
	v.SetDefault("scan_progress_every", DefaultScanProgressEvery)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// RequireCredentials returns ErrMissingCredentials unless the Telegram
// credentials are complete. Commands that only read local state never call
// this.
func (c *Config) RequireCredentials() error {
	if c.APIID == 0 || c.APIHash == "" || c.Phone == "" {
		return ErrMissingCredentials
	}
	return nil
}
