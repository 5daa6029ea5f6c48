package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LavishGent/nekocache/internal/config"
	"github.com/LavishGent/nekocache/internal/types"
	"github.com/LavishGent/nekocache/pkg/nekocache"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nekocache",
	Short: "Browse the anime catalog through a local entry cache",
	Long: `nekocache looks titles up in the Shikimori catalog and the Kodik source
proxy, retrying failed requests and keeping recently opened titles in a small
persisted table so they open instantly next time.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "JSON config file (default is ./nekocache.json when present)")
	rootCmd.PersistentFlags().String("storage-backend", "", "where the entry table is kept: file, sqlite, redis, memory or disabled")
	rootCmd.PersistentFlags().String("storage-path", "", "directory for the file backend, database path for sqlite")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: trace, debug, info, warn, error or disabled")
	rootCmd.PersistentFlags().Bool("json", false, "print results as JSON")

	_ = viper.BindPFlag("storage_backend", rootCmd.PersistentFlags().Lookup("storage-backend"))
	_ = viper.BindPFlag("storage_path", rootCmd.PersistentFlags().Lookup("storage-path"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

// initConfig resolves the config file path and ENV variables.
func initConfig() {
	viper.SetEnvPrefix("NEKOCACHE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if cfgFile == "" {
		cfgFile = viper.GetString("config")
	}
	if cfgFile == "" {
		if _, err := os.Stat("nekocache.json"); err == nil {
			cfgFile = "nekocache.json"
		}
	}
}

// loadConfig reads the config file, applies NEKOCACHE_* variables and then
// the command-line flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(cfgFile)
	if err != nil {
		return nil, err
	}

	if backend := viper.GetString("storage_backend"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if path := viper.GetString("storage_path"); path != "" {
		switch cfg.StorageBackend() {
		case types.BackendSQLite:
			cfg.Storage.SQLite.Path = path
		default:
			cfg.Storage.File.Dir = path
		}
	}
	if level := viper.GetString("log_level"); level != "" {
		cfg.Logging.Level = level
	}
	// Short-lived commands have nothing to publish on an interval.
	cfg.Metrics.PublishInterval = 0

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newClient() (*nekocache.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	client, err := nekocache.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}
	return client, nil
}

// withClient runs fn with a client that is closed afterwards.
func withClient(fn func(*nekocache.Client) error) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

// printJSON writes v indented when --json is set and reports whether it did.
func printJSON(w io.Writer, v any) (bool, error) {
	if !viper.GetBool("json") {
		return false, nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}
