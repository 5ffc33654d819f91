package main

import (
	"fmt"
	"os"

	"github.com/artpar/modgate/adapters/sqlite"
	"github.com/artpar/modgate/config"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "modgate",
	Short: "Configuration-driven API gateway that dispatches to versioned modules",
	Long: `modgate serves a versioned API whose endpoints are modules declared
in a YAML configuration file.

Quick start:
  modgate validate  # Check the configuration and module bindings
  modgate serve     # Start the gateway

Management:
  modgate routes    # Show the compiled route table
  modgate keys      # Manage access keys
  modgate requests  # Inspect the request log`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "modgate.yaml", "config file path")
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)

// openDatabase opens and migrates the local store named by the config file.
func openDatabase() (*sqlite.DB, *config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := sqlite.Open(cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, cfg, nil
}
