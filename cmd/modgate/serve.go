package main

import (
	"fmt"

	apihttp "github.com/artpar/modgate/adapters/http"
	"github.com/artpar/modgate/bootstrap"
	"github.com/artpar/modgate/config"
	"github.com/spf13/cobra"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	Long: `Start the modgate server.

The server will:
  - Load configuration from modgate.yaml (or --config)
  - Apply MODGATE_* environment overrides
  - Open the local database when auth or the request log use it
  - Dispatch {base}/{version}/{module} requests to registered modules

With --hot-reload the gateway is rebuilt when the file changes or on
SIGHUP. Server, base path, auth, request log, database and metrics
settings need a restart.

Examples:
  modgate serve
  modgate serve --config /etc/modgate/modgate.yaml
  modgate serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	opts := bootstrap.Options{
		Build: apihttp.BuildInfo{Version: version},
	}

	var app *bootstrap.App
	var err error
	if hotReload {
		app, err = bootstrap.NewWithHotReload(cfgFile, opts)
	} else {
		cfg, loadErr := config.Load(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}
		app, err = bootstrap.New(cfg, opts)
	}
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
