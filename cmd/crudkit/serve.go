package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/crudkit/bootstrap"
	"github.com/artpar/crudkit/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the crudkit API server.

The server will:
  - Load configuration from crudkit.yaml (or --config)
  - Open the database and create missing tables
  - Mount a viewset for every declared model
  - Serve until SIGINT or SIGTERM, then shut down gracefully

With --hot-reload the log level follows edits to the config file and SIGHUP.

Environment variables override the file:
  CRUDKIT_SERVER_PORT       - Server port (default: 8080)
  CRUDKIT_DATABASE_DSN      - Database path (default: crudkit.db)
  CRUDKIT_LOG_LEVEL         - Log level: debug, info, warn, error
  CRUDKIT_EVENTS_DRIVER     - Change events: none, nats, redis

Examples:
  crudkit serve
  crudkit serve --config /etc/crudkit/config.yaml
  crudkit serve --hot-reload=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(cfgFile); err != nil {
		return fmt.Errorf("config file not found: %s", cfgFile)
	}

	opts := bootstrap.Options{Version: version}

	var (
		app *bootstrap.App
		err error
	)
	if hotReload {
		logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "config").Logger()
		holder, herr := config.NewHolder(cfgFile, logger)
		if herr != nil {
			return herr
		}
		app, err = bootstrap.NewWithHolder(holder, opts)
	} else {
		cfg, lerr := config.Load(cfgFile)
		if lerr != nil {
			return lerr
		}
		app, err = bootstrap.New(cfg, opts)
	}
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
