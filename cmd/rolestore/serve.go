package main

import (
	"github.com/nebari-dev/rolestore/internal/server"
	"github.com/spf13/cobra"
)

var servePort int

// @title Rolestore API
// @version 1.0
// @description Role entity store API
// @host localhost:8470
// @BasePath /api/v1
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the rolestore API server",
	Long: `Start the rolestore HTTP API.

Examples:
  rolestore serve                    # Listen on the configured port
  rolestore serve --port 8080        # Override port

Environment variables:
  ROLESTORE_SERVER_PORT         Server port (default: 8470)
  ROLESTORE_DATABASE_DRIVER     Database driver: sqlite, postgres
  ROLESTORE_DATABASE_DSN        Database connection string
  ROLESTORE_RBAC_ENABLED        Mirror role assignments into casbin (default: true)
  ROLESTORE_LOG_FORMAT          Log format: text, json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.RunWithSignalHandling(server.Config{
			Port:    servePort,
			Version: Version,
		})
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (overrides config)")
}
