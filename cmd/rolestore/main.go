package main

import (
	"os"

	"github.com/spf13/cobra"

	_ "github.com/nebari-dev/rolestore/docs" // Load swagger docs
)

// Version is set via ldflags at build time
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "rolestore",
	Short: "rolestore - role storage service",
	Long:  `rolestore stores roles, attaches them to users, and serves them over HTTP.`,
	Example: `  # Run the API server
  rolestore serve

  # Manage roles directly against the configured database
  rolestore role create Support --description "Answers tickets"
  rolestore role list --search sup
  rolestore role attach 3 alice`,
	SilenceUsage: true,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeDatabase()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data Commands:"},
		&cobra.Group{ID: "server", Title: "Server Commands:"},
	)

	roleCmd.GroupID = "data"
	userCmd.GroupID = "data"
	serveCmd.GroupID = "server"

	rootCmd.AddCommand(roleCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	err := rootCmd.Execute()
	closeDatabase()
	if err != nil {
		os.Exit(1)
	}
}
