/*
main.go - Application entry point

PURPOSE:
  Starts the GarderieFlow back office server and runs its maintenance
  jobs from the command line. Handles configuration, dependency
  injection, and graceful shutdown.

COMMANDS:
  serve              HTTP API plus the expiry scheduler (default)
  migrate            Create or update the schema, then exit
  sweep              Expire lapsed enrollments for every organization
  check-expirations  Run the expiration notifier for every organization
  org create         Create an organization with its system categories
  demo               Create an organization filled with a demo scenario

GLOBAL FLAGS:
  --config   YAML file merged over the embedded defaults

STARTUP SEQUENCE (serve):
  1. Load configuration (.env, defaults, file, GARDERIE_* env)
  2. Open the store (sqlite or postgres) and migrate
  3. Create API handler with dependencies
  4. Configure HTTP router and start the scheduler
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  # Run with the defaults (./garderie.db)
  ./server serve

  # Run against postgres
  GARDERIE_DATABASE_DRIVER=postgres GARDERIE_DATABASE_DSN="host=db dbname=garderie" ./server

  # Nightly maintenance from cron
  ./server sweep && ./server check-expirations

SEE ALSO:
  - commands.go: Subcommands
  - api/server.go: Router configuration
  - config/config.go: Configuration keys
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "GarderieFlow back office",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(
		serveCmd(&configPath),
		migrateCmd(&configPath),
		sweepCmd(&configPath),
		checkExpirationsCmd(&configPath),
		orgCmd(&configPath),
		demoCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
