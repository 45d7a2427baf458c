package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"testplane/internal/coordinator"
	"testplane/internal/logger"
	"testplane/internal/store/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "testctl",
	Short: "Testctl is a command line tool for coordinating host-app test runs",
	Long: `testctl is the command-line interface for the testplane coordination layer.

Testplane coordinates automated test execution between a controller process
and an executor embedded in the host application. The two sides never talk
directly; all requests, results, logs, and heartbeats flow through a shared
SQLite database file.

Common workflows:

  Initialize the shared database:
    testctl init

  Run all EditMode tests and wait for the outcome:
    testctl test --type all --wait

  Run one test class:
    testctl test --type class --filter MyGame.Tests.PlayerTests

  Refresh assets:
    testctl refresh --type full --wait

  Check a request or overall system health:
    testctl status 42
    testctl status

  Inspect captured console output:
    testctl logs --errors
    testctl logs --follow

Configuration:
  The database path can be set via the --db flag or environment:
    TESTPLANE_DB    Path to the coordination database file`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	// Read environment variables that match "TESTPLANE_VARNAME"
	viper.SetEnvPrefix("TESTPLANE")
	viper.AutomaticEnv()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("db", "test_coordination.db", "path to the shared coordination database")
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
}

// openStore opens the coordination database for one command invocation.
func openStore(cmd *cobra.Command) (*sqlite.Store, bool) {
	st, err := sqlite.Open(viper.GetString("db"))
	if err != nil {
		cmd.Printf("Failed to open database: %v\n", err)
		return nil, false
	}
	return st, true
}

func newCoordinator(st *sqlite.Store) *coordinator.Coordinator {
	return coordinator.New(st, st, logger.New(), time.Second)
}
