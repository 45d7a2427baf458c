package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the coordination database schema",
	Long:  `Create every table and index the controller and executor share. Safe to run repeatedly; existing data is preserved.`,
	Run: func(cmd *cobra.Command, args []string) {
		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()

		if err := st.Initialize(context.Background()); err != nil {
			cmd.Printf("Initialization failed: %v\n", err)
			return
		}
		cmd.Printf("Database initialized at %s\n", viper.GetString("db"))
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the coordination schema is complete",
	Run: func(cmd *cobra.Command, args []string) {
		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()

		missing, err := st.Verify(context.Background())
		if err != nil {
			cmd.Printf("Verification failed: %v\n", err)
			return
		}
		if len(missing) > 0 {
			cmd.Printf("Missing tables: %s\n", strings.Join(missing, ", "))
			cmd.Println("Run 'testctl init' to create them.")
			return
		}
		cmd.Println("Schema OK: all tables present")
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Destroy and recreate the coordination database",
	Long:  `Delete the database file and rebuild the schema from scratch. All queued requests, results, and logs are lost.`,
	Run: func(cmd *cobra.Command, args []string) {
		confirmed, _ := cmd.Flags().GetBool("yes")
		if !confirmed {
			cmd.Println("Reset destroys all coordination data. Re-run with --yes to confirm.")
			return
		}

		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()

		if err := st.Reset(context.Background()); err != nil {
			cmd.Printf("Reset failed: %v\n", err)
			return
		}
		cmd.Printf("Database reset at %s\n", viper.GetString("db"))
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "confirm destructive reset")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(resetCmd)
}
