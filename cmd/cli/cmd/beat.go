package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"testplane/internal/store"
)

var beatCmd = &cobra.Command{
	Use:   "beat <component>",
	Short: "Record a heartbeat for a component",
	Long: `Write one liveness record for Controller, Executor, or Database.
Mostly useful from scripts and health checks; the long-running processes
heartbeat on their own.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		component := store.Component(args[0])
		status, _ := cmd.Flags().GetString("status")
		message, _ := cmd.Flags().GetString("message")

		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()

		err := st.UpsertStatus(context.Background(), component, store.ComponentStatus(status), message)
		if err != nil {
			cmd.Printf("Heartbeat failed: %v\n", err)
			return
		}
		cmd.Printf("Heartbeat recorded for %s (%s)\n", component, status)
	},
}

func init() {
	beatCmd.Flags().String("status", "online", "component status: online, offline, error")
	beatCmd.Flags().String("message", "", "optional status message")

	rootCmd.AddCommand(beatCmd)
}
