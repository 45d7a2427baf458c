package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var trailCmd = &cobra.Command{
	Use:   "trail",
	Short: "Show the execution diagnostic trail",
	Long:  `Show diagnostic entries written by the controller and executor while handling requests, newest first.`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		requestID, _ := cmd.Flags().GetInt64("request")

		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()

		var scope *int64
		if requestID > 0 {
			scope = &requestID
		}
		entries, err := st.ListExecutionLog(context.Background(), scope, limit)
		if err != nil {
			cmd.Printf("Failed to load execution log: %v\n", err)
			return
		}
		if len(entries) == 0 {
			cmd.Println("No execution log entries.")
			return
		}

		for _, e := range entries {
			if e.RequestID != nil {
				cmd.Printf("[%s] %-7s #%d %s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Level, *e.RequestID, e.Message)
			} else {
				cmd.Printf("[%s] %-7s %s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.Level, e.Message)
			}
		}
	},
}

func init() {
	trailCmd.Flags().Int("limit", 50, "maximum entries to show")
	trailCmd.Flags().Int64("request", 0, "only entries for this request id")

	rootCmd.AddCommand(trailCmd)
}
