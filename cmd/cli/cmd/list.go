package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"testplane/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent test requests",
	Run: func(cmd *cobra.Command, args []string) {
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		pending, _ := cmd.Flags().GetBool("pending")

		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()
		ctx := context.Background()

		var (
			requests []store.TestRequest
			err      error
		)
		if pending {
			requests, err = st.ListPendingTests(ctx)
		} else {
			requests, err = st.ListTests(ctx, store.RequestStatus(status), limit)
		}
		if err != nil {
			cmd.Printf("Failed to list requests: %v\n", err)
			return
		}
		if len(requests) == 0 {
			cmd.Println("No matching requests.")
			return
		}

		for _, req := range requests {
			target := string(req.RequestType)
			if req.TestFilter != "" {
				target += " " + req.TestFilter
			}
			cmd.Printf("%s %4d  %-40s %s  %s\n",
				statusIcon(req.Status), req.ID, target, req.Platform,
				req.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <request_id>",
	Short: "Delete a test request and its recorded results",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			cmd.Printf("Invalid request id %q\n", args[0])
			return
		}
		isRefresh, _ := cmd.Flags().GetBool("refresh")

		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()
		ctx := context.Background()

		var deleted bool
		if isRefresh {
			deleted, err = st.DeleteRefresh(ctx, id)
		} else {
			deleted, err = st.DeleteTest(ctx, id)
		}
		if err != nil {
			cmd.Printf("Delete failed: %v\n", err)
			return
		}
		if !deleted {
			cmd.Printf("Request %d not found\n", id)
			return
		}
		cmd.Printf("Request %d deleted\n", id)
	},
}

func init() {
	listCmd.Flags().String("status", "", "filter by status: pending, running, completed, failed, cancelled")
	listCmd.Flags().Int("limit", 20, "maximum requests to show")
	listCmd.Flags().Bool("pending", false, "show the pending queue in claim order")

	deleteCmd.Flags().Bool("refresh", false, "treat the id as a refresh request")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
}
