package cmd

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"testplane/internal/coordinator"
)

var waitCmd = &cobra.Command{
	Use:   "wait <request_id>",
	Short: "Wait for a request to reach a terminal status",
	Long: `Block until the request completes, fails, or is cancelled. A timeout
leaves the request running; waiting is observation, not control.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			cmd.Printf("Invalid request id %q\n", args[0])
			return
		}
		timeout, _ := cmd.Flags().GetDuration("timeout")
		isRefresh, _ := cmd.Flags().GetBool("refresh")

		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()
		coord := newCoordinator(st)
		ctx := context.Background()

		if isRefresh {
			final, err := coord.WaitRefresh(ctx, id, timeout)
			if err != nil {
				printWaitError(cmd, id, timeout, err)
				return
			}
			printRefreshRequest(cmd, *final)
			return
		}

		final, err := coord.WaitTest(ctx, id, timeout)
		if err != nil {
			printWaitError(cmd, id, timeout, err)
			return
		}
		printTestRequest(cmd, *final)
	},
}

func printWaitError(cmd *cobra.Command, id int64, timeout time.Duration, err error) {
	switch {
	case errors.Is(err, coordinator.ErrWaitTimeout):
		cmd.Printf("Request %d still running after %s; it was not cancelled\n", id, timeout)
	case errors.Is(err, coordinator.ErrNotFound):
		cmd.Printf("Request %d not found\n", id)
	default:
		cmd.Printf("Wait failed: %v\n", err)
	}
}

func init() {
	waitCmd.Flags().Duration("timeout", 5*time.Minute, "maximum time to wait")
	waitCmd.Flags().Bool("refresh", false, "treat the id as a refresh request")

	rootCmd.AddCommand(waitCmd)
}
