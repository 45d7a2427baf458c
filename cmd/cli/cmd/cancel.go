package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <request_id>",
	Short: "Cancel a pending or running request",
	Long: `Cancel a request that has not finished. A request that already reached
a terminal status is left exactly as it is.`,
	Args: cobra.ExactArgs(1),
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
		coord := newCoordinator(st)
		ctx := context.Background()

		if isRefresh {
			err = coord.CancelRefresh(ctx, id)
		} else {
			err = coord.CancelTest(ctx, id)
		}
		if err != nil {
			cmd.Printf("Cancel failed: %v\n", err)
			return
		}
		cmd.Printf("Request %d cancelled\n", id)
	},
}

func init() {
	cancelCmd.Flags().Bool("refresh", false, "treat the id as a refresh request")

	rootCmd.AddCommand(cancelCmd)
}
