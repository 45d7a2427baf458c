package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"testplane/internal/coordinator"
	"testplane/internal/store"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Submit a test run request",
	Long: `Queue a test run for the executor embedded in the host application.

The request type selects the scope:
  all       every test on the chosen platform
  class     one test class (requires --filter)
  method    one test method (requires --filter)
  category  one test category (requires --filter)`,
	Run: func(cmd *cobra.Command, args []string) {
		reqType, _ := cmd.Flags().GetString("type")
		filter, _ := cmd.Flags().GetString("filter")
		platform, _ := cmd.Flags().GetString("platform")
		priority, _ := cmd.Flags().GetInt("priority")
		wait, _ := cmd.Flags().GetBool("wait")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()
		coord := newCoordinator(st)

		req := store.NewTestRequest{
			RequestType: store.TestRequestType(reqType),
			TestFilter:  filter,
			Platform:    store.TestPlatform(platform),
			Priority:    priority,
		}

		id, err := coord.SubmitTest(context.Background(), req)
		if err != nil {
			cmd.Printf("Failed to submit test request: %v\n", err)
			return
		}
		cmd.Printf("Test request %d submitted\n", id)

		if !wait {
			return
		}
		final, err := coord.WaitTest(context.Background(), id, timeout)
		if err != nil {
			if errors.Is(err, coordinator.ErrWaitTimeout) {
				cmd.Printf("Request %d still running after %s; it was not cancelled\n", id, timeout)
				return
			}
			cmd.Printf("Wait failed: %v\n", err)
			return
		}
		printTestRequest(cmd, *final)
	},
}

func init() {
	testCmd.Flags().String("type", "all", "request type: all, class, method, category")
	testCmd.Flags().String("filter", "", "test class, method, or category to run")
	testCmd.Flags().String("platform", "EditMode", "test platform: EditMode, PlayMode, Both")
	testCmd.Flags().Int("priority", 0, "scheduling priority (higher runs first)")
	testCmd.Flags().Bool("wait", false, "wait for the request to finish")
	testCmd.Flags().Duration("timeout", 5*time.Minute, "how long to wait with --wait")

	rootCmd.AddCommand(testCmd)
}
