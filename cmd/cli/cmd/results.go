package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"testplane/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results <request_id>",
	Short: "Show per-test results for a request",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			cmd.Printf("Invalid request id %q\n", args[0])
			return
		}

		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()
		ctx := context.Background()

		req, err := st.GetTest(ctx, id)
		if err != nil {
			cmd.Printf("Failed to load request: %v\n", err)
			return
		}
		if req == nil {
			cmd.Printf("Test request %d not found\n", id)
			return
		}

		results, err := st.ListTestResults(ctx, id)
		if err != nil {
			cmd.Printf("Failed to load results: %v\n", err)
			return
		}
		if len(results) == 0 {
			cmd.Printf("No results recorded for request %d (status %s)\n", id, req.Status)
			return
		}

		cmd.Printf("%sResults for request %d%s\n", colorBold, id, colorReset)
		cmd.Println("──────────────────────────────")
		for _, r := range results {
			cmd.Printf("%s %-50s %8.1fms\n", resultIcon(r.Result), r.TestName, r.DurationMS)
			if r.ErrorMessage != "" {
				cmd.Printf("    %s%s%s\n", colorRed, r.ErrorMessage, colorReset)
			}
		}
	},
}

func resultIcon(result store.TestCaseResult) string {
	switch result {
	case store.ResultPassed:
		return colorGreen + "✓" + colorReset
	case store.ResultFailed:
		return colorRed + "✗" + colorReset
	case store.ResultSkipped:
		return colorDim + "-" + colorReset
	default:
		return colorYellow + "?" + colorReset
	}
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}
