package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"testplane/internal/heartbeat"
	"testplane/internal/store"
)

// staleAfter is how old a heartbeat may be before "online" stops being
// believable.
const staleAfter = 2 * time.Minute

var statusCmd = &cobra.Command{
	Use:   "status [request_id]",
	Short: "Show a request's status, or overall system health",
	Long: `With a request id, show that test request's full state including its
outcome. Without arguments, show every component's heartbeat and the size of
the pending queues.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()
		ctx := context.Background()

		if len(args) == 1 {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				cmd.Printf("Invalid request id %q\n", args[0])
				return
			}
			req, err := st.GetTest(ctx, id)
			if err != nil {
				cmd.Printf("Failed to load request: %v\n", err)
				return
			}
			if req == nil {
				cmd.Printf("Test request %d not found\n", id)
				return
			}
			printTestRequest(cmd, *req)
			return
		}

		components, err := st.ListStatus(ctx)
		if err != nil {
			cmd.Printf("Failed to load system status: %v\n", err)
			return
		}

		cmd.Printf("%sSystem Status%s\n", colorBold, colorReset)
		cmd.Println("──────────────────────────────")
		if len(components) == 0 {
			cmd.Println("No components have reported yet.")
		}
		for _, c := range components {
			status := c.Status
			note := ""
			if status == store.ComponentOnline && heartbeat.Stale(c, staleAfter) {
				note = fmt.Sprintf(" %s(stale, last seen %s ago)%s", colorDim, relativeTime(c.LastHeartbeat), colorReset)
			}
			cmd.Printf("%-10s %s%s\n", c.Component, colorizeComponent(status), note)
			if c.Message != "" {
				cmd.Printf("           %s%s%s\n", colorDim, c.Message, colorReset)
			}
		}

		pendingTests, err := st.ListPendingTests(ctx)
		if err != nil {
			cmd.Printf("Failed to count pending tests: %v\n", err)
			return
		}
		pendingRefreshes, err := st.ListPendingRefreshes(ctx)
		if err != nil {
			cmd.Printf("Failed to count pending refreshes: %v\n", err)
			return
		}
		cmd.Println()
		cmd.Printf("Pending test requests:    %d\n", len(pendingTests))
		cmd.Printf("Pending refresh requests: %d\n", len(pendingRefreshes))
	},
}

func printTestRequest(cmd *cobra.Command, req store.TestRequest) {
	cmd.Printf("%s %sTest Request %d%s\n", statusIcon(req.Status), colorBold, req.ID, colorReset)
	cmd.Println("──────────────────────────────")
	cmd.Printf("%sType:%s      %s\n", colorDim, colorReset, req.RequestType)
	if req.TestFilter != "" {
		cmd.Printf("%sFilter:%s    %s\n", colorDim, colorReset, req.TestFilter)
	}
	cmd.Printf("%sPlatform:%s  %s\n", colorDim, colorReset, req.Platform)
	cmd.Printf("%sStatus:%s    %s\n", colorDim, colorReset, colorizeStatus(req.Status))
	cmd.Printf("%sCreated:%s   %s\n", colorDim, colorReset, formatTimeWithRelative(&req.CreatedAt))
	cmd.Printf("%sStarted:%s   %s\n", colorDim, colorReset, formatTimeWithRelative(req.StartedAt))
	cmd.Printf("%sFinished:%s  %s\n", colorDim, colorReset, formatTimeWithRelative(req.CompletedAt))
	if req.Status == store.StatusCompleted {
		cmd.Printf("%sTests:%s     %d total, %s%d passed%s, %s%d failed%s, %d skipped\n",
			colorDim, colorReset, req.TotalTests,
			colorGreen, req.PassedTests, colorReset,
			colorRed, req.FailedTests, colorReset,
			req.SkippedTests)
		cmd.Printf("%sDuration:%s  %s\n", colorDim, colorReset, formatDuration(time.Duration(req.DurationSeconds*float64(time.Second))))
	}
	if req.ResultSummary != "" {
		cmd.Printf("%sSummary:%s   %s\n", colorDim, colorReset, req.ResultSummary)
	}
	if req.ErrorMessage != "" {
		cmd.Printf("%sError:%s     %s%s%s\n", colorDim, colorReset, colorRed, req.ErrorMessage, colorReset)
	}
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status store.RequestStatus) string {
	switch status {
	case store.StatusCompleted:
		return colorGreen + "✓" + colorReset
	case store.StatusFailed:
		return colorRed + "✗" + colorReset
	case store.StatusRunning:
		return colorYellow + "⏳" + colorReset
	case store.StatusPending:
		return colorCyan + "◯" + colorReset
	case store.StatusCancelled:
		return colorDim + "⊘" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status store.RequestStatus) string {
	icon := statusIcon(status)
	switch status {
	case store.StatusCompleted:
		return icon + " " + colorGreen + string(status) + colorReset
	case store.StatusFailed:
		return icon + " " + colorRed + string(status) + colorReset
	case store.StatusRunning:
		return icon + " " + colorYellow + string(status) + colorReset
	case store.StatusPending:
		return icon + " " + colorCyan + string(status) + colorReset
	default:
		return icon + " " + string(status)
	}
}

func colorizeComponent(status store.ComponentStatus) string {
	switch status {
	case store.ComponentOnline:
		return colorGreen + string(status) + colorReset
	case store.ComponentError:
		return colorRed + string(status) + colorReset
	default:
		return colorDim + string(status) + colorReset
	}
}

func formatTimeWithRelative(t *time.Time) string {
	if t == nil {
		return "-"
	}
	relative := relativeTime(*t)
	return fmt.Sprintf("%s %s(%s ago)%s", t.Format("Mon, 02 Jan 2006 15:04:05 MST"), colorDim, relative, colorReset)
}

func relativeTime(t time.Time) string {
	duration := time.Since(t)

	if duration < time.Minute {
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	} else if duration < time.Hour {
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	} else if duration < 24*time.Hour {
		return fmt.Sprintf("%dh", int(duration.Hours()))
	}
	days := int(duration.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	} else if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
