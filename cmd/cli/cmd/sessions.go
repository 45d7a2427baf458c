package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"testplane/internal/logger"
	"testplane/internal/logs"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent console log sessions",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")

		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()
		reader := logs.NewReader(st, logger.New())

		sessions, err := reader.Sessions(context.Background(), limit)
		if err != nil {
			cmd.Printf("Failed to list sessions: %v\n", err)
			return
		}
		if len(sessions) == 0 {
			cmd.Println("No sessions recorded.")
			return
		}

		cmd.Printf("%sRecent Sessions%s\n", colorBold, colorReset)
		cmd.Println("──────────────────────────────")
		for _, s := range sessions {
			cmd.Printf("%s\n", s.SessionID)
			cmd.Printf("  %slogs:%s %d  %serrors:%s %d  %swarnings:%s %d\n",
				colorDim, colorReset, s.LogCount,
				colorDim, colorReset, s.ErrorCount,
				colorDim, colorReset, s.WarningCount)
			if s.StartTime != nil && s.EndTime != nil {
				cmd.Printf("  %sactive:%s %s to %s\n", colorDim, colorReset,
					s.StartTime.Format("2006-01-02 15:04:05"),
					s.EndTime.Format("2006-01-02 15:04:05"))
			}
		}
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary [session_id]",
	Short: "Summarize one console log session",
	Long:  `Aggregate counts per level for a session. With no argument, the most recently active session is summarized.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sessionID := ""
		if len(args) == 1 {
			sessionID = args[0]
		}

		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()
		reader := logs.NewReader(st, logger.New())

		summary, err := reader.Summary(context.Background(), sessionID)
		if err != nil {
			cmd.Printf("Failed to summarize session: %v\n", err)
			return
		}
		if summary == nil {
			cmd.Println("No sessions recorded.")
			return
		}

		cmd.Printf("%sSession %s%s\n", colorBold, summary.SessionID, colorReset)
		cmd.Println("──────────────────────────────")
		cmd.Printf("%sTotal:%s      %d\n", colorDim, colorReset, summary.TotalLogs)
		cmd.Printf("%sInfo:%s       %d\n", colorDim, colorReset, summary.InfoCount)
		cmd.Printf("%sWarning:%s    %d\n", colorDim, colorReset, summary.WarningCount)
		cmd.Printf("%sError:%s      %s%d%s\n", colorDim, colorReset, colorRed, summary.ErrorCount, colorReset)
		cmd.Printf("%sException:%s  %s%d%s\n", colorDim, colorReset, colorRed, summary.ExceptionCount, colorReset)
		cmd.Printf("%sAssert:%s     %d\n", colorDim, colorReset, summary.AssertCount)
		if summary.FirstLog != nil && summary.LastLog != nil {
			cmd.Printf("%sActive:%s     %s to %s\n", colorDim, colorReset,
				summary.FirstLog.Format("2006-01-02 15:04:05"),
				summary.LastLog.Format("2006-01-02 15:04:05"))
		}
	},
}

func init() {
	sessionsCmd.Flags().Int("limit", 10, "maximum sessions to list")

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(summaryCmd)
}
