package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"testplane/internal/logger"
	"testplane/internal/logs"
	"testplane/internal/store"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show captured host console logs",
	Long: `Query the console output captured from the host application.

Filters combine: --session, --level, --request, and --since all narrow the
result together. --errors is a shortcut for error-level output, --follow
streams new entries until interrupted, and --export writes the selection as
json or text.`,
	Run: func(cmd *cobra.Command, args []string) {
		session, _ := cmd.Flags().GetString("session")
		level, _ := cmd.Flags().GetString("level")
		limit, _ := cmd.Flags().GetInt("limit")
		since, _ := cmd.Flags().GetDuration("since")
		requestID, _ := cmd.Flags().GetInt64("request")
		errorsOnly, _ := cmd.Flags().GetBool("errors")
		includeExceptions, _ := cmd.Flags().GetBool("exceptions")
		follow, _ := cmd.Flags().GetBool("follow")
		export, _ := cmd.Flags().GetString("export")

		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()
		reader := logs.NewReader(st, logger.New())

		if follow {
			// Stream until Ctrl-C.
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-quit
				cancel()
			}()

			err := reader.Follow(ctx, cmd.OutOrStdout(), session, store.LogLevel(level), time.Second)
			if err != nil && ctx.Err() == nil {
				cmd.Printf("Follow failed: %v\n", err)
			}
			return
		}

		var (
			entries []store.ConsoleLogEntry
			err     error
		)
		if errorsOnly {
			entries, err = reader.Errors(context.Background(), limit, includeExceptions)
		} else {
			filter := store.ConsoleLogFilter{
				SessionID: session,
				Level:     store.LogLevel(level),
				Limit:     limit,
			}
			if since > 0 {
				filter.Since = time.Now().UTC().Add(-since)
			}
			if requestID > 0 {
				filter.RequestID = &requestID
			}
			entries, err = reader.Latest(context.Background(), filter)
		}
		if err != nil {
			cmd.Printf("Failed to query logs: %v\n", err)
			return
		}
		if len(entries) == 0 {
			cmd.Println("No matching log entries.")
			return
		}

		format := logs.FormatText
		if export != "" {
			format = export
		}
		if err := logs.Export(cmd.OutOrStdout(), entries, format); err != nil {
			cmd.Printf("Failed to write logs: %v\n", err)
		}
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete console logs older than the retention window",
	Run: func(cmd *cobra.Command, args []string) {
		olderThan, _ := cmd.Flags().GetDuration("older-than")

		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()
		reader := logs.NewReader(st, logger.New())

		removed, err := reader.Prune(context.Background(), olderThan)
		if err != nil {
			cmd.Printf("Prune failed: %v\n", err)
			return
		}
		cmd.Printf("Removed %d log entries older than %s\n", removed, olderThan)
	},
}

func init() {
	logsCmd.Flags().String("session", "", "filter by session id")
	logsCmd.Flags().String("level", "", "filter by level: Info, Warning, Error, Exception, Assert")
	logsCmd.Flags().Int("limit", 50, "maximum entries to show")
	logsCmd.Flags().Duration("since", 0, "only entries newer than this age")
	logsCmd.Flags().Int64("request", 0, "filter by originating request id")
	logsCmd.Flags().Bool("errors", false, "show only error-level entries")
	logsCmd.Flags().Bool("exceptions", true, "with --errors, include exceptions and asserts")
	logsCmd.Flags().Bool("follow", false, "stream new entries until interrupted")
	logsCmd.Flags().String("export", "", "output format: json, text")

	pruneCmd.Flags().Duration("older-than", 7*24*time.Hour, "delete entries older than this")

	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(pruneCmd)
}
