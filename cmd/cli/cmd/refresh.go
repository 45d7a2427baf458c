package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"testplane/internal/coordinator"
	"testplane/internal/store"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Submit an asset refresh request",
	Long: `Queue an asset database refresh for the host application.

A full refresh reimports everything; a selective refresh only touches the
paths given with --paths.`,
	Run: func(cmd *cobra.Command, args []string) {
		refreshType, _ := cmd.Flags().GetString("type")
		paths, _ := cmd.Flags().GetStringSlice("paths")
		importOpts, _ := cmd.Flags().GetString("import")
		priority, _ := cmd.Flags().GetInt("priority")
		wait, _ := cmd.Flags().GetBool("wait")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		st, ok := openStore(cmd)
		if !ok {
			return
		}
		defer st.Close()
		coord := newCoordinator(st)

		req := store.NewRefreshRequest{
			RefreshType:   store.RefreshType(refreshType),
			Paths:         paths,
			ImportOptions: store.ImportOptions(importOpts),
			Priority:      priority,
		}

		id, err := coord.SubmitRefresh(context.Background(), req)
		if err != nil {
			cmd.Printf("Failed to submit refresh request: %v\n", err)
			return
		}
		cmd.Printf("Refresh request %d submitted\n", id)

		if !wait {
			return
		}
		final, err := coord.WaitRefresh(context.Background(), id, timeout)
		if err != nil {
			if errors.Is(err, coordinator.ErrWaitTimeout) {
				cmd.Printf("Request %d still running after %s; it was not cancelled\n", id, timeout)
				return
			}
			cmd.Printf("Wait failed: %v\n", err)
			return
		}
		printRefreshRequest(cmd, *final)
	},
}

func printRefreshRequest(cmd *cobra.Command, req store.RefreshRequest) {
	cmd.Printf("%s %sRefresh Request %d%s\n", statusIcon(req.Status), colorBold, req.ID, colorReset)
	cmd.Println("──────────────────────────────")
	cmd.Printf("%sType:%s      %s\n", colorDim, colorReset, req.RefreshType)
	if len(req.Paths) > 0 {
		cmd.Printf("%sPaths:%s     %d\n", colorDim, colorReset, len(req.Paths))
		for _, p := range req.Paths {
			cmd.Printf("             %s\n", p)
		}
	}
	cmd.Printf("%sStatus:%s    %s\n", colorDim, colorReset, colorizeStatus(req.Status))
	cmd.Printf("%sCreated:%s   %s\n", colorDim, colorReset, formatTimeWithRelative(&req.CreatedAt))
	if req.DurationSeconds > 0 {
		cmd.Printf("%sDuration:%s  %.1fs\n", colorDim, colorReset, req.DurationSeconds)
	}
	if req.ResultMessage != "" {
		cmd.Printf("%sResult:%s    %s\n", colorDim, colorReset, req.ResultMessage)
	}
	if req.ErrorMessage != "" {
		cmd.Printf("%sError:%s     %s%s%s\n", colorDim, colorReset, colorRed, req.ErrorMessage, colorReset)
	}
}

func init() {
	refreshCmd.Flags().String("type", "full", "refresh type: full, selective")
	refreshCmd.Flags().StringSlice("paths", nil, "asset paths for a selective refresh")
	refreshCmd.Flags().String("import", "default", "import options: default, synchronous, force_update")
	refreshCmd.Flags().Int("priority", 0, "scheduling priority (higher runs first)")
	refreshCmd.Flags().Bool("wait", false, "wait for the request to finish")
	refreshCmd.Flags().Duration("timeout", 5*time.Minute, "how long to wait with --wait")

	rootCmd.AddCommand(refreshCmd)
}
