package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/runstore"
)

func newRunsCommand(cmdCtx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := runstore.Open(cfg.Paths.LogDir)
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					strconv.FormatInt(run.ID, 10),
					string(run.Status),
					strconv.Itoa(run.WindowCount),
					strconv.Itoa(run.SourceChars),
					run.CreatedAt.Local().Format(time.DateTime),
					run.OutputDir,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Status", "Windows", "Source Chars", "Started", "Output Dir"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.AddCommand(newRunsShowCommand(cmdCtx))
	return cmd
}

func newRunsShowCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show per-window progress for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := runstore.Open(cfg.Paths.LogDir)
			if err != nil {
				return fmt.Errorf("open run journal: %w", err)
			}
			defer store.Close()

			windows, err := store.ListWindows(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("list windows: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(windows) == 0 {
				fmt.Fprintf(out, "No windows recorded for run %d\n", runID)
				return nil
			}

			rows := make([][]string, 0, len(windows))
			for _, window := range windows {
				detail := window.OutputPath
				if window.Error != "" {
					detail = truncateDetail(window.Error, 80)
				}
				rows = append(rows, []string{
					strconv.Itoa(window.Index),
					string(window.Status),
					window.Stage,
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Window", "Status", "Stage", "Output / Error"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
