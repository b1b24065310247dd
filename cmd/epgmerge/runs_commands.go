package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"epgmerge/internal/config"
	"epgmerge/internal/journal"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run journal",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent merge runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return withJournal(cfg, func(store *journal.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}

				headers := []string{"ID", "Started", "Duration", "Feeds", "Failed", "Channels", "Programmes"}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						strconv.FormatInt(run.ID, 10),
						formatTimestamp(run.StartedAt),
						formatRunDuration(run),
						strconv.Itoa(run.FeedsTotal),
						strconv.Itoa(run.FeedsFailed),
						strconv.Itoa(run.Channels),
						strconv.Itoa(run.Programmes),
					})
				}
				aligns := []columnAlignment{
					alignRight, alignLeft, alignRight,
					alignRight, alignRight, alignRight, alignRight,
				}
				writeRows(cmd, headers, rows, aligns)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run with its per-feed breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return withJournal(cfg, func(store *journal.Store) error {
				return showRun(cmd, store, id)
			})
		},
	}
}

func showRun(cmd *cobra.Command, store *journal.Store, id int64) error {
	cmdCtx := cmd.Context()
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}

	run, err := store.GetRun(cmdCtx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %d not found", id)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %d (%s)\n", run.ID, run.RunID)
	fmt.Fprintf(out, "  Started:    %s\n", formatTimestamp(run.StartedAt))
	if run.Finished() {
		fmt.Fprintf(out, "  Finished:   %s (%s)\n", formatTimestamp(run.FinishedAt), run.Duration().Round(roundingUnit))
	} else {
		fmt.Fprintln(out, "  Finished:   incomplete")
	}
	fmt.Fprintf(out, "  Source:     %s\n", run.SourceFile)
	if run.OutputFile != "" {
		fmt.Fprintf(out, "  Output:     %s\n", run.OutputFile)
	}
	fmt.Fprintf(out, "  Window:     %d hours\n", run.TimeFrame)
	fmt.Fprintf(out, "  Totals:     %d channels, %d programmes, %d/%d feeds failed\n",
		run.Channels, run.Programmes, run.FeedsFailed, run.FeedsTotal)

	feeds, err := store.FeedsForRun(cmdCtx, run.ID)
	if err != nil {
		return err
	}
	if len(feeds) == 0 {
		return nil
	}

	headers := []string{"Feed", "Status", "Channels", "Programmes", "Skipped", "Error"}
	rows := make([][]string, 0, len(feeds))
	for _, feed := range feeds {
		rows = append(rows, []string{
			feed.URL,
			feed.Status,
			strconv.Itoa(feed.ChannelsExtracted),
			strconv.Itoa(feed.ProgrammesExtracted),
			strconv.Itoa(feed.DuplicatesSkipped),
			feed.Error,
		})
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}
	writeRows(cmd, headers, rows, aligns)
	return nil
}

func withJournal(cfg *config.Config, fn func(*journal.Store) error) error {
	store, err := journal.Open(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatRunDuration(run journal.Run) string {
	if !run.Finished() {
		return "-"
	}
	return run.Duration().Round(roundingUnit).String()
}
