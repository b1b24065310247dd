package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"epgmerge/internal/journal"
	"epgmerge/internal/logging"
	"epgmerge/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch, merge, and write the EPG document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			var store *journal.Store
			if cfg.Journal.Enabled {
				store, err = journal.Open(cfg)
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
				defer store.Close()
			}

			runner, err := pipeline.NewRunner(cfg, logger, store)
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			summary, err := runner.Run(signalCtx)
			if err != nil {
				return err
			}

			printSummary(cmd, summary)
			if failed := summary.FeedsFailed(); failed > 0 {
				return fmt.Errorf("%d of %d feeds failed", failed, len(summary.Feeds))
			}
			return nil
		},
	}
}

func printSummary(cmd *cobra.Command, summary *pipeline.Summary) {
	out := cmd.OutOrStdout()

	rows := make([][]string, 0, len(summary.Feeds))
	for _, feed := range summary.Feeds {
		detail := ""
		switch {
		case feed.Err != nil:
			detail = feed.Err.Error()
		case len(feed.NotFound) > 0:
			detail = "not found: " + strings.Join(feed.NotFound, ", ")
		}
		rows = append(rows, []string{
			feed.URL,
			feed.Status,
			fmt.Sprintf("%d", feed.ChannelsExtracted),
			fmt.Sprintf("%d", feed.ProgrammesExtracted),
			fmt.Sprintf("%d", feed.DuplicatesSkipped),
			detail,
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(
			[]string{"Feed", "Status", "Channels", "Programmes", "Skipped", "Detail"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
		))
	}

	fmt.Fprintf(out, "Merged %d channels and %d programmes into %s in %s\n",
		summary.Channels, summary.Programmes, summary.OutputFile,
		summary.Duration().Round(roundingUnit))
}
