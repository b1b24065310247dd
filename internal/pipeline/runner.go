// Package pipeline orchestrates one merge run: parse the source list, fetch
// and decode each feed, extract the requested records, dedupe channel ids
// across feeds, and write the merged XMLTV document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"epgmerge/internal/config"
	"epgmerge/internal/decode"
	"epgmerge/internal/extract"
	"epgmerge/internal/fetch"
	"epgmerge/internal/fileutil"
	"epgmerge/internal/journal"
	"epgmerge/internal/logging"
	"epgmerge/internal/merge"
	"epgmerge/internal/services"
	"epgmerge/internal/sourcespec"
)

// ErrAlreadyRunning indicates another epgmerge run holds the instance lock.
var ErrAlreadyRunning = errors.New("another epgmerge instance is already running")

// Runner executes merge runs and enforces single-instance execution.
type Runner struct {
	cfg     *config.Config
	logger  *slog.Logger
	fetcher *fetch.Fetcher
	store   *journal.Store

	lockPath string
	lock     *flock.Flock

	// now is swapped in tests to pin the merge window.
	now func() time.Time
}

// NewRunner constructs a runner. The journal store may be nil when
// journaling is disabled.
func NewRunner(cfg *config.Config, logger *slog.Logger, store *journal.Store) (*Runner, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("runner requires config and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "epgmerge.lock")
	return &Runner{
		cfg:      cfg,
		logger:   logger,
		fetcher:  fetch.New(time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second, cfg.Paths.StagingDir, cfg.Fetch.UserAgent),
		store:    store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		now:      time.Now,
	}, nil
}

// Run executes one merge run end to end and returns its summary. Feed-level
// failures are reported in the summary, not as an error; the returned error
// is reserved for conditions that abort the whole run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "prepare", "create directories", err)
	}

	ok, err := r.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", r.lockPath, err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	defer func() {
		if unlockErr := r.lock.Unlock(); unlockErr != nil {
			r.logger.Warn("failed to release instance lock", logging.Error(unlockErr))
		}
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	log := r.logger.With(logging.String(logging.FieldRunID, runID))

	start := r.now()
	list, err := sourcespec.ParseFile(r.cfg.Paths.SourceFile, r.cfg.Merge.DefaultTimeFrameHours)
	if err != nil {
		return nil, err
	}

	log.Info("starting merge run",
		logging.String("source_file", r.cfg.Paths.SourceFile),
		logging.Int("time_frame_hours", list.TimeFrame),
		logging.Bool("time_frame_from_source", list.TimeFrameValid),
		logging.Int("feeds", len(list.Sources)),
		logging.Int("channels_requested", list.ChannelCount()),
	)

	summary := &Summary{
		RunID:      runID,
		SourceFile: r.cfg.Paths.SourceFile,
		OutputFile: r.cfg.Paths.OutputFile,
		TimeFrame:  list.TimeFrame,
		StartedAt:  start,
	}

	var journalRun int64
	if r.store != nil {
		journalRun, err = r.store.BeginRun(ctx, runID, start, r.cfg.Paths.SourceFile, list.TimeFrame)
		if err != nil {
			log.Warn("journal unavailable for this run", logging.Error(err))
			journalRun = 0
		}
	}

	r.clearStaging(log)
	defer r.clearStaging(log)

	mergeCtx := merge.NewContext(start, list.TimeFrame)
	for _, source := range list.Sources {
		report := r.processFeed(ctx, log, mergeCtx, source)
		summary.Feeds = append(summary.Feeds, report)
		if r.store != nil && journalRun != 0 {
			if err := r.store.RecordFeed(ctx, journalRun, feedRow(report)); err != nil {
				log.Warn("failed to journal feed outcome", logging.Error(err))
			}
		}
	}

	summary.Channels = mergeCtx.ChannelCount()
	summary.Programmes = mergeCtx.ProgrammeCount()

	if err := r.writeDocument(mergeCtx); err != nil {
		return nil, err
	}
	summary.FinishedAt = r.now()

	log.Info("merge run finished",
		logging.String("output_file", r.cfg.Paths.OutputFile),
		logging.Int("channels", summary.Channels),
		logging.Int("programmes", summary.Programmes),
		logging.Int("feeds_failed", summary.FeedsFailed()),
		logging.Duration("elapsed", summary.Duration()),
	)

	if r.store != nil && journalRun != 0 {
		totals := journal.RunTotals{
			FeedsTotal:  len(summary.Feeds),
			FeedsFailed: summary.FeedsFailed(),
			Channels:    summary.Channels,
			Programmes:  summary.Programmes,
		}
		if err := r.store.FinishRun(ctx, journalRun, summary.FinishedAt, r.cfg.Paths.OutputFile, totals); err != nil {
			log.Warn("failed to journal run totals", logging.Error(err))
		}
		if err := r.store.Prune(ctx, r.cfg.Journal.MaxRuns); err != nil {
			log.Warn("failed to prune journal", logging.Error(err))
		}
	}

	return summary, nil
}

// processFeed runs one source through fetch, decode, and extract. Every
// failure is soft: the feed is reported and the run moves on, and none of
// the feed's channel ids are claimed so a later feed may supply them.
func (r *Runner) processFeed(ctx context.Context, log *slog.Logger, mergeCtx *merge.Context, source sourcespec.Entry) FeedReport {
	ctx = services.WithSourceURL(ctx, source.URL)
	feedLog := log.With(logging.String(logging.FieldSourceURL, source.URL))

	report := FeedReport{
		URL:               source.URL,
		ChannelsRequested: len(source.ChannelIDs),
	}

	fresh, duplicates := mergeCtx.Pending(source.ChannelIDs)
	report.DuplicatesSkipped = len(duplicates)
	for _, id := range duplicates {
		feedLog.Info("channel already merged from an earlier feed",
			logging.String(logging.FieldChannelID, id))
	}
	if len(fresh) == 0 {
		report.Status = "skipped"
		feedLog.Info("skipping feed, no channels left to merge")
		return report
	}

	staged, err := r.fetcher.Fetch(ctx, source.URL)
	if err != nil {
		return r.feedFailed(feedLog, report, err)
	}

	decoded, err := decode.Decompress(staged)
	if err != nil {
		return r.feedFailed(feedLog, report, err)
	}

	result, err := extract.ExtractFile(decoded, fresh, mergeCtx.Start, mergeCtx.TimeFrame)
	if removeErr := fileutil.RemoveIfExists(decoded); removeErr != nil {
		feedLog.Warn("failed to remove staged feed", logging.Error(removeErr))
	}
	if err != nil {
		return r.feedFailed(feedLog, report, err)
	}

	mergeCtx.Absorb(result)
	mergeCtx.MarkProcessed(fresh)

	report.Status = "merged"
	report.ChannelsExtracted = len(result.Channels)
	report.ProgrammesExtracted = len(result.Programmes)
	report.NotFound = result.NotFound
	for _, id := range result.NotFound {
		feedLog.Warn("requested channel not present in feed",
			logging.String(logging.FieldChannelID, id))
	}
	feedLog.Info("feed merged",
		logging.Int("channels", report.ChannelsExtracted),
		logging.Int("programmes", report.ProgrammesExtracted),
		logging.Int("duplicates_skipped", report.DuplicatesSkipped),
	)
	return report
}

func (r *Runner) feedFailed(log *slog.Logger, report FeedReport, err error) FeedReport {
	report.Err = err
	report.Status = services.FeedStatus(err)
	log.Error("feed failed", logging.String("status", report.Status), logging.Error(err))
	return report
}

func (r *Runner) writeDocument(mergeCtx *merge.Context) error {
	doc := mergeCtx.Document()
	out, err := os.Create(r.cfg.Paths.OutputFile)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "write", r.cfg.Paths.OutputFile, err)
	}
	if err := doc.Write(out); err != nil {
		_ = out.Close()
		return services.Wrap(services.ErrConfiguration, "pipeline", "write", r.cfg.Paths.OutputFile, err)
	}
	if err := out.Close(); err != nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "write", r.cfg.Paths.OutputFile, err)
	}
	return nil
}

func (r *Runner) clearStaging(log *slog.Logger) {
	fileutil.ClearDir(r.cfg.Paths.StagingDir, func(name string, err error) {
		log.Warn("failed to clear staging entry",
			logging.String("name", name), logging.Error(err))
	})
}

func feedRow(report FeedReport) journal.Feed {
	row := journal.Feed{
		URL:                 report.URL,
		Status:              report.Status,
		ChannelsRequested:   report.ChannelsRequested,
		DuplicatesSkipped:   report.DuplicatesSkipped,
		ChannelsExtracted:   report.ChannelsExtracted,
		ProgrammesExtracted: report.ProgrammesExtracted,
		ProcessedAt:         time.Now(),
	}
	if report.Err != nil {
		row.Error = report.Err.Error()
	}
	return row
}
