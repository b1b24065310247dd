package journal

import (
	"database/sql"
	"time"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID          int64
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	SourceFile  string
	OutputFile  string
	TimeFrame   int
	FeedsTotal  int
	FeedsFailed int
	Channels    int
	Programmes  int
}

// Finished reports whether the run recorded its totals.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Duration returns the run's wall time, or zero for unfinished runs.
func (r Run) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunTotals carries the counters written when a run finishes.
type RunTotals struct {
	FeedsTotal  int
	FeedsFailed int
	Channels    int
	Programmes  int
}

// Feed is the recorded outcome of one source URL within a run.
type Feed struct {
	ID                  int64
	RunID               int64
	URL                 string
	Status              string
	ChannelsRequested   int
	DuplicatesSkipped   int
	ChannelsExtracted   int
	ProgrammesExtracted int
	Error               string
	ProcessedAt         time.Time
}

const runColumns = `id, run_id, started_at, finished_at, source_file, output_file,
    time_frame_hours, feeds_total, feeds_failed, channels, programmes`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var startedAt string
	var finishedAt, outputFile sql.NullString
	var feedsTotal, feedsFailed, channels, programmes sql.NullInt64
	if err := row.Scan(
		&run.ID, &run.RunID, &startedAt, &finishedAt, &run.SourceFile,
		&outputFile, &run.TimeFrame, &feedsTotal, &feedsFailed,
		&channels, &programmes,
	); err != nil {
		return nil, err
	}
	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt.String)
	run.OutputFile = outputFile.String
	run.FeedsTotal = int(feedsTotal.Int64)
	run.FeedsFailed = int(feedsFailed.Int64)
	run.Channels = int(channels.Int64)
	run.Programmes = int(programmes.Int64)
	return &run, nil
}
