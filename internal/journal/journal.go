// Package journal records per-run and per-feed outcomes in a SQLite
// database so past merges can be inspected with `epgmerge runs`. The
// journal persists observability data only; pipeline state never
// outlives a run.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"epgmerge/internal/config"
)

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database in the log directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "journal.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a run row at pipeline start and returns its database id.
func (s *Store) BeginRun(ctx context.Context, runID string, startedAt time.Time, sourceFile string, timeFrame int) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (run_id, started_at, source_file, time_frame_hours)
         VALUES (?, ?, ?, ?)`,
		runID,
		startedAt.UTC().Format(time.RFC3339Nano),
		sourceFile,
		timeFrame,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// RecordFeed persists the outcome of one feed within a run.
func (s *Store) RecordFeed(ctx context.Context, runID int64, feed Feed) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO feeds (
            run_id, url, status, channels_requested, duplicates_skipped,
            channels_extracted, programmes_extracted, error_message, processed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		feed.URL,
		feed.Status,
		feed.ChannelsRequested,
		feed.DuplicatesSkipped,
		feed.ChannelsExtracted,
		feed.ProgrammesExtracted,
		nullableString(feed.Error),
		feed.ProcessedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert feed: %w", err)
	}
	return nil
}

// FinishRun records the run totals once the output document is written.
func (s *Store) FinishRun(ctx context.Context, id int64, finishedAt time.Time, outputFile string, totals RunTotals) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs
         SET finished_at = ?, output_file = ?, feeds_total = ?, feeds_failed = ?,
             channels = ?, programmes = ?
         WHERE id = ?`,
		finishedAt.UTC().Format(time.RFC3339Nano),
		outputFile,
		totals.FeedsTotal,
		totals.FeedsFailed,
		totals.Channels,
		totals.Programmes,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun fetches one run by database id; nil when absent.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// FeedsForRun returns a run's feed rows in processing order.
func (s *Store) FeedsForRun(ctx context.Context, runID int64) ([]Feed, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, url, status, channels_requested, duplicates_skipped,
                channels_extracted, programmes_extracted, error_message, processed_at
         FROM feeds WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []Feed
	for rows.Next() {
		var feed Feed
		var errMsg sql.NullString
		var processedAt string
		if err := rows.Scan(
			&feed.ID, &feed.RunID, &feed.URL, &feed.Status,
			&feed.ChannelsRequested, &feed.DuplicatesSkipped,
			&feed.ChannelsExtracted, &feed.ProgrammesExtracted,
			&errMsg, &processedAt,
		); err != nil {
			return nil, fmt.Errorf("scan feed: %w", err)
		}
		feed.Error = errMsg.String
		feed.ProcessedAt = parseTimestamp(processedAt)
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}

// Prune deletes the oldest runs (and their feeds, via cascade) beyond
// maxRuns.
func (s *Store) Prune(ctx context.Context, maxRuns int) error {
	if maxRuns < 1 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`,
		maxRuns)
	if err != nil {
		return fmt.Errorf("prune runs: %w", err)
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
