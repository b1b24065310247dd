package pipeline_test

import (
	"compress/gzip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"epgmerge/internal/config"
	"epgmerge/internal/logging"
	"epgmerge/internal/pipeline"
	"epgmerge/internal/services"
	"epgmerge/internal/testsupport"
	"epgmerge/internal/xmltv"
)

func programmeElement(channel string, startOffset, stopOffset time.Duration) string {
	start := time.Now().Add(startOffset).Format(xmltv.TimeLayout)
	stop := time.Now().Add(stopOffset).Format(xmltv.TimeLayout)
	return fmt.Sprintf(
		`<programme start=%q stop=%q channel=%q><title>show</title></programme>`,
		start, stop, channel)
}

func feedXML(channelIDs []string, programmes ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><tv>`)
	for _, id := range channelIDs {
		fmt.Fprintf(&b, `<channel id=%q><display-name>%s</display-name></channel>`, id, id)
	}
	for _, p := range programmes {
		b.WriteString(p)
	}
	b.WriteString(`</tv>`)
	return b.String()
}

func readOutput(t *testing.T, cfg *config.Config) *xmltv.Document {
	t.Helper()
	data, err := os.ReadFile(cfg.Paths.OutputFile)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var doc xmltv.Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	return &doc
}

func newRunner(t *testing.T, cfg *config.Config) *pipeline.Runner {
	t.Helper()
	runner, err := pipeline.NewRunner(cfg, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return runner
}

func TestRunMergesFeedsEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/first.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, feedXML(
			[]string{"alpha", "beta"},
			programmeElement("alpha", time.Hour, 2*time.Hour),
			programmeElement("beta", time.Hour, 2*time.Hour),
			programmeElement("beta", 100*time.Hour, 101*time.Hour),
		))
	})
	mux.HandleFunc("/second.xml.gz", func(w http.ResponseWriter, _ *http.Request) {
		gz := gzip.NewWriter(w)
		_, _ = fmt.Fprint(gz, feedXML(
			[]string{"beta", "gamma"},
			programmeElement("beta", time.Hour, 2*time.Hour),
			programmeElement("gamma", time.Hour, 2*time.Hour),
		))
		_ = gz.Close()
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithJournalDisabled())
	testsupport.WriteSourceList(t, cfg.Paths.SourceFile,
		"timeframe=48",
		server.URL+"/first.xml",
		"alpha",
		"beta",
		server.URL+"/second.xml.gz",
		"beta",
		"gamma",
	)

	summary, err := newRunner(t, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.FeedsFailed() != 0 {
		t.Fatalf("FeedsFailed = %d, want 0", summary.FeedsFailed())
	}
	if summary.Channels != 3 {
		t.Fatalf("Channels = %d, want 3", summary.Channels)
	}
	if summary.Programmes != 3 {
		t.Fatalf("Programmes = %d, want 3 (one beta duplicate skipped, one out of window)", summary.Programmes)
	}
	if summary.Feeds[1].DuplicatesSkipped != 1 {
		t.Fatalf("second feed DuplicatesSkipped = %d, want 1", summary.Feeds[1].DuplicatesSkipped)
	}

	doc := readOutput(t, cfg)
	if len(doc.Channels) != 3 {
		t.Fatalf("output channels = %d, want 3", len(doc.Channels))
	}
	// Deterministic ordering: channels sorted by id.
	for i, want := range []string{"alpha", "beta", "gamma"} {
		if doc.Channels[i].ID != want {
			t.Fatalf("channel[%d] = %q, want %q", i, doc.Channels[i].ID, want)
		}
	}
	for _, p := range doc.Programmes {
		if p.Channel == "beta" && !strings.Contains(p.Inner, "show") {
			t.Fatalf("programme body lost in round trip: %#v", p)
		}
	}

	// Staging directory is cleared after the run.
	entries, err := os.ReadDir(cfg.Paths.StagingDir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging dir not cleared, %d entries left", len(entries))
	}
}

func TestRunContinuesAfterFailedFeed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/missing.xml", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/good.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, feedXML(
			[]string{"alpha"},
			programmeElement("alpha", time.Hour, 2*time.Hour),
		))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithJournalDisabled())
	testsupport.WriteSourceList(t, cfg.Paths.SourceFile,
		"timeframe=48",
		server.URL+"/missing.xml",
		"alpha",
		server.URL+"/good.xml",
		"alpha",
	)

	summary, err := newRunner(t, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.FeedsFailed() != 1 {
		t.Fatalf("FeedsFailed = %d, want 1", summary.FeedsFailed())
	}
	if summary.Feeds[0].Status != "fetch_failed" {
		t.Fatalf("first feed status = %q, want fetch_failed", summary.Feeds[0].Status)
	}

	// The failed feed never claimed alpha, so the second feed supplies it.
	doc := readOutput(t, cfg)
	if len(doc.Channels) != 1 || doc.Channels[0].ID != "alpha" {
		t.Fatalf("unexpected output channels: %#v", doc.Channels)
	}
}

func TestRunRecordsJournal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/feed.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, feedXML(
			[]string{"alpha"},
			programmeElement("alpha", time.Hour, 2*time.Hour),
		))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	testsupport.WriteSourceList(t, cfg.Paths.SourceFile,
		"timeframe=48",
		server.URL+"/feed.xml",
		"alpha",
	)

	runner, err := pipeline.NewRunner(cfg, logging.NewNop(), store)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	ctx := context.Background()
	runs, err := store.ListRuns(ctx, 5)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 journaled run, got %d", len(runs))
	}
	run := runs[0]
	if run.RunID != summary.RunID {
		t.Fatalf("journaled RunID = %q, want %q", run.RunID, summary.RunID)
	}
	if !run.Finished() || run.Channels != 1 || run.Programmes != 1 {
		t.Fatalf("unexpected journaled run: %#v", run)
	}

	feeds, err := store.FeedsForRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("FeedsForRun: %v", err)
	}
	if len(feeds) != 1 || feeds[0].Status != "merged" {
		t.Fatalf("unexpected journaled feeds: %#v", feeds)
	}
}

func TestRunMissingSourceListIsConfigurationError(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJournalDisabled())

	_, err := newRunner(t, cfg).Run(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunRefusesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJournalDisabled())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	testsupport.WriteSourceList(t, cfg.Paths.SourceFile, "timeframe=48")

	holder := flock.New(filepath.Join(cfg.Paths.LogDir, "epgmerge.lock"))
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("pre-acquire lock: locked=%v err=%v", locked, err)
	}
	defer func() { _ = holder.Unlock() }()

	_, err = newRunner(t, cfg).Run(context.Background())
	if !errors.Is(err, pipeline.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}

func TestRunWithNoSourcesWritesEmptyDocument(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithJournalDisabled())
	testsupport.WriteSourceList(t, cfg.Paths.SourceFile,
		"timeframe=24",
		"# no feeds configured yet",
	)

	summary, err := newRunner(t, cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Channels != 0 || summary.Programmes != 0 {
		t.Fatalf("expected empty merge, got %d channels / %d programmes", summary.Channels, summary.Programmes)
	}

	data, err := os.ReadFile(cfg.Paths.OutputFile)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "<tv>") {
		t.Fatalf("output missing tv root: %s", data)
	}
}
