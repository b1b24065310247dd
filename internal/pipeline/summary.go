package pipeline

import "time"

// FeedReport captures the outcome of a single source URL.
type FeedReport struct {
	URL                 string
	Status              string
	ChannelsRequested   int
	DuplicatesSkipped   int
	ChannelsExtracted   int
	ProgrammesExtracted int
	NotFound            []string
	Err                 error
}

// Failed reports whether the feed contributed nothing because of an error.
func (f FeedReport) Failed() bool {
	return f.Err != nil
}

// Summary aggregates the results of one merge run.
type Summary struct {
	RunID      string
	SourceFile string
	OutputFile string
	TimeFrame  int
	StartedAt  time.Time
	FinishedAt time.Time
	Feeds      []FeedReport
	Channels   int
	Programmes int
}

// FeedsFailed counts the feeds that ended in an error.
func (s *Summary) FeedsFailed() int {
	failed := 0
	for _, feed := range s.Feeds {
		if feed.Failed() {
			failed++
		}
	}
	return failed
}

// Duration returns the run's wall time.
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
