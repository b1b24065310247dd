// Package testsupport provides helpers shared by package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"epgmerge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SourceFile = filepath.Join(base, "source_epg.txt")
	cfg.Paths.OutputFile = filepath.Join(base, "epg.xml")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Journal.Enabled = true

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithTimeFrame overrides the default merge window on the test config.
func WithTimeFrame(hours int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Merge.DefaultTimeFrameHours = hours
	}
}

// WithJournalDisabled turns off run journaling on the test config.
func WithJournalDisabled() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Journal.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StagingDir)
}
