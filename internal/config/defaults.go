package config

const (
	defaultSourceFile     = "source_epg.txt"
	defaultOutputFile     = "epg.xml"
	defaultStagingDir     = "~/.cache/epgmerge/staging"
	defaultLogDir         = "~/.local/share/epgmerge/logs"
	defaultFetchTimeout   = 10
	defaultTimeFrameHours = 48
	defaultJournalMaxRuns = 50
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceFile: defaultSourceFile,
			OutputFile: defaultOutputFile,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeout,
		},
		Merge: Merge{
			DefaultTimeFrameHours: defaultTimeFrameHours,
		},
		Journal: Journal{
			Enabled: true,
			MaxRuns: defaultJournalMaxRuns,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
