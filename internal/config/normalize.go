package config

import "strings"

// normalize expands user paths and canonicalizes string fields so the rest
// of the repository never sees tilde shortcuts or stray whitespace.
func (c *Config) normalize() error {
	var err error

	if c.Paths.SourceFile, err = expandPath(strings.TrimSpace(c.Paths.SourceFile)); err != nil {
		return err
	}
	if c.Paths.OutputFile, err = expandPath(strings.TrimSpace(c.Paths.OutputFile)); err != nil {
		return err
	}
	if c.Paths.StagingDir, err = expandPath(strings.TrimSpace(c.Paths.StagingDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return err
	}

	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
