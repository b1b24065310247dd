// Package logging builds the slog loggers used across epgmerge.
//
// Two output formats are supported: a console handler that renders a compact
// single-line format with the component promoted into the message prefix, and
// a JSON handler for machine consumption. NewFromConfig tees output to stderr
// and to <log_dir>/epgmerge.log.
package logging
