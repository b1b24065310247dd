// Package services defines shared utilities consumed by the feed pipeline.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and source URLs for logging.
//   - Structured error markers plus the Wrap helper that classify per-feed
//     failures (fetch vs decompress vs parse) so the pipeline can record a
//     consistent status without string-matching messages.
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform across components.
package services
