// Package config loads, normalizes, and validates epgmerge configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the CLI needs: source list and output locations, staging/log directories,
// fetch timeout, default time frame, and journal retention.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
