package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	sourceURLKey contextKey = "source_url"
)

// WithRunID annotates context with the pipeline run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSourceURL annotates context with the feed URL currently being processed.
func WithSourceURL(ctx context.Context, url string) context.Context {
	if url == "" {
		return ctx
	}
	return context.WithValue(ctx, sourceURLKey, url)
}

// SourceURLFromContext returns the feed URL if present.
func SourceURLFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(sourceURLKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
