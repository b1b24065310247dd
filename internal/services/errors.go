package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrFetch         = errors.New("fetch error")
	ErrDecompress    = errors.New("decompress error")
	ErrParse         = errors.New("parse error")
	ErrNotFound      = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrFetch
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FeedStatus maps a per-feed error to the journal status the pipeline
// records for that feed.
func FeedStatus(err error) string {
	switch {
	case err == nil:
		return "merged"
	case errors.Is(err, ErrFetch):
		return "fetch_failed"
	case errors.Is(err, ErrDecompress):
		return "decompress_failed"
	case errors.Is(err, ErrParse):
		return "parse_failed"
	default:
		return "failed"
	}
}

// IsFeedSoft reports whether an error is isolated to one feed and must not
// abort the run.
func IsFeedSoft(err error) bool {
	return errors.Is(err, ErrFetch) || errors.Is(err, ErrDecompress) || errors.Is(err, ErrParse)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
