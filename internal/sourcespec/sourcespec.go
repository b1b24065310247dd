// Package sourcespec parses the declarative source list that drives a merge
// run: an optional timeframe line followed by feed URLs, each URL trailed by
// the channel identifiers requested from that feed.
package sourcespec

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"epgmerge/internal/services"
)

// Entry associates one feed URL with the channel ids requested from it, in
// first-appearance order and without duplicates.
type Entry struct {
	URL        string
	ChannelIDs []string
}

// List is the parsed source specification.
type List struct {
	// TimeFrame is the forward window in hours. When the list carries no
	// valid timeframe line this holds the default passed to Parse and
	// TimeFrameValid is false.
	TimeFrame      int
	TimeFrameValid bool
	Sources        []Entry
}

// ParseFile reads and parses the source list at path. A missing or
// unreadable file is a configuration error that aborts the whole run.
func ParseFile(path string, defaultTimeFrame int) (*List, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "sourcespec", "open", path, err)
	}
	defer file.Close()
	return Parse(file, defaultTimeFrame)
}

// Parse reads the source list grammar:
//
//   - The first non-empty line may carry "key=value"; the substring after
//     the last '=' is parsed as a non-negative integer timeframe in hours.
//     Anything else falls back to defaultTimeFrame.
//   - '#' starts a comment; blank lines are ignored.
//   - A line starting with "http" opens a new source context (the URL).
//   - Any other line is a channel id for the open context; ids before the
//     first URL are discarded, duplicates within one URL are ignored.
//   - Re-encountering a URL appends to its existing entry.
func Parse(r io.Reader, defaultTimeFrame int) (*List, error) {
	list := &List{TimeFrame: defaultTimeFrame}

	index := make(map[string]int)
	seen := make(map[string]map[string]struct{})
	current := ""
	sawFirst := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Text()

		if !sawFirst && strings.TrimSpace(raw) != "" {
			sawFirst = true
			tail := raw[strings.LastIndex(raw, "=")+1:]
			if tf, err := strconv.Atoi(strings.TrimSpace(tail)); err == nil && tf >= 0 {
				list.TimeFrame = tf
				list.TimeFrameValid = true
			}
		}

		line := raw
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "http") {
			current = line
			if _, ok := index[current]; !ok {
				index[current] = len(list.Sources)
				list.Sources = append(list.Sources, Entry{URL: current})
				seen[current] = make(map[string]struct{})
			}
			continue
		}

		if current == "" {
			continue
		}
		if _, dup := seen[current][line]; dup {
			continue
		}
		seen[current][line] = struct{}{}
		i := index[current]
		list.Sources[i].ChannelIDs = append(list.Sources[i].ChannelIDs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "sourcespec", "read", "", err)
	}

	return list, nil
}

// ChannelCount returns the total number of requested channel ids across all
// sources.
func (l *List) ChannelCount() int {
	total := 0
	for _, entry := range l.Sources {
		total += len(entry.ChannelIDs)
	}
	return total
}

// String summarizes the list for logs.
func (l *List) String() string {
	return fmt.Sprintf("%d sources, %d channels, %dh window", len(l.Sources), l.ChannelCount(), l.TimeFrame)
}
