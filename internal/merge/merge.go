// Package merge accumulates extraction results across feeds and enforces the
// first-feed-wins ownership of channel identifiers.
package merge

import (
	"time"

	"epgmerge/internal/extract"
	"epgmerge/internal/xmltv"
)

// Context carries the mutable state of one pipeline run: the set of channel
// ids already claimed by an earlier feed and the accumulated output records.
// It is touched only by the run goroutine; the per-feed steps stay pure.
type Context struct {
	Start     time.Time
	TimeFrame int

	processed  map[string]struct{}
	channels   []xmltv.Channel
	programmes []xmltv.Programme
}

// NewContext creates a merge context for a run starting at start with a
// forward window of timeFrame hours.
func NewContext(start time.Time, timeFrame int) *Context {
	return &Context{
		Start:     start,
		TimeFrame: timeFrame,
		processed: make(map[string]struct{}),
	}
}

// Pending splits a feed's requested channel ids into those still claimable
// and those already owned by an earlier feed, preserving request order.
func (c *Context) Pending(ids []string) (fresh, duplicates []string) {
	for _, id := range ids {
		if _, taken := c.processed[id]; taken {
			duplicates = append(duplicates, id)
		} else {
			fresh = append(fresh, id)
		}
	}
	return fresh, duplicates
}

// MarkProcessed claims the given channel ids for the feed that just
// completed. Call it only after a feed fetched, decompressed, and parsed
// successfully: ids requested of a failed feed stay claimable by a later
// source entry. Ids are claimed whether or not the feed actually contained
// them, so a later feed can never fill in a channel an earlier feed merely
// lacked.
func (c *Context) MarkProcessed(ids []string) {
	for _, id := range ids {
		c.processed[id] = struct{}{}
	}
}

// Absorb appends one feed's extraction result to the accumulators.
func (c *Context) Absorb(res *extract.Result) {
	c.channels = append(c.channels, res.Channels...)
	c.programmes = append(c.programmes, res.Programmes...)
}

// ChannelCount returns the number of accumulated channel records.
func (c *Context) ChannelCount() int { return len(c.channels) }

// ProgrammeCount returns the number of accumulated programme records.
func (c *Context) ProgrammeCount() int { return len(c.programmes) }

// Document builds the sorted merged document from everything absorbed so far.
func (c *Context) Document() *xmltv.Document {
	doc := &xmltv.Document{
		Channels:   c.channels,
		Programmes: c.programmes,
	}
	doc.Sort()
	return doc
}
