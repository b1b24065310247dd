// Package extract pulls the requested channel and programme elements out of
// one feed's XML and applies the forward time window.
package extract

import (
	"encoding/xml"
	"errors"
	"io"
	"os"
	"time"

	"epgmerge/internal/services"
	"epgmerge/internal/xmltv"
)

// Result carries everything extracted from one feed.
type Result struct {
	Channels   []xmltv.Channel
	Programmes []xmltv.Programme
	// NotFound lists requested channel ids that had no <channel> element in
	// this feed, in request order. Informational: their programmes may still
	// have been extracted.
	NotFound []string
}

// ExtractFile opens path and runs Extract on it.
func ExtractFile(path string, requested []string, start time.Time, timeFrame int) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "extractor", "open", path, err)
	}
	defer file.Close()
	return Extract(file, requested, start, timeFrame)
}

// Extract walks the direct children of the feed's root element in a single
// pass, selecting requested <channel> elements and the <programme> elements
// belonging to requested channels.
//
// Channel matching depletes a working copy of the requested set, so a
// channel id duplicated inside one feed is taken once, at its first
// document-order occurrence. Programmes are matched against the full
// requested set regardless of whether their channel element was found.
//
// A programme whose start and stop both parse is retained iff its airing
// interval overlaps [start, start+timeFrame hours) with strict bounds. A
// programme with an unparseable timestamp is retained unconditionally:
// what cannot be parsed cannot be window-filtered.
func Extract(r io.Reader, requested []string, start time.Time, timeFrame int) (*Result, error) {
	requestedSet := make(map[string]struct{}, len(requested))
	for _, id := range requested {
		requestedSet[id] = struct{}{}
	}
	missing := make(map[string]struct{}, len(requested))
	for id := range requestedSet {
		missing[id] = struct{}{}
	}

	result := &Result{}
	dec := xml.NewDecoder(r)
	depth := 0

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, services.Wrap(services.ErrParse, "extractor", "decode", "", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if depth != 1 {
				depth++
				continue
			}
			switch el.Name.Local {
			case "channel":
				var ch xmltv.Channel
				if err := dec.DecodeElement(&ch, &el); err != nil {
					return nil, services.Wrap(services.ErrParse, "extractor", "decode channel", "", err)
				}
				if _, want := missing[ch.ID]; want {
					result.Channels = append(result.Channels, ch)
					delete(missing, ch.ID)
				}
			case "programme":
				var p xmltv.Programme
				if err := dec.DecodeElement(&p, &el); err != nil {
					return nil, services.Wrap(services.ErrParse, "extractor", "decode programme", "", err)
				}
				if _, want := requestedSet[p.Channel]; !want {
					continue
				}
				if retainProgramme(p, start, timeFrame) {
					result.Programmes = append(result.Programmes, p)
				}
			default:
				if err := dec.Skip(); err != nil {
					return nil, services.Wrap(services.ErrParse, "extractor", "decode", "", err)
				}
			}
		case xml.EndElement:
			depth--
		}
	}

	if depth != 0 {
		return nil, services.Wrap(services.ErrParse, "extractor", "decode", "unbalanced document", nil)
	}

	for _, id := range requested {
		if _, miss := missing[id]; miss {
			result.NotFound = append(result.NotFound, id)
		}
	}

	return result, nil
}

func retainProgramme(p xmltv.Programme, start time.Time, timeFrame int) bool {
	progStart, errStart := xmltv.ParseTime(p.Start)
	progStop, errStop := xmltv.ParseTime(p.Stop)
	if errStart != nil || errStop != nil {
		return true
	}
	startDelta := progStart.Sub(start).Hours()
	stopDelta := progStop.Sub(start).Hours()
	return startDelta < float64(timeFrame) && stopDelta > 0
}
