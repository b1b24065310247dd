// Package xmltv carries XMLTV channel and programme elements between feeds
// and the merged output document without interpreting their contents.
//
// Records keep the attributes the pipeline reads (channel/programme identity
// and timestamps) in typed fields. Remaining attributes and the full child
// subtree are preserved verbatim, so the merged document reproduces each
// element exactly as its source feed published it.
package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"time"

	"golang.org/x/text/cases"
)

// TimeLayout is the XMLTV timestamp convention: fixed-width date-time plus a
// numeric UTC offset, e.g. "20240301180000 +0100".
const TimeLayout = "20060102150405 -0700"

// Channel is one <channel id=...> element. Inner holds the child subtree
// verbatim; Attrs holds every attribute other than id.
type Channel struct {
	XMLName xml.Name   `xml:"channel"`
	ID      string     `xml:"id,attr"`
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// Programme is one <programme channel=... start=... stop=...> element.
// Start and Stop stay raw strings: they are parsed on demand and the output
// document orders programmes by the raw start value.
type Programme struct {
	XMLName xml.Name   `xml:"programme"`
	Channel string     `xml:"channel,attr"`
	Start   string     `xml:"start,attr"`
	Stop    string     `xml:"stop,attr"`
	Attrs   []xml.Attr `xml:",any,attr"`
	Inner   string     `xml:",innerxml"`
}

// ParseTime parses an XMLTV timestamp. Callers treat failure as "retain the
// record": an unparseable timestamp can never be window-filtered.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse xmltv time %q: %w", s, err)
	}
	return t, nil
}

// Document is the merged <tv> tree: all channels followed by all programmes.
type Document struct {
	XMLName    xml.Name    `xml:"tv"`
	Channels   []Channel   `xml:"channel"`
	Programmes []Programme `xml:"programme"`
}

// Sort orders the document deterministically: channels by case-folded id,
// programmes by (case-folded channel id, raw start string). The raw start
// comparison matches chronological order only while all feeds use one UTC
// offset convention; mixed offsets keep their lexical order.
func (d *Document) Sort() {
	fold := cases.Fold()
	sort.SliceStable(d.Channels, func(i, j int) bool {
		return fold.String(d.Channels[i].ID) < fold.String(d.Channels[j].ID)
	})
	sort.SliceStable(d.Programmes, func(i, j int) bool {
		ci, cj := fold.String(d.Programmes[i].Channel), fold.String(d.Programmes[j].Channel)
		if ci != cj {
			return ci < cj
		}
		return d.Programmes[i].Start < d.Programmes[j].Start
	})
}

// Write serializes the document with an XML declaration and two-space
// indentation. Element bodies copied from source feeds are emitted verbatim.
func (d *Document) Write(w io.Writer) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
