package m3u

import (
	"fmt"
	"io"
	"strings"
)

// EPG holds the optional header attributes advertising an EPG profile.
type EPG struct {
	// File is the x-tvg-url value.
	File string

	// Source is the catchup-source value.
	Source string
}

// Writer provides streaming M3U playlist writing.
type Writer struct {
	w             io.Writer
	epg           *EPG
	headerWritten bool
}

// NewWriter creates a new M3U writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// NewWriterWithEPG creates a writer whose header advertises an EPG profile.
func NewWriterWithEPG(w io.Writer, epg *EPG) *Writer {
	return &Writer{w: w, epg: epg}
}

// Header renders the #EXTM3U header line for the given EPG profile (nil for
// a bare header).
func Header(epg *EPG) string {
	if epg == nil {
		return "#EXTM3U"
	}
	return fmt.Sprintf(`#EXTM3U x-tvg-url="%s" catchup="append" catchup-source="%s"`,
		epg.File, epg.Source)
}

// WriteHeader writes the M3U header.
// This is automatically called by WriteEntry if not already written.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	if _, err := fmt.Fprintln(w.w, Header(w.epg)); err != nil {
		return fmt.Errorf("writing M3U header: %w", err)
	}
	w.headerWritten = true
	return nil
}

// WriteEntry writes a single channel entry to the M3U playlist.
// Empty optional attributes are elided together with their trailing space;
// the attribute order is fixed: tvg-id, tvg-name, tvg-logo, group-title.
func (w *Writer) WriteEntry(entry *Entry) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w.w, FormatExtinf(entry)); err != nil {
		return fmt.Errorf("writing EXTINF: %w", err)
	}
	if _, err := fmt.Fprintln(w.w, entry.URL); err != nil {
		return fmt.Errorf("writing URL: %w", err)
	}

	return nil
}

// FormatExtinf renders the EXTINF line for an entry, without the URL line.
func FormatExtinf(entry *Entry) string {
	duration := entry.Duration
	if duration == 0 {
		duration = -1 // live stream
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#EXTINF:%d ", duration)
	if entry.TvgID != "" {
		fmt.Fprintf(&b, `tvg-id="%s" `, entry.TvgID)
	}
	if entry.TvgName != "" {
		fmt.Fprintf(&b, `tvg-name="%s" `, entry.TvgName)
	}
	if entry.TvgLogo != "" {
		fmt.Fprintf(&b, `tvg-logo="%s" `, entry.TvgLogo)
	}
	fmt.Fprintf(&b, `group-title="%s",%s`, entry.GroupTitle, entry.Title)
	return b.String()
}
