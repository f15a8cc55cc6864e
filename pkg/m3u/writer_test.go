package m3u

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriter_WriteEntry(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.WriteEntry(&Entry{
		TvgID:      "1",
		TvgName:    "CCTV1综合",
		TvgLogo:    "http://logo.example.com/cctv1.png",
		GroupTitle: "央视频道",
		Title:      "CCTV1综合",
		URL:        "http://example.com/cctv1.m3u8",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "#EXTM3U\n" +
		`#EXTINF:-1 tvg-id="1" tvg-name="CCTV1综合" tvg-logo="http://logo.example.com/cctv1.png" group-title="央视频道",CCTV1综合` + "\n" +
		"http://example.com/cctv1.m3u8\n"
	if buf.String() != want {
		t.Errorf("output mismatch:\ngot:  %q\nwant: %q", buf.String(), want)
	}
}

func TestWriter_ElidesEmptyAttributes(t *testing.T) {
	line := FormatExtinf(&Entry{
		TvgName:    "CCTV1",
		GroupTitle: "央视频道",
		Title:      "CCTV1",
	})

	want := `#EXTINF:-1 tvg-name="CCTV1" group-title="央视频道",CCTV1`
	if line != want {
		t.Errorf("got %q, want %q", line, want)
	}
	if strings.Contains(line, "tvg-id") || strings.Contains(line, "tvg-logo") {
		t.Error("empty attributes must be elided")
	}
}

func TestWriter_EPGHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriterWithEPG(&buf, &EPG{File: "epg.xml", Source: "http://epg.example.com/catchup"})
	if err := w.WriteHeader(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `#EXTM3U x-tvg-url="epg.xml" catchup="append" catchup-source="http://epg.example.com/catchup"` + "\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriter_HeaderWrittenOnce(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	entry := &Entry{GroupTitle: "g", Title: "t", URL: "http://example.com/a.m3u8"}

	if err := w.WriteEntry(entry); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteEntry(entry); err != nil {
		t.Fatal(err)
	}

	if got := strings.Count(buf.String(), "#EXTM3U"); got != 1 {
		t.Errorf("header written %d times, want 1", got)
	}
}

func TestRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	in := &Entry{
		Duration:   -1,
		TvgID:      "12",
		TvgName:    "湖南卫视",
		GroupTitle: "卫视频道",
		Title:      "湖南卫视",
		URL:        "http://example.com/hntv.m3u8",
	}
	if err := w.WriteEntry(in); err != nil {
		t.Fatal(err)
	}

	entries, err := ParseAll(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	out := entries[0]
	if out.TvgID != in.TvgID || out.TvgName != in.TvgName ||
		out.GroupTitle != in.GroupTitle || out.Title != in.Title || out.URL != in.URL {
		t.Errorf("round trip mismatch: %+v vs %+v", out, in)
	}
}
