// Package ingest loads channel data into the registry from TXT lists, M3U
// playlists, and remote sitemaps. Parsed names pass through the alias
// tables so variant spellings land on one canonical channel.
package ingest

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jmylchreest/checkarr/internal/category"
	"github.com/jmylchreest/checkarr/internal/config"
	"github.com/jmylchreest/checkarr/internal/httpclient"
	"github.com/jmylchreest/checkarr/internal/observability"
	"github.com/jmylchreest/checkarr/internal/registry"
	"github.com/jmylchreest/checkarr/pkg/m3u"
)

// genreSuffix marks a TXT line that declares a category.
const genreSuffix = "#genre#"

// categoryCleanPattern strips icon glyphs, box drawing, CJK punctuation and
// the genre delimiter characters from a category line.
var categoryCleanPattern = regexp.MustCompile(`[\x{1F000}-\x{1FFFF}\x{2500}-\x{2BEF}\x{2E00}-\x{2E7F}\x{3000}-\x{3300},#genre\s]+`)

// CleanCategory normalizes a raw category line to its bare name.
func CleanCategory(raw string) string {
	return strings.TrimSpace(categoryCleanPattern.ReplaceAllString(raw, " "))
}

// Triple is one parsed (category, channel, url) record.
type Triple struct {
	Category string
	Name     string
	URL      string
}

// Loader feeds parsed channel data into a registry.
type Loader struct {
	cfg      config.SourcesConfig
	client   *httpclient.Client
	registry *registry.Registry
	logger   *slog.Logger
}

// New creates a loader bound to a registry.
func New(cfg config.SourcesConfig, client *httpclient.Client, reg *registry.Registry, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = httpclient.NewWithDefaults()
	}
	return &Loader{
		cfg:      cfg,
		client:   client,
		registry: reg,
		logger:   observability.WithComponent(logger, "ingest"),
	}
}

// LoadTXT ingests TXT channel data. Genre lines switch the current
// category; unknown categories drop their channels, and useIgnore
// additionally drops the ignored ones. Malformed lines are skipped.
func (l *Loader) LoadTXT(text string, useIgnore bool) {
	cats := l.registry.Categories()
	current := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, genreSuffix) {
			current = ""
			name := CanonicalCategory(CleanCategory(line))
			if name == "" || (useIgnore && cats.IsIgnored(name)) {
				continue
			}
			if cats.Exists(name) {
				current = name
			}
			continue
		}

		if current == "" {
			continue
		}
		name, url, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		url = strings.TrimSpace(url)
		if url == "" {
			continue
		}
		l.registry.Add(current, CanonicalChannel(strings.TrimSpace(name)), url, "", "")
	}
}

// LoadM3U ingests extended M3U data. Group titles resolve through the
// category aliases; entries in unknown or ignored categories are dropped.
// Logos are rewritten onto the EPG domain when one is configured.
func (l *Loader) LoadM3U(r io.Reader) error {
	cats := l.registry.Categories()

	parser := &m3u.Parser{
		OnEntry: func(entry *m3u.Entry) error {
			group := CanonicalCategory(entry.GroupTitle)
			if group == "" || cats.IsIgnored(group) || !cats.Exists(group) {
				return nil
			}
			name := CanonicalChannel(entry.Title)
			l.registry.Add(group, name, entry.URL, entry.TvgID, l.registry.LogoURL(entry.TvgLogo))
			return nil
		},
		OnError: func(lineNum int, err error) {
			l.logger.Debug("skipping malformed playlist line",
				slog.Int("line", lineNum), slog.Any("error", err))
		},
	}
	return parser.ParseCompressed(r)
}

// LoadRemoteTXT fetches a TXT source and ingests it. Fetch failures are
// logged and swallowed so one dead source never aborts a whole run.
func (l *Loader) LoadRemoteTXT(ctx context.Context, url string, useIgnore bool) {
	text, err := l.fetchText(ctx, url)
	if err != nil {
		observability.WithError(l.logger, err).Error("remote source fetch failed", slog.String("url", url))
		return
	}
	l.LoadTXT(text, useIgnore)
}

// LoadSitemap fetches an XML sitemap, ingests every <loc> ending iptv4.txt
// as a TXT source with the ignore filter on, appends the configured live
// source with the filter off, and sorts the registry. A sitemap-level error
// is returned to the caller.
func (l *Loader) LoadSitemap(ctx context.Context, url string) error {
	body, err := l.fetchText(ctx, url)
	if err != nil {
		return fmt.Errorf("fetching sitemap: %w", err)
	}

	locs, err := sitemapLocs(strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("parsing sitemap: %w", err)
	}

	for _, loc := range locs {
		if !strings.HasSuffix(loc, "iptv4.txt") {
			continue
		}
		l.LoadRemoteTXT(ctx, loc, true)
	}

	if l.cfg.LiveURL != "" {
		l.LoadRemoteTXT(ctx, l.cfg.LiveURL, false)
	}
	l.registry.Sort()
	return nil
}

func (l *Loader) fetchText(ctx context.Context, url string) (string, error) {
	resp, err := l.client.Get(ctx, url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// sitemapLocs collects the text of every <loc> element, whatever the
// surrounding document shape.
func sitemapLocs(r io.Reader) ([]string, error) {
	var locs []string
	decoder := xml.NewDecoder(r)
	inLoc := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			return locs, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inLoc = t.Name.Local == "loc"
		case xml.EndElement:
			inLoc = false
		case xml.CharData:
			if inLoc {
				if loc := strings.TrimSpace(string(t)); loc != "" {
					locs = append(locs, loc)
				}
			}
		}
	}
}

// Triples parses TXT data into classified (category, name, url) records
// without touching a registry. Channels resolve against cats with the
// current genre as hint; excluded channels are dropped.
func Triples(text string, cats *category.Manager) []Triple {
	var triples []Triple
	hint := ""
	active := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, genreSuffix) {
			hint = CleanCategory(strings.TrimSuffix(line, genreSuffix))
			active = hint != ""
			continue
		}
		if !active {
			continue
		}

		name, url, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if url == "" {
			continue
		}

		desc := cats.Resolve(name, hint)
		if desc == nil || cats.IsExcluded(desc, name) {
			continue
		}
		triples = append(triples, Triple{Category: desc.Name, Name: name, URL: url})
	}
	return triples
}
