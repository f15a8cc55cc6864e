// Package convert performs TXT↔M3U round-trips through a transient
// registry, so both directions share the category resolution and
// serialization rules of the live data path.
package convert

import (
	"log/slog"
	"strings"

	"github.com/jmylchreest/checkarr/internal/category"
	"github.com/jmylchreest/checkarr/internal/ingest"
	"github.com/jmylchreest/checkarr/internal/observability"
	"github.com/jmylchreest/checkarr/internal/registry"
	"github.com/jmylchreest/checkarr/pkg/m3u"
)

// Converter translates channel lists between TXT and M3U.
type Converter struct {
	cats   *category.Manager
	logger *slog.Logger
}

// New creates a converter classifying against cats.
func New(cats *category.Manager, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		cats:   cats,
		logger: observability.WithComponent(logger, "convert"),
	}
}

// TXTToM3U renders TXT channel data as an extended M3U playlist. Groups are
// preserved through category resolution; channels under an unknown genre
// land in the uncategorized group rather than being dropped.
func (c *Converter) TXTToM3U(text string) string {
	reg := registry.New(c.cats)
	current := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, "#genre#") {
			current = ingest.CanonicalCategory(ingest.CleanCategory(line))
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
		reg.Add(current, ingest.CanonicalChannel(strings.TrimSpace(name)), url, "", "")
	}

	return reg.SerializeM3U()
}

// M3UToTXT renders an extended M3U playlist as TXT channel data, keeping
// group-title as the classification hint. Garbage input yields an empty
// string.
func (c *Converter) M3UToTXT(text string) string {
	reg := registry.New(c.cats)

	err := m3u.ParseString(text, func(entry *m3u.Entry) error {
		reg.Add(entry.GroupTitle, ingest.CanonicalChannel(entry.Title), entry.URL, entry.TvgID, entry.TvgLogo)
		return nil
	})
	if err != nil {
		observability.WithError(c.logger, err).Error("playlist parse failed")
		return ""
	}

	return reg.SerializeTXT()
}
