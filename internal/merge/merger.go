// Package merge selects the stream hosts carrying the most channels and
// renders the retained channels grouped by category.
package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmylchreest/checkarr/internal/category"
	"github.com/jmylchreest/checkarr/internal/ingest"
)

const statDivider = "#========================"

// HostCount pairs a host with the number of channels it serves.
type HostCount struct {
	Host  string
	Count int
}

// Merger filters channel triples down to the busiest hosts.
type Merger struct {
	triples   []ingest.Triple
	cats      *category.Manager
	hostCache map[string]string
	counts    map[string]int
}

// New creates a merger over triples. Host extraction results are cached by
// URL.
func New(triples []ingest.Triple, cats *category.Manager) *Merger {
	return &Merger{
		triples:   triples,
		cats:      cats,
		hostCache: make(map[string]string),
	}
}

// hostOf extracts the host (domain or IP, with port) between the URL's
// scheme separator and the next slash. Empty when the URL has no "//".
func (m *Merger) hostOf(url string) string {
	if host, ok := m.hostCache[url]; ok {
		return host
	}
	host := ""
	if _, rest, ok := strings.Cut(url, "//"); ok {
		host, _, _ = strings.Cut(rest, "/")
	}
	m.hostCache[url] = host
	return host
}

func (m *Merger) hostCounts() map[string]int {
	if m.counts != nil {
		return m.counts
	}
	m.counts = make(map[string]int)
	for _, t := range m.triples {
		if host := m.hostOf(t.URL); host != "" {
			m.counts[host]++
		}
	}
	return m.counts
}

// TopHosts returns the n hosts serving the most channels, ordered by count
// descending with host name as a deterministic tie-break.
func (m *Merger) TopHosts(n int) []HostCount {
	counts := m.hostCounts()
	hosts := make([]HostCount, 0, len(counts))
	for host, count := range counts {
		hosts = append(hosts, HostCount{Host: host, Count: count})
	}
	sort.Slice(hosts, func(i, j int) bool {
		if hosts[i].Count != hosts[j].Count {
			return hosts[i].Count > hosts[j].Count
		}
		return hosts[i].Host < hosts[j].Host
	})
	if n < len(hosts) {
		hosts = hosts[:n]
	}
	return hosts
}

// Format renders the merged output: a host statistics block followed by the
// retained channels grouped by category in first-appearance order. A triple
// survives when its host is in the top n or its category is ignored.
func (m *Merger) Format(n int) string {
	top := m.TopHosts(n)
	topSet := make(map[string]bool, len(top))
	for _, hc := range top {
		topSet[hc.Host] = true
	}

	var order []string
	grouped := make(map[string][]ingest.Triple)
	for _, t := range m.triples {
		if !topSet[m.hostOf(t.URL)] && !m.cats.IsIgnored(t.Category) {
			continue
		}
		if _, ok := grouped[t.Category]; !ok {
			order = append(order, t.Category)
		}
		grouped[t.Category] = append(grouped[t.Category], t)
	}

	lines := []string{statDivider}
	for _, hc := range top {
		lines = append(lines, fmt.Sprintf("#%s: %d", hc.Host, hc.Count))
	}
	lines = append(lines, statDivider)

	for _, cat := range order {
		icon := ""
		if desc := m.cats.Get(cat); desc != nil {
			icon = desc.Icon
		}
		lines = append(lines, fmt.Sprintf("%s%s,#genre#", icon, cat))
		for _, t := range grouped[cat] {
			lines = append(lines, fmt.Sprintf("%s,%s", t.Name, t.URL))
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
