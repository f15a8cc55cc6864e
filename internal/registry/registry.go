// Package registry stores validated channels grouped by category and
// serializes them to the TXT and M3U live-source formats.
package registry

import (
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/jmylchreest/checkarr/internal/category"
	"github.com/jmylchreest/checkarr/internal/models"
	"github.com/jmylchreest/checkarr/pkg/m3u"
)

// EPG carries the guide profile stamped into M3U headers, plus an optional
// domain that logo URLs are rewritten onto.
type EPG struct {
	File   string
	Source string
	Domain string
}

// Registry is a concurrency-safe grouped channel store.
type Registry struct {
	mu     sync.Mutex
	cats   *category.Manager
	order  []string
	groups map[string]*models.ChannelList
	epg    *EPG
}

// New creates an empty registry classifying through cats.
func New(cats *category.Manager) *Registry {
	return &Registry{
		cats:   cats,
		groups: make(map[string]*models.ChannelList),
	}
}

// Categories exposes the category manager used for classification.
func (r *Registry) Categories() *category.Manager {
	return r.cats
}

// SetEPG configures the guide profile. An empty domain disables logo
// rewriting.
func (r *Registry) SetEPG(file, source, domain string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epg = &EPG{File: file, Source: source, Domain: domain}
}

// LogoURL rewrites the logo basename onto the EPG domain when one is
// configured, else returns the source logo unchanged.
func (r *Registry) LogoURL(src string) string {
	r.mu.Lock()
	epg := r.epg
	r.mu.Unlock()
	if epg == nil || epg.Domain == "" || src == "" {
		return src
	}
	return fmt.Sprintf("%s/%s", epg.Domain, path.Base(src))
}

// Add classifies and places a channel endpoint. The category manager
// resolves the group; excluded channels are dropped without creating the
// group.
func (r *Registry) Add(groupHint, channelName, url, id, logo string) {
	desc := r.cats.Resolve(channelName, groupHint)
	if desc == nil || r.cats.IsExcluded(desc, channelName) {
		return
	}
	r.group(desc.Name).Add(channelName, url, id, logo)
}

// AddChannel places an existing channel directly; the group defaults to the
// channel's own title when empty.
func (r *Registry) AddChannel(group string, ch *models.Channel) {
	if group == "" {
		group = ch.Title()
	}
	r.group(group).AddChannel(ch)
}

func (r *Registry) group(name string) *models.ChannelList {
	r.mu.Lock()
	defer r.mu.Unlock()
	list, ok := r.groups[name]
	if !ok {
		list = models.NewChannelList()
		r.groups[name] = list
		r.order = append(r.order, name)
	}
	return list
}

// Sort reorders groups into canonical category order; unknown groups keep
// insertion order after the known ones.
func (r *Registry) Sort() {
	index := make(map[string]int)
	for i, name := range r.cats.Groups() {
		index[name] = i
	}
	unknown := len(index)

	r.mu.Lock()
	defer r.mu.Unlock()
	sort.SliceStable(r.order, func(i, j int) bool {
		a, ok := index[r.order[i]]
		if !ok {
			a = unknown
		}
		b, ok := index[r.order[j]]
		if !ok {
			b = unknown
		}
		return a < b
	})
}

// TotalCount sums endpoint counts across non-ignored groups.
func (r *Registry) TotalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for name, list := range r.groups {
		if r.cats.IsIgnored(name) {
			continue
		}
		total += list.Count()
	}
	return total
}

// Groups returns the group names in current order.
func (r *Registry) Groups() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// ChannelList returns the named group's channels, or an empty list when the
// group is absent.
func (r *Registry) ChannelList(name string) *models.ChannelList {
	r.mu.Lock()
	defer r.mu.Unlock()
	if list, ok := r.groups[name]; ok {
		return list
	}
	return models.NewChannelList()
}

// ChannelIDs returns the sorted flat list of non-empty channel identifiers.
func (r *Registry) ChannelIDs() []string {
	r.mu.Lock()
	lists := make([]*models.ChannelList, 0, len(r.groups))
	for _, list := range r.groups {
		lists = append(lists, list)
	}
	r.mu.Unlock()

	var ids []string
	for _, list := range lists {
		ids = append(ids, list.IDs()...)
	}
	sort.Strings(ids)
	return ids
}

// Clear drops every group and the EPG profile.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.groups = make(map[string]*models.ChannelList)
	r.epg = nil
}

func (r *Registry) snapshot() (order []string, groups map[string]*models.ChannelList, epg *EPG) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order = make([]string, len(r.order))
	copy(order, r.order)
	groups = make(map[string]*models.ChannelList, len(r.groups))
	for name, list := range r.groups {
		groups[name] = list
	}
	return order, groups, r.epg
}

func (r *Registry) m3uHeader(epg *EPG) string {
	if epg == nil {
		return m3u.Header(nil)
	}
	return m3u.Header(&m3u.EPG{File: epg.File, Source: epg.Source})
}

// SerializeTXT renders every group as a TXT block: header line, channel
// lines, blank separator.
func (r *Registry) SerializeTXT() string {
	order, groups, _ := r.snapshot()
	var parts []string
	for _, name := range order {
		parts = append(parts, fmt.Sprintf("%s,#genre#", name))
		parts = append(parts, groups[name].TXT())
		parts = append(parts, "")
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// SerializeM3U renders the playlist with header and every group's records.
func (r *Registry) SerializeM3U() string {
	order, groups, epg := r.snapshot()
	parts := []string{r.m3uHeader(epg)}
	for _, name := range order {
		parts = append(parts, groups[name].M3U(name))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// WriteTXT streams the TXT serialization to w.
func (r *Registry) WriteTXT(w io.Writer) error {
	order, groups, _ := r.snapshot()
	for _, name := range order {
		if _, err := fmt.Fprintf(w, "%s,#genre#\n", name); err != nil {
			return err
		}
		if _, err := io.WriteString(w, groups[name].TXT()); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n\n"); err != nil {
			return err
		}
	}
	return nil
}

// WriteM3U streams the M3U serialization to w.
func (r *Registry) WriteM3U(w io.Writer) error {
	order, groups, epg := r.snapshot()
	if _, err := fmt.Fprintf(w, "%s\n", r.m3uHeader(epg)); err != nil {
		return err
	}
	for _, name := range order {
		if _, err := io.WriteString(w, groups[name].M3U(name)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}
