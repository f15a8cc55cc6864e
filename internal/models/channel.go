package models

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jmylchreest/checkarr/pkg/m3u"
	"github.com/jmylchreest/checkarr/pkg/mixedsort"
)

// DefaultTitle is the group a channel belongs to before classification.
const DefaultTitle = "其他"

// Channel is a named logical station with a deduplicated set of stream
// endpoints. Serialization orders endpoints by ascending speed; insertion
// order is preserved for ties.
type Channel struct {
	mu sync.Mutex

	id    string
	name  string
	logo  string
	title string

	urls []*Endpoint
	seen map[string]*Endpoint
}

// NewChannel creates a channel. The identifier is cleared when it equals the
// name so serialized tvg-id attributes never duplicate the display name.
func NewChannel(id, name string) *Channel {
	if id == name {
		id = ""
	}
	return &Channel{
		id:    id,
		name:  name,
		title: DefaultTitle,
		seen:  make(map[string]*Endpoint),
	}
}

// ID returns the channel identifier ("" when unset or equal to the name).
func (c *Channel) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Name returns the display name.
func (c *Channel) Name() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// SetName assigns the display name, synthesizing "频道-<id>" when empty.
func (c *Channel) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		name = fmt.Sprintf("频道-%s", c.id)
	}
	c.name = name
}

// Logo returns the logo URL ("" when unset).
func (c *Channel) Logo() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.logo
}

// SetLogo assigns the logo URL; empty values are ignored.
func (c *Channel) SetLogo(logo string) {
	if logo == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logo = logo
}

// Title returns the channel's own group title.
func (c *Channel) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// SetTitle assigns the group title; empty values are ignored.
func (c *Channel) SetTitle(title string) {
	if title == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.title = title
}

// AddURL inserts an endpoint with set semantics: a URL already present is
// not added again.
func (c *Channel) AddURL(ep *Endpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url := ep.URL()
	if _, ok := c.seen[url]; ok {
		return
	}
	c.seen[url] = ep
	c.urls = append(c.urls, ep)
}

// RemoveURL prunes an endpoint that failed validation. Removal is by
// instance: probing may rewrite an endpoint's URL after insertion (a master
// playlist resolved to its variant), so the endpoint's current URL cannot be
// trusted as the dedup key it was admitted under.
func (c *Channel) RemoveURL(ep *Endpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, u := range c.urls {
		if u == ep {
			c.urls = append(c.urls[:i], c.urls[i+1:]...)
			for key, admitted := range c.seen {
				if admitted == ep {
					delete(c.seen, key)
					break
				}
			}
			return
		}
	}
}

// URLs returns a snapshot of the endpoint set in insertion order.
func (c *Channel) URLs() []*Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Endpoint, len(c.urls))
	copy(out, c.urls)
	return out
}

// URLCount returns the number of endpoints.
func (c *Channel) URLCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.urls)
}

// SortedURLs returns the endpoints ordered by ascending speed, insertion
// order preserved for equal speeds.
func (c *Channel) SortedURLs() []*Endpoint {
	urls := c.URLs()
	sort.SliceStable(urls, func(i, j int) bool {
		return urls[i].Speed() < urls[j].Speed()
	})
	return urls
}

// TXT renders the channel as "<name>,<url>" lines, one per endpoint.
func (c *Channel) TXT() string {
	name := c.Name()
	lines := make([]string, 0, c.URLCount())
	for _, ep := range c.SortedURLs() {
		lines = append(lines, fmt.Sprintf("%s,%s", name, ep.URL()))
	}
	return strings.Join(lines, "\n")
}

// M3U renders the channel as EXTINF records under the given group title
// (falling back to the channel's own title when empty).
func (c *Channel) M3U(title string) string {
	if title == "" {
		title = c.Title()
	}
	name := c.Name()
	id := c.ID()
	logo := c.Logo()

	lines := make([]string, 0, c.URLCount()*2)
	for _, ep := range c.SortedURLs() {
		lines = append(lines, m3u.FormatExtinf(&m3u.Entry{
			TvgID:      id,
			TvgName:    name,
			TvgLogo:    logo,
			GroupTitle: title,
			Title:      name,
		}))
		lines = append(lines, ep.URL())
	}
	return strings.Join(lines, "\n")
}

// FullBlock renders the TXT lines and the M3U records separated by a ruler.
// Used for single-check output.
func (c *Channel) FullBlock(title string) string {
	return c.TXT() + "\n\n" + strings.Repeat("=", 63) + "\n\n" + c.M3U(title)
}

// ChannelList is an ordered set of channels keyed by display name. Listing
// orders channels by the mixed alpha/number/pinyin sort key.
type ChannelList struct {
	mu       sync.Mutex
	channels map[string]*Channel
}

// NewChannelList creates an empty channel list.
func NewChannelList() *ChannelList {
	return &ChannelList{channels: make(map[string]*Channel)}
}

// Count returns the total number of endpoints across all channels.
func (l *ChannelList) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, ch := range l.channels {
		total += ch.URLCount()
	}
	return total
}

// Len returns the number of channels.
func (l *ChannelList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.channels)
}

// Add fetches or creates the named channel and inserts an interned endpoint
// for url.
func (l *ChannelList) Add(name, url, id, logo string) {
	l.mu.Lock()
	ch, ok := l.channels[name]
	if !ok {
		ch = NewChannel(id, name)
		l.channels[name] = ch
	}
	l.mu.Unlock()

	ch.SetLogo(logo)
	ch.AddURL(InternEndpoint(url))
}

// AddChannel places an existing channel, replacing any channel with the
// same name.
func (l *ChannelList) AddChannel(ch *Channel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.channels[ch.Name()] = ch
}

// Get returns the named channel, or nil when absent.
func (l *ChannelList) Get(name string) *Channel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.channels[name]
}

// Remove drops the named channel.
func (l *ChannelList) Remove(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.channels, name)
}

// Names returns the channel names in map order.
func (l *ChannelList) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.channels))
	for name := range l.channels {
		names = append(names, name)
	}
	return names
}

// IDs returns the non-empty channel identifiers.
func (l *ChannelList) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.channels))
	for _, ch := range l.channels {
		if id := ch.ID(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Sorted returns the channels ordered by mixed sort key over their names.
func (l *ChannelList) Sorted() []*Channel {
	l.mu.Lock()
	channels := make([]*Channel, 0, len(l.channels))
	for _, ch := range l.channels {
		channels = append(channels, ch)
	}
	l.mu.Unlock()

	keys := make(map[*Channel]mixedsort.Key, len(channels))
	for _, ch := range channels {
		keys[ch] = mixedsort.NewKey(ch.Name())
	}
	sort.SliceStable(channels, func(i, j int) bool {
		return keys[channels[i]].Compare(keys[channels[j]]) < 0
	})
	return channels
}

// TXT renders every channel's TXT lines in sorted order.
func (l *ChannelList) TXT() string {
	var parts []string
	for _, ch := range l.Sorted() {
		if s := ch.TXT(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// M3U renders every channel's M3U records in sorted order under title.
func (l *ChannelList) M3U(title string) string {
	var parts []string
	for _, ch := range l.Sorted() {
		if s := ch.M3U(title); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
