// Package category classifies channels into display groups. Descriptors come
// from an embedded default set and can be replaced by a YAML file referenced
// in configuration. Explicit channel bindings dominate parse-time group
// hints, and an exclusion list (with a "*" wildcard) lets a group reject
// channels outside its binding list.
package category

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// UncategorizedName is the fallback group for channels no descriptor claims.
const UncategorizedName = "未分类组"

// Descriptor describes one channel group.
type Descriptor struct {
	Name string `yaml:"name"`
	Icon string `yaml:"icon"`
	// Channels binds the listed channel names to this group regardless of
	// any parse-time hint.
	Channels []string `yaml:"channels,omitempty"`
	// Excludes rejects the listed channel names; the "*" sentinel rejects
	// everything outside Channels.
	Excludes []string `yaml:"excludes,omitempty"`
}

type descriptorFile struct {
	Categories []*Descriptor `yaml:"categories"`
	Ignore     []string      `yaml:"ignore"`
}

// Manager holds the descriptor set in canonical order with an
// explicit-binding index.
type Manager struct {
	mu      sync.Mutex
	order   []string
	byName  map[string]*Descriptor
	binding map[string]string
	ignored map[string]bool
}

// NewManager constructs a manager from the embedded defaults.
func NewManager() *Manager {
	m, err := newFromYAML(defaultsYAML)
	if err != nil {
		// The embedded descriptor set is validated by tests; a parse
		// failure here is a build defect.
		panic(fmt.Sprintf("category: embedded defaults invalid: %v", err))
	}
	return m
}

// NewManagerFromFile constructs a manager from a YAML descriptor file.
func NewManagerFromFile(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category file: %w", err)
	}
	m, err := newFromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parsing category file %s: %w", path, err)
	}
	return m, nil
}

func newFromYAML(data []byte) (*Manager, error) {
	var f descriptorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	m := &Manager{
		byName:  make(map[string]*Descriptor),
		binding: make(map[string]string),
		ignored: make(map[string]bool),
	}
	for _, d := range f.Categories {
		if d == nil || d.Name == "" {
			continue
		}
		if _, dup := m.byName[d.Name]; !dup {
			m.order = append(m.order, d.Name)
		}
		m.byName[d.Name] = d
	}
	for _, name := range f.Ignore {
		m.ignored[name] = true
	}
	m.rebuildBindings()
	return m, nil
}

// SetIgnored replaces the ignore list.
func (m *Manager) SetIgnored(names []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignored = make(map[string]bool, len(names))
	for _, name := range names {
		m.ignored[name] = true
	}
}

// rebuildBindings re-derives the channel→category index. Caller holds mu,
// or the manager is still under construction. First category in canonical
// order wins when a channel appears in several binding lists.
func (m *Manager) rebuildBindings() {
	m.binding = make(map[string]string)
	for _, name := range m.order {
		for _, ch := range m.byName[name].Channels {
			if _, taken := m.binding[ch]; !taken {
				m.binding[ch] = name
			}
		}
	}
}

// Resolve returns the descriptor owning channelName. Explicit binding wins;
// otherwise the descriptor named fallback; otherwise the uncategorized group.
func (m *Manager) Resolve(channelName, fallback string) *Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channelName != "" {
		if bound, ok := m.binding[channelName]; ok {
			return m.byName[bound]
		}
	}
	if d, ok := m.byName[fallback]; ok {
		return d
	}
	return m.byName[UncategorizedName]
}

// IsExcluded reports whether the descriptor rejects channelName.
func (m *Manager) IsExcluded(d *Descriptor, channelName string) bool {
	if d == nil {
		return false
	}
	wildcard := false
	for _, ex := range d.Excludes {
		if ex == "*" {
			wildcard = true
			continue
		}
		if ex == channelName {
			return true
		}
	}
	if !wildcard {
		return false
	}
	for _, ch := range d.Channels {
		if ch == channelName {
			return false
		}
	}
	return true
}

// IsIgnored reports whether a group is skipped by totals and the updater.
func (m *Manager) IsIgnored(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ignored[name]
}

// Groups returns the category names in canonical order.
func (m *Manager) Groups() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Exists reports whether the named category is defined.
func (m *Manager) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byName[name]
	return ok
}

// Get returns the named descriptor, or nil.
func (m *Manager) Get(name string) *Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byName[name]
}

// Update adds or replaces descriptors, appending new names to the canonical
// order, and rebuilds the binding index.
func (m *Manager) Update(descriptors map[string]*Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, d := range descriptors {
		if d == nil || name == "" {
			continue
		}
		d.Name = name
		if _, ok := m.byName[name]; !ok {
			m.order = append(m.order, name)
		}
		m.byName[name] = d
	}
	m.rebuildBindings()
}

// Remove drops a descriptor and rebuilds the binding index.
func (m *Manager) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[name]; !ok {
		return
	}
	delete(m.byName, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.rebuildBindings()
}

// Clear drops every descriptor.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.order = nil
	m.byName = make(map[string]*Descriptor)
	m.binding = make(map[string]string)
}
