// Package models holds the core domain types: interned stream endpoints,
// channels with their endpoint sets, and asynchronous task records.
package models

import (
	"math"
	"sync"
)

// Endpoint is one URL serving a channel's stream, together with its measured
// throughput. Endpoints are interned process-wide by URL: two observations of
// the same URL share one instance, so a speed measured during validation is
// visible to every channel holding the endpoint.
type Endpoint struct {
	mu         sync.Mutex
	url        string
	speed      float64 // KB/s, rounded to 1 decimal
	resolution string
}

var (
	internMu sync.Mutex
	interned = make(map[string]*Endpoint)
)

// InternEndpoint returns the canonical Endpoint for url, creating it on
// first observation. The intern table is never evicted.
func InternEndpoint(url string) *Endpoint {
	internMu.Lock()
	defer internMu.Unlock()

	if ep, ok := interned[url]; ok {
		return ep
	}
	ep := &Endpoint{url: url}
	interned[url] = ep
	return ep
}

// NewEndpoint interns url and applies any non-default attributes to the
// canonical instance: a non-zero speed overwrites, a non-empty resolution
// overwrites.
func NewEndpoint(url string, speed float64, resolution string) *Endpoint {
	ep := InternEndpoint(url)
	if speed != 0 {
		ep.SetSpeed(speed)
	}
	if resolution != "" {
		ep.SetResolution(resolution)
	}
	return ep
}

// ClearInterned drops the whole intern table. Intended for tests and full
// registry resets.
func ClearInterned() {
	internMu.Lock()
	defer internMu.Unlock()
	interned = make(map[string]*Endpoint)
}

// URL returns the endpoint's current URL.
func (e *Endpoint) URL() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.url
}

// SetURL rewrites the URL in place. Used when a probe follows a variant
// manifest; the intern table keeps its original key.
func (e *Endpoint) SetURL(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.url = url
}

// Speed returns the measured throughput in KB/s (0 when unmeasured).
func (e *Endpoint) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed stores the throughput, rounded to 1 decimal.
func (e *Endpoint) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = math.Round(speed*10) / 10
}

// Resolution returns the optional resolution string.
func (e *Endpoint) Resolution() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolution
}

// SetResolution stores the resolution string.
func (e *Endpoint) SetResolution(resolution string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resolution = resolution
}
