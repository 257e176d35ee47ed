// Package endpoint keeps the ordered list of translation backends and decides
// which one is tried first.
package endpoint

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/valpere/bolcha/internal/logging"
)

// FailThreshold is the number of consecutive fully failed rounds after which
// the primary endpoint advances to the next enabled one.
const FailThreshold = 2

// Endpoint is one translation backend.
type Endpoint struct {
	URL     string `mapstructure:"url" json:"url" yaml:"url"`
	Enabled bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
}

// Registry is safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	endpoints  []Endpoint
	primary    int
	failStreak int
	log        logrus.FieldLogger
}

// NewRegistry returns a registry seeded with urls, all enabled.
func NewRegistry(urls []string, log logrus.FieldLogger) *Registry {
	r := &Registry{log: logging.OrDiscard(log)}
	r.Configure(urls)
	return r
}

// Configure replaces the endpoint list with urls, all enabled, and resets the
// primary index and fail streak.
func (r *Registry) Configure(urls []string) {
	eps := make([]Endpoint, 0, len(urls))
	for _, u := range urls {
		if u == "" {
			continue
		}
		eps = append(eps, Endpoint{URL: u, Enabled: true})
	}
	r.ConfigureEndpoints(eps)
}

// ConfigureEndpoints replaces the endpoint list wholesale, keeping each
// entry's enabled flag.
func (r *Registry) ConfigureEndpoints(eps []Endpoint) {
	cp := make([]Endpoint, len(eps))
	copy(cp, eps)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints = cp
	r.primary = 0
	r.failStreak = 0
	r.log.WithField("count", len(cp)).Info("translation endpoints configured")
}

// All returns every configured endpoint, enabled or not.
func (r *Registry) All() []Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Endpoint, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// Active returns the enabled endpoints in configured order.
func (r *Registry) Active() []Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLocked()
}

func (r *Registry) activeLocked() []Endpoint {
	out := make([]Endpoint, 0, len(r.endpoints))
	for _, e := range r.endpoints {
		if e.Enabled {
			out = append(out, e)
		}
	}
	return out
}

// Primary returns the index into Active of the endpoint tried first.
func (r *Registry) Primary() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.primary
}

// Snapshot returns the active list and primary index under one lock so a
// round sees a consistent view.
func (r *Registry) Snapshot() ([]Endpoint, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	active := r.activeLocked()
	primary := r.primary
	if primary >= len(active) {
		primary = 0
	}
	return active, primary
}

// FailStreak returns the number of consecutive fully failed rounds.
func (r *Registry) FailStreak() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failStreak
}

// ReportSuccess promotes the endpoint at index to primary.
func (r *Registry) ReportSuccess(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.activeLocked()) {
		return
	}
	r.primary = index
	r.failStreak = 0
}

// ReportRoundFailure records a round in which every endpoint failed.
func (r *Registry) ReportRoundFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failStreak++
	if r.failStreak < FailThreshold {
		return
	}
	n := len(r.activeLocked())
	if n > 0 {
		r.primary = (r.primary + 1) % n
	}
	r.failStreak = 0
	r.log.WithField("primary", r.primary).Warn("rotating primary translation endpoint")
}
