// Package view implements the centralized single-page view loader: named
// fragments are fetched once, cached for the lifetime of the session, and
// swapped with mutually-exclusive visibility. Lifecycle signals let
// independently-wired view controllers react to navigation.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openclinic/ehr-shell/internal/bus"
	"github.com/openclinic/ehr-shell/internal/fragment"
	"github.com/openclinic/ehr-shell/internal/observability/metrics"
	"github.com/openclinic/ehr-shell/pkg/logging"
)

// ErrNotCached is returned by ShowView for names that were never loaded.
var ErrNotCached = errors.New("view: not cached")

// Host receives the markup of the view being revealed. Rendering itself is
// an external concern; the host is only told what the active view is.
type Host interface {
	Render(name, markup string)
}

// NopHost discards markup, for headless operation.
type NopHost struct{}

func (NopHost) Render(string, string) {}

type entry struct {
	markup  string
	visible bool
}

// Manager loads, caches, and switches named views.
type Manager struct {
	host    Host
	frags   *fragment.Client
	bus     *bus.Bus
	logger  *logging.Logger
	metrics *metrics.NavigationMetrics

	mu      sync.Mutex
	cache   map[string]*entry
	current string
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics attaches navigation metrics.
func WithMetrics(nm *metrics.NavigationMetrics) Option {
	return func(m *Manager) {
		m.metrics = nm
	}
}

// NewManager creates a view manager rendering into host.
func NewManager(host Host, frags *fragment.Client, b *bus.Bus, opts ...Option) *Manager {
	if host == nil {
		host = NopHost{}
	}
	m := &Manager{
		host:   host,
		frags:  frags,
		bus:    b,
		logger: logging.Default(),
		cache:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadView reveals the named view. A cached name is revealed without any
// network access unless force is set; otherwise the fragment is fetched
// from sourceURL and replaces whatever was cached under that name. A failed
// fetch leaves the previous cache entry (if any) intact.
func (m *Manager) LoadView(ctx context.Context, name, sourceURL string, force bool) error {
	m.mu.Lock()
	e, cached := m.cache[name]
	m.mu.Unlock()

	if cached && !force {
		m.metrics.ObserveViewReveal(name, "cache")
		m.reveal(name, e.markup, false)
		return nil
	}

	start := time.Now()
	markup, err := m.frags.FetchURL(ctx, sourceURL)
	if err != nil {
		m.metrics.ObserveFragmentFetch(name, "error", time.Since(start).Seconds())
		m.logger.Error("view fragment load failed", "view", name, "url", sourceURL, "error", err)
		return fmt.Errorf("view: load %s: %w", name, err)
	}
	m.metrics.ObserveFragmentFetch(name, "ok", time.Since(start).Seconds())
	m.metrics.ObserveViewReveal(name, "network")

	m.mu.Lock()
	m.cache[name] = &entry{markup: markup}
	m.mu.Unlock()

	m.reveal(name, markup, true)
	return nil
}

// ShowView reveals an already-cached view without network access.
func (m *Manager) ShowView(name string) error {
	m.mu.Lock()
	e, cached := m.cache[name]
	m.mu.Unlock()
	if !cached {
		return fmt.Errorf("%w: %s", ErrNotCached, name)
	}
	m.metrics.ObserveViewReveal(name, "cache")
	m.reveal(name, e.markup, false)
	return nil
}

// reveal makes name the single visible view and fires lifecycle signals:
// "loaded" only on fresh fetches, then always "shown".
func (m *Manager) reveal(name, markup string, loaded bool) {
	m.mu.Lock()
	for n, e := range m.cache {
		e.visible = n == name
	}
	m.current = name
	m.mu.Unlock()

	m.host.Render(name, markup)

	if loaded {
		m.bus.Publish(bus.Event{Signal: bus.ViewLoaded, View: name})
	}
	m.bus.Publish(bus.Event{Signal: bus.ViewShown, View: name})
}

// Current returns the name of the visible view, or "".
func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// IsCached reports whether a view has been loaded this session.
func (m *Manager) IsCached(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.cache[name]
	return ok
}

// Visible reports whether the named view is the active one.
func (m *Manager) Visible(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.cache[name]
	return ok && e.visible
}

// VisibleCount returns how many cached views are currently marked visible.
func (m *Manager) VisibleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.cache {
		if e.visible {
			count++
		}
	}
	return count
}
