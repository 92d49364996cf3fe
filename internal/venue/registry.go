// Package venue provides REST clients for the external exchanges consulted by
// the ticker aggregator, behind an explicit registry of venue identifiers.
package venue

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/seedliq/makerbot/internal/domain"
)

// Factory constructs a venue client with the given per-call timeout.
type Factory func(timeout time.Duration) domain.VenueClient

// Registry maps venue identifiers to client factories. Venues are registered
// at startup; lookups afterwards are read-only and safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under the given venue identifier. An existing
// factory with the same identifier is replaced.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// New constructs a client for the given venue identifier. It returns an error
// when the identifier is not registered.
func (r *Registry) New(name string, timeout time.Duration) (domain.VenueClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("venue %q: not registered", name)
	}
	return f(timeout), nil
}

// Build constructs clients for every identifier in names, preserving order.
// An unknown identifier fails the whole build; misconfiguration should
// surface at startup, not as a silently missing venue.
func (r *Registry) Build(names []string, timeout time.Duration) ([]domain.VenueClient, error) {
	clients := make([]domain.VenueClient, 0, len(names))
	for _, name := range names {
		c, err := r.New(name, timeout)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, nil
}

// List returns the registered venue identifiers in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a Registry pre-populated with every venue client this
// package ships.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register("binance", func(timeout time.Duration) domain.VenueClient {
		return NewBinance(timeout)
	})
	r.Register("kraken", func(timeout time.Duration) domain.VenueClient {
		return NewKraken(timeout)
	})
	r.Register("kucoin", func(timeout time.Duration) domain.VenueClient {
		return NewKucoin(timeout)
	})
	return r
}
