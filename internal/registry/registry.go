package registry

import (
	"fmt"
	"sync"

	"github.com/nfrund/tavern/internal/config"
)

// Key is a typed registry key, e.g. Key[*engine.Engine]("table.engine").
type Key[T any] string

// Registry lets modules share services at runtime. It is safe for concurrent use.
type Registry struct {
	services sync.Map
	cfg      config.Provider
}

// New creates a registry holding the application configuration.
func New(cfg config.Provider) *Registry {
	return &Registry{cfg: cfg}
}

// Config returns the configuration provider.
func (r *Registry) Config() config.Provider {
	return r.cfg
}

// Set registers value under key.
func Set[T any](r *Registry, key Key[T], value T) {
	r.services.Store(string(key), value)
}

// Get returns the service registered under key.
func Get[T any](r *Registry, key Key[T]) (T, bool) {
	var zero T
	val, ok := r.services.Load(string(key))
	if !ok {
		return zero, false
	}
	result, ok := val.(T)
	if !ok {
		return zero, false
	}
	return result, true
}

// MustGet is Get that panics when the service is missing. Use it for
// wiring at startup only.
func MustGet[T any](r *Registry, key Key[T]) T {
	val, ok := Get(r, key)
	if !ok {
		panic(fmt.Sprintf("service not found for key: %s", string(key)))
	}
	return val
}
