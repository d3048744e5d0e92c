// Package plugins provides the built-in fetch plugins and the registry that
// turns a connector's plugin list into rest.Plugin values.
package plugins

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/polku/rest_connector/internal/models"
	"github.com/polku/rest_connector/internal/rest"
)

// Factory builds a plugin from its free-form settings.
type Factory func(settings map[string]interface{}) (rest.Plugin, error)

// Registry maps plugin names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in plugins.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(HeadersPluginName, NewHeaders)
	r.Register(RequestIDPluginName, NewRequestID)
	r.Register(RetryPluginName, NewRetry)
	r.Register(HTMLPluginName, NewHTML)
	return r
}

// Register adds or replaces the factory for name. Names are case-insensitive.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[normalize(name)] = factory
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates specs in order. An unknown name or invalid settings
// fail the whole list.
func (r *Registry) Build(specs []models.PluginSpec) ([]rest.Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]rest.Plugin, 0, len(specs))
	for i, spec := range specs {
		factory, ok := r.factories[normalize(spec.Name)]
		if !ok {
			return nil, fmt.Errorf("plugin #%d: unknown plugin %q (available: %s)", i, spec.Name, strings.Join(r.namesLocked(), ", "))
		}
		p, err := factory(spec.Config)
		if err != nil {
			return nil, fmt.Errorf("plugin #%d (%s): %w", i, spec.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

var defaultRegistry = NewRegistry()

// Build instantiates specs with the built-in registry.
func Build(specs []models.PluginSpec) ([]rest.Plugin, error) {
	return defaultRegistry.Build(specs)
}
