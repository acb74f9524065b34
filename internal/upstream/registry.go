package upstream

import (
	"sort"
	"strings"

	"github.com/nexconsult/mtr-api/internal/config"
	"github.com/sirupsen/logrus"
)

// Registry maps agency names to adapters. It is built once at startup and
// read concurrently afterwards.
type Registry struct {
	adapters map[string]*Adapter
}

// NewRegistry builds an adapter per configured agency
func NewRegistry(cfg *config.Config, transport *Transport, logger *logrus.Logger) *Registry {
	b := NewBuilder(cfg, transport, logger)
	return NewRegistryFromDescriptors(b.Descriptors(), transport, logger)
}

// NewRegistryFromDescriptors builds a registry from explicit descriptors
func NewRegistryFromDescriptors(descs []Descriptor, transport *Transport, logger *logrus.Logger) *Registry {
	r := &Registry{adapters: make(map[string]*Adapter, len(descs))}
	for _, d := range descs {
		r.adapters[strings.ToUpper(d.Name)] = NewAdapter(d, transport, logger)
	}
	return r
}

// Get returns the adapter for agency (case-insensitive)
func (r *Registry) Get(agency string) (*Adapter, bool) {
	a, ok := r.adapters[strings.ToUpper(agency)]
	return a, ok
}

// Names lists the registered agencies, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
