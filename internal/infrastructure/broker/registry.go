package broker

import (
	"sort"

	vo "github.com/autotraderhub/autotrader/internal/domain/brokerconnection/valueobjects"
	"github.com/autotraderhub/autotrader/internal/shared/errors"
)

// Registry maps broker names to capabilities.
type Registry struct {
	capabilities map[vo.BrokerName]Capability
	catalog      map[vo.BrokerName]CatalogEntry
}

// NewRegistry creates a registry from the given capabilities and catalog.
func NewRegistry(catalog map[vo.BrokerName]CatalogEntry, capabilities ...Capability) *Registry {
	r := &Registry{
		capabilities: make(map[vo.BrokerName]Capability, len(capabilities)),
		catalog:      catalog,
	}
	for _, c := range capabilities {
		r.capabilities[c.Name()] = c
	}
	return r
}

// Get returns the capability for name, or a validation error when the broker
// is unknown or not wired.
func (r *Registry) Get(name vo.BrokerName) (Capability, error) {
	c, ok := r.capabilities[name]
	if !ok {
		return nil, errors.NewValidationError("unsupported broker", name.String())
	}
	return c, nil
}

// Catalog lists the wired brokers in name order.
func (r *Registry) Catalog() []CatalogEntry {
	out := make([]CatalogEntry, 0, len(r.capabilities))
	for name, c := range r.capabilities {
		entry, ok := r.catalog[name]
		if !ok {
			entry = CatalogEntry{Name: name, DisplayName: name.String(), AuthMode: c.AuthMode()}
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
