package collection

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/couchcryptid/wildfire-watch-service/internal/domain"
	"github.com/couchcryptid/wildfire-watch-service/internal/observability"
)

// ErrUnknownCollection is returned by Registry.Get for names it does not manage.
var ErrUnknownCollection = errors.New("unknown collection")

// Registry holds one Collection per known collection name, all sharing a store.
type Registry struct {
	collections map[string]*Collection
	names       []string
}

// NewRegistry builds a Collection for each of domain.CollectionNames.
func NewRegistry(store Store, seeds map[string][]domain.Record, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Registry {
	r := &Registry{
		collections: make(map[string]*Collection, len(domain.CollectionNames)),
		names:       slices.Clone(domain.CollectionNames),
	}
	for _, name := range r.names {
		r.collections[name] = New(name, store, seeds[name], logger, metrics, opts...)
	}
	return r
}

// Get returns the named collection.
func (r *Registry) Get(name string) (*Collection, error) {
	c, ok := r.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, name)
	}
	return c, nil
}

// MustGet is Get for names known at compile time. It panics on unknown names.
func (r *Registry) MustGet(name string) *Collection {
	c, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return c
}

// Names returns the managed collection names in declaration order.
func (r *Registry) Names() []string {
	return slices.Clone(r.names)
}
