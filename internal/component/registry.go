// internal/component/registry.go
//
// Component registry (explicit, no init-time globals).
//
// Each concrete component lives under components/<name> and is constructed
// in cmd/web with its dependencies.  main registers it on a Registry, and
// Mount attaches every component's Routes() at its Prefix() on the
// application router, in registration order.
//
// Notes
// -----
// • Components that need a one-time start-up step implement Initializer;
//   Mount calls Init before routes go live.
// • Oxford commas, two spaces after periods.

package component

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Initializer is optional.  If a Component implements it, Mount calls
// Init(ctx) once before its routes are attached.
type Initializer interface {
	Init(ctx context.Context) error
}

// Component contract.
//
// Routes() should mount BOTH page and API endpoints relative to Prefix(),
// e.g:
//
//	r := chi.NewRouter()
//	r.Get("/", dashboard)
//	r.Route("/api", func(api chi.Router) { ... })
//	return r
type Component interface {
	Name() string
	Prefix() string
	Routes() chi.Router
}

// Registry holds components in registration order.
type Registry struct {
	list  []Component
	names map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Register adds c.  Duplicate names are rejected.
func (reg *Registry) Register(c Component) error {
	if reg.names[c.Name()] {
		return fmt.Errorf("component %q already registered", c.Name())
	}
	reg.names[c.Name()] = true
	reg.list = append(reg.list, c)
	return nil
}

// All returns the registered components in order.
func (reg *Registry) All() []Component {
	return append([]Component(nil), reg.list...)
}

// Mount initialises and attaches every component to r.
func (reg *Registry) Mount(ctx context.Context, r chi.Router) error {
	for _, c := range reg.list {
		if in, ok := c.(Initializer); ok {
			if err := in.Init(ctx); err != nil {
				return fmt.Errorf("init %s: %w", c.Name(), err)
			}
		}
		r.Mount(c.Prefix(), c.Routes())
		zap.L().Debug("component mounted",
			zap.String("name", c.Name()), zap.String("prefix", c.Prefix()))
	}
	return nil
}
