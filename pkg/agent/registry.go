package agent

import (
	"fmt"

	"github.com/prismgate/prism/pkg/registry"
)

// Registry holds the agents the gateway serves, keyed by name.
// Registration happens once at startup; lookups are concurrent reads.
type Registry struct {
	*registry.BaseRegistry[Agent]
}

// NewRegistry creates an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{BaseRegistry: registry.NewBaseRegistry[Agent]()}
}

// RegisterAgent adds an agent under its own name.
func (r *Registry) RegisterAgent(a Agent) error {
	if a == nil {
		return fmt.Errorf("agent cannot be nil")
	}
	return r.Register(a.Name(), a)
}

// Resolve returns the named agent or an error suitable for client-facing
// not-found handling.
func (r *Registry) Resolve(name string) (Agent, error) {
	a, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("agent '%s' not found", name)
	}
	return a, nil
}
