// Package bridge routes recorded agent commands back into the host
// command pipeline.
package bridge

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/reactor-go/domain/command"
)

// RoutingContext carries correlation data into the argument transform.
type RoutingContext struct {
	DecisionID    string
	AgentID       string
	CorrelationID string
	PatternID     string
}

// Route maps an agent command type onto a host pipeline command.
type Route struct {
	// Target is the command type in the host registry.
	Target string

	// ToArgs transforms the recorded command into pipeline arguments.
	ToArgs func(cmd *command.Recorded, rc RoutingContext) (json.RawMessage, error)
}

// Router is an explicitly constructed, dependency-injected route
// registry. Construct a fresh instance per test; there is no process
// global.
type Router struct {
	mu       sync.RWMutex
	routes   map[string]Route
	registry command.Registry
}

// NewRouter creates a router validating targets against the host
// command registry.
func NewRouter(registry command.Registry) *Router {
	return &Router{
		routes:   make(map[string]Route),
		registry: registry,
	}
}

// Register adds a route for a command type. Duplicate registrations
// are rejected, as are targets missing from the host registry.
func (r *Router) Register(commandType string, route Route) error {
	if route.Target == "" || route.ToArgs == nil {
		return fmt.Errorf("route for %q must have a target and a transform", commandType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.routes[commandType]; exists {
		return fmt.Errorf("%w: %s", command.ErrDuplicateRoute, commandType)
	}
	if r.registry != nil && !r.registry.Has(route.Target) {
		return fmt.Errorf("%w: %s (target %s)", command.ErrTargetNotRegistered, commandType, route.Target)
	}

	r.routes[commandType] = route
	return nil
}

// Lookup returns the route for a command type.
func (r *Router) Lookup(commandType string) (Route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	route, ok := r.routes[commandType]
	return route, ok
}

// Types returns the registered command types.
func (r *Router) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.routes))
	for t := range r.routes {
		types = append(types, t)
	}
	return types
}
