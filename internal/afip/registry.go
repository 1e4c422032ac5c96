package afip

import (
	"context"
	"sort"

	"github.com/rezonia/afipws/internal/model"
)

// StatusChecker is implemented by every client exposing a dummy call
type StatusChecker interface {
	// Service returns the remote service identifier
	Service() model.Service

	// Dummy reports the remote servers status
	Dummy(ctx context.Context) (model.ServerStatus, error)
}

// Registry holds the configured service clients by identifier
type Registry struct {
	checkers map[model.Service]StatusChecker
}

// NewRegistry creates a registry with the given clients
func NewRegistry(checkers ...StatusChecker) *Registry {
	r := &Registry{checkers: make(map[model.Service]StatusChecker)}
	for _, c := range checkers {
		r.Register(c)
	}
	return r
}

// Register adds or replaces a client
func (r *Registry) Register(c StatusChecker) {
	r.checkers[c.Service()] = c
}

// Get returns the client for service
func (r *Registry) Get(service model.Service) (StatusChecker, bool) {
	c, ok := r.checkers[service]
	return c, ok
}

// Services lists the registered identifiers, sorted
func (r *Registry) Services() []model.Service {
	out := make([]model.Service, 0, len(r.checkers))
	for s := range r.checkers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Status calls Dummy on service
func (r *Registry) Status(ctx context.Context, service model.Service) (model.ServerStatus, error) {
	c, ok := r.Get(service)
	if !ok {
		return model.ServerStatus{}, model.NewValidationError("service", service, "registered", "unknown service")
	}
	return c.Dummy(ctx)
}
