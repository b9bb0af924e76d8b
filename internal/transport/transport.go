// Package transport sends a built dispatch request to a remote-execution
// backend and hands back its per-host results.
package transport

import (
	"context"
	"fmt"
	"sort"

	"github.com/3cpo-dev/sweep/internal/dispatch"
)

// Transport is one remote-execution backend. Send is a single blocking
// exchange; a backend that answers with nothing usable yields an empty
// Result and a nil error.
type Transport interface {
	Name() string
	Send(ctx context.Context, req dispatch.Request) (dispatch.Result, error)
}

type Registry struct {
	transports map[string]Transport
}

func NewRegistry() *Registry {
	return &Registry{transports: map[string]Transport{}}
}

func (r *Registry) Register(t Transport) {
	r.transports[t.Name()] = t
}

func (r *Registry) Get(name string) (Transport, error) {
	t, ok := r.transports[name]
	if !ok {
		return nil, fmt.Errorf("transport not registered: %s (have %v)", name, r.Names())
	}
	return t, nil
}

// Names lists the registered backends, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.transports))
	for n := range r.transports {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
