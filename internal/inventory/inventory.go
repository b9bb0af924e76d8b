// Package inventory is the boundary to the asset inventory service.
package inventory

import (
	"context"

	"github.com/3cpo-dev/sweep/internal/selector"
)

// Asset is one managed host as reported by the inventory.
type Asset struct {
	Tag        string
	Hostname   string
	Status     string
	Attributes map[string]string
}

// Finder looks up assets matching a normalized selector. Results are in
// the order the service returned them.
type Finder interface {
	Find(ctx context.Context, sel selector.Selector) ([]Asset, error)
}
