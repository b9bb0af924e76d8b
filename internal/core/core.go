package core

import (
	"fmt"

	"github.com/3cpo-dev/sweep/internal/hosts"
	"github.com/3cpo-dev/sweep/internal/inventory"
	"github.com/3cpo-dev/sweep/internal/selector"
	"github.com/3cpo-dev/sweep/internal/transport"
	"github.com/3cpo-dev/sweep/internal/transport/sshexec"
)

// NewTransportRegistry registers every backend configured in cfg.
func NewTransportRegistry(cfg Config) *transport.Registry {
	reg := transport.NewRegistry()
	reg.Register(transport.NewSubprocess(cfg.Transport.Func))
	reg.Register(sshexec.New(cfg.Transport.SSH))
	return reg
}

// NewResolver builds the host resolver. The inventory client is only
// required when hosts are not piped in.
func NewResolver(cfg Config, needInventory bool) (*hosts.Resolver, error) {
	defaults := selector.Defaults()
	if cfg.Defaults.Selector != "" {
		fields, err := selector.Parse(cfg.Defaults.Selector)
		if err != nil {
			return nil, fmt.Errorf("defaults.selector: %w", err)
		}
		defaults = selector.New(fields...)
	}
	var finder inventory.Finder
	if needInventory {
		c, err := inventory.NewClient(cfg.Inventory)
		if err != nil {
			return nil, err
		}
		finder = c
	}
	return &hosts.Resolver{Finder: finder, Defaults: defaults}, nil
}
