// Package hosts turns a selector or a piped host list into the targets of
// a run.
package hosts

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/3cpo-dev/sweep/internal/dispatch"
	"github.com/3cpo-dev/sweep/internal/inventory"
	"github.com/3cpo-dev/sweep/internal/selector"
)

// Resolver produces the ordered host set of a run.
type Resolver struct {
	Finder   inventory.Finder
	Defaults selector.Selector
}

// NewResolver returns a resolver using the standard selector defaults.
func NewResolver(f inventory.Finder) *Resolver {
	return &Resolver{Finder: f, Defaults: selector.Defaults()}
}

// Resolve reads hosts from stdin when opts.Input is set and queries the
// inventory otherwise. An empty result is an *dispatch.EmptyHostSetError.
func (r *Resolver) Resolve(ctx context.Context, opts dispatch.Options, stdin io.Reader) ([]string, error) {
	if opts.Input {
		hosts, err := ReadList(stdin)
		if err != nil {
			return nil, err
		}
		if len(hosts) == 0 {
			return nil, &dispatch.EmptyHostSetError{Selector: "stdin"}
		}
		return hosts, nil
	}

	raw, err := selector.Parse(opts.Selector)
	if err != nil {
		return nil, &dispatch.UsageError{Msg: err.Error()}
	}
	sel := selector.Normalize(raw, r.Defaults)
	if r.Finder == nil {
		return nil, fmt.Errorf("no inventory client configured")
	}
	assets, err := r.Finder.Find(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("find assets: %w", err)
	}
	hosts := make([]string, 0, len(assets))
	for _, a := range assets {
		if a.Hostname == "" {
			log.Warn().Str("tag", a.Tag).Msg("Asset has no hostname, skipping")
			continue
		}
		hosts = append(hosts, a.Hostname)
	}
	if len(hosts) == 0 {
		return nil, &dispatch.EmptyHostSetError{Selector: sel.String()}
	}
	return hosts, nil
}

// ReadList reads one host per line. Blank lines and lines starting with #
// are dropped. Order and duplicates are kept.
func ReadList(r io.Reader) ([]string, error) {
	var out []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read host list: %w", err)
	}
	return out, nil
}
