package core

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/3cpo-dev/sweep/internal/dispatch"
	"github.com/3cpo-dev/sweep/internal/hosts"
	"github.com/3cpo-dev/sweep/internal/telemetry"
	"github.com/3cpo-dev/sweep/internal/transport"
	"github.com/3cpo-dev/sweep/pkg/api"
)

// Runner carries one run from selector to report. Every collaborator is
// created by the caller and owned for the duration of the run.
type Runner struct {
	Resolver  *hosts.Resolver
	Transport transport.Transport
	Renderer  *dispatch.Renderer
	Store     *Store
	Metrics   *telemetry.Collector

	// Stdin supplies the host list in input mode.
	Stdin io.Reader
	// Prompt opens the confirmation input; dispatch.PromptSource by default.
	Prompt func(hostsFromStdin bool) (io.ReadCloser, error)
	// PromptOut receives the confirmation summary and prompt.
	PromptOut io.Writer
}

// Run resolves targets, asks for confirmation and dispatches the command
// built from words. Nothing is sent unless the gate approves.
func (r *Runner) Run(ctx context.Context, opts dispatch.Options, words []string) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	command := dispatch.Command(words, opts.Pass)
	if command == "" {
		return &dispatch.UsageError{Msg: "no command given"}
	}

	targets, err := r.Resolver.Resolve(ctx, opts, r.stdin())
	if err != nil {
		return err
	}
	r.Metrics.Counter("sweep_hosts_resolved", float64(len(targets)), nil)
	log.Debug().Int("hosts", len(targets)).Str("selector", opts.Selector).Msg("Resolved targets")

	req, err := dispatch.Build(opts, targets, command)
	if err != nil {
		return err
	}

	ok, err := r.confirm(opts, targets, command)
	if err != nil {
		return err
	}
	if !ok {
		return dispatch.ErrAborted
	}

	backend := r.Transport.Name()
	r.Metrics.Gauge("sweep_forks", float64(req.Forks), map[string]string{"backend": backend})
	stop := r.Metrics.Start("sweep_dispatch_duration", map[string]string{"backend": backend})
	started := time.Now()
	res, err := r.Transport.Send(ctx, req)
	took := stop()
	if err != nil {
		return fmt.Errorf("dispatch via %s: %w", backend, err)
	}
	if res.Empty() {
		log.Warn().Err(dispatch.ErrTransportEmpty).Str("backend", backend).Msg("No results")
	}
	r.Metrics.Counter("sweep_hosts_reported", float64(len(res.Hosts)), map[string]string{"backend": backend})

	r.record(ctx, opts, req, res, backend, started, took)
	return r.Renderer.Render(res, opts)
}

func (r *Runner) stdin() io.Reader {
	if r.Stdin != nil {
		return r.Stdin
	}
	return os.Stdin
}

func (r *Runner) confirm(opts dispatch.Options, targets []string, command string) (bool, error) {
	if opts.Confirmed {
		return true, nil
	}
	open := r.Prompt
	if open == nil {
		open = dispatch.PromptSource
	}
	in, err := open(opts.Input)
	if err != nil {
		return false, err
	}
	defer in.Close()
	out := r.PromptOut
	if out == nil {
		out = os.Stderr
	}
	gate := &dispatch.Gate{In: in, Out: out}
	return gate.Confirm(opts, targets, command)
}

// record journals a dispatched run. History is best effort and never fails
// the run.
func (r *Runner) record(ctx context.Context, opts dispatch.Options, req dispatch.Request, res dispatch.Result, backend string, started time.Time, took time.Duration) {
	if r.Store == nil {
		return
	}
	sel := opts.Selector
	if opts.Input {
		sel = "stdin"
	}
	status := statusOf(res)
	if req.Async && !res.Empty() {
		status = api.RunDispatched
	}
	id, err := r.Store.RecordRun(ctx, Run{
		StartedAt: started,
		Command:   req.Command,
		Selector:  sel,
		Backend:   backend,
		Status:    status,
		HostCount: len(req.Targets),
		Duration:  took,
		Hosts:     hostsFromResult(res),
	})
	if err != nil {
		log.Warn().Err(err).Msg("Could not record run history")
		return
	}
	log.Debug().Int64("run", id).Str("status", string(status)).Msg("Run recorded")
}
