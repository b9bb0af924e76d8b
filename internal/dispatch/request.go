// Package dispatch builds, gates and reports a single batch command run.
package dispatch

import (
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/3cpo-dev/sweep/pkg/api"
)

// The only remote capability sweep drives: run a shell command.
const (
	Module = "command"
	Method = "run"
)

const (
	DefaultForks   = 50
	DefaultTimeout = 60
)

// Options is the configuration of one run, assembled from flags and config.
type Options struct {
	Verbose   bool
	Pass      bool
	Async     bool
	Forks     int
	Timeout   int
	Input     bool
	OneLine   bool
	Selector  string
	Confirmed bool
}

// Validate checks the options that must hold before anything is queried.
func (o Options) Validate() error {
	if !o.Input && strings.TrimSpace(o.Selector) == "" {
		return &UsageError{Msg: "either --selector or --input is required"}
	}
	if o.Forks < 1 {
		return &UsageError{Msg: "--forks must be at least 1"}
	}
	if o.Timeout <= 0 {
		return &UsageError{Msg: "--timeout must be positive"}
	}
	return nil
}

// Request is a fully built batch execution.
type Request struct {
	Command string
	Async   bool
	Forks   int
	Timeout int
	Targets []string
	Module  string
	Method  string
}

// Command turns the words typed after the flags into a single command
// line. With pass set the words are joined verbatim, so shell syntax
// written by the operator reaches the remote shell untouched.
func Command(words []string, pass bool) string {
	if pass {
		return strings.Join(words, " ")
	}
	return shellquote.Join(words...)
}

// Build assembles the request for hosts. command must already be final:
// it is never escaped again.
func Build(opts Options, hosts []string, command string) (Request, error) {
	if len(hosts) == 0 {
		return Request{}, &EmptyHostSetError{Selector: opts.Selector}
	}
	if strings.TrimSpace(command) == "" {
		return Request{}, &UsageError{Msg: "no command given"}
	}
	if opts.Forks < 1 {
		return Request{}, &UsageError{Msg: "--forks must be at least 1"}
	}
	if opts.Timeout <= 0 {
		return Request{}, &UsageError{Msg: "--timeout must be positive"}
	}
	targets := make([]string, len(hosts))
	copy(targets, hosts)
	return Request{
		Command: command,
		Async:   opts.Async,
		Forks:   opts.Forks,
		Timeout: opts.Timeout,
		Targets: targets,
		Module:  Module,
		Method:  Method,
	}, nil
}

// Payload encodes the request in the backend's flat wire form.
func (r Request) Payload() api.DispatchPayload {
	return api.DispatchPayload{
		Async:      r.Async,
		NForks:     r.Forks,
		Timeout:    r.Timeout,
		Module:     r.Module,
		Method:     r.Method,
		Parameters: r.Command,
		Clients:    strings.Join(r.Targets, api.ClientSeparator),
	}
}
