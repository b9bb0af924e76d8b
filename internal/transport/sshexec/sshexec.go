// Package sshexec is a transport backend that connects to every target
// directly over SSH instead of going through an overlord process.
package sshexec

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/3cpo-dev/sweep/internal/dispatch"
	gssh "github.com/3cpo-dev/sweep/internal/ssh"
)

// RemoteError tags outcomes of hosts that could not run the command.
const RemoteError = "REMOTE_ERROR"

// Config is the ssh section of the config file.
type Config struct {
	User       string   `yaml:"user"`
	Port       int      `yaml:"port"`
	KeyPaths   []string `yaml:"key_paths"`
	KnownHosts string   `yaml:"known_hosts"`
}

type Transport struct {
	cfg Config
}

func New(cfg Config) *Transport {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if len(cfg.KeyPaths) == 0 {
		cfg.KeyPaths = gssh.DefaultIdentityFiles()
	}
	if cfg.KnownHosts == "" {
		cfg.KnownHosts = gssh.DefaultKnownHosts()
	}
	return &Transport{cfg: cfg}
}

func (t *Transport) Name() string { return "ssh" }

// Send runs the command on all targets, at most req.Forks at a time, each
// bounded by req.Timeout. Results come back in target order. Hosts that
// could not be reached report REMOTE_ERROR in place of an exit code.
func (t *Transport) Send(ctx context.Context, req dispatch.Request) (dispatch.Result, error) {
	if req.Async {
		log.Warn().Msg("ssh transport does not support async dispatch; running synchronously")
	}
	signers, err := gssh.LoadSigners(t.cfg.KeyPaths)
	if err != nil {
		return dispatch.Result{}, err
	}
	kh, err := gssh.LoadKnownHostsCallback(t.cfg.KnownHosts, gssh.SystemKnownHosts)
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("load known_hosts: %w", err)
	}

	forks := req.Forks
	if forks < 1 {
		forks = 1
	}
	timeout := time.Duration(req.Timeout) * time.Second

	results := make([]dispatch.HostResult, len(req.Targets))
	sem := make(chan struct{}, forks)
	var wg sync.WaitGroup

	for i, host := range req.Targets {
		wg.Add(1)
		go func(i int, host string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			hctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			c := &gssh.Client{
				Addr:       t.addr(host),
				User:       t.cfg.User,
				Signers:    signers,
				KnownHosts: kh,
				Timeout:    timeout,
			}
			start := time.Now()
			out, err := c.RunCommand(hctx, req.Command)
			if err != nil {
				log.Debug().Err(err).Str("host", host).Msg("Remote command failed")
				results[i] = dispatch.HostResult{Host: host, Outcome: dispatch.Structured{Code: RemoteError, Secondary: err.Error()}}
				return
			}
			log.Debug().
				Str("host", host).
				Int("exit", out.ExitCode).
				Dur("took", time.Since(start)).
				Msg("Remote command finished")
			results[i] = dispatch.HostResult{Host: host, Outcome: dispatch.Structured{
				Code:      strconv.Itoa(out.ExitCode),
				Primary:   out.Stdout,
				Secondary: out.Stderr,
			}}
		}(i, host)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return dispatch.Result{}, err
	}
	return dispatch.Result{Hosts: results}, nil
}

// addr appends the configured port unless host already names one.
func (t *Transport) addr(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(t.cfg.Port))
}
