package transport

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/3cpo-dev/sweep/internal/dispatch"
)

const DefaultTransmitCommand = "func-transmit"

// SubprocessConfig selects the overlord binary that performs the fan-out.
type SubprocessConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// Subprocess hands the request to a func-transmit style process: the
// payload goes to its stdin, the per-host results come back on stdout.
type Subprocess struct {
	Command string
	Args    []string
	Env     []string
}

func NewSubprocess(cfg SubprocessConfig) *Subprocess {
	cmd := cfg.Command
	if cmd == "" {
		cmd = DefaultTransmitCommand
	}
	return &Subprocess{Command: cmd, Args: cfg.Args}
}

func (s *Subprocess) Name() string { return "func" }

// Send runs the backend once and waits for it to exit. Concurrency and
// the request timeout are the backend's business.
func (s *Subprocess) Send(ctx context.Context, req dispatch.Request) (dispatch.Result, error) {
	payload, err := yaml.Marshal(req.Payload())
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("encode payload: %w", err)
	}

	cmd := exec.CommandContext(ctx, s.Command, s.Args...)
	if len(s.Env) > 0 {
		cmd.Env = append(cmd.Environ(), s.Env...)
	}
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	if ctx.Err() != nil {
		return dispatch.Result{}, ctx.Err()
	}
	if runErr != nil {
		log.Warn().
			Err(runErr).
			Str("command", s.Command).
			Str("stderr", strings.TrimSpace(stderr.String())).
			Msg("Transport process failed")
	}

	res, err := Decode(stdout.Bytes())
	if err != nil {
		log.Warn().Err(err).Str("command", s.Command).Msg("Transport returned no parseable results")
		return dispatch.Result{}, nil
	}
	log.Debug().
		Int("hosts", len(res.Hosts)).
		Dur("took", time.Since(start)).
		Msg("Transport exchange complete")
	return res, nil
}

// Decode parses a backend response: a mapping from host to result, in the
// order the backend wrote it. JSON output parses as YAML too.
func Decode(out []byte) (dispatch.Result, error) {
	if len(bytes.TrimSpace(out)) == 0 {
		return dispatch.Result{}, dispatch.ErrTransportEmpty
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(out, &doc); err != nil {
		return dispatch.Result{}, fmt.Errorf("%w: %v", dispatch.ErrTransportEmpty, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return dispatch.Result{}, fmt.Errorf("%w: response is not a host mapping", dispatch.ErrTransportEmpty)
	}
	m := doc.Content[0]
	res := dispatch.Result{Hosts: make([]dispatch.HostResult, 0, len(m.Content)/2)}
	for i := 0; i+1 < len(m.Content); i += 2 {
		var v any
		if err := m.Content[i+1].Decode(&v); err != nil {
			v = m.Content[i+1].Value
		}
		res.Hosts = append(res.Hosts, dispatch.HostResult{
			Host:    m.Content[i].Value,
			Outcome: dispatch.Classify(v),
		})
	}
	return res, nil
}
