package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	xssh "golang.org/x/crypto/ssh"
)

type Dialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

type Client struct {
	Addr       string
	User       string
	Signers    []xssh.Signer
	KnownHosts xssh.HostKeyCallback
	Timeout    time.Duration
	Dialer     Dialer
}

// Output is what a finished remote command produced.
type Output struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (c *Client) makeConfig() (*xssh.ClientConfig, error) {
	if len(c.Signers) == 0 {
		return nil, errors.New("ssh: at least one signer required")
	}
	if c.KnownHosts == nil {
		return nil, errors.New("ssh: host key callback required")
	}
	return &xssh.ClientConfig{
		User:            c.User,
		Auth:            []xssh.AuthMethod{xssh.PublicKeys(c.Signers...)},
		HostKeyCallback: c.KnownHosts,
		Timeout:         c.Timeout,
	}, nil
}

// Dial establishes an SSH connection bounded by ctx.
// The caller is responsible for closing the returned client.
func Dial(ctx context.Context, c *Client) (*xssh.Client, error) {
	cfg, err := c.makeConfig()
	if err != nil {
		return nil, err
	}
	d := c.Dialer
	if d == nil {
		d = &net.Dialer{Timeout: c.Timeout}
	}
	conn, err := d.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", c.Addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	sc, chans, reqs, err := xssh.NewClientConn(conn, c.Addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("handshake %s: %w", c.Addr, err)
	}
	_ = conn.SetDeadline(time.Time{})
	return xssh.NewClient(sc, chans, reqs), nil
}

// RunCommand executes command once and reports its exit status. A non-zero
// exit is an Output, not an error; errors are connection or session
// failures. The connection is torn down when ctx is done.
func (c *Client) RunCommand(ctx context.Context, command string) (Output, error) {
	cli, err := Dial(ctx, c)
	if err != nil {
		return Output{}, err
	}
	defer cli.Close()

	session, err := cli.NewSession()
	if err != nil {
		return Output{}, fmt.Errorf("new session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = cli.Close()
		return Output{}, ctx.Err()
	case err := <-done:
		out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
		var exitErr *xssh.ExitError
		switch {
		case err == nil:
			return out, nil
		case errors.As(err, &exitErr):
			out.ExitCode = exitErr.ExitStatus()
			return out, nil
		default:
			return out, fmt.Errorf("run command: %w", err)
		}
	}
}
