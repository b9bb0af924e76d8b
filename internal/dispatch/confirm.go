package dispatch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Gate asks the operator to approve a dispatch before it is sent.
type Gate struct {
	In  io.Reader
	Out io.Writer
}

// Confirm shows the targets and command and blocks until the operator
// answers y or n. Any other answer re-prompts. Running out of input counts
// as a decline.
func (g *Gate) Confirm(opts Options, hosts []string, command string) (bool, error) {
	if opts.Confirmed {
		return true, nil
	}
	for _, h := range hosts {
		fmt.Fprintln(g.Out, h)
	}
	fmt.Fprintf(g.Out, "command: %s\n", command)
	fmt.Fprintf(g.Out, "forks: %d  timeout: %ds\n", opts.Forks, opts.Timeout)

	sc := bufio.NewScanner(g.In)
	for {
		fmt.Fprintf(g.Out, "proceed on %d hosts? [y/n] ", len(hosts))
		if !sc.Scan() {
			fmt.Fprintln(g.Out)
			if err := sc.Err(); err != nil {
				return false, fmt.Errorf("read confirmation: %w", err)
			}
			return false, nil
		}
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "y":
			return true, nil
		case "n":
			return false, nil
		}
	}
}

// ttyPath is the controlling terminal, reopened when stdin carried hosts.
var ttyPath = "/dev/tty"

// PromptSource returns the reader confirmation answers come from. When the
// host list was piped on stdin, stdin is already drained, so the
// controlling terminal is opened instead.
func PromptSource(hostsFromStdin bool) (io.ReadCloser, error) {
	if !hostsFromStdin || term.IsTerminal(int(os.Stdin.Fd())) {
		return io.NopCloser(os.Stdin), nil
	}
	tty, err := os.Open(ttyPath)
	if err != nil {
		return nil, fmt.Errorf("open terminal for confirmation: %w", err)
	}
	return tty, nil
}
