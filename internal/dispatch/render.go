package dispatch

import (
	"fmt"
	"io"
	"strings"
)

// Renderer writes the human readable report of a Result.
type Renderer struct {
	Out io.Writer
}

// Render prints every host in backend order. Unknown payload shapes are
// dumped as text; rendering never fails on content, only on write errors.
func (r *Renderer) Render(res Result, opts Options) error {
	if res.Empty() {
		_, err := fmt.Fprintln(r.Out, "no results")
		return err
	}
	for _, hr := range res.Hosts {
		host := hr.Host
		if !opts.Verbose {
			host = ShortHost(host)
		}
		if err := r.renderHost(host, hr.Outcome, opts); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) renderHost(host string, o Outcome, opts Options) error {
	switch v := o.(type) {
	case Structured:
		if _, err := fmt.Fprintf(r.Out, "%s: %s\n", host, v.Code); err != nil {
			return err
		}
		out := v.Primary + v.Secondary
		if out == "" {
			return nil
		}
		if !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		_, err := io.WriteString(r.Out, out)
		return err
	case Opaque:
		if opts.OneLine {
			code, summary := "-", firstLine(v.Text)
			if len(v.Items) >= 2 {
				code, summary = v.Items[0], firstLine(v.Items[1])
			}
			_, err := fmt.Fprintf(r.Out, "%s(%s) %s\n", host, code, summary)
			return err
		}
		_, err := fmt.Fprintf(r.Out, "%s: %s\n", host, v.Text)
		return err
	default:
		_, err := fmt.Fprintf(r.Out, "%s: %v\n", host, o)
		return err
	}
}

// ShortHost returns the first dot separated label of host.
func ShortHost(host string) string {
	if i := strings.IndexByte(host, '.'); i > 0 {
		return host[:i]
	}
	return host
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimRight(line, "\r")
}
