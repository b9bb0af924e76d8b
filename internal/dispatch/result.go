package dispatch

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Outcome is what one host reported. It is either Structured or Opaque.
type Outcome interface{ outcome() }

// Structured is a positional (code, primary, secondary) report. Code is
// usually an exit status but backends also put error tags there, such as
// REMOTE_ERROR.
type Structured struct {
	Code      string
	Primary   string
	Secondary string
}

// ExitCode returns Code as an exit status, if it is one.
func (s Structured) ExitCode() (int, bool) {
	n, err := strconv.Atoi(s.Code)
	return n, err == nil
}

// Opaque is any other payload: connection failures, async job handles,
// backend errors. Items holds the textual elements when the payload was a
// list; Text is the whole payload as text.
type Opaque struct {
	Items []string
	Text  string
}

func (Structured) outcome() {}
func (Opaque) outcome()     {}

// HostResult pairs a target with its outcome.
type HostResult struct {
	Host    string
	Outcome Outcome
}

// Result is the per-host report of a dispatch, in backend order.
type Result struct {
	Hosts []HostResult
}

func (r Result) Empty() bool { return len(r.Hosts) == 0 }

// Classify inspects a decoded per-host value once. Any three element list
// is read by position as a Structured result; everything else is Opaque.
func Classify(v any) Outcome {
	if list, ok := v.([]any); ok {
		if len(list) == 3 {
			return Structured{Code: text(list[0]), Primary: text(list[1]), Secondary: text(list[2])}
		}
		items := make([]string, len(list))
		for i, item := range list {
			items[i] = text(item)
		}
		return Opaque{Items: items, Text: text(v)}
	}
	return Opaque{Text: text(v)}
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any, map[string]any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
