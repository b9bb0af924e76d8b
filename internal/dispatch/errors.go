package dispatch

import (
	"errors"
	"fmt"
)

// Exit statuses for the terminal conditions of a run.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
	ExitNoHosts = 3
	ExitAborted = 4
)

// UsageError reports invalid or missing options. It is raised before any
// inventory query is made.
type UsageError struct{ Msg string }

func (e *UsageError) Error() string { return "usage: " + e.Msg }

// EmptyHostSetError means resolution produced no targets.
type EmptyHostSetError struct{ Selector string }

func (e *EmptyHostSetError) Error() string {
	return fmt.Sprintf("no hosts matched %s", e.Selector)
}

var (
	// ErrAborted is returned when the operator declines the confirmation.
	ErrAborted = errors.New("aborted by user")
	// ErrTransportEmpty marks a backend that produced no parseable payload.
	// It is logged and rendered as an empty report, never fatal.
	ErrTransportEmpty = errors.New("transport returned no results")
)

// ExitCode maps an error from a run to the process exit status.
func ExitCode(err error) int {
	var usage *UsageError
	var empty *EmptyHostSetError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &usage):
		return ExitUsage
	case errors.As(err, &empty):
		return ExitNoHosts
	case errors.Is(err, ErrAborted):
		return ExitAborted
	default:
		return ExitFailure
	}
}
