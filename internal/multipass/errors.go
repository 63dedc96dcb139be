package multipass

import (
	"errors"
	"fmt"
	"strings"
)

// Transport-level sentinel errors. They describe failures of the provider
// itself, as opposed to a remote command exiting non-zero.
var (
	// ErrNotInstalled means the multipass binary is not on PATH.
	ErrNotInstalled = errors.New("multipass is not installed")

	// ErrDaemonUnavailable means the CLI exists but cannot reach the
	// multipass daemon.
	ErrDaemonUnavailable = errors.New("multipass daemon is unreachable")

	// ErrInstanceNotFound means the named instance does not exist.
	ErrInstanceNotFound = errors.New("instance does not exist")

	// ErrInstanceNotRunning means the instance exists but is stopped or
	// suspended.
	ErrInstanceNotRunning = errors.New("instance is not running")

	// ErrNoSuchFile means a transfer source path does not exist in the
	// instance.
	ErrNoSuchFile = errors.New("remote file does not exist")
)

// CommandError reports a multipass invocation that exited non-zero for a
// provider-level reason. Err carries the matching sentinel when stderr
// matched a known marker.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("multipass %s: exit status %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error { return e.Err }

// IsTransportError reports whether err is a provider-level failure that a
// VM recovery might clear, as opposed to a remote command failing on its
// own.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrDaemonUnavailable) ||
		errors.Is(err, ErrInstanceNotFound) ||
		errors.Is(err, ErrInstanceNotRunning)
}

// classify maps multipass's well-known stderr markers onto the transport
// sentinels. It returns nil when no marker matches, which callers treat as
// "the remote command itself failed". Markers are only consulted after a
// non-zero exit.
func classify(name, stderr string) error {
	s := strings.ToLower(stderr)
	quoted := strings.ToLower(fmt.Sprintf("%q", name))
	switch {
	case strings.Contains(s, "cannot connect to the multipass socket"),
		strings.Contains(s, "cannot connect to multipass socket"):
		return ErrDaemonUnavailable
	case strings.Contains(s, "instance "+quoted+" does not exist"),
		strings.Contains(s, quoted+" does not exist"):
		return ErrInstanceNotFound
	case strings.Contains(s, "instance "+quoted+" is not running"),
		strings.Contains(s, quoted+" is not running"),
		strings.Contains(s, "instance is stopped"):
		return ErrInstanceNotRunning
	}
	return nil
}

// classifyTransfer extends classify with the markers transfer emits for a
// missing source file. Instance-level markers are checked first; the
// file-not-found markers are generic ("does not exist" also appears in the
// missing-instance message, so ordering matters).
func classifyTransfer(name, stderr string) error {
	if err := classify(name, stderr); err != nil {
		return err
	}
	s := strings.ToLower(stderr)
	switch {
	case strings.Contains(s, "does not exist"),
		strings.Contains(s, "no such file"),
		strings.Contains(s, "cannot open"),
		strings.Contains(s, "not found"):
		return ErrNoSuchFile
	}
	return nil
}

// newCommandError builds a classified *CommandError for a non-zero exit.
func newCommandError(name string, args []string, code int, stderr string) *CommandError {
	return &CommandError{
		Args:     args,
		ExitCode: code,
		Stderr:   strings.TrimSpace(stderr),
		Err:      classify(name, stderr),
	}
}
