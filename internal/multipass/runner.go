// Package multipass drives the Multipass CLI. It is the only package that
// talks to the VM provider; everything above it works with typed states,
// exit codes, and sentinel errors instead of raw subprocess results.
package multipass

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/westvm/westvm/internal/stream"
)

// DefaultBinary is the multipass executable name resolved via PATH.
const DefaultBinary = "multipass"

// RunSpec describes one CLI invocation.
type RunSpec struct {
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Runner executes one multipass CLI invocation. The session and
// orchestrator layers are tested against a scripted implementation of this
// interface.
type Runner interface {
	// Run executes the binary with the spec's arguments and streams. It
	// returns the process exit code. A non-nil error means the process
	// could not be run or the context was canceled, never that the
	// command exited non-zero.
	Run(ctx context.Context, spec RunSpec) (int, error)
}

// OSRunner invokes the real multipass binary via os/exec.
type OSRunner struct {
	// Binary overrides the executable; empty means DefaultBinary.
	Binary string
}

// Run starts the process, relays both output streams to the spec's sinks
// while it runs, and returns its exit code once the relay and the process
// have both finished.
func (r *OSRunner) Run(ctx context.Context, spec RunSpec) (int, error) {
	bin := r.Binary
	if bin == "" {
		bin = DefaultBinary
	}

	cmd := exec.CommandContext(ctx, bin, spec.Args...)
	cmd.Stdin = spec.Stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("wiring stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("wiring stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return -1, fmt.Errorf("%w: %v", ErrNotInstalled, err)
		}
		return -1, fmt.Errorf("starting %s: %w", bin, err)
	}

	outSink := spec.Stdout
	if outSink == nil {
		outSink = io.Discard
	}
	errSink := spec.Stderr
	if errSink == nil {
		errSink = io.Discard
	}

	// Both streams must be drained before Wait may reap the process.
	relayErr := stream.Relay(stdout, stderr, outSink, errSink)

	waitErr := cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
		if ctx.Err() != nil {
			return -1, ctx.Err()
		}
		return exitErr.ExitCode(), relayErr
	default:
		return -1, fmt.Errorf("waiting for %s: %w", bin, waitErr)
	}
	if relayErr != nil {
		return 0, relayErr
	}
	return 0, nil
}
