// Package stream relays remote command output to the caller while the
// command is still running.
package stream

import (
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
)

// Relay copies both remote output streams to their sinks until the sources
// are exhausted, then returns. Each stream is drained by its own goroutine
// and chunks are written as they are read, so partial lines such as
// prompts without a trailing newline appear without waiting for the remote
// command to exit. Ordering within a stream is preserved; interleaving
// between the two streams is best effort, matching what the VM transport
// itself guarantees.
func Relay(stdout, stderr io.Reader, outSink, errSink io.Writer) error {
	var eg errgroup.Group
	eg.Go(func() error {
		if _, err := io.Copy(outSink, stdout); err != nil {
			return fmt.Errorf("relaying stdout: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		if _, err := io.Copy(errSink, stderr); err != nil {
			return fmt.Errorf("relaying stderr: %w", err)
		}
		return nil
	})
	return eg.Wait()
}
