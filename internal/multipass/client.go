package multipass

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"cosmossdk.io/log"

	"github.com/westvm/westvm/internal/stream"
)

// errTailLines bounds how much remote stderr is retained for classifying
// failures after the fact.
const errTailLines = 64

// LaunchProfile is the resource profile applied when creating an instance.
type LaunchProfile struct {
	Image  string
	CPUs   int
	Memory string
	Disk   string
}

// ExecIO carries the stream wiring for one remote execution. Nil writers
// discard; a nil Stdin leaves the remote command without input.
type ExecIO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Client drives the multipass CLI through a Runner. Methods never cache
// instance state; every query reflects the provider at call time.
type Client struct {
	runner Runner
	logger log.Logger
}

// NewClient creates a Client. A nil runner uses the real CLI.
func NewClient(runner Runner, logger log.Logger) *Client {
	if runner == nil {
		runner = &OSRunner{}
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{runner: runner, logger: logger}
}

// capture runs one invocation and returns its stdout, converting non-zero
// exits into a classified *CommandError.
func (c *Client) capture(ctx context.Context, name string, args ...string) ([]byte, error) {
	c.logger.Debug("multipass", "args", strings.Join(args, " "))
	var stdout, stderr bytes.Buffer
	code, err := c.runner.Run(ctx, RunSpec{Args: args, Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, newCommandError(name, args, code, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Version returns the CLI's version string, which doubles as the check
// that multipass is installed at all.
func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.capture(ctx, "", "version")
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(out), "\n")
	if fields := strings.Fields(line); len(fields) >= 2 {
		return fields[1], nil
	}
	return strings.TrimSpace(line), nil
}

// State queries the instance's current lifecycle state.
func (c *Client) State(ctx context.Context, name string) (State, error) {
	out, err := c.capture(ctx, name, "list", "--format", "json")
	if err != nil {
		return StateUnknown, err
	}
	return parseListState(out, name)
}

// Launch creates the instance from the given image with the resource
// profile applied. Image download can take minutes; callers announce
// progress themselves.
func (c *Client) Launch(ctx context.Context, name string, p LaunchProfile) error {
	_, err := c.capture(ctx, name, "launch", p.Image,
		"--name", name,
		"--cpus", strconv.Itoa(p.CPUs),
		"--memory", p.Memory,
		"--disk", p.Disk,
	)
	return err
}

// Start starts a stopped or suspended instance.
func (c *Client) Start(ctx context.Context, name string) error {
	_, err := c.capture(ctx, name, "start", name)
	return err
}

// Stop stops a running instance.
func (c *Client) Stop(ctx context.Context, name string) error {
	_, err := c.capture(ctx, name, "stop", name)
	return err
}

// Exec runs a shell script inside the instance, relaying output through
// the given sinks while it runs, and returns the remote exit code. A
// non-zero remote exit is not an error at this layer; err is non-nil only
// for transport failures, which are classified against the instance's
// stderr markers.
func (c *Client) Exec(ctx context.Context, name, script string, streams ExecIO) (int, error) {
	args := []string{"exec", name, "--", "bash", "-c", script}
	c.logger.Debug("multipass exec", "instance", name, "script", script)

	tail := stream.NewTail(errTailLines)
	errSink := io.Writer(tail)
	if streams.Stderr != nil {
		errSink = io.MultiWriter(streams.Stderr, tail)
	}
	outSink := streams.Stdout
	if outSink == nil {
		outSink = io.Discard
	}

	code, err := c.runner.Run(ctx, RunSpec{
		Args:   args,
		Stdin:  streams.Stdin,
		Stdout: outSink,
		Stderr: errSink,
	})
	if err != nil {
		return -1, err
	}
	if code != 0 {
		if terr := classify(name, tail.String()); terr != nil {
			return -1, &CommandError{Args: args, ExitCode: code, Stderr: tail.String(), Err: terr}
		}
	}
	return code, nil
}

// Output runs a script inside the instance and captures its stdout. The
// remote exit code is returned alongside; stderr is retained only for
// failure classification.
func (c *Client) Output(ctx context.Context, name, script string) (string, int, error) {
	var out bytes.Buffer
	code, err := c.Exec(ctx, name, script, ExecIO{Stdout: &out})
	return out.String(), code, err
}

// Transfer copies a file out of the instance to a host path. A missing
// source yields ErrNoSuchFile.
func (c *Client) Transfer(ctx context.Context, name, vmPath, hostPath string) error {
	return c.transfer(ctx, name, []string{"transfer", name + ":" + vmPath, hostPath})
}

// TransferDir recursively copies a directory out of the instance.
func (c *Client) TransferDir(ctx context.Context, name, vmPath, hostPath string) error {
	return c.transfer(ctx, name, []string{"transfer", "-r", name + ":" + vmPath, hostPath})
}

func (c *Client) transfer(ctx context.Context, name string, args []string) error {
	c.logger.Debug("multipass", "args", strings.Join(args, " "))
	var stderr bytes.Buffer
	code, err := c.runner.Run(ctx, RunSpec{Args: args, Stderr: &stderr})
	if err != nil {
		return err
	}
	if code != 0 {
		return &CommandError{
			Args:     args,
			ExitCode: code,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      classifyTransfer(name, stderr.String()),
		}
	}
	return nil
}

// Mounts returns the instance's active mounts as a map of VM path to host
// source path.
func (c *Client) Mounts(ctx context.Context, name string) (map[string]string, error) {
	out, err := c.capture(ctx, name, "info", name, "--format", "json")
	if err != nil {
		return nil, err
	}
	return parseInfoMounts(out, name)
}

// Mount maps a host directory into the instance at vmPath.
func (c *Client) Mount(ctx context.Context, name, hostPath, vmPath string) error {
	_, err := c.capture(ctx, name, "mount", hostPath, name+":"+vmPath)
	return err
}

// Umount removes the mount at vmPath.
func (c *Client) Umount(ctx context.Context, name, vmPath string) error {
	_, err := c.capture(ctx, name, "umount", name+":"+vmPath)
	return err
}
