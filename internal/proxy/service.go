// Package proxy implements the build/run/clean orchestration between the
// host and the VM. It composes the session, SDK, and fingerprint layers
// into the user-facing operations and owns the error taxonomy the command
// layer reports from. All stages of one operation are strictly sequential;
// the only internal concurrency is the output relay inside the session.
package proxy

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/westvm/westvm/internal/config"
	"github.com/westvm/westvm/internal/fingerprint"
	"github.com/westvm/westvm/internal/multipass"
	"github.com/westvm/westvm/internal/output"
	"github.com/westvm/westvm/internal/sdk"
	"github.com/westvm/westvm/internal/session"
	"github.com/westvm/westvm/internal/stream"
	"github.com/westvm/westvm/internal/workspace"
)

// tailLines bounds the trailing output captured for failure reports.
const tailLines = 40

// Project identifies what one invocation operates on. SourceDir must
// already be normalized (absolute, symlinks resolved) so the fingerprint
// is stable across spellings.
type Project struct {
	SourceDir string
	Board     string
}

// Fingerprint returns the project's build-directory identity.
func (p Project) Fingerprint() fingerprint.Fingerprint {
	return fingerprint.Compute(p.SourceDir, p.Board)
}

// Service orchestrates the proxy operations. Build and Twister need a
// workspace; Run and Clean work from the project identity alone.
type Service struct {
	sess    *session.Session
	sdk     sdk.Ensurer
	cfg     *config.Config
	ws      *workspace.Workspace
	logger  *output.Logger
	lockDir string
}

// New creates a Service. ws may be nil for operations that never touch
// the workspace (run, clean, status).
func New(sess *session.Session, ensurer sdk.Ensurer, cfg *config.Config, ws *workspace.Workspace, logger *output.Logger, lockDir string) *Service {
	if logger == nil {
		logger = output.DefaultLogger
	}
	return &Service{
		sess:    sess,
		sdk:     ensurer,
		cfg:     cfg,
		ws:      ws,
		logger:  logger,
		lockDir: lockDir,
	}
}

// ensureUp brings the VM to a running state. EnsureRunning already is the
// create/start recovery cycle; when it still fails the VM counts as
// unreachable.
func (s *Service) ensureUp(ctx context.Context) error {
	if err := s.sess.EnsureRunning(ctx); err != nil {
		return &VMUnreachableError{VMName: s.sess.Name(), Err: err}
	}
	return nil
}

// translate converts a leftover transport error into the taxonomy. Errors
// that are already typed pass through.
func (s *Service) translate(err error) error {
	if err == nil {
		return nil
	}
	if multipass.IsTransportError(err) {
		return &VMUnreachableError{VMName: s.sess.Name(), Err: err}
	}
	return err
}

// retryOnTransport runs fn, and on a transport failure performs one VM
// recovery followed by a single retry. A second transport failure is
// surfaced as unreachable.
func (s *Service) retryOnTransport(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !multipass.IsTransportError(err) {
		return err
	}
	s.logger.Warn("VM became unreachable, recovering")
	if rerr := s.sess.EnsureRunning(ctx); rerr != nil {
		return &VMUnreachableError{VMName: s.sess.Name(), Err: rerr}
	}
	return s.translate(fn())
}

// mountSource makes a normalized host directory visible inside the VM and
// returns its VM path. Directories inside the workspace resolve through
// the workspace mount; outsiders get their own mount keyed by a path
// fingerprint so repeated invocations reuse it.
func (s *Service) mountSource(ctx context.Context, hostDir string) (string, error) {
	if s.ws != nil && s.ws.Contains(hostDir) {
		return s.ws.VMPath(hostDir, s.cfg.WorkspaceMount)
	}
	vmPath := "/mnt/ext_" + string(fingerprint.Compute(hostDir, "")[:8])
	if err := s.sess.EnsureMounted(ctx, hostDir, vmPath); err != nil {
		return "", s.translate(err)
	}
	return vmPath, nil
}

// quietSinks returns exec sinks that stay silent unless verbose, always
// feeding the returned tail for failure reports.
func (s *Service) quietSinks() (io.Writer, io.Writer, *stream.Tail) {
	tail := stream.NewTail(tailLines)
	if s.logger.Verbose() {
		return io.MultiWriter(s.logger.Stdout(), tail), io.MultiWriter(s.logger.Stderr(), tail), tail
	}
	return tail, tail, tail
}

// prepWorkspace refreshes the VM-side west state before a build or
// twister run: the CMake package registry export and the Zephyr Python
// dependencies. Both are best effort; a broken prep surfaces as a build
// failure with its own diagnostics, which beats failing here on warnings.
func (s *Service) prepWorkspace(ctx context.Context, vmRoot, vmZephyrBase string) {
	base := func() *multipass.Script {
		return s.sess.BaseScript().
			Export("ZEPHYR_BASE", vmZephyrBase).
			Chdir(vmRoot)
	}

	s.logger.Debug("refreshing west export and Python dependencies")
	stdout, stderr, tail := s.quietSinks()

	code, err := s.sess.Exec(ctx, session.ExecSpec{
		Script: base().Run("west", "zephyr-export").String(),
		Stdout: stdout, Stderr: stderr,
	})
	if err != nil || code != 0 {
		s.logger.Warn("west zephyr-export failed, continuing: %s", firstLine(tail.String()))
	}

	stdout, stderr, tail = s.quietSinks()
	code, err = s.sess.Exec(ctx, session.ExecSpec{
		Script: base().RunRaw("west packages pip --install -- --break-system-packages").String(),
		Stdout: stdout, Stderr: stderr,
	})
	if err == nil && code == 0 {
		return
	}
	s.logger.Debug("west packages pip unavailable, falling back to requirements.txt")

	requirements := path.Join(vmZephyrBase, "scripts", "requirements.txt")
	stdout, stderr, tail = s.quietSinks()
	code, err = s.sess.Exec(ctx, session.ExecSpec{
		Script: base().
			RunRaw("pip3 install --user -r " + multipass.Quote(requirements) + " --break-system-packages").
			RunRaw("pip3 install --user pyelftools --break-system-packages").
			String(),
		Stdout: stdout, Stderr: stderr,
	})
	if err != nil || code != 0 {
		s.logger.Warn("installing Python dependencies failed, continuing: %s", firstLine(tail.String()))
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}

// buildDirFor returns the VM build directory for a project.
func (s *Service) buildDirFor(p Project) string {
	return p.Fingerprint().Dir(s.cfg.BuildsBase)
}

// describeTarget renders the project for log lines.
func describeTarget(p Project) string {
	if p.Board == "" {
		return p.SourceDir
	}
	return fmt.Sprintf("%s (board %s)", p.SourceDir, p.Board)
}
