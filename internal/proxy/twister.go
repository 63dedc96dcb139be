package proxy

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/westvm/westvm/internal/multipass"
	"github.com/westvm/westvm/internal/session"
	"github.com/westvm/westvm/internal/stream"
)

// TwisterOptions control one twister invocation.
type TwisterOptions struct {
	// OutDir is the twister output directory. Relative paths are
	// resolved inside the VM workspace; empty means "twister-out".
	OutDir string
	// NoSync runs twister directly on the workspace mount instead of an
	// rsync'd VM-local copy. Slower for large test sets, but results
	// land on the host without a pull.
	NoSync bool
	// PullResults copies the output directory back to the host after
	// the run.
	PullResults bool
	// ExtraArgs are passed through to west twister verbatim.
	ExtraArgs []string
}

// Twister runs the Zephyr test runner inside the VM. By default the
// mounted workspace is first rsync'd to VM-local storage, since twister's
// I/O pattern is punishing over a host mount, and results are synced back
// into the mount afterwards when requested.
func (s *Service) Twister(ctx context.Context, opts TwisterOptions) error {
	if err := s.ensureUp(ctx); err != nil {
		return err
	}
	if err := s.sdk.Ensure(ctx, s.ws.SDKVersion); err != nil {
		return s.translate(err)
	}
	if err := s.sess.EnsureMounted(ctx, s.ws.Root, s.cfg.WorkspaceMount); err != nil {
		return s.translate(err)
	}

	vmRoot := s.cfg.WorkspaceMount
	vmZephyrBase, err := s.ws.VMPath(s.ws.ZephyrBase, vmRoot)
	if err != nil {
		return err
	}

	localRoot := s.cfg.VMHome + "/src"
	if !opts.NoSync {
		if err := s.syncToLocal(ctx, s.cfg.WorkspaceMount, localRoot); err != nil {
			return err
		}
		vmZephyrBase, err = s.ws.VMPath(s.ws.ZephyrBase, localRoot)
		if err != nil {
			return err
		}
		vmRoot = localRoot
	}

	s.prepWorkspace(ctx, vmRoot, vmZephyrBase)

	outDir := opts.OutDir
	if outDir == "" {
		outDir = "twister-out"
	}

	twisterArgs := []string{"twister", "-O", outDir}
	twisterArgs = append(twisterArgs, opts.ExtraArgs...)

	script := s.sess.BaseScript().
		Export("ZEPHYR_BASE", vmZephyrBase).
		Chdir(vmRoot).
		Run("west", twisterArgs...).
		String()

	s.logger.Info("Running twister in VM %q...", s.sess.Name())

	tail := stream.NewTail(tailLines)
	code, err := s.sess.Exec(ctx, session.ExecSpec{
		Script: script,
		Stdout: io.MultiWriter(s.logger.Stdout(), tail),
		Stderr: io.MultiWriter(s.logger.Stderr(), tail),
	})
	if err != nil {
		return s.translate(err)
	}

	if opts.PullResults {
		if perr := s.pullResults(ctx, vmRoot, outDir, opts.NoSync); perr != nil {
			s.logger.Warn("could not pull twister results: %v", perr)
		}
	}

	if code != 0 {
		return &BuildFailedError{ExitCode: code, Tail: tail.String()}
	}
	s.logger.Success("Twister completed")
	return nil
}

// syncToLocal rsyncs the mounted workspace into VM-local storage,
// excluding trees that would only slow the copy down.
func (s *Service) syncToLocal(ctx context.Context, vmMount, vmLocal string) error {
	s.logger.Info("Syncing workspace to VM-local storage...")
	script := multipass.NewScript().
		RunRaw("mkdir -p " + multipass.Quote(vmLocal)).
		RunRaw("rsync -a --delete --exclude=.git --exclude=build --exclude=__pycache__ --exclude='*.pyc' " +
			multipass.Quote(vmMount+"/") + " " + multipass.Quote(vmLocal+"/")).
		String()

	stdout, stderr, tail := s.quietSinks()
	code, err := s.sess.Exec(ctx, session.ExecSpec{Script: script, Stdout: stdout, Stderr: stderr})
	if err != nil {
		return s.translate(err)
	}
	if code != 0 {
		return &BuildFailedError{ExitCode: code, Tail: tail.String()}
	}
	return nil
}

// pullResults makes the twister output reachable on the host. When the
// run happened in VM-local storage the results are rsync'd back into the
// workspace mount, where they appear on the host directly; a NoSync run
// on the mount already left them there. Absolute out directories outside
// the workspace are transferred recursively instead.
func (s *Service) pullResults(ctx context.Context, vmRoot, outDir string, noSync bool) error {
	if strings.HasPrefix(outDir, "/") {
		hostDir := filepath.Join(s.ws.Root, filepath.Base(outDir))
		s.logger.Info("Transferring results to %s...", hostDir)
		return s.translate(s.sess.CopyOutDir(ctx, outDir, hostDir))
	}

	if !noSync {
		src := path.Join(vmRoot, outDir)
		dst := path.Join(s.cfg.WorkspaceMount, outDir)
		script := multipass.NewScript().
			RunRaw("mkdir -p " + multipass.Quote(dst)).
			RunRaw("rsync -a --delete " + multipass.Quote(src+"/") + " " + multipass.Quote(dst+"/")).
			String()
		stdout, stderr, tail := s.quietSinks()
		code, err := s.sess.Exec(ctx, session.ExecSpec{Script: script, Stdout: stdout, Stderr: stderr})
		if err != nil {
			return s.translate(err)
		}
		if code != 0 {
			return &BuildFailedError{ExitCode: code, Tail: tail.String()}
		}
	}

	s.logger.Info("Results available on host at: %s", filepath.Join(s.ws.Root, outDir))
	return nil
}
