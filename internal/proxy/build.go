package proxy

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"

	"github.com/westvm/westvm/internal/multipass"
	"github.com/westvm/westvm/internal/session"
	"github.com/westvm/westvm/internal/stream"
)

// artifactNames are the well-known build outputs sync looks for under
// <build dir>/zephyr. Which of them exist depends on the board; missing
// ones are warnings, not failures.
var artifactNames = []string{
	"zephyr.elf",
	"zephyr.exe",
	"zephyr.bin",
	"zephyr.hex",
	"zephyr.map",
}

// BuildOptions control one build invocation.
type BuildOptions struct {
	// Pristine removes the build directory before compiling.
	Pristine bool
	// Sync copies the well-known artifacts to the host after a
	// successful build.
	Sync bool
	// ExtraArgs are passed through to west build verbatim.
	ExtraArgs []string
}

// Build compiles the project inside the VM. The SDK version is
// re-validated on every build, even when the build directory already
// exists, so a workspace-level SDK upgrade takes effect on the next build
// without a pristine rebuild.
func (s *Service) Build(ctx context.Context, p Project, opts BuildOptions) error {
	if err := s.ensureUp(ctx); err != nil {
		return err
	}
	if err := s.sdk.Ensure(ctx, s.ws.SDKVersion); err != nil {
		return s.translate(err)
	}

	fp := p.Fingerprint()
	buildDir := fp.Dir(s.cfg.BuildsBase)

	lock, err := acquireBuildLock(s.lockDir, fp)
	if err != nil {
		return err
	}
	defer lock.release()

	if opts.Pristine {
		s.logger.Info("Pristine build: removing %s", buildDir)
		if err := s.sess.RemoveDir(ctx, buildDir); err != nil {
			return s.translate(err)
		}
	}

	if err := s.sess.EnsureMounted(ctx, s.ws.Root, s.cfg.WorkspaceMount); err != nil {
		return s.translate(err)
	}
	vmSource, err := s.mountSource(ctx, p.SourceDir)
	if err != nil {
		return err
	}
	vmZephyrBase, err := s.mountSource(ctx, s.ws.ZephyrBase)
	if err != nil {
		return err
	}

	s.prepWorkspace(ctx, s.cfg.WorkspaceMount, vmZephyrBase)

	if err := s.sess.MkdirAll(ctx, buildDir); err != nil {
		return s.translate(err)
	}

	buildArgs := []string{"build", "-s", vmSource, "-d", buildDir}
	if p.Board != "" {
		buildArgs = append(buildArgs, "-b", p.Board)
	}
	buildArgs = append(buildArgs, opts.ExtraArgs...)

	script := s.sess.BaseScript().
		Export("ZEPHYR_BASE", vmZephyrBase).
		Chdir(s.cfg.WorkspaceMount).
		Run("west", buildArgs...).
		String()

	s.logger.Info("Building %s in VM %q...", describeTarget(p), s.sess.Name())

	tail := stream.NewTail(tailLines)
	var code int
	err = s.retryOnTransport(ctx, func() error {
		var execErr error
		code, execErr = s.sess.Exec(ctx, session.ExecSpec{
			Script: script,
			Stdout: io.MultiWriter(s.logger.Stdout(), tail),
			Stderr: io.MultiWriter(s.logger.Stderr(), tail),
		})
		return execErr
	})
	if err != nil {
		return err
	}
	if code != 0 {
		return &BuildFailedError{ExitCode: code, Tail: tail.String()}
	}

	s.logger.Success("Build completed (%s)", buildDir)

	if opts.Sync {
		return s.syncArtifacts(ctx, buildDir, p.SourceDir)
	}
	return nil
}

// syncArtifacts copies the well-known artifacts from the VM build
// directory into the project's host-side artifact directory, overwriting
// prior copies. Individual missing artifacts are warnings; a sync that
// produces nothing at all is a TransferError.
func (s *Service) syncArtifacts(ctx context.Context, buildDir, sourceDir string) error {
	hostDir := filepath.Join(sourceDir, s.cfg.ArtifactDir, "zephyr")

	var synced int
	var missing []string
	for _, name := range artifactNames {
		vmPath := path.Join(buildDir, "zephyr", name)
		hostPath := filepath.Join(hostDir, name)
		err := s.sess.CopyOut(ctx, vmPath, hostPath)
		switch {
		case err == nil:
			s.logger.Debug("synced %s", hostPath)
			synced++
		case errors.Is(err, multipass.ErrNoSuchFile):
			missing = append(missing, name)
		default:
			s.logger.Warn("could not sync %s: %v", name, err)
			missing = append(missing, name)
		}
	}

	if synced == 0 {
		return &TransferError{Missing: missing}
	}
	if len(missing) > 0 {
		s.logger.Warn("skipped absent artifacts: %v", missing)
	}
	s.logger.Success("Synced %d artifacts to %s", synced, hostDir)
	return nil
}
