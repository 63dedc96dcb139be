package proxy

import (
	"context"
)

// CleanOptions control one clean invocation.
type CleanOptions struct {
	// All removes the entire builds base, affecting every project's
	// cached build, then recreates it empty.
	All bool
}

// Clean removes cached build output inside the VM. An absent VM means
// there is nothing to clean: the operation succeeds without creating the
// instance. A stopped VM is started first, since its disk still holds the
// directories.
func (s *Service) Clean(ctx context.Context, p Project, opts CleanOptions) error {
	state, err := s.sess.State(ctx)
	if err != nil {
		return s.translate(err)
	}
	if !state.Exists() {
		s.logger.Info("VM %q does not exist; nothing to clean", s.sess.Name())
		return nil
	}
	if err := s.ensureUp(ctx); err != nil {
		return err
	}

	if opts.All {
		lock, err := acquireBaseLock(s.lockDir)
		if err != nil {
			return err
		}
		defer lock.release()

		s.logger.Info("Removing all cached builds in VM %q...", s.sess.Name())
		if err := s.sess.RemoveDir(ctx, s.cfg.BuildsBase); err != nil {
			return s.translate(err)
		}
		if err := s.sess.MkdirAll(ctx, s.cfg.BuildsBase); err != nil {
			return s.translate(err)
		}
		s.logger.Success("All builds removed")
		return nil
	}

	fp := p.Fingerprint()
	buildDir := fp.Dir(s.cfg.BuildsBase)

	lock, err := acquireBuildLock(s.lockDir, fp)
	if err != nil {
		return err
	}
	defer lock.release()

	s.logger.Info("Cleaning build for %s (%s)...", describeTarget(p), buildDir)
	if err := s.sess.RemoveDir(ctx, buildDir); err != nil {
		return s.translate(err)
	}
	s.logger.Success("Build directory removed")
	return nil
}
