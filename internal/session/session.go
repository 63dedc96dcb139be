// Package session manages the lifecycle of the build VM and provides the
// primitives the orchestrator composes: ensure-running, remote execution,
// file transfer, and mount management. State is queried from the provider
// on every operation and never cached across invocations.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/westvm/westvm/internal/config"
	"github.com/westvm/westvm/internal/multipass"
	"github.com/westvm/westvm/internal/output"
)

// Session binds a multipass client to the configured instance.
type Session struct {
	client *multipass.Client
	cfg    *config.Config
	logger *output.Logger
}

// New creates a Session for the configured instance.
func New(client *multipass.Client, cfg *config.Config, logger *output.Logger) *Session {
	if logger == nil {
		logger = output.DefaultLogger
	}
	return &Session{client: client, cfg: cfg, logger: logger}
}

// Name returns the instance name the session operates on.
func (s *Session) Name() string { return s.cfg.VMName }

// State queries the instance's current lifecycle state.
func (s *Session) State(ctx context.Context) (multipass.State, error) {
	return s.client.State(ctx, s.cfg.VMName)
}

// EnsureRunning brings the instance to a running, provisioned state:
// absent instances are created and provisioned, stopped ones started,
// running ones only verified. It is safe and cheap to call before every
// operation.
func (s *Session) EnsureRunning(ctx context.Context) error {
	state, err := s.State(ctx)
	if err != nil {
		return err
	}

	switch {
	case state == multipass.StateAbsent:
		s.logger.Info("Creating VM %q (%s, %d CPUs, %s memory, %s disk)...",
			s.cfg.VMName, s.cfg.Image, s.cfg.CPUs, s.cfg.Memory, s.cfg.Disk)
		if err := s.client.Launch(ctx, s.cfg.VMName, multipass.LaunchProfile{
			Image:  s.cfg.Image,
			CPUs:   s.cfg.CPUs,
			Memory: s.cfg.Memory,
			Disk:   s.cfg.Disk,
		}); err != nil {
			return fmt.Errorf("creating VM: %w", err)
		}
		return s.Provision(ctx)

	case state.CanStart():
		s.logger.Info("Starting VM %q...", s.cfg.VMName)
		if err := s.client.Start(ctx, s.cfg.VMName); err != nil {
			return fmt.Errorf("starting VM: %w", err)
		}
		return s.ensureProvisioned(ctx)

	case state == multipass.StateRunning:
		return s.ensureProvisioned(ctx)

	default:
		return fmt.Errorf("VM %q is %s; wait for it to settle and retry", s.cfg.VMName, state)
	}
}

// ensureProvisioned runs the cheap setup check and re-provisions only when
// it fails, so the common path costs one remote command.
func (s *Session) ensureProvisioned(ctx context.Context) error {
	ok, err := s.verifySetup(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	s.logger.Warn("VM setup incomplete, re-provisioning")
	return s.Provision(ctx)
}

// ExecSpec describes one streamed remote execution.
type ExecSpec struct {
	// Script is the remote bash command line.
	Script string
	// Stdin, when set, attaches the caller's input to the remote command.
	Stdin io.Reader
	// Stdout and Stderr receive the remote streams as they arrive. Nil
	// writers discard.
	Stdout io.Writer
	Stderr io.Writer
}

// Exec runs a script in the instance, relaying output while it runs, and
// returns the remote exit code. Transport failures are returned as errors;
// a non-zero remote exit is not an error here.
func (s *Session) Exec(ctx context.Context, spec ExecSpec) (int, error) {
	return s.client.Exec(ctx, s.cfg.VMName, spec.Script, multipass.ExecIO{
		Stdin:  spec.Stdin,
		Stdout: spec.Stdout,
		Stderr: spec.Stderr,
	})
}

// Query runs a script quietly and captures its stdout.
func (s *Session) Query(ctx context.Context, script string) (string, int, error) {
	return s.client.Output(ctx, s.cfg.VMName, script)
}

// BaseScript returns a Script preloaded with the environment every remote
// Zephyr command needs: west on PATH, the toolchain variant, and the SDK
// location.
func (s *Session) BaseScript() *multipass.Script {
	return multipass.NewScript().
		ExportRaw("PATH", "$PATH:$HOME/.local/bin").
		Export("ZEPHYR_TOOLCHAIN_VARIANT", "zephyr").
		Export("ZEPHYR_SDK_INSTALL_DIR", s.cfg.SDKDir)
}

// CopyOut transfers a file from the instance to hostPath. The transfer
// lands in a uniquely named temp file that is renamed into place, so a
// failed transfer never leaves a truncated artifact at the final name. A
// missing VM-side source yields multipass.ErrNoSuchFile.
func (s *Session) CopyOut(ctx context.Context, vmPath, hostPath string) error {
	dir := filepath.Dir(hostPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp := hostPath + ".partial-" + uuid.New().String()
	if err := s.client.Transfer(ctx, s.cfg.VMName, vmPath, tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, hostPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("placing %s: %w", hostPath, err)
	}
	return nil
}

// CopyOutDir recursively transfers a directory from the instance into
// hostDir.
func (s *Session) CopyOutDir(ctx context.Context, vmPath, hostDir string) error {
	if err := os.MkdirAll(hostDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", hostDir, err)
	}
	return s.client.TransferDir(ctx, s.cfg.VMName, vmPath, hostDir)
}

// DirExists reports whether a directory exists in the instance.
func (s *Session) DirExists(ctx context.Context, vmPath string) (bool, error) {
	code, err := s.Exec(ctx, ExecSpec{Script: "test -d " + multipass.Quote(vmPath)})
	if err != nil {
		return false, err
	}
	return code == 0, nil
}

// RemoveDir removes a directory tree in the instance. Removing a missing
// directory succeeds.
func (s *Session) RemoveDir(ctx context.Context, vmPath string) error {
	code, err := s.Exec(ctx, ExecSpec{Script: "rm -rf " + multipass.Quote(vmPath)})
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("removing %s: exit status %d", vmPath, code)
	}
	return nil
}

// MkdirAll creates a directory tree in the instance.
func (s *Session) MkdirAll(ctx context.Context, vmPath string) error {
	code, err := s.Exec(ctx, ExecSpec{Script: "mkdir -p " + multipass.Quote(vmPath)})
	if err != nil {
		return err
	}
	if code != 0 {
		return fmt.Errorf("creating %s: exit status %d", vmPath, code)
	}
	return nil
}

// EnsureMounted maps hostPath into the instance at vmPath. An existing
// mount with a different source is replaced; a matching one is left alone.
func (s *Session) EnsureMounted(ctx context.Context, hostPath, vmPath string) error {
	mounts, err := s.client.Mounts(ctx, s.cfg.VMName)
	if err != nil {
		return err
	}
	if src, ok := mounts[vmPath]; ok {
		if src == hostPath {
			return nil
		}
		s.logger.Debug("remounting %s: source changed from %s to %s", vmPath, src, hostPath)
		if err := s.client.Umount(ctx, s.cfg.VMName, vmPath); err != nil {
			return err
		}
	}
	s.logger.Debug("mounting %s at %s", hostPath, vmPath)
	return s.client.Mount(ctx, s.cfg.VMName, hostPath, vmPath)
}

// Stop stops the instance if it is running. Stopping an absent instance
// is a no-op.
func (s *Session) Stop(ctx context.Context) error {
	state, err := s.State(ctx)
	if err != nil {
		return err
	}
	if !state.Exists() {
		s.logger.Info("VM %q does not exist; nothing to stop", s.cfg.VMName)
		return nil
	}
	if state != multipass.StateRunning {
		s.logger.Info("VM %q is already %s", s.cfg.VMName, state)
		return nil
	}
	return s.client.Stop(ctx, s.cfg.VMName)
}
