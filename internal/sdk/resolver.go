package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/westvm/westvm/internal/config"
	"github.com/westvm/westvm/internal/multipass"
	"github.com/westvm/westvm/internal/output"
	"github.com/westvm/westvm/internal/session"
	"github.com/westvm/westvm/internal/stream"
)

// ErrVersionUnavailable means the requested version has no published
// release artifact to download.
var ErrVersionUnavailable = errors.New("SDK version unavailable")

// markerFile records the installed version inside the SDK directory. The
// official SDK ships this file; installs rewrite it as their final step,
// so an interrupted install re-triggers provisioning on the next check.
const markerFile = "sdk_version"

// releaseURL is the download location of the official minimal SDK
// tarball. ${ARCH} is expanded inside the VM.
const releaseURL = "https://github.com/zephyrproject-rtos/sdk-ng/releases/download/v%s/zephyr-sdk-%s_linux-${ARCH}_minimal.tar.xz"

// Exit codes the install scripts reserve to make failures attributable.
const (
	codeDownloadFailed  = 8 // wget's server-error exit code
	codeUnsupportedArch = 9
)

// Ensurer is what the orchestrator needs from the SDK layer.
type Ensurer interface {
	// Ensure makes the given SDK version the installed one. It is
	// idempotent: a matching installation returns after a single cheap
	// query.
	Ensure(ctx context.Context, v Version) error
}

// Error reports a failed SDK alignment with both sides of the mismatch.
type Error struct {
	Requested Version
	Installed Version // empty when nothing was installed
	Err       error
}

func (e *Error) Error() string {
	installed := "none"
	if e.Installed != "" {
		installed = string(e.Installed)
	}
	return fmt.Sprintf("Zephyr SDK %s could not be provisioned (installed: %s): %v",
		e.Requested, installed, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Resolver aligns the SDK installed in the VM with the version the
// workspace declares.
type Resolver struct {
	sess   *session.Session
	cfg    *config.Config
	logger *output.Logger
}

// NewResolver creates a Resolver working through the given session.
func NewResolver(sess *session.Session, cfg *config.Config, logger *output.Logger) *Resolver {
	if logger == nil {
		logger = output.DefaultLogger
	}
	return &Resolver{sess: sess, cfg: cfg, logger: logger}
}

// Installed returns the version currently recorded in the VM, or "" when
// no usable installation exists. A present but unparseable marker counts
// as not installed, which forces a clean reinstall.
func (r *Resolver) Installed(ctx context.Context) (Version, error) {
	marker := path.Join(r.cfg.SDKDir, markerFile)
	out, code, err := r.sess.Query(ctx, "cat "+multipass.Quote(marker)+" 2>/dev/null")
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", nil
	}
	v, err := ParseVersion(out)
	if err != nil {
		return "", nil
	}
	return v, nil
}

// Ensure implements Ensurer. A transport failure mid-check triggers one VM
// recovery followed by a single retry; a second failure is fatal.
func (r *Resolver) Ensure(ctx context.Context, want Version) error {
	err := r.ensure(ctx, want)
	if err == nil || !multipass.IsTransportError(err) {
		return err
	}

	r.logger.Warn("VM became unreachable during SDK provisioning, recovering")
	if rerr := r.sess.EnsureRunning(ctx); rerr != nil {
		return rerr
	}
	return r.ensure(ctx, want)
}

func (r *Resolver) ensure(ctx context.Context, want Version) error {
	installed, err := r.Installed(ctx)
	if err != nil {
		return err
	}
	if installed == want {
		r.logger.Debug("Zephyr SDK %s already installed", want)
		return nil
	}

	if installed != "" {
		r.logger.Info("Replacing Zephyr SDK %s with %s", installed, want)
	}
	// An interrupted install leaves the directory behind without a
	// readable marker. Remove it unconditionally, or the unpacked tree
	// nests inside the stale one and setup.sh is never found.
	if err := r.sess.RemoveDir(ctx, r.cfg.SDKDir); err != nil {
		return err
	}
	return r.install(ctx, want, installed)
}

// install downloads and unpacks the SDK, runs its host-tool setup, and
// writes the version marker last.
func (r *Resolver) install(ctx context.Context, want, previous Version) error {
	url := fmt.Sprintf(releaseURL, want, want)
	download := fmt.Sprintf(
		`ARCH=$(uname -m) && case "$ARCH" in x86_64|aarch64) : ;; *) echo "unsupported architecture: $ARCH" >&2 && exit %d ;; esac && wget -q "%s" -O /tmp/zephyr-sdk.tar.xz || exit %d`,
		codeUnsupportedArch, url, codeDownloadFailed)

	spin := output.NewSpinner(fmt.Sprintf("Downloading Zephyr SDK %s", want))
	spin.Start()
	code, err := r.runInstallStep(ctx, download)
	spin.Stop(err == nil && code == 0)
	if err != nil {
		return err
	}
	switch code {
	case 0:
	case codeDownloadFailed:
		return &Error{Requested: want, Installed: previous,
			Err: fmt.Errorf("%w: no release artifact for v%s", ErrVersionUnavailable, want)}
	case codeUnsupportedArch:
		return &Error{Requested: want, Installed: previous,
			Err: errors.New("VM architecture is not supported by the SDK")}
	default:
		return &Error{Requested: want, Installed: previous,
			Err: fmt.Errorf("download exited with status %d", code)}
	}

	sdkDir := multipass.Quote(r.cfg.SDKDir)
	marker := multipass.Quote(path.Join(r.cfg.SDKDir, markerFile))
	setup := multipass.NewScript().
		RunRaw("mkdir -p /tmp/zephyr-sdk-unpack").
		RunRaw("tar -xJf /tmp/zephyr-sdk.tar.xz -C /tmp/zephyr-sdk-unpack").
		RunRaw("rm -f /tmp/zephyr-sdk.tar.xz").
		RunRaw("mv /tmp/zephyr-sdk-unpack/zephyr-sdk-* " + sdkDir).
		RunRaw("rmdir /tmp/zephyr-sdk-unpack").
		RunRaw(sdkDir + "/setup.sh -c").
		RunRaw("printf '%s\\n' " + multipass.Quote(string(want)) + " > " + marker).
		String()

	spin = output.NewSpinner("Installing SDK host tools")
	spin.Start()
	code, err = r.runInstallStep(ctx, setup)
	spin.Stop(err == nil && code == 0)
	if err != nil {
		return err
	}
	if code != 0 {
		return &Error{Requested: want, Installed: previous,
			Err: fmt.Errorf("installation exited with status %d", code)}
	}

	r.logger.Success("Zephyr SDK %s installed", want)
	return nil
}

// runInstallStep executes one install script, relaying its output only in
// verbose mode but keeping a tail for failure reports.
func (r *Resolver) runInstallStep(ctx context.Context, script string) (int, error) {
	tail := stream.NewTail(20)
	var stdout, stderr io.Writer = tail, tail
	if r.logger.Verbose() {
		stdout = io.MultiWriter(r.logger.Stdout(), tail)
		stderr = io.MultiWriter(r.logger.Stderr(), tail)
	}
	code, err := r.sess.Exec(ctx, session.ExecSpec{Script: script, Stdout: stdout, Stderr: stderr})
	if err != nil {
		return code, err
	}
	if code != 0 && !r.logger.Verbose() && tail.String() != "" {
		r.logger.Debug("install step output:\n%s", tail.String())
	}
	return code, nil
}
