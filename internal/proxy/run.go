package proxy

import (
	"context"
	"io"
	"strings"

	"github.com/westvm/westvm/internal/multipass"
	"github.com/westvm/westvm/internal/session"
)

// NetMode selects whether the native_sim TAP network is prepared before a
// run.
type NetMode int

const (
	// NetAuto enables networking when the executable looks like a
	// native_sim binary.
	NetAuto NetMode = iota
	NetOn
	NetOff
)

// RunOptions control one run invocation.
type RunOptions struct {
	Net NetMode
	// Args are passed to the simulated program verbatim.
	Args []string
	// Stdin, when set, attaches the caller's input to the program so
	// interactive simulations work.
	Stdin io.Reader
}

// Run executes the project's built binary inside the VM, streaming its
// output live. The program's own exit status is forwarded as a
// *RunExitError when non-zero; that is the caller's exit code, not a
// proxy failure. A missing build directory is NotBuilt.
func (s *Service) Run(ctx context.Context, p Project, opts RunOptions) error {
	if err := s.ensureUp(ctx); err != nil {
		return err
	}

	buildDir := s.buildDirFor(p)
	exists, err := s.sess.DirExists(ctx, buildDir)
	if err != nil {
		return s.translate(err)
	}
	if !exists {
		return &NotBuiltError{SourceDir: p.SourceDir, Board: p.Board, Dir: buildDir}
	}

	exe, err := s.findExecutable(ctx, buildDir)
	if err != nil {
		return err
	}
	if exe == "" {
		return &NotBuiltError{SourceDir: p.SourceDir, Board: p.Board, Dir: buildDir}
	}

	if s.wantNetwork(opts.Net, exe) {
		if err := s.setupNativeSimNetwork(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("Running %s in VM %q...", exe, s.sess.Name())

	script := multipass.NewScript().
		RunRaw("chmod +x " + multipass.Quote(exe)).
		Run(exe, opts.Args...).
		String()
	code, err := s.sess.Exec(ctx, session.ExecSpec{
		Script: script,
		Stdin:  opts.Stdin,
		Stdout: s.logger.Stdout(),
		Stderr: s.logger.Stderr(),
	})
	if err != nil {
		return s.translate(err)
	}
	if code != 0 {
		return &RunExitError{Code: code}
	}
	return nil
}

// findExecutable locates the built binary under the build directory:
// zephyr.exe (modern native_sim) is preferred over zephyr.elf.
func (s *Service) findExecutable(ctx context.Context, buildDir string) (string, error) {
	exe := buildDir + "/zephyr/zephyr.exe"
	elf := buildDir + "/zephyr/zephyr.elf"
	script := "if [ -f " + multipass.Quote(exe) + " ]; then echo " + multipass.Quote(exe) +
		"; elif [ -f " + multipass.Quote(elf) + " ]; then echo " + multipass.Quote(elf) + "; fi"
	out, code, err := s.sess.Query(ctx, script)
	if err != nil {
		return "", s.translate(err)
	}
	if code != 0 {
		return "", nil
	}
	return strings.TrimSpace(out), nil
}

// wantNetwork decides whether to prepare the TAP device for this run.
func (s *Service) wantNetwork(mode NetMode, exe string) bool {
	switch mode {
	case NetOn:
		return true
	case NetOff:
		return false
	default:
		return strings.Contains(exe, "native_sim") || strings.HasSuffix(exe, ".exe")
	}
}

// setupNativeSimNetwork creates the canonical zeth TAP device inside the
// VM so a native_sim binary's Ethernet driver has an endpoint. The
// commands are idempotent; rerunning against an existing device changes
// nothing.
func (s *Service) setupNativeSimNetwork(ctx context.Context) error {
	s.logger.Debug("preparing zeth TAP device for native_sim networking")
	script := multipass.NewScript().
		RunRaw("ip link show zeth >/dev/null 2>&1 || sudo ip tuntap add zeth mode tap user $(whoami)").
		RunRaw("sudo ip link set zeth up").
		RunRaw("ip addr show dev zeth | grep -q 192.0.2.2 || sudo ip addr add 192.0.2.2/24 dev zeth").
		String()

	stdout, stderr, tail := s.quietSinks()
	code, err := s.sess.Exec(ctx, session.ExecSpec{Script: script, Stdout: stdout, Stderr: stderr})
	if err != nil {
		return s.translate(err)
	}
	if code != 0 {
		s.logger.Warn("TAP network setup failed, running without networking: %s", firstLine(tail.String()))
	}
	return nil
}
