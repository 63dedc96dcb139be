package session

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/westvm/westvm/internal/multipass"
	"github.com/westvm/westvm/internal/output"
	"github.com/westvm/westvm/internal/stream"
)

// provisionPackages are the build dependencies the Zephyr build system
// needs inside the VM. The SDK itself is versioned and managed separately.
var provisionPackages = []string{
	"git", "cmake", "ninja-build", "gperf", "ccache", "device-tree-compiler",
	"wget", "file", "libmagic1", "xz-utils", "python3-dev", "python3-pip",
	"python3-setuptools", "python3-wheel", "build-essential", "libsdl2-dev",
}

// Provision installs everything a build needs except the SDK: system
// packages, west, the builds directory, and persistent shell environment
// for interactive VM sessions. It is safe to run on an already provisioned
// instance.
func (s *Session) Provision(ctx context.Context) error {
	steps := []struct {
		name   string
		script string
	}{
		{
			"Installing build dependencies",
			"sudo apt-get update && sudo DEBIAN_FRONTEND=noninteractive apt-get install -y --no-install-recommends " +
				strings.Join(provisionPackages, " "),
		},
		{
			"Installing west",
			"pip3 install --user west --break-system-packages",
		},
		{
			"Preparing build directories",
			"mkdir -p " + multipass.Quote(s.cfg.BuildsBase),
		},
		{
			"Configuring shell environment",
			s.shellEnvScript(),
		},
	}

	progress := output.NewProgress(len(steps))
	for _, step := range steps {
		progress.Stage(step.name)

		tail := stream.NewTail(20)
		var stdout, stderr io.Writer = tail, tail
		if s.logger.Verbose() {
			stdout = io.MultiWriter(s.logger.Stdout(), tail)
			stderr = io.MultiWriter(s.logger.Stderr(), tail)
		}

		code, err := s.Exec(ctx, ExecSpec{Script: step.script, Stdout: stdout, Stderr: stderr})
		if err != nil {
			return fmt.Errorf("provisioning (%s): %w", strings.ToLower(step.name), err)
		}
		if code != 0 {
			return fmt.Errorf("provisioning (%s): exit status %d\n%s",
				strings.ToLower(step.name), code, tail.String())
		}
	}
	progress.Done("VM provisioned")
	return nil
}

// shellEnvScript writes the Zephyr environment into the VM user's bashrc
// once and points ccache at a bounded cache. The exports only serve
// interactive shells; tool invocations set their environment explicitly.
func (s *Session) shellEnvScript() string {
	exports := []string{
		"export ZEPHYR_TOOLCHAIN_VARIANT=zephyr",
		"export ZEPHYR_SDK_INSTALL_DIR=" + s.cfg.SDKDir,
		"export PATH=$PATH:$HOME/.local/bin",
	}
	printfArgs := make([]string, 0, len(exports))
	for _, e := range exports {
		printfArgs = append(printfArgs, multipass.Quote(e))
	}
	bashrc := multipass.Quote(s.cfg.VMHome + "/.bashrc")

	return multipass.NewScript().
		RunRaw("grep -q ZEPHYR_SDK_INSTALL_DIR " + bashrc + " 2>/dev/null || printf '%s\\n' " +
			strings.Join(printfArgs, " ") + " >> " + bashrc).
		RunRaw("ccache --max-size=5G").
		RunRaw("ccache --set-config=cache_dir=" + multipass.Quote(s.cfg.VMHome+"/.ccache")).
		String()
}

// verifySetup checks the invariants Provision establishes with a single
// cheap remote command.
func (s *Session) verifySetup(ctx context.Context) (bool, error) {
	script := "export PATH=$PATH:$HOME/.local/bin && command -v west >/dev/null 2>&1 && test -d " +
		multipass.Quote(s.cfg.BuildsBase)
	code, err := s.Exec(ctx, ExecSpec{Script: script})
	if err != nil {
		return false, err
	}
	return code == 0, nil
}
