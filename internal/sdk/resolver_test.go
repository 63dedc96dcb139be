package sdk

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westvm/westvm/internal/config"
	"github.com/westvm/westvm/internal/multipass"
	"github.com/westvm/westvm/internal/multipass/multipasstest"
	"github.com/westvm/westvm/internal/output"
	"github.com/westvm/westvm/internal/session"
)

func newTestResolver(fake *multipasstest.Fake) *Resolver {
	cfg := config.DefaultConfig()
	logger := output.NewLoggerTo(io.Discard, io.Discard)
	sess := session.New(multipass.NewClient(fake, nil), cfg, logger)
	return NewResolver(sess, cfg, logger)
}

// execsContaining counts exec invocations whose script mentions substr.
func execsContaining(fake *multipasstest.Fake, substr string) int {
	n := 0
	for _, call := range fake.Calls() {
		if len(call) == 0 || call[0] != "exec" {
			continue
		}
		for _, arg := range call {
			if strings.Contains(arg, substr) {
				n++
				break
			}
		}
	}
	return n
}

func TestEnsureNoopWhenVersionMatches(t *testing.T) {
	fake := multipasstest.New(
		multipasstest.Rule{Prefix: []string{"exec"}, Contains: "cat", Stdout: "0.17.0\n"},
		multipasstest.Rule{Prefix: []string{"exec"}},
	)
	r := newTestResolver(fake)

	require.NoError(t, r.Ensure(context.Background(), Version("0.17.0")))

	assert.Equal(t, 1, fake.CallCount("exec"), "a matching install costs one marker query")
	assert.Zero(t, execsContaining(fake, "wget"))
}

func TestEnsureInstallsWhenMarkerAbsent(t *testing.T) {
	fake := multipasstest.New(
		multipasstest.Rule{Prefix: []string{"exec"}, Contains: "cat", Code: 1},
		multipasstest.Rule{Prefix: []string{"exec"}},
	)
	r := newTestResolver(fake)

	require.NoError(t, r.Ensure(context.Background(), Version("0.17.0")))

	assert.Equal(t, 1, execsContaining(fake, "wget"), "download step runs")
	assert.Equal(t, 1, execsContaining(fake, "setup.sh"), "host tool setup runs")
	assert.Equal(t, 1, execsContaining(fake, "rm -rf /home/ubuntu/zephyr-sdk"), "target dir is cleared before unpacking")
	assert.Equal(t, 1, execsContaining(fake, "0.17.0_linux"), "tarball is version-keyed")
}

// execIndex returns the position of the first exec invocation whose script
// mentions substr, or -1.
func execIndex(fake *multipasstest.Fake, substr string) int {
	for i, call := range fake.Calls() {
		if len(call) == 0 || call[0] != "exec" {
			continue
		}
		for _, arg := range call {
			if strings.Contains(arg, substr) {
				return i
			}
		}
	}
	return -1
}

func TestEnsureClearsStaleDirWhenMarkerUnreadable(t *testing.T) {
	// An interrupted install can leave the SDK directory behind with no
	// readable marker. The leftover must go before the new tree is moved
	// into place; mv onto an existing directory would nest the SDK one
	// level down and wedge every later install.
	fake := multipasstest.New(
		multipasstest.Rule{Prefix: []string{"exec"}, Contains: "cat", Code: 1},
		multipasstest.Rule{Prefix: []string{"exec"}},
	)
	r := newTestResolver(fake)

	require.NoError(t, r.Ensure(context.Background(), Version("0.17.0")))

	rm := execIndex(fake, "rm -rf /home/ubuntu/zephyr-sdk")
	mv := execIndex(fake, "mv /tmp/zephyr-sdk-unpack")
	require.NotEqual(t, -1, rm, "stale SDK dir is removed")
	require.NotEqual(t, -1, mv, "new tree is moved into place")
	assert.Less(t, rm, mv, "removal precedes the move")
}

func TestEnsureReplacesMismatchedVersion(t *testing.T) {
	fake := multipasstest.New(
		multipasstest.Rule{Prefix: []string{"exec"}, Contains: "cat", Stdout: "0.16.0\n"},
		multipasstest.Rule{Prefix: []string{"exec"}},
	)
	r := newTestResolver(fake)

	require.NoError(t, r.Ensure(context.Background(), Version("0.17.0")))

	assert.Equal(t, 1, execsContaining(fake, "rm -rf"), "old installation is removed first")
	assert.Equal(t, 1, execsContaining(fake, "wget"))
	assert.Equal(t, 1, execsContaining(fake, "> /home/ubuntu/zephyr-sdk/sdk_version"), "marker is rewritten")
}

func TestEnsureSingleProvisioningAcrossUpgrade(t *testing.T) {
	// Marker starts at 0.16.0; after one Ensure(0.17.0) the marker reads
	// 0.17.0 and a second Ensure must not install again.
	fake := multipasstest.New(
		multipasstest.Rule{Prefix: []string{"exec"}, Contains: "cat", Stdout: "0.16.0\n", Once: true},
		multipasstest.Rule{Prefix: []string{"exec"}, Contains: "cat", Stdout: "0.17.0\n"},
		multipasstest.Rule{Prefix: []string{"exec"}},
	)
	r := newTestResolver(fake)

	require.NoError(t, r.Ensure(context.Background(), Version("0.17.0")))
	require.NoError(t, r.Ensure(context.Background(), Version("0.17.0")))

	assert.Equal(t, 1, execsContaining(fake, "wget"), "exactly one provisioning run")
}

func TestEnsureVersionUnavailable(t *testing.T) {
	fake := multipasstest.New(
		multipasstest.Rule{Prefix: []string{"exec"}, Contains: "cat", Code: 1},
		multipasstest.Rule{Prefix: []string{"exec"}, Contains: "wget", Code: 8},
		multipasstest.Rule{Prefix: []string{"exec"}},
	)
	r := newTestResolver(fake)

	err := r.Ensure(context.Background(), Version("9.9.9"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVersionUnavailable)

	var sdkErr *Error
	require.ErrorAs(t, err, &sdkErr)
	assert.Equal(t, Version("9.9.9"), sdkErr.Requested)
	assert.Equal(t, Version(""), sdkErr.Installed)
	assert.Contains(t, sdkErr.Error(), "installed: none")
}

func TestEnsureRecoversOnceFromTransportFailure(t *testing.T) {
	fake := multipasstest.New(
		multipasstest.Rule{
			Prefix: []string{"exec"}, Contains: "cat", Once: true,
			Code: 1, Stderr: `exec failed: instance "zephyr-vm" is not running`,
		},
		multipasstest.Rule{Prefix: []string{"list"}, Stdout: multipasstest.ListJSON("zephyr-vm", multipass.StateRunning)},
		multipasstest.Rule{Prefix: []string{"exec"}, Contains: "cat", Stdout: "0.17.0\n"},
		multipasstest.Rule{Prefix: []string{"exec"}},
	)
	r := newTestResolver(fake)

	require.NoError(t, r.Ensure(context.Background(), Version("0.17.0")))
	assert.Equal(t, 1, fake.CallCount("list"), "one recovery pass")
}

func TestEnsureSecondTransportFailureIsFatal(t *testing.T) {
	fake := multipasstest.New(
		multipasstest.Rule{
			Prefix: []string{"exec"}, Contains: "cat",
			Code: 1, Stderr: `exec failed: instance "zephyr-vm" is not running`,
		},
		multipasstest.Rule{Prefix: []string{"list"}, Stdout: multipasstest.ListJSON("zephyr-vm", multipass.StateRunning)},
		multipasstest.Rule{Prefix: []string{"exec"}},
	)
	r := newTestResolver(fake)

	err := r.Ensure(context.Background(), Version("0.17.0"))
	require.Error(t, err)
	assert.ErrorIs(t, err, multipass.ErrInstanceNotRunning)
	assert.Equal(t, 1, fake.CallCount("list"), "recovery is attempted exactly once")
}
