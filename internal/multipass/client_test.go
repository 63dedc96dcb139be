package multipass

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptRunner is a single-response Runner for exercising the client.
type scriptRunner struct {
	stdout string
	stderr string
	code   int
	err    error
	calls  [][]string
}

func (r *scriptRunner) Run(_ context.Context, spec RunSpec) (int, error) {
	r.calls = append(r.calls, append([]string(nil), spec.Args...))
	if spec.Stdout != nil {
		_, _ = io.WriteString(spec.Stdout, r.stdout)
	}
	if spec.Stderr != nil {
		_, _ = io.WriteString(spec.Stderr, r.stderr)
	}
	return r.code, r.err
}

func TestParseListState(t *testing.T) {
	doc := `{"list":[{"ipv4":[],"name":"zephyr-vm","release":"Ubuntu 24.04 LTS","state":"Stopped"}]}`

	cases := []struct {
		name     string
		json     string
		instance string
		want     State
	}{
		{"present stopped", doc, "zephyr-vm", StateStopped},
		{"other instance only", doc, "primary", StateAbsent},
		{"empty list", `{"list":[]}`, "zephyr-vm", StateAbsent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseListState([]byte(tc.json), tc.instance)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		_, err := parseListState([]byte("launch failed"), "zephyr-vm")
		require.Error(t, err)
	})
}

func TestParseInfoMounts(t *testing.T) {
	doc := `{"errors":[],"info":{"zephyr-vm":{"mounts":{
		"/mnt/workspace":{"source_path":"/home/dev/zephyrproject"},
		"/mnt/ext_ab12cd34":{"source_path":"/home/dev/other/app"}
	}}}}`

	mounts, err := parseInfoMounts([]byte(doc), "zephyr-vm")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"/mnt/workspace":    "/home/dev/zephyrproject",
		"/mnt/ext_ab12cd34": "/home/dev/other/app",
	}, mounts)

	_, err = parseInfoMounts([]byte(doc), "other-vm")
	require.ErrorIs(t, err, ErrInstanceNotFound)
}

func TestClientState(t *testing.T) {
	r := &scriptRunner{stdout: `{"list":[{"name":"zephyr-vm","state":"Running"}]}`}
	c := NewClient(r, nil)

	state, err := c.State(context.Background(), "zephyr-vm")
	require.NoError(t, err)
	assert.Equal(t, StateRunning, state)
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"list", "--format", "json"}, r.calls[0])
}

func TestClientLaunchArgs(t *testing.T) {
	r := &scriptRunner{}
	c := NewClient(r, nil)

	err := c.Launch(context.Background(), "zephyr-vm", LaunchProfile{
		Image: "24.04", CPUs: 2, Memory: "4G", Disk: "20G",
	})
	require.NoError(t, err)
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{
		"launch", "24.04", "--name", "zephyr-vm",
		"--cpus", "2", "--memory", "4G", "--disk", "20G",
	}, r.calls[0])
}

func TestClientExecReturnsRemoteExitCode(t *testing.T) {
	r := &scriptRunner{stderr: "ninja: build stopped: subcommand failed.\n", code: 1}
	c := NewClient(r, nil)

	code, err := c.Exec(context.Background(), "zephyr-vm", "west build", ExecIO{})
	require.NoError(t, err, "a remote build failure is not a transport error")
	assert.Equal(t, 1, code)
}

func TestClientExecClassifiesTransportFailures(t *testing.T) {
	cases := []struct {
		name   string
		stderr string
		want   error
	}{
		{
			"instance missing",
			`exec failed: instance "zephyr-vm" does not exist`,
			ErrInstanceNotFound,
		},
		{
			"daemon down",
			"exec failed: cannot connect to the multipass socket",
			ErrDaemonUnavailable,
		},
		{
			"instance stopped",
			`instance "zephyr-vm" is not running`,
			ErrInstanceNotRunning,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := &scriptRunner{stderr: tc.stderr, code: 1}
			c := NewClient(r, nil)

			_, err := c.Exec(context.Background(), "zephyr-vm", "true", ExecIO{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var cmdErr *CommandError
			require.ErrorAs(t, err, &cmdErr)
			assert.Equal(t, 1, cmdErr.ExitCode)
		})
	}
}

func TestClientExecIgnoresRemoteStderrPhrases(t *testing.T) {
	// A failing remote command may itself print provider-sounding phrases
	// (a service check, say). Only multipass's instance-qualified messages
	// count as transport failures; everything else is a plain remote exit.
	r := &scriptRunner{stderr: "systemd: dbus.service is not running\n", code: 3}
	c := NewClient(r, nil)

	code, err := c.Exec(context.Background(), "zephyr-vm", "systemctl status dbus", ExecIO{})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestClientOutputCapturesStdout(t *testing.T) {
	r := &scriptRunner{stdout: "0.17.0\n"}
	c := NewClient(r, nil)

	out, code, err := c.Output(context.Background(), "zephyr-vm", "cat /home/ubuntu/zephyr-sdk/sdk_version")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "0.17.0\n", out)
}

func TestClientTransferMissingFile(t *testing.T) {
	r := &scriptRunner{
		stderr: `transfer failed: Source path "/home/ubuntu/builds/x/zephyr/zephyr.bin" does not exist`,
		code:   1,
	}
	c := NewClient(r, nil)

	err := c.Transfer(context.Background(), "zephyr-vm", "/home/ubuntu/builds/x/zephyr/zephyr.bin", "/tmp/zephyr.bin")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoSuchFile)
	require.Len(t, r.calls, 1)
	assert.Equal(t, []string{"transfer", "zephyr-vm:/home/ubuntu/builds/x/zephyr/zephyr.bin", "/tmp/zephyr.bin"}, r.calls[0])
}

func TestClientTransferDirRecursive(t *testing.T) {
	r := &scriptRunner{}
	c := NewClient(r, nil)

	err := c.TransferDir(context.Background(), "zephyr-vm", "/home/ubuntu/twister-out", "/tmp/twister-out")
	require.NoError(t, err)
	require.Len(t, r.calls, 1)
	assert.Equal(t, "-r", r.calls[0][1])
}

func TestClientVersion(t *testing.T) {
	r := &scriptRunner{stdout: "multipass   1.15.1\nmultipassd  1.15.1\n"}
	c := NewClient(r, nil)

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.15.1", v)
}

func TestClientMountArgs(t *testing.T) {
	r := &scriptRunner{}
	c := NewClient(r, nil)

	require.NoError(t, c.Mount(context.Background(), "zephyr-vm", "/home/dev/ws", "/mnt/workspace"))
	require.NoError(t, c.Umount(context.Background(), "zephyr-vm", "/mnt/workspace"))

	require.Len(t, r.calls, 2)
	assert.Equal(t, []string{"mount", "/home/dev/ws", "zephyr-vm:/mnt/workspace"}, r.calls[0])
	assert.Equal(t, []string{"umount", "zephyr-vm:/mnt/workspace"}, r.calls[1])
}
