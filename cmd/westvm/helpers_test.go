package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/westvm/westvm/internal/config"
)

// chdir changes to dir for the duration of the test, like t.Chdir
// (unavailable before Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func TestResolveSourceDir(t *testing.T) {
	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	t.Run("positional argument", func(t *testing.T) {
		got, err := resolveSourceDir([]string{dir})
		require.NoError(t, err)
		assert.Equal(t, resolved, got)
	})

	t.Run("defaults to cwd", func(t *testing.T) {
		chdir(t, dir)
		got, err := resolveSourceDir(nil)
		require.NoError(t, err)
		assert.Equal(t, resolved, got)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := resolveSourceDir([]string{filepath.Join(dir, "nope")})
		require.Error(t, err)
	})

	t.Run("file instead of directory", func(t *testing.T) {
		f := filepath.Join(dir, "file.txt")
		require.NoError(t, os.WriteFile(f, nil, 0o644))
		_, err := resolveSourceDir([]string{f})
		require.Error(t, err)
	})
}

func TestResolveBoard(t *testing.T) {
	restore := cfg
	t.Cleanup(func() { cfg = restore })

	t.Run("flag wins over config", func(t *testing.T) {
		cfg = &config.Config{DefaultBoard: "qemu_x86"}
		got, err := resolveBoard("native_sim", false)
		require.NoError(t, err)
		assert.Equal(t, "native_sim", got)
	})

	t.Run("config default", func(t *testing.T) {
		cfg = &config.Config{DefaultBoard: "qemu_x86"}
		got, err := resolveBoard("", false)
		require.NoError(t, err)
		assert.Equal(t, "qemu_x86", got)
	})

	t.Run("no board without prompt is an error", func(t *testing.T) {
		cfg = &config.Config{}
		_, err := resolveBoard("", false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--board")
	})
}

func TestSplitDashArgs(t *testing.T) {
	cmd := NewBuildCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"-b", "native_sim", "app", "--", "-DCONF=y"}))

	positional, passthrough := splitDashArgs(cmd, cmd.Flags().Args())
	assert.Equal(t, []string{"app"}, positional)
	assert.Equal(t, []string{"-DCONF=y"}, passthrough)
}

func TestSplitDashArgsWithoutDash(t *testing.T) {
	cmd := NewRunCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"app"}))

	positional, passthrough := splitDashArgs(cmd, cmd.Flags().Args())
	assert.Equal(t, []string{"app"}, positional)
	assert.Empty(t, passthrough)
}
