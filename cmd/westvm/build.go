package main

import (
	"github.com/spf13/cobra"

	"github.com/westvm/westvm/internal/proxy"
	"github.com/westvm/westvm/internal/workspace"
)

var (
	buildBoard    string
	buildPristine bool
	buildSync     bool
)

func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [flags] [SOURCE_DIR] [-- <west build args>]",
		Short: "Build a Zephyr application inside the VM",
		Long: `Build a Zephyr application inside the VM.

The source directory (current directory by default) is mapped to a stable
build directory inside the VM, derived from the source path and board.
The VM is created and provisioned on first use, and the Zephyr SDK is
kept on the version the workspace declares in SDK_VERSION.

Examples:
  # Build the current directory for native_sim
  westvm build -b native_sim

  # Build a specific sample, discarding any previous build output
  westvm build -b qemu_x86 --pristine zephyr/samples/hello_world

  # Build and copy the resulting binaries back to the host
  westvm build -b native_sim --sync

  # Pass extra arguments through to west build
  westvm build -b native_sim -- -- -DCONFIG_DEBUG=y`,
		RunE: runBuild,
	}

	cmd.Flags().StringVarP(&buildBoard, "board", "b", "", "Target board")
	cmd.Flags().BoolVar(&buildPristine, "pristine", false,
		"Remove the build directory before building")
	cmd.Flags().BoolVar(&buildSync, "sync", false,
		"Copy well-known artifacts back to the host after the build")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	positional, extra := splitDashArgs(cmd, args)

	ws, err := workspace.Discover(".")
	if err != nil {
		return err
	}
	sourceDir, err := resolveSourceDir(positional)
	if err != nil {
		return err
	}
	board, err := resolveBoard(buildBoard, true)
	if err != nil {
		return err
	}

	svc := newService(ws)
	err = svc.Build(cmd.Context(), proxy.Project{SourceDir: sourceDir, Board: board}, proxy.BuildOptions{
		Pristine:  buildPristine,
		Sync:      buildSync,
		ExtraArgs: extra,
	})
	return handleCommandError(cmd, err)
}
