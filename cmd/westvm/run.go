package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/westvm/westvm/internal/proxy"
)

var (
	runBoard string
	runNet   bool
	runNoNet bool
)

func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [flags] [SOURCE_DIR] [-- <program args>]",
		Short: "Run a built application inside the VM",
		Long: `Run a built application inside the VM, streaming its output live.

The build directory is located from the source directory and board, so
run the same westvm build first. The program's exit status becomes this
command's exit status. For native_sim binaries a TAP network device is
prepared automatically; use --no-net to skip it.

Examples:
  # Run the current project's simulation
  westvm run -b native_sim

  # Run without the TAP network device
  westvm run -b native_sim --no-net

  # Pass arguments to the simulated program
  westvm run -b native_sim -- -seed=42`,
		RunE: runRun,
	}

	cmd.Flags().StringVarP(&runBoard, "board", "b", "", "Board the project was built for")
	cmd.Flags().BoolVar(&runNet, "net", false, "Force TAP network setup")
	cmd.Flags().BoolVar(&runNoNet, "no-net", false, "Skip TAP network setup")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	positional, passthrough := splitDashArgs(cmd, args)

	sourceDir, err := resolveSourceDir(positional)
	if err != nil {
		return err
	}
	// Never prompt here: guessing a board would aim run at a build
	// directory that does not exist.
	board, err := resolveBoard(runBoard, false)
	if err != nil {
		return err
	}

	net := proxy.NetAuto
	switch {
	case runNet:
		net = proxy.NetOn
	case runNoNet:
		net = proxy.NetOff
	}

	svc := newService(nil)
	err = svc.Run(cmd.Context(), proxy.Project{SourceDir: sourceDir, Board: board}, proxy.RunOptions{
		Net:   net,
		Args:  passthrough,
		Stdin: os.Stdin,
	})
	return handleCommandError(cmd, err)
}
