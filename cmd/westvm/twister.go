package main

import (
	"github.com/spf13/cobra"

	"github.com/westvm/westvm/internal/proxy"
	"github.com/westvm/westvm/internal/workspace"
)

var (
	twisterOutDir      string
	twisterNoSync      bool
	twisterPullResults bool
)

func NewTwisterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "twister [flags] [-- <twister args>]",
		Short: "Run the Zephyr twister test runner inside the VM",
		Long: `Run the Zephyr twister test runner inside the VM.

By default the mounted workspace is first copied to VM-local storage,
because twister's I/O pattern is slow over a host mount. Results land in
twister-out inside the VM copy; use --pull-results to bring them back to
the workspace on the host.

Examples:
  # Run a test suite
  westvm twister -- -T tests/kernel -p native_sim

  # Run directly on the workspace mount (results appear on the host)
  westvm twister --no-sync -- -T tests/kernel

  # Copy the results back to the host afterwards
  westvm twister --pull-results -- -T tests/kernel`,
		RunE: runTwister,
	}

	cmd.Flags().StringVarP(&twisterOutDir, "outdir", "O", "",
		"Output directory for twister results")
	cmd.Flags().BoolVar(&twisterNoSync, "no-sync", false,
		"Run directly on the workspace mount instead of a VM-local copy")
	cmd.Flags().BoolVar(&twisterPullResults, "pull-results", false,
		"Copy the output directory back to the host after the run")

	return cmd
}

func runTwister(cmd *cobra.Command, args []string) error {
	_, extra := splitDashArgs(cmd, args)

	ws, err := workspace.Discover(".")
	if err != nil {
		return err
	}

	svc := newService(ws)
	err = svc.Twister(cmd.Context(), proxy.TwisterOptions{
		OutDir:      twisterOutDir,
		NoSync:      twisterNoSync,
		PullResults: twisterPullResults,
		ExtraArgs:   extra,
	})
	return handleCommandError(cmd, err)
}
