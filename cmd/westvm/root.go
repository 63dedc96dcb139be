package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/westvm/westvm/internal/config"
	"github.com/westvm/westvm/internal/output"
)

// Global configuration variables
var (
	vmName     string
	configPath string
	noColor    bool
	verbose    bool
	jsonMode   bool

	// cfg holds the effective configuration after PersistentPreRunE.
	cfg *config.Config
)

// DefaultHomeDir returns the host-side state directory (config file and
// build locks).
func DefaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".westvm"
	}
	return filepath.Join(home, ".westvm")
}

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "westvm",
		Short: "Build and run Zephyr applications inside a Multipass VM",
		Long: `westvm proxies Zephyr builds and simulation runs into a Multipass VM,
so hosts without a POSIX toolchain can work as if one were local. The VM
is created, provisioned, and kept on the workspace's declared SDK version
automatically; build output streams back live.

Examples:
  # Build the app in the current directory for native_sim
  westvm build -b native_sim

  # Rebuild from scratch and copy the binaries back to the host
  westvm build -b native_sim --pristine --sync

  # Run the built simulation (output streams to this terminal)
  westvm run

  # Remove this project's cached build in the VM
  westvm clean

  # Run the twister test suite inside the VM
  westvm twister -- -T tests/kernel`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loader := config.NewLoader(DefaultHomeDir(), configPath, output.DefaultLogger)
			loaded, err := loader.Load()
			if err != nil {
				return err
			}
			cfg = loaded

			// Flags override config and environment.
			if cmd.Flags().Changed("vm-name") {
				cfg.VMName = vmName
			}
			if cmd.Flags().Changed("no-color") {
				cfg.NoColor = noColor
			}
			if cmd.Flags().Changed("verbose") {
				cfg.Verbose = verbose
			}
			if os.Getenv("NO_COLOR") != "" && !cmd.Flags().Changed("no-color") {
				cfg.NoColor = true
			}

			output.DefaultLogger.SetNoColor(cfg.NoColor)
			output.DefaultLogger.SetVerbose(cfg.Verbose)
			output.DefaultLogger.SetJSONMode(jsonMode)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&vmName, "vm-name", "",
		"Multipass instance to use (default from config)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a westvm.toml config file")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored output")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose logging")
	cmd.PersistentFlags().BoolVar(&jsonMode, "json", false,
		"Output in JSON format where supported")

	cmd.AddCommand(
		NewBuildCmd(),
		NewRunCmd(),
		NewCleanCmd(),
		NewTwisterCmd(),
		NewStatusCmd(),
		NewStopCmd(),
		NewVersionCmd(),
	)

	return cmd
}
