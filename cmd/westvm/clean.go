package main

import (
	"github.com/spf13/cobra"

	"github.com/westvm/westvm/internal/output"
	"github.com/westvm/westvm/internal/proxy"
)

var (
	cleanBoard string
	cleanAll   bool
	cleanForce bool
)

func NewCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [flags] [SOURCE_DIR]",
		Short: "Remove cached build directories inside the VM",
		Long: `Remove cached build directories inside the VM.

Without --all only the current project's build directory is removed;
other projects' cached builds stay intact. Cleaning a project that was
never built is a no-op. If the VM does not exist there is nothing to
clean and the command succeeds without creating it.

Examples:
  # Remove the current project's build for native_sim
  westvm clean -b native_sim

  # Remove every cached build
  westvm clean --all

  # Skip the confirmation prompt
  westvm clean --all --force`,
		RunE: runClean,
	}

	cmd.Flags().StringVarP(&cleanBoard, "board", "b", "", "Board the project was built for")
	cmd.Flags().BoolVar(&cleanAll, "all", false,
		"Remove all cached builds for every project")
	cmd.Flags().BoolVarP(&cleanForce, "force", "f", false,
		"Skip confirmation prompt")

	return cmd
}

func runClean(cmd *cobra.Command, args []string) error {
	var project proxy.Project

	if cleanAll {
		if !cleanForce && !jsonMode {
			confirmed, err := output.ConfirmPrompt("This removes every project's cached build in the VM. Continue?")
			if err != nil {
				return err
			}
			if !confirmed {
				output.Info("Clean cancelled.")
				return nil
			}
		}
	} else {
		sourceDir, err := resolveSourceDir(args)
		if err != nil {
			return err
		}
		board, err := resolveBoard(cleanBoard, false)
		if err != nil {
			return err
		}
		project = proxy.Project{SourceDir: sourceDir, Board: board}
	}

	svc := newService(nil)
	err := svc.Clean(cmd.Context(), project, proxy.CleanOptions{All: cleanAll})
	return handleCommandError(cmd, err)
}
