package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/westvm/westvm/internal/proxy"
)

// Error behavior interfaces the proxy's taxonomy implements. The command
// layer decides presentation from these instead of matching concrete
// types.
type userFacingError interface {
	error
	UserMessage() string
}

type recoverableError interface {
	error
	RecoveryHint() string
}

type silenceUsageError interface {
	error
	ShouldSilenceUsage() bool
}

// handleCommandError prints an operational error in a user-friendly way
// and silences cobra's own reporting. The error itself is returned
// unchanged so main can derive the process exit code from its kind.
func handleCommandError(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}

	// A simulated program's own exit status is not a failure to report;
	// it only sets the exit code.
	var runExit *proxy.RunExitError
	if errors.As(err, &runExit) {
		cmd.SilenceErrors = true
		return err
	}

	var silence silenceUsageError
	if errors.As(err, &silence) && silence.ShouldSilenceUsage() {
		cmd.SilenceUsage = true
	}

	message := err.Error()
	var userFacing userFacingError
	if errors.As(err, &userFacing) {
		message = userFacing.UserMessage()
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)

	var recoverable recoverableError
	if errors.As(err, &recoverable) {
		if hint := recoverable.RecoveryHint(); hint != "" {
			fmt.Fprintf(os.Stderr, "\nHint: %s\n", hint)
		}
	}

	cmd.SilenceErrors = true
	return err
}
