package main

import (
	"github.com/spf13/cobra"
)

func NewStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the VM",
		Long: `Stop the VM to free host resources. Cached builds and the installed
SDK survive a stop; the next build starts the VM again.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return handleCommandError(cmd, newSession().Stop(cmd.Context()))
		},
	}
}
