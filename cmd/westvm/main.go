package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/westvm/westvm/internal/exitcode"
)

func main() {
	// An interrupt cancels the invocation context; the in-flight
	// multipass command is killed with it, which tears down the remote
	// exec session rather than leaving an orphaned job in the VM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(exitcode.FromError(err))
	}
}
