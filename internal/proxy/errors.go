package proxy

import (
	"fmt"
	"strings"
)

// The orchestrator translates every remote-exec and transfer failure into
// one of the types below before returning to the command layer; raw
// transport errors never cross this boundary. Each type implements the
// behavior interfaces the error handler inspects: UserMessage for the
// displayed text, RecoveryHint for an actionable follow-up, and
// ShouldSilenceUsage because the user's command line was correct.

// VMUnreachableError means the VM could not be reached even after one
// automatic create/start-and-retry cycle.
type VMUnreachableError struct {
	VMName string
	Err    error
}

func (e *VMUnreachableError) Error() string {
	return fmt.Sprintf("VM %q is unreachable: %v", e.VMName, e.Err)
}

func (e *VMUnreachableError) Unwrap() error { return e.Err }

func (e *VMUnreachableError) UserMessage() string {
	return fmt.Sprintf("VM %q is unreachable: %v", e.VMName, e.Err)
}

func (e *VMUnreachableError) RecoveryHint() string {
	return "check that multipass is installed and its daemon is running (multipass version)"
}

func (e *VMUnreachableError) ShouldSilenceUsage() bool { return true }

// NotBuiltError means run (or an artifact sync) targeted a fingerprint
// whose build directory does not exist in the VM.
type NotBuiltError struct {
	SourceDir string
	Board     string
	Dir       string
}

func (e *NotBuiltError) Error() string {
	return fmt.Sprintf("no build found for %s (VM directory %s is missing)", e.SourceDir, e.Dir)
}

func (e *NotBuiltError) UserMessage() string { return e.Error() }

func (e *NotBuiltError) RecoveryHint() string {
	if e.Board != "" {
		return fmt.Sprintf("build it first: westvm build -b %s %s", e.Board, e.SourceDir)
	}
	return fmt.Sprintf("build it first: westvm build %s", e.SourceDir)
}

func (e *NotBuiltError) ShouldSilenceUsage() bool { return true }

// BuildFailedError means the remote build process exited non-zero. Tail
// carries the captured trailing output for the report.
type BuildFailedError struct {
	ExitCode int
	Tail     string
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("build failed with exit status %d", e.ExitCode)
}

func (e *BuildFailedError) UserMessage() string {
	if e.Tail == "" {
		return e.Error()
	}
	return fmt.Sprintf("build failed with exit status %d; last output:\n%s", e.ExitCode, e.Tail)
}

func (e *BuildFailedError) ShouldSilenceUsage() bool { return true }

// TransferError means every requested artifact was missing or failed to
// copy during sync. Individual missing artifacts are only warnings; this
// error is returned when the sync produced nothing at all.
type TransferError struct {
	Missing []string
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("no artifacts could be synced (missing: %s)", strings.Join(e.Missing, ", "))
}

func (e *TransferError) UserMessage() string { return e.Error() }

func (e *TransferError) RecoveryHint() string {
	return "the build may not have produced binaries for this board; rebuild with --pristine and retry"
}

func (e *TransferError) ShouldSilenceUsage() bool { return true }

// RunExitError carries a simulated program's own non-zero exit status so
// the CLI can forward it verbatim. It is not a failure of the proxy.
type RunExitError struct {
	Code int
}

func (e *RunExitError) Error() string {
	return fmt.Sprintf("program exited with status %d", e.Code)
}

func (e *RunExitError) UserMessage() string { return e.Error() }

func (e *RunExitError) ShouldSilenceUsage() bool { return true }
