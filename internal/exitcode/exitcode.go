// Package exitcode maps the proxy's error taxonomy onto distinct process
// exit codes so scripts can branch on the failure kind.
package exitcode

import (
	"errors"

	"github.com/westvm/westvm/internal/proxy"
	"github.com/westvm/westvm/internal/sdk"
)

// Exit codes by failure kind. A run's simulated program forwards its own
// exit status verbatim instead of these.
const (
	Success       = 0
	Config        = 1 // configuration or usage problems, before any VM work
	VMUnreachable = 2
	SDK           = 3
	NotBuilt      = 4
	BuildFailed   = 5
	Transfer      = 6
)

// FromError returns the exit code for err. Unclassified errors count as
// configuration problems.
func FromError(err error) int {
	if err == nil {
		return Success
	}

	var runExit *proxy.RunExitError
	if errors.As(err, &runExit) {
		return runExit.Code
	}

	var (
		unreachable *proxy.VMUnreachableError
		sdkErr      *sdk.Error
		notBuilt    *proxy.NotBuiltError
		buildFailed *proxy.BuildFailedError
		transfer    *proxy.TransferError
	)
	switch {
	case errors.As(err, &unreachable):
		return VMUnreachable
	case errors.As(err, &sdkErr):
		return SDK
	case errors.As(err, &notBuilt):
		return NotBuilt
	case errors.As(err, &buildFailed):
		return BuildFailed
	case errors.As(err, &transfer):
		return Transfer
	default:
		return Config
	}
}
