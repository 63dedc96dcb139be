package exitcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/westvm/westvm/internal/proxy"
	"github.com/westvm/westvm/internal/sdk"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, Success},
		{"unreachable", &proxy.VMUnreachableError{VMName: "zephyr-vm", Err: errors.New("socket down")}, VMUnreachable},
		{"sdk", &sdk.Error{Requested: "0.17.0", Err: errors.New("download failed")}, SDK},
		{"not built", &proxy.NotBuiltError{SourceDir: "/ws/app", Dir: "/home/ubuntu/builds/x"}, NotBuilt},
		{"build failed", &proxy.BuildFailedError{ExitCode: 2}, BuildFailed},
		{"transfer", &proxy.TransferError{Missing: []string{"zephyr.elf"}}, Transfer},
		{"run exit forwarded", &proxy.RunExitError{Code: 42}, 42},
		{"wrapped", fmt.Errorf("build: %w", &proxy.BuildFailedError{ExitCode: 1}), BuildFailed},
		{"unclassified", errors.New("bad flag"), Config},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromError(tt.err))
		})
	}
}
