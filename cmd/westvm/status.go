package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/westvm/westvm/internal/multipass"
	"github.com/westvm/westvm/internal/output"
	"github.com/westvm/westvm/internal/sdk"
)

// statusInfo is the machine-readable status document.
type statusInfo struct {
	VMName       string   `json:"vm_name"`
	State        string   `json:"state"`
	SDKInstalled string   `json:"sdk_installed,omitempty"`
	CachedBuilds []string `json:"cached_builds,omitempty"`
}

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show VM state, installed SDK, and cached builds",
		Long: `Show the VM's lifecycle state, the Zephyr SDK version installed in it,
and the build fingerprints currently cached.

Examples:
  westvm status
  westvm status --json`,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	sess := newSession()

	info := statusInfo{VMName: cfg.VMName}

	state, err := sess.State(ctx)
	if err != nil {
		return handleCommandError(cmd, err)
	}
	info.State = string(state)

	if state == multipass.StateRunning {
		resolver := sdk.NewResolver(sess, cfg, output.DefaultLogger)
		installed, err := resolver.Installed(ctx)
		if err == nil {
			info.SDKInstalled = installed.String()
		}

		out, code, err := sess.Query(ctx, "ls -1 "+multipass.Quote(cfg.BuildsBase)+" 2>/dev/null")
		if err == nil && code == 0 {
			for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
				if line != "" {
					info.CachedBuilds = append(info.CachedBuilds, line)
				}
			}
			sort.Strings(info.CachedBuilds)
		}
	}

	if jsonMode {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	logger := output.DefaultLogger
	logger.Bold("VM %s", info.VMName)
	logger.Info("  State:         %s", info.State)
	if info.SDKInstalled != "" {
		logger.Info("  Zephyr SDK:    %s", info.SDKInstalled)
	} else if state == multipass.StateRunning {
		logger.Info("  Zephyr SDK:    not installed")
	}
	if state == multipass.StateRunning {
		logger.Info("  Cached builds: %d", len(info.CachedBuilds))
		for _, fp := range info.CachedBuilds {
			logger.Info("    %s", fp)
		}
	}
	return nil
}
