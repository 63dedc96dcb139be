package main

import (
	"fmt"
	"os"
	"path/filepath"

	"cosmossdk.io/log"

	"github.com/westvm/westvm/internal/config"
	"github.com/westvm/westvm/internal/fingerprint"
	"github.com/westvm/westvm/internal/multipass"
	"github.com/westvm/westvm/internal/output"
	"github.com/westvm/westvm/internal/proxy"
	"github.com/westvm/westvm/internal/sdk"
	"github.com/westvm/westvm/internal/session"
	"github.com/westvm/westvm/internal/workspace"
)

// newSession wires the multipass client into a session for the configured
// instance. Command tracing goes to stderr in verbose mode.
func newSession() *session.Session {
	mlog := log.NewNopLogger()
	if cfg.Verbose {
		mlog = log.NewLogger(os.Stderr)
	}
	client := multipass.NewClient(nil, mlog)
	return session.New(client, cfg, output.DefaultLogger)
}

// newService builds the orchestrator. ws may be nil for operations that
// never consult the workspace.
func newService(ws *workspace.Workspace) *proxy.Service {
	sess := newSession()
	resolver := sdk.NewResolver(sess, cfg, output.DefaultLogger)
	lockDir := filepath.Join(DefaultHomeDir(), "locks")
	return proxy.New(sess, resolver, cfg, ws, output.DefaultLogger, lockDir)
}

// resolveSourceDir normalizes the operation's source directory: the first
// positional argument when given, the current directory otherwise.
func resolveSourceDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	normalized, err := fingerprint.Normalize(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(normalized)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("source directory %s does not exist", normalized)
	}
	return normalized, nil
}

// resolveBoard picks the target board: the --board flag, then the
// configured default, then (only when allowed and on a terminal) an
// interactive picker. Without any of those it is a configuration error,
// since fingerprints depend on the board.
func resolveBoard(flagValue string, allowPrompt bool) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if cfg.DefaultBoard != "" {
		return cfg.DefaultBoard, nil
	}
	if allowPrompt && config.IsInteractive() && !jsonMode {
		return config.PromptBoard()
	}
	return "", fmt.Errorf("no board selected; pass --board or set default_board in westvm.toml")
}

// splitDashArgs separates positional arguments from the pass-through
// arguments after "--".
func splitDashArgs(cmd interface{ ArgsLenAtDash() int }, args []string) (positional, passthrough []string) {
	at := cmd.ArgsLenAtDash()
	if at < 0 {
		return args, nil
	}
	return args[:at], args[at:]
}
