// Package workspace discovers the host-side west workspace an invocation
// operates in: its root, the Zephyr tree, and the SDK version the
// workspace declares. All discovery is host-local and happens before any
// VM interaction.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/westvm/westvm/internal/fingerprint"
	"github.com/westvm/westvm/internal/sdk"
)

// ErrNotInWorkspace is returned when no west workspace encloses the
// starting directory.
var ErrNotInWorkspace = errors.New("not inside a west workspace (no .west/config found)")

// ErrOutsideWorkspace is returned by VMPath for host paths the workspace
// does not contain.
var ErrOutsideWorkspace = errors.New("path is outside the workspace")

// Workspace is the resolved host-side context of one invocation.
type Workspace struct {
	// Root is the west topdir: the directory containing .west/config.
	Root string

	// ZephyrBase is the host path of the Zephyr tree, from the
	// ZEPHYR_BASE environment variable or <Root>/zephyr.
	ZephyrBase string

	// SDKVersion is the toolchain version the workspace declares in
	// <ZephyrBase>/SDK_VERSION, or the default when the file is absent.
	SDKVersion sdk.Version
}

// Discover resolves the workspace enclosing startDir. It walks up to the
// west topdir, resolves the Zephyr tree, and reads the declared SDK
// version. A present but unreadable or malformed SDK_VERSION file is an
// error; a missing file falls back to the default version.
func Discover(startDir string) (*Workspace, error) {
	start, err := fingerprint.Normalize(startDir)
	if err != nil {
		return nil, err
	}

	root, err := findTopdir(start)
	if err != nil {
		return nil, err
	}

	zbase := os.Getenv("ZEPHYR_BASE")
	if zbase == "" {
		zbase = filepath.Join(root, "zephyr")
	}
	zbase, err = fingerprint.Normalize(zbase)
	if err != nil {
		return nil, fmt.Errorf("resolving ZEPHYR_BASE: %w", err)
	}

	version, err := readSDKVersion(filepath.Join(zbase, "SDK_VERSION"))
	if err != nil {
		return nil, err
	}

	return &Workspace{
		Root:       root,
		ZephyrBase: zbase,
		SDKVersion: version,
	}, nil
}

// findTopdir walks up from dir until it hits a directory containing
// .west/config.
func findTopdir(dir string) (string, error) {
	for {
		marker := filepath.Join(dir, ".west", "config")
		if info, err := os.Stat(marker); err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotInWorkspace
		}
		dir = parent
	}
}

func readSDKVersion(path string) (sdk.Version, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return sdk.DefaultVersion, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	v, err := sdk.ParseVersion(string(data))
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// Contains reports whether hostPath lies inside the workspace root. The
// path must already be normalized.
func (w *Workspace) Contains(hostPath string) bool {
	rel, err := filepath.Rel(w.Root, hostPath)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// VMPath maps a normalized host path inside the workspace onto the VM
// path it appears at under the workspace mount.
func (w *Workspace) VMPath(hostPath, mountBase string) (string, error) {
	rel, err := filepath.Rel(w.Root, hostPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrOutsideWorkspace, hostPath)
	}
	if rel == "." {
		return mountBase, nil
	}
	return path.Join(mountBase, filepath.ToSlash(rel)), nil
}
