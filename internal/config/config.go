// Package config resolves the tool's effective configuration from
// defaults, TOML config files, WESTVM_* environment variables, and flags,
// in that order of increasing priority.
package config

import (
	"fmt"
	"regexp"
	"strings"
)

// Config is the effective configuration after all sources are merged.
type Config struct {
	// VMName is the multipass instance all operations target.
	VMName string `env:"WESTVM_VM_NAME"`

	// Image is the Ubuntu image used when the instance is first created.
	Image string `env:"WESTVM_IMAGE"`

	// CPUs, Memory and Disk form the resource profile applied at launch.
	// They do not resize an existing instance.
	CPUs   int    `env:"WESTVM_CPUS"`
	Memory string `env:"WESTVM_MEMORY"`
	Disk   string `env:"WESTVM_DISK"`

	// VMHome is the VM user's home directory.
	VMHome string `env:"WESTVM_VM_HOME"`

	// BuildsBase is the VM directory holding one build directory per
	// project fingerprint.
	BuildsBase string `env:"WESTVM_BUILDS_BASE"`

	// SDKDir is the VM directory the Zephyr SDK is installed into.
	SDKDir string `env:"WESTVM_SDK_DIR"`

	// WorkspaceMount is the VM path the host workspace is mounted at.
	WorkspaceMount string `env:"WESTVM_WORKSPACE_MOUNT"`

	// ArtifactDir is the host directory artifacts are synced into,
	// relative to the project directory.
	ArtifactDir string `env:"WESTVM_ARTIFACT_DIR"`

	// DefaultBoard is used when --board is not given.
	DefaultBoard string `env:"WESTVM_BOARD"`

	NoColor bool `env:"WESTVM_NO_COLOR"`
	Verbose bool `env:"WESTVM_VERBOSE"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		VMName:         "zephyr-vm",
		Image:          "24.04",
		CPUs:           2,
		Memory:         "4G",
		Disk:           "20G",
		VMHome:         "/home/ubuntu",
		BuildsBase:     "/home/ubuntu/builds",
		SDKDir:         "/home/ubuntu/zephyr-sdk",
		WorkspaceMount: "/mnt/workspace",
		ArtifactDir:    "build-vm",
	}
}

var sizeRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?[KMGT]i?B?$`)

// Validate checks the merged configuration before any VM interaction.
func (c *Config) Validate() error {
	if c.VMName == "" {
		return fmt.Errorf("vm_name must not be empty")
	}
	if strings.ContainsAny(c.VMName, " /:") {
		return fmt.Errorf("vm_name %q contains invalid characters", c.VMName)
	}
	if c.Image == "" {
		return fmt.Errorf("image must not be empty")
	}
	if c.CPUs < 1 {
		return fmt.Errorf("cpus must be at least 1, got %d", c.CPUs)
	}
	if !sizeRe.MatchString(c.Memory) {
		return fmt.Errorf("memory %q is not a valid size (e.g. 4G)", c.Memory)
	}
	if !sizeRe.MatchString(c.Disk) {
		return fmt.Errorf("disk %q is not a valid size (e.g. 20G)", c.Disk)
	}
	for name, dir := range map[string]string{
		"vm_home":         c.VMHome,
		"builds_base":     c.BuildsBase,
		"sdk_dir":         c.SDKDir,
		"workspace_mount": c.WorkspaceMount,
	} {
		if !strings.HasPrefix(dir, "/") {
			return fmt.Errorf("%s %q must be an absolute VM path", name, dir)
		}
	}
	if c.ArtifactDir == "" || strings.HasPrefix(c.ArtifactDir, "/") {
		return fmt.Errorf("artifact_dir %q must be a relative directory name", c.ArtifactDir)
	}
	return nil
}

// FileConfig mirrors Config with pointer fields so merging can tell "not
// set" from zero values.
type FileConfig struct {
	VMName         *string `toml:"vm_name"`
	Image          *string `toml:"image"`
	CPUs           *int    `toml:"cpus"`
	Memory         *string `toml:"memory"`
	Disk           *string `toml:"disk"`
	VMHome         *string `toml:"vm_home"`
	BuildsBase     *string `toml:"builds_base"`
	SDKDir         *string `toml:"sdk_dir"`
	WorkspaceMount *string `toml:"workspace_mount"`
	ArtifactDir    *string `toml:"artifact_dir"`
	DefaultBoard   *string `toml:"default_board"`
	NoColor        *bool   `toml:"no_color"`
	Verbose        *bool   `toml:"verbose"`
}

// merge overlays non-nil values of src onto dst.
func (dst *FileConfig) merge(src *FileConfig) {
	if src.VMName != nil {
		dst.VMName = src.VMName
	}
	if src.Image != nil {
		dst.Image = src.Image
	}
	if src.CPUs != nil {
		dst.CPUs = src.CPUs
	}
	if src.Memory != nil {
		dst.Memory = src.Memory
	}
	if src.Disk != nil {
		dst.Disk = src.Disk
	}
	if src.VMHome != nil {
		dst.VMHome = src.VMHome
	}
	if src.BuildsBase != nil {
		dst.BuildsBase = src.BuildsBase
	}
	if src.SDKDir != nil {
		dst.SDKDir = src.SDKDir
	}
	if src.WorkspaceMount != nil {
		dst.WorkspaceMount = src.WorkspaceMount
	}
	if src.ArtifactDir != nil {
		dst.ArtifactDir = src.ArtifactDir
	}
	if src.DefaultBoard != nil {
		dst.DefaultBoard = src.DefaultBoard
	}
	if src.NoColor != nil {
		dst.NoColor = src.NoColor
	}
	if src.Verbose != nil {
		dst.Verbose = src.Verbose
	}
}

// apply overlays the file values onto the effective config.
func (c *Config) apply(f *FileConfig) {
	if f.VMName != nil {
		c.VMName = *f.VMName
	}
	if f.Image != nil {
		c.Image = *f.Image
	}
	if f.CPUs != nil {
		c.CPUs = *f.CPUs
	}
	if f.Memory != nil {
		c.Memory = *f.Memory
	}
	if f.Disk != nil {
		c.Disk = *f.Disk
	}
	if f.VMHome != nil {
		c.VMHome = *f.VMHome
	}
	if f.BuildsBase != nil {
		c.BuildsBase = *f.BuildsBase
	}
	if f.SDKDir != nil {
		c.SDKDir = *f.SDKDir
	}
	if f.WorkspaceMount != nil {
		c.WorkspaceMount = *f.WorkspaceMount
	}
	if f.ArtifactDir != nil {
		c.ArtifactDir = *f.ArtifactDir
	}
	if f.DefaultBoard != nil {
		c.DefaultBoard = *f.DefaultBoard
	}
	if f.NoColor != nil {
		c.NoColor = *f.NoColor
	}
	if f.Verbose != nil {
		c.Verbose = *f.Verbose
	}
}
