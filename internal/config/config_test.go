package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// chdir changes to dir for the duration of the test, like t.Chdir
// (unavailable before Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := NewLoader(filepath.Join(t.TempDir(), ".westvm"), "", nil).Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VMName != "zephyr-vm" {
		t.Errorf("VMName = %q, want zephyr-vm", cfg.VMName)
	}
	if cfg.CPUs != 2 || cfg.Memory != "4G" || cfg.Disk != "20G" {
		t.Errorf("resource profile = %d/%s/%s, want 2/4G/20G", cfg.CPUs, cfg.Memory, cfg.Disk)
	}
	if cfg.BuildsBase != "/home/ubuntu/builds" {
		t.Errorf("BuildsBase = %q", cfg.BuildsBase)
	}
}

func TestLoadMergePriority(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	chdir(t, work)

	writeFile(t, filepath.Join(home, FileName), "vm_name = \"home-vm\"\ncpus = 4\n")
	writeFile(t, filepath.Join(work, FileName), "vm_name = \"local-vm\"\n")

	cfg, err := NewLoader(home, "", nil).Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.VMName != "local-vm" {
		t.Errorf("VMName = %q, want the working directory value", cfg.VMName)
	}
	if cfg.CPUs != 4 {
		t.Errorf("CPUs = %d, want the home value 4 to survive the merge", cfg.CPUs)
	}
}

func TestLoadExplicitConfigWins(t *testing.T) {
	home := t.TempDir()
	work := t.TempDir()
	chdir(t, work)

	writeFile(t, filepath.Join(work, FileName), "default_board = \"qemu_x86\"\n")
	explicit := filepath.Join(t.TempDir(), "special.toml")
	writeFile(t, explicit, "default_board = \"native_sim\"\n")

	cfg, err := NewLoader(home, explicit, nil).Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DefaultBoard != "native_sim" {
		t.Errorf("DefaultBoard = %q, want native_sim", cfg.DefaultBoard)
	}
}

func TestLoadMissingExplicitConfigFails(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := NewLoader(t.TempDir(), "/nonexistent/westvm.toml", nil).Load()
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Fatalf("err = %v, want missing-config error", err)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	work := t.TempDir()
	chdir(t, work)
	writeFile(t, filepath.Join(work, FileName), "memory = \"8G\"\n")
	t.Setenv("WESTVM_MEMORY", "16G")

	cfg, err := NewLoader(t.TempDir(), "", nil).Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Memory != "16G" {
		t.Errorf("Memory = %q, want env value 16G", cfg.Memory)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		toml string
	}{
		{"zero cpus", "cpus = 0\n"},
		{"bad memory", "memory = \"lots\"\n"},
		{"relative builds base", "builds_base = \"builds\"\n"},
		{"absolute artifact dir", "artifact_dir = \"/tmp/artifacts\"\n"},
		{"vm name with space", "vm_name = \"my vm\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			work := t.TempDir()
			chdir(t, work)
			writeFile(t, filepath.Join(work, FileName), tc.toml)

			if _, err := NewLoader(t.TempDir(), "", nil).Load(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}
