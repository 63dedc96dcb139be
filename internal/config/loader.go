package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/westvm/westvm/internal/output"
)

// FileName is the config file name searched in the current directory.
const FileName = "westvm.toml"

// Loader loads and merges configuration files.
type Loader struct {
	homeDir    string // e.g. ~/.westvm
	configPath string // explicit --config path
	logger     *output.Logger
}

// NewLoader creates a Loader. homeDir is the tool's state directory,
// configPath the explicit --config value (may be empty).
func NewLoader(homeDir, configPath string, logger *output.Logger) *Loader {
	return &Loader{
		homeDir:    homeDir,
		configPath: configPath,
		logger:     logger,
	}
}

// Load resolves the effective configuration: built-in defaults, then
// config files in priority order, then WESTVM_* environment variables.
// Flag values are applied afterwards by the command layer.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	file, err := l.loadFileConfig()
	if err != nil {
		return nil, err
	}
	cfg.apply(file)

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("reading environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFileConfig reads and merges all config files that exist, lowest
// priority first: ~/.westvm/westvm.toml, ./westvm.toml, then the explicit
// --config path. Missing files are not an error; a missing explicit path
// is.
func (l *Loader) loadFileConfig() (*FileConfig, error) {
	var files []string

	homePath := filepath.Join(l.homeDir, FileName)
	if _, err := os.Stat(homePath); err == nil {
		files = append(files, homePath)
	}

	if _, err := os.Stat(FileName); err == nil {
		if abs, _ := filepath.Abs(FileName); abs != homePath {
			files = append(files, FileName)
		}
	}

	if l.configPath != "" {
		if _, err := os.Stat(l.configPath); err != nil {
			return nil, fmt.Errorf("config file not found: %s", l.configPath)
		}
		files = append(files, l.configPath)
	}

	merged := &FileConfig{}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		var fc FileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		merged.merge(&fc)
		l.warnUnknownKeys(path, data)
		if l.logger != nil {
			l.logger.Debug("loaded config file: %s", path)
		}
	}
	return merged, nil
}

var knownKeys = map[string]bool{
	"vm_name":         true,
	"image":           true,
	"cpus":            true,
	"memory":          true,
	"disk":            true,
	"vm_home":         true,
	"builds_base":     true,
	"sdk_dir":         true,
	"workspace_mount": true,
	"artifact_dir":    true,
	"default_board":   true,
	"no_color":        true,
	"verbose":         true,
}

// warnUnknownKeys flags typos in config files without failing the load.
func (l *Loader) warnUnknownKeys(path string, data []byte) {
	if l.logger == nil {
		return
	}
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return
	}
	for key := range raw {
		if !knownKeys[key] {
			l.logger.Warn("unknown config key in %s: %s", path, key)
		}
	}
}
