// Package config handles reading and writing .tether/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for .tether/config.yaml.
type Config struct {
	Version   int             `yaml:"version"`
	ClaudeDir string          `yaml:"claude_dir"` // CLI state root, empty = resolve from env/home
	Model     string          `yaml:"model"`      // model override, empty = CLI default
	Observer  ObserverConfig  `yaml:"observer"`
	Execution ExecutionConfig `yaml:"execution"`
}

// ObserverConfig controls workspace snapshots.
type ObserverConfig struct {
	Globs        []string `yaml:"globs"`          // allow-list of file patterns
	MaxFileBytes int64    `yaml:"max_file_bytes"` // files above this size are skipped
}

// ExecutionConfig controls CLI invocations.
type ExecutionConfig struct {
	Binary          string `yaml:"binary"`           // CLI binary name or path
	TimeoutSeconds  int    `yaml:"timeout_seconds"`  // hard subprocess timeout
	AllowedTools    string `yaml:"allowed_tools"`    // csv passed to --allowedTools
	SkipPermissions bool   `yaml:"skip_permissions"` // opt-in --dangerously-skip-permissions
}

const configDir = ".tether"
const configFile = "config.yaml"

// ReadConfig reads .tether/config.yaml from the given workspace directory.
// dir is the workspace root (not .tether/ itself).
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, configDir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// WriteConfig writes cfg to .tether/config.yaml in the given workspace.
// Creates the .tether/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, configDir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Observer: ObserverConfig{
			Globs: []string{
				"**/*.go",
				"**/*.py",
				"**/*.rs",
				"**/*.js",
				"**/*.ts",
				"**/*.json",
				"**/*.toml",
				"**/*.yaml",
				"**/*.yml",
				"**/*.md",
			},
			MaxFileBytes: 1024 * 1024,
		},
		Execution: ExecutionConfig{
			Binary:         "claude",
			TimeoutSeconds: 600,
		},
	}
}
