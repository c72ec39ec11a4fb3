// Package config resolves taskctl's process-level settings: store path,
// log level, and LLM credential, from environment variables with an
// optional on-disk JSON defaults file (SPEC_FULL.md ambient stack — the
// teacher has no config file loader of its own and reads flags/env
// directly in cmd/dex/main.go; this package follows the same shape).
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds taskctl's resolved global settings (spec.md §6).
type Config struct {
	DBPath       string `json:"db_path,omitempty"`
	LogLevel     string `json:"log_level,omitempty"`
	AnthropicKey string `json:"-"`
}

// fileDefaults is the shape of the optional on-disk config file. The
// Anthropic key is deliberately never read from disk, only from the
// environment, so it never lands in a file that might be committed.
type fileDefaults struct {
	DBPath   string `json:"db_path,omitempty"`
	LogLevel string `json:"log_level,omitempty"`
}

// dataDir returns the platform data directory taskctl's files live under:
// $XDG_DATA_HOME/taskctl or ~/.local/share/taskctl (spec.md §6).
func dataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "taskctl")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local", "share", "taskctl")
}

// DefaultDBPath is ~/<platform-data-dir>/taskctl/taskctl.db.
func DefaultDBPath() string {
	return filepath.Join(dataDir(), "taskctl.db")
}

// DefaultConfigPath is ~/<platform-data-dir>/taskctl/config.json.
func DefaultConfigPath() string {
	return filepath.Join(dataDir(), "config.json")
}

// DefaultLogDir is ~/<platform-data-dir>/taskctl/logs/.
func DefaultLogDir() string {
	return filepath.Join(dataDir(), "logs")
}

// Load resolves Config from, in increasing priority: the on-disk defaults
// file (if present), then environment variables TASKCTL_DB_PATH,
// TASKCTL_LOG_LEVEL, ANTHROPIC_API_KEY (spec.md §6 overrides).
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:   DefaultDBPath(),
		LogLevel: "info",
	}

	if data, err := os.ReadFile(DefaultConfigPath()); err == nil {
		var fd fileDefaults
		if jsonErr := json.Unmarshal(data, &fd); jsonErr != nil {
			return nil, jsonErr
		}
		if fd.DBPath != "" {
			cfg.DBPath = fd.DBPath
		}
		if fd.LogLevel != "" {
			cfg.LogLevel = fd.LogLevel
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if v := os.Getenv("TASKCTL_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("TASKCTL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")

	return cfg, nil
}
