// Package config loads and saves the sprintq workspace configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Dir is the workspace directory holding config and sprint state.
const Dir = ".sprintq"

// Config represents the flat sprintq configuration.
type Config struct {
	Version    string `json:"version"`
	SprintFile string `json:"sprint_file"`          // path to the sprint JSON document
	AuditLog   string `json:"audit_log"`            // path to the NDJSON audit log
	JournalDB  string `json:"journal_db,omitempty"` // path to the sqlite journal, empty disables
	Actor      string `json:"actor,omitempty"`      // actor id recorded on journal entries
}

// Default returns the configuration for a fresh workspace rooted at dir.
func Default(dir string) *Config {
	return &Config{
		Version:    "1",
		SprintFile: filepath.Join(dir, Dir, "sprint.json"),
		AuditLog:   filepath.Join(dir, Dir, "audit.ndjson"),
		JournalDB:  filepath.Join(dir, Dir, "journal.db"),
	}
}

// LoadConfig reads .sprintq/config.json from the specified directory.
// Returns an error if no config is found; the caller decides how to react.
func LoadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, Dir, "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes config.json under dir, creating .sprintq if needed.
func SaveConfig(dir string, cfg *Config) error {
	workDir := filepath.Join(dir, Dir)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s dir: %w", Dir, err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(workDir, "config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
