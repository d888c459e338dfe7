package config

import (
	"path/filepath"
	"testing"
)

func TestSaveAndLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := Default(dir)
	cfg.Actor = "driver-1"

	if err := SaveConfig(dir, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.SprintFile != cfg.SprintFile {
		t.Errorf("sprint file = %q, want %q", loaded.SprintFile, cfg.SprintFile)
	}
	if loaded.Actor != "driver-1" {
		t.Errorf("actor = %q, want driver-1", loaded.Actor)
	}
	if loaded.JournalDB == "" {
		t.Error("journal path missing from default config")
	}
}

func TestLoadConfigMissing(t *testing.T) {
	if _, err := LoadConfig(t.TempDir()); err == nil {
		t.Fatal("expected error for missing config, got nil")
	}
}

func TestDefaultPathsUnderWorkspaceDir(t *testing.T) {
	cfg := Default("/work")
	want := filepath.Join("/work", Dir, "sprint.json")
	if cfg.SprintFile != want {
		t.Errorf("sprint file = %q, want %q", cfg.SprintFile, want)
	}
}
