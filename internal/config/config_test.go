package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Format != "csv" || cfg.OutputDir != "./calendars" || cfg.Timezone != "Europe/Moscow" {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	// First run leaves an editable file behind.
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("default config was not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config perms = %o, want 600", perm)
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.SpreadsheetID = "sheet-123"
	cfg.SemesterStart = "2026-09-01"
	cfg.Refresh = "0 6 * * *"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.SpreadsheetID != "sheet-123" {
		t.Errorf("spreadsheet_id = %q", loaded.SpreadsheetID)
	}
	if loaded.SemesterStart != "2026-09-01" {
		t.Errorf("semester_start = %q", loaded.SemesterStart)
	}
	if loaded.Refresh != "0 6 * * *" {
		t.Errorf("refresh = %q", loaded.Refresh)
	}
}

func TestNormalizeFillsGaps(t *testing.T) {
	cfg := &Config{Format: "pdf"}
	cfg.Normalize()

	if cfg.Format != "csv" {
		t.Errorf("unknown format normalized to %q, want csv", cfg.Format)
	}
	if cfg.GID != "0" || cfg.SemesterEnd == "" {
		t.Errorf("gaps not filled: %+v", cfg)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
