package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("STAGING_POLICY", "")
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	clearEnvOverrides(t)

	path := filepath.Join(t.TempDir(), "DocStager.exe.config")
	partial := `<?xml version="1.0"?>
<DocStager>
  <Server>
    <Port>9999</Port>
  </Server>
</DocStager>`
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatalf("writing trimmed config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected explicit port 9999, got %d", cfg.Server.Port)
	}
	// Omitted elements must fall back to defaults, not zero values.
	if cfg.Staging.CleanupIntervalMinutes != 30 {
		t.Errorf("expected default cleanup interval 30, got %d", cfg.Staging.CleanupIntervalMinutes)
	}
	if cfg.Staging.JournalRetentionMinutes != 24*60 {
		t.Errorf("expected default retention 1440, got %d", cfg.Staging.JournalRetentionMinutes)
	}
	if cfg.Server.BodyLimit != "128M" {
		t.Errorf("expected default body limit 128M, got %q", cfg.Server.BodyLimit)
	}
	if cfg.Advanced.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Advanced.LogLevel)
	}
}

func TestLoadConfig_MissingFileCreatesDefault(t *testing.T) {
	clearEnvOverrides(t)

	path := filepath.Join(t.TempDir(), "DocStager.exe.config")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("expected default port 8090, got %d", cfg.Server.Port)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected default config written to disk: %v", err)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("PORT", "7070")

	path := filepath.Join(t.TempDir(), "DocStager.exe.config")
	base := `<?xml version="1.0"?>
<DocStager>
  <Server>
    <Port>9999</Port>
  </Server>
</DocStager>`
	if err := os.WriteFile(path, []byte(base), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected PORT override 7070, got %d", cfg.Server.Port)
	}
}
