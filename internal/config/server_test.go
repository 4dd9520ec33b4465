package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseJSONOverlaysFields(t *testing.T) {
	path := writeTempConfig(t, `{"listen":"0.0.0.0:9100","cachedir":"/tmp/cache","buffersize":8192,"quiet":true}`)

	cfg := DefaultServer()
	if err := ParseJSON(&cfg, path); err != nil {
		t.Fatalf("ParseJSON returned error: %v", err)
	}

	if cfg.Listen != "0.0.0.0:9100" || cfg.CacheDir != "/tmp/cache" {
		t.Fatalf("unexpected overlay result: %+v", cfg)
	}
	if cfg.BufferSize != 8192 || !cfg.Quiet {
		t.Fatalf("unexpected numeric/boolean overlay: %+v", cfg)
	}
	// Fields absent from the file must retain their defaults.
	if cfg.Path != "/audio" {
		t.Fatalf("Path was clobbered by partial overlay: %q", cfg.Path)
	}
}

func TestParseJSONMissingFile(t *testing.T) {
	cfg := DefaultServer()
	missing := filepath.Join(t.TempDir(), "missing.json")
	if err := ParseJSON(&cfg, missing); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDefaultServerDurations(t *testing.T) {
	cfg := DefaultServer()
	if cfg.CleanupMaxAgeDuration().Seconds() != 3600 {
		t.Fatalf("CleanupMaxAgeDuration = %v, want 3600s", cfg.CleanupMaxAgeDuration())
	}
	if cfg.CleanupPeriodDuration().Seconds() != 300 {
		t.Fatalf("CleanupPeriodDuration = %v, want 300s", cfg.CleanupPeriodDuration())
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}
