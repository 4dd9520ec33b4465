package config

import "testing"

func TestDefaultClientIsUsableAsIs(t *testing.T) {
	cfg := DefaultClient()
	if cfg.ServerAddr == "" || cfg.Path == "" {
		t.Fatalf("DefaultClient left required fields empty: %+v", cfg)
	}
	if cfg.ChunkSize <= 0 || cfg.GetLength <= 0 {
		t.Fatalf("DefaultClient produced non-positive sizes: %+v", cfg)
	}
}
