package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSettingsAppliesDefaultsForZero(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte("program_cache_size: 0\ndict_cache_size: 10\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if s.ProgramCacheSize != DefaultCacheSize {
		t.Errorf("ProgramCacheSize = %d, want default %d", s.ProgramCacheSize, DefaultCacheSize)
	}
	if s.DictCacheSize != 10 {
		t.Errorf("DictCacheSize = %d, want 10", s.DictCacheSize)
	}
}

func TestResolveTLDPrefersExplicitSetting(t *testing.T) {
	s := &Settings{TLD: "example.com"}
	if got := s.ResolveTLD(); got != "example.com" {
		t.Errorf("ResolveTLD() = %q, want %q", got, "example.com")
	}
}
