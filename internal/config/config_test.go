package config

import (
	"os"
	"path/filepath"
	"testing"

	"card-retouch/internal/fill"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fill.Algorithm != string(fill.DiffusionFast) {
		t.Errorf("default algorithm = %q, want diffusion_fast", cfg.Fill.Algorithm)
	}
	if cfg.HistoryCapacity != 5 {
		t.Errorf("default history capacity = %d, want 5", cfg.HistoryCapacity)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retouch.yaml")
	body := []byte("log_level: debug\nfill:\n  algorithm: patch_synthesis\n  radius: 3\n  patch_size: 9\n  search_radius: 25\n  feather: 2\n  iterations: 150\nmask:\n  advanced: true\n  tolerance: 80\n  border: 2\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
	p, err := cfg.FillParams()
	if err != nil {
		t.Fatalf("FillParams: %v", err)
	}
	if p.Algorithm != fill.PatchSynthesis || p.PatchSize != 9 || p.Iterations != 150 {
		t.Errorf("fill params not overlaid: %+v", p)
	}
	mp := cfg.MaskParams()
	if !mp.Advanced || mp.Tolerance != 80 || mp.Border != 2 {
		t.Errorf("mask params not overlaid: %+v", mp)
	}
	if cfg.AutoPasses != 2 {
		t.Errorf("unset auto_passes should keep default 2, got %d", cfg.AutoPasses)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("fill:\n  algorithm: blur\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown algorithm")
	}

	if err := os.WriteFile(path, []byte("blend:\n  influence: 1.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for influence > 1")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/retouch.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
