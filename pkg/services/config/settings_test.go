package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSettings_ValidYAML_PopulatesAllFields(t *testing.T) {
	// Given
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	content := `service:
  base_url: "http://analytics:8000"
  token: "tok"
  timeout: 15s
  fallback_timeout: 45s
  price_column: "unit_price"
sweep:
  percent: 25
  points: 15
elasticity:
  epsilon: 0.002
  placeholders: [-0.2, -0.4]
max_concurrency: 3
canonical_secondary: "SKU-1"`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// When
	cfg, err := LoadSettings(path)

	// Then
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Service.BaseURL != "http://analytics:8000" {
		t.Errorf("expected BaseURL=http://analytics:8000, got %s", cfg.Service.BaseURL)
	}
	if cfg.Service.Timeout != 15*time.Second {
		t.Errorf("expected Timeout=15s, got %s", cfg.Service.Timeout)
	}
	if cfg.Service.FallbackTimeout != 45*time.Second {
		t.Errorf("expected FallbackTimeout=45s, got %s", cfg.Service.FallbackTimeout)
	}
	if cfg.Service.PriceColumn != "unit_price" {
		t.Errorf("expected PriceColumn=unit_price, got %s", cfg.Service.PriceColumn)
	}
	if cfg.Sweep.Percent != 25 || cfg.Sweep.Points != 15 {
		t.Errorf("expected sweep 25/15, got %v/%d", cfg.Sweep.Percent, cfg.Sweep.Points)
	}
	if cfg.Elasticity.Epsilon != 0.002 {
		t.Errorf("expected Epsilon=0.002, got %v", cfg.Elasticity.Epsilon)
	}
	if len(cfg.Elasticity.Placeholders) != 2 {
		t.Errorf("expected 2 placeholders, got %v", cfg.Elasticity.Placeholders)
	}
	if cfg.MaxConcurrency != 3 {
		t.Errorf("expected MaxConcurrency=3, got %d", cfg.MaxConcurrency)
	}
	if cfg.CanonicalSecondary != "SKU-1" {
		t.Errorf("expected CanonicalSecondary=SKU-1, got %s", cfg.CanonicalSecondary)
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	cfg, err := LoadSettings("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Service.Timeout != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %s", cfg.Service.Timeout)
	}
	if cfg.Elasticity.Epsilon != 0.001 {
		t.Errorf("expected default epsilon 0.001, got %v", cfg.Elasticity.Epsilon)
	}
	if len(cfg.Elasticity.Placeholders) != 10 {
		t.Errorf("expected default placeholder table, got %v", cfg.Elasticity.Placeholders)
	}
}

func TestLoadSettings_EnvOverride(t *testing.T) {
	t.Setenv("PRICING_SERVICE_BASE_URL", "http://from-env:9000")

	cfg, err := LoadSettings("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Service.BaseURL != "http://from-env:9000" {
		t.Errorf("expected env base url, got %s", cfg.Service.BaseURL)
	}
}

func TestLoadSettings_InvalidSweep_ReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("sweep:\n  percent: 95\n"), 0o644); err != nil {
		t.Fatalf("failed to write bad config: %v", err)
	}

	if _, err := LoadSettings(path); err == nil {
		t.Error("expected error for out of range sweep, got nil")
	}
}

func TestLoadSettings_MissingFile_ReturnsError(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
