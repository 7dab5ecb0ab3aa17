package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "postop" {
		t.Errorf("expected Name=postop, got %s", cfg.Name)
	}
	if cfg.LLM.Model != "claude-sonnet-4-20250514" {
		t.Errorf("expected default model, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.MaxTokens != 2000 {
		t.Errorf("expected MaxTokens=2000, got %d", cfg.LLM.MaxTokens)
	}
	if cfg.Content.HandoutsDir != "postop_handouts" {
		t.Errorf("expected HandoutsDir=postop_handouts, got %s", cfg.Content.HandoutsDir)
	}
	if cfg.Content.ProtocolsDir != "protocols" {
		t.Errorf("expected ProtocolsDir=protocols, got %s", cfg.Content.ProtocolsDir)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	// Ensure no env vars interfere
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("POSTOP_MODEL", "")
	t.Setenv("POSTOP_HANDOUTS_DIR", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.APIKey = "sk-test"
	cfg.Content.HandoutsDir = "/srv/handouts"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LLM.APIKey != "sk-test" {
		t.Errorf("expected APIKey=sk-test, got %s", loaded.LLM.APIKey)
	}
	if loaded.Content.HandoutsDir != "/srv/handouts" {
		t.Errorf("expected HandoutsDir=/srv/handouts, got %s", loaded.Content.HandoutsDir)
	}
}

func TestConfig_LoadMissingFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file should return defaults, got error: %v", err)
	}
	if cfg.LLM.Model != DefaultConfig().LLM.Model {
		t.Errorf("expected default model, got %s", cfg.LLM.Model)
	}
}

func TestConfig_LoadBadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte("llm: [not a mapping"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected parse error for malformed YAML")
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("POSTOP_MODEL", "claude-test-model")
	t.Setenv("POSTOP_HANDOUTS_DIR", "/data/pdfs")
	t.Setenv("POSTOP_PROTOCOLS_DIR", "/data/protocols")
	t.Setenv("POSTOP_THEME", "dark")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("expected APIKey=env-key, got %s", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "claude-test-model" {
		t.Errorf("expected Model=claude-test-model, got %s", cfg.LLM.Model)
	}
	if cfg.Content.HandoutsDir != "/data/pdfs" {
		t.Errorf("expected HandoutsDir=/data/pdfs, got %s", cfg.Content.HandoutsDir)
	}
	if cfg.Content.ProtocolsDir != "/data/protocols" {
		t.Errorf("expected ProtocolsDir=/data/protocols, got %s", cfg.Content.ProtocolsDir)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("expected Theme=dark, got %s", cfg.UI.Theme)
	}
}

func TestConfig_EnvOverridesApplyOnMissingFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("env override should apply without a config file, got %s", cfg.LLM.APIKey)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	// Default has no API key
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}

	cfg.LLM.APIKey = "test-key"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}

	cfg.UI.Theme = "neon"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid theme")
	}
	cfg.UI.Theme = "auto"

	cfg.LLM.MaxTokens = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero max_tokens")
	}
}
