package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	for _, k := range []string{"PRIVACY_MODE", "DEFAULT_DEADLINE_SECONDS", "LOG_LEVEL", "GENERATOR_API"} {
		os.Unsetenv(k)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PrivacyMode != PrivacyFull {
		t.Fatalf("expected default privacy mode FULL, got %s", cfg.PrivacyMode)
	}
	if cfg.DefaultDeadline != 30*time.Second {
		t.Fatalf("expected default deadline 30s, got %v", cfg.DefaultDeadline)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.GeneratorAPI != "anthropic" {
		t.Fatalf("expected default generator api anthropic, got %s", cfg.GeneratorAPI)
	}
	if cfg.EmbedderDim != 1536 {
		t.Fatalf("expected default embedder dim 1536, got %d", cfg.EmbedderDim)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected default listen addr :8080, got %s", cfg.ListenAddr)
	}
	if cfg.VectorCollection != "patient_chunks" {
		t.Fatalf("expected default vector collection patient_chunks, got %s", cfg.VectorCollection)
	}
}

func TestLoad_OpenAIGeneratorDefaultsModel(t *testing.T) {
	os.Setenv("GENERATOR_API", "openai")
	os.Unsetenv("GENERATOR_MODEL")
	defer os.Unsetenv("GENERATOR_API")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GeneratorModel != "gpt-4o-mini" {
		t.Fatalf("expected default openai model gpt-4o-mini, got %s", cfg.GeneratorModel)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	os.Setenv("PRIVACY_MODE", "redacted")
	os.Setenv("DEFAULT_DEADLINE_SECONDS", "45")
	defer os.Unsetenv("PRIVACY_MODE")
	defer os.Unsetenv("DEFAULT_DEADLINE_SECONDS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PrivacyMode != PrivacyRedacted {
		t.Fatalf("expected REDACTED, got %s", cfg.PrivacyMode)
	}
	if cfg.DefaultDeadline != 45*time.Second {
		t.Fatalf("expected 45s, got %v", cfg.DefaultDeadline)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if v := firstNonEmpty("", "foo", "bar"); v != "foo" {
		t.Fatalf("expected foo, got %q", v)
	}
	if v := firstNonEmpty(); v != "" {
		t.Fatalf("expected empty, got %q", v)
	}
}
