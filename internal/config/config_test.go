package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("WORKER_COUNT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.AIProvider != "aiservice" {
		t.Fatalf("expected default provider aiservice, got %s", cfg.AIProvider)
	}
	if cfg.WorkerCount != 4 || cfg.JobMaxAttempts != 3 {
		t.Fatalf("unexpected worker defaults: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 10*1024*1024 {
		t.Fatalf("expected 10MB upload cap, got %d", cfg.MaxUploadBytes)
	}
	if cfg.JWTTTL != 24*time.Hour {
		t.Fatalf("expected 24h token ttl, got %s", cfg.JWTTTL)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AI_PROVIDER", "gemini")
	t.Setenv("AI_TIMEOUT", "5s")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AIProvider != "gemini" || cfg.AITimeout != 5*time.Second || cfg.WorkerCount != 8 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigBadValuesFallBack(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AI_TIMEOUT", "soon")
	t.Setenv("AI_MAX_RETRIES", "many")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AITimeout != 60*time.Second || cfg.AIMaxRetries != 3 {
		t.Fatalf("expected defaults for unparsable values, got %s / %d", cfg.AITimeout, cfg.AIMaxRetries)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error when JWT_SECRET missing")
	}

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AI_PROVIDER", "openai")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unsupported provider")
	}

	t.Setenv("AI_PROVIDER", "aiservice")
	t.Setenv("WORKER_COUNT", "0")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for zero workers")
	}
}
