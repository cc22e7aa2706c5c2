package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "LLM_PROVIDER", "HISTORY_WINDOW", "SMS_PROVIDER", "SWEEP_MAX_PER_RUN", "GENERATION_TIMEOUT", "LLM_TEMPERATURE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Fatalf("expected bedrock provider by default, got %s", cfg.LLMProvider)
	}
	if cfg.HistoryWindow != 20 {
		t.Fatalf("expected history window 20, got %d", cfg.HistoryWindow)
	}
	if cfg.SMSProvider != "auto" {
		t.Fatalf("expected auto sms provider, got %s", cfg.SMSProvider)
	}
	if cfg.SweepMaxPerRun != 25 {
		t.Fatalf("expected sweep cap 25, got %d", cfg.SweepMaxPerRun)
	}
	if cfg.GenerationTimeout != 30*time.Second {
		t.Fatalf("expected 30s generation timeout, got %s", cfg.GenerationTimeout)
	}
	if cfg.LLMTemperature != 0 {
		t.Fatalf("expected persona temperature (0), got %v", cfg.LLMTemperature)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("LLM_PROVIDER", " OpenAI ")
	t.Setenv("HISTORY_WINDOW", "8")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("DELIVERY_TIMEOUT", "5s")
	t.Setenv("SWEEP_FOLLOW_UP_AFTER", "24h")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("DEFAULT_PHONE_REGION", "gb")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.LLMProvider != "openai" {
		t.Fatalf("expected normalized provider, got %q", cfg.LLMProvider)
	}
	if cfg.HistoryWindow != 8 {
		t.Fatalf("expected history window override, got %d", cfg.HistoryWindow)
	}
	if cfg.LLMTemperature != 0.2 {
		t.Fatalf("expected temperature override, got %v", cfg.LLMTemperature)
	}
	if cfg.DeliveryTimeout != 5*time.Second {
		t.Fatalf("expected delivery timeout override, got %s", cfg.DeliveryTimeout)
	}
	if cfg.SweepFollowUpAfter != 24*time.Hour {
		t.Fatalf("expected follow-up override, got %s", cfg.SweepFollowUpAfter)
	}
	if !cfg.RedisTLS {
		t.Fatal("expected redis tls enabled")
	}
	if cfg.DefaultPhoneRegion != "GB" {
		t.Fatalf("expected upper-cased region, got %s", cfg.DefaultPhoneRegion)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("HISTORY_WINDOW", "lots")
	t.Setenv("GENERATION_TIMEOUT", "soon")
	cfg := Load()
	if cfg.HistoryWindow != 20 {
		t.Fatalf("expected default history window, got %d", cfg.HistoryWindow)
	}
	if cfg.GenerationTimeout != 30*time.Second {
		t.Fatalf("expected default generation timeout, got %s", cfg.GenerationTimeout)
	}
}

func TestLoadAdminSurface(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://ops.kxrw.fm, ,https://admin.kxrw.fm ")
	t.Setenv("ADMIN_RATE_LIMIT", "")
	t.Setenv("BENEFIT_WEBHOOK_URL", "https://crm.kxrw.fm/benefits")
	cfg := Load()
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.kxrw.fm" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.AdminRateLimit != 5 {
		t.Fatalf("expected default admin rate 5, got %v", cfg.AdminRateLimit)
	}
	if cfg.BenefitWebhookURL != "https://crm.kxrw.fm/benefits" {
		t.Fatalf("unexpected webhook url %q", cfg.BenefitWebhookURL)
	}
}
