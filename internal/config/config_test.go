package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.WindowDurationMinutes != 180 {
		t.Errorf("WindowDurationMinutes = %d, want 180", cfg.WindowDurationMinutes)
	}
	if cfg.ArrivalBufferMinutes != 20 || cfg.MinSpacingMinutes != 20 {
		t.Errorf("buffer/spacing = %d/%d, want 20/20", cfg.ArrivalBufferMinutes, cfg.MinSpacingMinutes)
	}
	if len(cfg.AllowedDelayMinutes) != 2 || cfg.AllowedDelayMinutes[0] != 5 || cfg.AllowedDelayMinutes[1] != 10 {
		t.Errorf("AllowedDelayMinutes = %v, want [5 10]", cfg.AllowedDelayMinutes)
	}
	if cfg.PrebookTTL != 24*time.Hour {
		t.Errorf("PrebookTTL = %s, want 24h", cfg.PrebookTTL)
	}
	if cfg.CounterName != "appointment_number" {
		t.Errorf("CounterName = %q", cfg.CounterName)
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("WINDOW_DURATION_MINUTES", "120")
	t.Setenv("ALLOWED_DELAY_MINUTES", "5,10,15")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("EMAIL_PROVIDER", "SendGrid")

	cfg := Load()

	if cfg.WindowDurationMinutes != 120 {
		t.Errorf("WindowDurationMinutes = %d, want 120", cfg.WindowDurationMinutes)
	}
	if len(cfg.AllowedDelayMinutes) != 3 {
		t.Errorf("AllowedDelayMinutes = %v, want 3 entries", cfg.AllowedDelayMinutes)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Errorf("EmailProvider = %q, want sendgrid (normalized)", cfg.EmailProvider)
	}
}

func TestInvalidIntListFallsBack(t *testing.T) {
	t.Setenv("ALLOWED_DELAY_MINUTES", "5,banana")

	cfg := Load()
	if len(cfg.AllowedDelayMinutes) != 2 || cfg.AllowedDelayMinutes[0] != 5 || cfg.AllowedDelayMinutes[1] != 10 {
		t.Errorf("AllowedDelayMinutes = %v, want default [5 10]", cfg.AllowedDelayMinutes)
	}
}
