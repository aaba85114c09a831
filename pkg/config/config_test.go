package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "prod" {
		t.Fatalf("expected App.Env to be prod, got %q", cfg.App.Env)
	}
	if !cfg.App.IsProd() {
		t.Fatalf("expected IsProd for env %q", cfg.App.Env)
	}
	if cfg.Backend.BaseURL != "https://api.juicekart.test" {
		t.Fatalf("unexpected backend base url %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 10*time.Second {
		t.Fatalf("expected default backend timeout 10s, got %v", cfg.Backend.Timeout)
	}
	if cfg.State.Path != "juicekart.db" {
		t.Fatalf("unexpected state path %q", cfg.State.Path)
	}
	if cfg.Session.RefreshLeeway != 30*time.Second {
		t.Fatalf("expected default refresh leeway 30s, got %v", cfg.Session.RefreshLeeway)
	}
	if cfg.Checkout.Currency != "GHS" {
		t.Fatalf("expected default currency GHS, got %q", cfg.Checkout.Currency)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv("JUICEKART_BACKEND_BASE_URL"); err != nil {
		t.Fatalf("failed to unset backend base url: %v", err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv("JUICEKART_APP_ENV", "prod")
	t.Setenv("JUICEKART_BACKEND_BASE_URL", "https://api.juicekart.test")
}
