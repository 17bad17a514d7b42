package config

import "testing"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("EBAY_APP_ID", "app")
	t.Setenv("EBAY_CERT_ID", "cert")
	t.Setenv("EBAY_REDIRECT_URI", "https://example.com/oauth/callback")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.TargetCurrency != "USD" {
		t.Errorf("TargetCurrency = %q", cfg.TargetCurrency)
	}
	if cfg.MarginPct != 10 {
		t.Errorf("MarginPct = %v", cfg.MarginPct)
	}
	if cfg.Sandbox {
		t.Error("Sandbox should default to false")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("EBAY_SANDBOX", "true")
	t.Setenv("TARGET_CURRENCY", "gbp")
	t.Setenv("WORKERS", "4")
	t.Setenv("MARGIN_PCT", "12.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Sandbox {
		t.Error("Sandbox = false, want true")
	}
	if cfg.TargetCurrency != "GBP" {
		t.Errorf("TargetCurrency = %q, want upper-cased GBP", cfg.TargetCurrency)
	}
	if cfg.Workers != 4 || cfg.MarginPct != 12.5 {
		t.Errorf("Workers = %d, MarginPct = %v", cfg.Workers, cfg.MarginPct)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv("EBAY_APP_ID", "")
	t.Setenv("EBAY_CERT_ID", "")
	t.Setenv("EBAY_REDIRECT_URI", "")
	if _, err := Load(); err == nil {
		t.Error("want an error when marketplace credentials are missing")
	}
}
