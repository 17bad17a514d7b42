// Package config loads runtime configuration from the environment, with
// an optional .env file for development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration.
type Config struct {
	// Marketplace application identity.
	EbayDevID  string
	EbayAppID  string
	EbayCertID string
	// RedirectURI must match the URI registered with the marketplace.
	RedirectURI string
	Sandbox     bool

	// Catalog key; empty uses the catalog's anonymous tier.
	TCGAPIKey string

	ListenAddr     string
	CachePath      string
	TargetCurrency string
	Workers        int
	// MarginPct is the default markup applied to suggested reprices.
	MarginPct float64
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first when present; real environment
// variables win.
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		EbayDevID:      os.Getenv("EBAY_DEV_ID"),
		EbayAppID:      os.Getenv("EBAY_APP_ID"),
		EbayCertID:     os.Getenv("EBAY_CERT_ID"),
		RedirectURI:    os.Getenv("EBAY_REDIRECT_URI"),
		Sandbox:        boolEnv("EBAY_SANDBOX"),
		TCGAPIKey:      os.Getenv("TCG_API_KEY"),
		ListenAddr:     envOr("LISTEN_ADDR", ":8080"),
		CachePath:      envOr("CACHE_PATH", "cache.json"),
		TargetCurrency: strings.ToUpper(envOr("TARGET_CURRENCY", "USD")),
		Workers:        intEnv("WORKERS", 0),
		MarginPct:      floatEnv("MARGIN_PCT", 10),
	}

	if cfg.EbayAppID == "" || cfg.EbayCertID == "" {
		return nil, fmt.Errorf("EBAY_APP_ID and EBAY_CERT_ID are required")
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("EBAY_REDIRECT_URI is required")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}

func intEnv(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func floatEnv(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return v
}
