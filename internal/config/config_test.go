package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleDoc = `
company:
  name: "Acme Plumbing"
  phone: "555-0100"
  brand_color: "#1a73e8"
  brand_color_dark: "#0b4aad"
  logo_url: "https://example.com/logo.png"
chat:
  bot_token: "xoxb-test"
  channel: "#reviews"
  technicians:
    "Jane Doe": "U123"
ingestion:
  enabled: true
  auto_generate: true
  auto_share: true
  min_rating_for_auto_share: 5
  default_template: "default"
  default_size: "square"
  poll_interval_minutes: 30
  data_path: "/tmp/reviews.json"
  sources:
    storefront:
      kind: "oauth_business"
      enabled: true
      poll_interval: 20m
      webhook_secret: "s3cret"
      client_id: "abc"
`

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeTestConfig(t, sampleDoc)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Company.Name != "Acme Plumbing" {
		t.Errorf("Company.Name = %q", cfg.Company.Name)
	}
	if !cfg.Chat.Configured() {
		t.Errorf("expected chat to be configured")
	}
	// viper lowercases map keys on load; the chat client looks names up
	// case-insensitively, so "Jane Doe" arrives as "jane doe".
	if cfg.Chat.Technicians["jane doe"] != "U123" {
		t.Errorf("Technicians[jane doe] = %q", cfg.Chat.Technicians["jane doe"])
	}
	src, ok := cfg.Ingestion.Sources["storefront"]
	if !ok {
		t.Fatalf("expected storefront source")
	}
	if src.Kind != "oauth_business" || src.WebhookSecret != "s3cret" {
		t.Errorf("unexpected source config: %+v", src)
	}
	if src.PollInterval.Minutes() != 20 {
		t.Errorf("PollInterval = %v, want 20m", src.PollInterval)
	}
	if cfg.Ingestion.MinRatingForAutoShare != 5 {
		t.Errorf("MinRatingForAutoShare = %d, want 5", cfg.Ingestion.MinRatingForAutoShare)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Errorf("expected error for missing config file")
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTestConfig(t, `
ingestion:
  data_path: "/tmp/reviews.json"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ingestion.MinRatingForAutoShare != defaultMinAutoShareStar {
		t.Errorf("MinRatingForAutoShare default = %d", cfg.Ingestion.MinRatingForAutoShare)
	}
	if cfg.Ingestion.MaxAgeDays != defaultMaxAgeDays {
		t.Errorf("MaxAgeDays default = %d", cfg.Ingestion.MaxAgeDays)
	}
}

func TestLoad_RequiresDataPath(t *testing.T) {
	path := writeTestConfig(t, `
company:
  name: "Acme"
`)
	if _, err := Load(path); err == nil {
		t.Errorf("expected error for missing ingestion.data_path")
	}
}
