// Package config loads the configuration document described in spec.md §6
// through viper, the same way the teacher's internal/config.Load() pulls
// its fields out of viper after the root command binds flags and env vars.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// CompanyConfig is the branding block substituted into every rendered card.
type CompanyConfig struct {
	Name           string `mapstructure:"name"`
	Phone          string `mapstructure:"phone"`
	BrandColor     string `mapstructure:"brand_color"`
	BrandColorDark string `mapstructure:"brand_color_dark"`
	LogoURL        string `mapstructure:"logo_url"`
}

// ChatConfig carries the chat workspace credentials and the technician
// display-name -> mention-id mapping used by the share step (spec.md §4.7).
// The whole block is optional; a zero value means chat sharing is disabled.
// Technicians keys come back lowercased from Load, because viper lowercases
// map keys; the original capitalisation of display names is not kept.
type ChatConfig struct {
	BotToken    string            `mapstructure:"bot_token"`
	Channel     string            `mapstructure:"channel"`
	Technicians map[string]string `mapstructure:"technicians"`
}

// Configured reports whether enough chat config is present to share reviews.
func (c ChatConfig) Configured() bool {
	return c.BotToken != "" && c.Channel != ""
}

// SourceConfig is one entry of ingestion.sources: the core-visible fields
// (enabled, poll_interval, webhook_secret) plus the adapter-specific blob,
// discriminated by Kind, that the core treats as opaque per spec.md §3.
type SourceConfig struct {
	Kind          string        `mapstructure:"kind"`
	Enabled       bool          `mapstructure:"enabled"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	WebhookSecret string        `mapstructure:"webhook_secret"`

	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	TokenURL     string `mapstructure:"token_url"`
	ReviewsURL   string `mapstructure:"reviews_url"`

	APIKey  string `mapstructure:"api_key"`
	FeedURL string `mapstructure:"feed_url"`

	BearerToken string `mapstructure:"bearer_token"`
	PartnerURL  string `mapstructure:"partner_url"`
	PageSize    int    `mapstructure:"page_size"`

	FieldMapping FieldMapping `mapstructure:"field_mapping"`
}

// FieldMapping mirrors source.FieldMapping so the config document doesn't
// need to import the source package to describe its shape.
type FieldMapping struct {
	ReviewerNameField string `mapstructure:"reviewer_name_field"`
	RatingField       string `mapstructure:"rating_field"`
	ReviewTextField   string `mapstructure:"review_text_field"`
	ReviewDateField   string `mapstructure:"review_date_field"`
	TechNameField     string `mapstructure:"tech_name_field"`
	TechPhotoURLField string `mapstructure:"tech_photo_url_field"`
}

// IngestionConfig is the ingestion block of spec.md §6.
type IngestionConfig struct {
	Enabled               bool                    `mapstructure:"enabled"`
	AutoGenerate          bool                    `mapstructure:"auto_generate"`
	AutoShare             bool                    `mapstructure:"auto_share"`
	MinRatingForAutoShare int                     `mapstructure:"min_rating_for_auto_share"`
	DefaultTemplate       string                  `mapstructure:"default_template"`
	DefaultSize           string                  `mapstructure:"default_size"`
	PollIntervalMinutes   int                     `mapstructure:"poll_interval_minutes"`
	DataPath              string                  `mapstructure:"data_path"`
	Sources               map[string]SourceConfig `mapstructure:"sources"`
	Generic               SourceConfig            `mapstructure:"generic"`
	MaxAgeDays            int                     `mapstructure:"max_age_days"`
}

// Config is the full configuration document from spec.md §6.
type Config struct {
	Company   CompanyConfig   `mapstructure:"company"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`

	// Port and BaseURL are read from the environment, not the document,
	// per spec.md §6: PORT (default 3000), BASE_URL (optional).
	Port    int
	BaseURL string
}

const (
	defaultPort             = 3000
	defaultMaxAgeDays       = 90
	defaultMinAutoShareStar = 4
)

// Load reads the configuration document at path (YAML or JSON, detected by
// extension) through viper, applies the PORT/BASE_URL environment
// overrides, and fills in the defaults spec.md §3/§4.5 describe. The
// process exits with a clear error if the document is absent or invalid —
// callers should treat a non-nil error here as fatal at startup.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	v.AutomaticEnv()
	cfg.Port = v.GetInt("PORT")
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	cfg.BaseURL = v.GetString("BASE_URL")

	if cfg.Ingestion.MinRatingForAutoShare == 0 {
		cfg.Ingestion.MinRatingForAutoShare = defaultMinAutoShareStar
	}
	if cfg.Ingestion.MaxAgeDays == 0 {
		cfg.Ingestion.MaxAgeDays = defaultMaxAgeDays
	}
	if cfg.Ingestion.DataPath == "" {
		return nil, fmt.Errorf("config: ingestion.data_path is required")
	}

	return &cfg, nil
}
