// Package source defines the adapter interface review records flow
// through on their way into the pipeline, and the four concrete
// implementations spec.md §4.2 describes.
package source

import (
	"context"
	"fmt"

	"github.com/samskrta/review-image/internal/review"
)

// Adapter abstracts one review platform. Implementations fetch and parse
// raw payloads into review.Record; they must not consult the store or
// perform dedup — that's the fan-out pipeline's job.
type Adapter interface {
	// Name returns the adapter's kind tag (e.g. "oauth_business"). Every
	// adapter of one kind returns the same tag; the Registry keys adapters
	// by their configured source name.
	Name() string

	// Enabled reports whether Initialize succeeded.
	Enabled() bool

	// Initialize validates configuration and returns whether the adapter
	// is usable. Called once at startup; a false return leaves the
	// adapter registered but inert, mirroring the teacher's disabled
	// provider pattern.
	Initialize() bool

	// Fetch polls for records newer than cursor, returning the records
	// found and the new cursor value. Adapters that don't poll (the
	// generic adapter) return an empty slice and the same cursor.
	Fetch(ctx context.Context, cursor string) ([]review.Record, string, error)

	// Parse maps a raw webhook/import payload onto records, for ingress
	// that isn't poll-driven.
	Parse(raw []byte) ([]review.Record, error)
}

// Config is the adapter-specific configuration blob parsed from the
// config document's ingestion.sources entries, keyed by the "kind"
// discriminator.
type Config struct {
	Kind string `json:"kind"`

	// OAuth business-profile adapter.
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenURL     string `json:"token_url,omitempty"`
	ReviewsURL   string `json:"reviews_url,omitempty"`

	// API-key review-feed adapter.
	APIKey  string `json:"api_key,omitempty"`
	FeedURL string `json:"feed_url,omitempty"`

	// Bearer-token partner adapter.
	BearerToken string `json:"bearer_token,omitempty"`
	PartnerURL  string `json:"partner_url,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`

	// Generic adapter field mapping.
	FieldMapping FieldMapping `json:"field_mapping,omitempty"`
}

// FieldMapping names the source's JSON fields for the generic adapter's
// configurable mapping, per spec.md §4.2.
type FieldMapping struct {
	ReviewerNameField string `json:"reviewer_name_field,omitempty"`
	RatingField       string `json:"rating_field,omitempty"`
	ReviewTextField   string `json:"review_text_field,omitempty"`
	ReviewDateField   string `json:"review_date_field,omitempty"`
	TechNameField     string `json:"tech_name_field,omitempty"`
	TechPhotoURLField string `json:"tech_photo_url_field,omitempty"`
}

// New builds the adapter named by cfg.Kind, or an error if the kind is
// unrecognized.
func New(sourceName string, cfg Config) (Adapter, error) {
	switch cfg.Kind {
	case "oauth_business":
		return NewOAuthBusinessAdapter(sourceName, cfg), nil
	case "apikey_feed":
		return NewAPIKeyFeedAdapter(sourceName, cfg), nil
	case "bearer_partner":
		return NewBearerPartnerAdapter(sourceName, cfg), nil
	case "generic":
		return NewGenericAdapter(sourceName, cfg), nil
	default:
		return nil, fmt.Errorf("source: unknown adapter kind %q", cfg.Kind)
	}
}
