// Package review holds the uniform in-memory review record and the
// normalization rules every source adapter funnels its payloads through.
package review

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record is the normalized representation of one customer review, as held
// in the store and consumed by rendering.
type Record struct {
	ID           string          `json:"id"`
	Source       string          `json:"source"`
	ReviewerName string          `json:"reviewer_name"`
	Rating       int             `json:"rating"`
	ReviewText   string          `json:"review_text"`
	ReviewDate   time.Time       `json:"review_date"`
	TechName     string          `json:"tech_name,omitempty"`
	TechPhotoURL string          `json:"tech_photo_url,omitempty"`
	Raw          json.RawMessage `json:"raw,omitempty"`
	Partial      bool            `json:"partial,omitempty"`

	// Mutable processing flags, updated in place by the fan-out pipeline.
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	ImageGenerated bool       `json:"image_generated"`
	ChatShared     bool       `json:"chat_shared"`
}

const (
	maxReviewerNameLen = 100
	maxReviewTextLen   = 2000
)

// ClampRating clamps a rating to the valid 1..5 range.
func ClampRating(rating int) int {
	if rating < 1 {
		return 1
	}
	if rating > 5 {
		return 5
	}
	return rating
}

// ClampStars clamps a rating to 0..5 for star-glyph rendering, where 0 and 6+
// are valid *inputs* to the renderer (unlike ClampRating, which is used at
// ingestion/accept time).
func ClampStars(rating int) int {
	if rating < 0 {
		return 0
	}
	if rating > 5 {
		return 5
	}
	return rating
}

// DeriveID computes the "<source>:<token>" identity described in spec.md §3.
// token is the supplied source token if non-empty, otherwise the first 16
// hex chars of SHA-256("<source>:<reviewerName>:<reviewText>:<rating>").
func DeriveID(source, token, reviewerName, reviewText string, rating int) string {
	if token != "" {
		return source + ":" + token
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s:%d", source, reviewerName, reviewText, rating)))
	return source + ":" + hex.EncodeToString(sum[:])[:16]
}

// Normalize applies the cross-adapter normalization invariants from
// spec.md §4.2 in place: rating clamped to 1..5, truncated name/text,
// empty text defaulted, missing date defaulted to now, and the id
// recomputed from the (possibly defaulted) fields when token is empty.
func Normalize(source, token string, r *Record, placeholderName string) {
	r.Source = source
	r.Rating = ClampRating(r.Rating)

	r.ReviewerName = strings.TrimSpace(r.ReviewerName)
	if r.ReviewerName == "" {
		r.ReviewerName = placeholderName
	}
	if len(r.ReviewerName) > maxReviewerNameLen {
		r.ReviewerName = r.ReviewerName[:maxReviewerNameLen]
	}

	if len(r.ReviewText) > maxReviewTextLen {
		r.ReviewText = r.ReviewText[:maxReviewTextLen]
	}

	if r.ReviewDate.IsZero() {
		r.ReviewDate = time.Now().UTC()
	} else {
		r.ReviewDate = r.ReviewDate.UTC()
	}

	r.ID = DeriveID(source, token, r.ReviewerName, r.ReviewText, r.Rating)
}
