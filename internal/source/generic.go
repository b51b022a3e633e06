package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samskrta/review-image/internal/review"
)

// GenericAdapter has no polling behavior; it exists purely to normalize
// webhook and import payloads from platforms with no dedicated adapter,
// using a configurable field_mapping.
type GenericAdapter struct {
	sourceName string
	cfg        Config
	enabled    bool
}

// NewGenericAdapter builds the adapter for the given config.
func NewGenericAdapter(sourceName string, cfg Config) *GenericAdapter {
	return &GenericAdapter{sourceName: sourceName, cfg: cfg}
}

func (a *GenericAdapter) Name() string  { return "generic" }
func (a *GenericAdapter) Enabled() bool { return a.enabled }

// Initialize always succeeds; the generic adapter has no required config
// beyond an optional field mapping (zero value falls back to defaultFieldMapping).
func (a *GenericAdapter) Initialize() bool {
	a.enabled = true
	return true
}

// Fetch is a no-op: the generic adapter never polls.
func (a *GenericAdapter) Fetch(ctx context.Context, cursor string) ([]review.Record, string, error) {
	return nil, cursor, nil
}

var defaultFieldMapping = FieldMapping{
	ReviewerNameField: "reviewer_name",
	RatingField:       "rating",
	ReviewTextField:   "review_text",
	ReviewDateField:   "review_date",
	TechNameField:     "tech_name",
	TechPhotoURLField: "tech_photo_url",
}

func (a *GenericAdapter) mapping() FieldMapping {
	m := a.cfg.FieldMapping
	if m.ReviewerNameField == "" {
		m.ReviewerNameField = defaultFieldMapping.ReviewerNameField
	}
	if m.RatingField == "" {
		m.RatingField = defaultFieldMapping.RatingField
	}
	if m.ReviewTextField == "" {
		m.ReviewTextField = defaultFieldMapping.ReviewTextField
	}
	if m.ReviewDateField == "" {
		m.ReviewDateField = defaultFieldMapping.ReviewDateField
	}
	if m.TechNameField == "" {
		m.TechNameField = defaultFieldMapping.TechNameField
	}
	if m.TechPhotoURLField == "" {
		m.TechPhotoURLField = defaultFieldMapping.TechPhotoURLField
	}
	return m
}

// Parse accepts either a bare JSON array of review objects, or a
// {"source": ..., "reviews": [...]} envelope, mapping fields per the
// configured field_mapping before common normalization.
func (a *GenericAdapter) Parse(raw []byte) ([]review.Record, error) {
	m := a.mapping()

	var items []map[string]any
	var arr []map[string]any
	if err := json.Unmarshal(raw, &arr); err == nil {
		items = arr
	} else {
		var envelope struct {
			Source  string           `json:"source"`
			Reviews []map[string]any `json:"reviews"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("generic: parse: expected array or {source, reviews}: %w", err)
		}
		items = envelope.Reviews
	}

	out := make([]review.Record, 0, len(items))
	for _, obj := range items {
		r := review.Record{
			ReviewerName: stringField(obj, m.ReviewerNameField),
			ReviewText:   stringField(obj, m.ReviewTextField),
			TechName:     stringField(obj, m.TechNameField),
			TechPhotoURL: stringField(obj, m.TechPhotoURLField),
			Rating:       intField(obj, m.RatingField),
			ReviewDate:   dateField(obj, m.ReviewDateField),
		}
		rawJSON, _ := json.Marshal(obj)
		r.Raw = rawJSON
		review.Normalize(a.sourceName, "", &r, "Anonymous")
		out = append(out, r)
	}
	return out, nil
}

func stringField(obj map[string]any, key string) string {
	v, ok := obj[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func intField(obj map[string]any, key string) int {
	v, ok := obj[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		var i int
		_, _ = fmt.Sscanf(n, "%d", &i)
		return i
	default:
		return 0
	}
}

func dateField(obj map[string]any, key string) time.Time {
	s := stringField(obj, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
