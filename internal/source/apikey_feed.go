package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/samskrta/review-image/internal/review"
)

// APIKeyFeedAdapter polls a static-key "newest" review feed. Records from
// this source always carry Partial: true because the feed returns excerpts.
type APIKeyFeedAdapter struct {
	sourceName string
	cfg        Config
	client     *http.Client
	enabled    bool
}

// NewAPIKeyFeedAdapter builds the adapter for the given config.
func NewAPIKeyFeedAdapter(sourceName string, cfg Config) *APIKeyFeedAdapter {
	return &APIKeyFeedAdapter{
		sourceName: sourceName,
		cfg:        cfg,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *APIKeyFeedAdapter) Name() string  { return "apikey_feed" }
func (a *APIKeyFeedAdapter) Enabled() bool { return a.enabled }

func (a *APIKeyFeedAdapter) Initialize() bool {
	a.enabled = a.cfg.APIKey != "" && a.cfg.FeedURL != ""
	return a.enabled
}

type feedEntry struct {
	Token      string `json:"token"`
	Name       string `json:"name"`
	Rating     int    `json:"rating"`
	Excerpt    string `json:"excerpt"`
	ReviewDate string `json:"review_date"`
}

type feedPayload struct {
	Entries []feedEntry `json:"entries"`
}

// Fetch calls the newest-entries endpoint with the static API key. cursor
// is the most recent review_date seen previously; the new cursor is the
// newest review_date seen this call.
func (a *APIKeyFeedAdapter) Fetch(ctx context.Context, cursor string) ([]review.Record, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.FeedURL, nil)
	if err != nil {
		return nil, cursor, fmt.Errorf("apikey_feed: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", a.cfg.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, cursor, fmt.Errorf("apikey_feed: fetch: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cursor, fmt.Errorf("apikey_feed: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, cursor, fmt.Errorf("apikey_feed: status %d: %s", resp.StatusCode, string(data))
	}

	var payload feedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, cursor, fmt.Errorf("apikey_feed: parse response: %w", err)
	}

	cursorTime, _ := time.Parse(time.RFC3339, cursor)
	newCursor := cursorTime

	var out []review.Record
	for _, e := range payload.Entries {
		reviewTime, err := time.Parse(time.RFC3339, e.ReviewDate)
		if err != nil {
			continue
		}
		if !cursorTime.IsZero() && !reviewTime.After(cursorTime) {
			continue
		}

		rawJSON, _ := json.Marshal(e)
		r := review.Record{
			ReviewerName: e.Name,
			Rating:       e.Rating,
			ReviewText:   e.Excerpt,
			ReviewDate:   reviewTime,
			Raw:          rawJSON,
			Partial:      true,
		}
		review.Normalize(a.sourceName, e.Token, &r, "Anonymous")
		out = append(out, r)

		if reviewTime.After(newCursor) {
			newCursor = reviewTime
		}
	}

	if newCursor.IsZero() {
		return out, cursor, nil
	}
	return out, newCursor.Format(time.RFC3339), nil
}

// Parse maps one or more feedEntry-shaped objects for non-poll ingress.
func (a *APIKeyFeedAdapter) Parse(raw []byte) ([]review.Record, error) {
	var payload feedPayload
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Entries) == 0 {
		var single feedEntry
		if err2 := json.Unmarshal(raw, &single); err2 != nil || single.Token == "" {
			if err != nil {
				return nil, fmt.Errorf("apikey_feed: parse: %w", err)
			}
			return nil, nil
		}
		payload.Entries = []feedEntry{single}
	}

	out := make([]review.Record, 0, len(payload.Entries))
	for _, e := range payload.Entries {
		reviewTime, _ := time.Parse(time.RFC3339, e.ReviewDate)
		rawJSON, _ := json.Marshal(e)
		r := review.Record{
			ReviewerName: e.Name,
			Rating:       e.Rating,
			ReviewText:   e.Excerpt,
			ReviewDate:   reviewTime,
			Raw:          rawJSON,
			Partial:      true,
		}
		review.Normalize(a.sourceName, e.Token, &r, "Anonymous")
		out = append(out, r)
	}
	return out, nil
}
