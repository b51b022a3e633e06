package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samskrta/review-image/internal/review"
)

const defaultPartnerPageSize = 50

// BearerPartnerAdapter polls an offset-paginated partner review list. The
// cursor is the literal string "offset:<N>"; it advances by the number of
// items the upstream returns each call.
//
// The upstream never resets this offset if its underlying list is
// reordered or truncated, so the cursor can drift past the tail over time;
// there's no reset mechanism here either — matching the documented
// limitation rather than inventing a fix for it.
type BearerPartnerAdapter struct {
	sourceName string
	cfg        Config
	client     *http.Client
	enabled    bool
}

// NewBearerPartnerAdapter builds the adapter for the given config.
func NewBearerPartnerAdapter(sourceName string, cfg Config) *BearerPartnerAdapter {
	return &BearerPartnerAdapter{
		sourceName: sourceName,
		cfg:        cfg,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *BearerPartnerAdapter) Name() string  { return "bearer_partner" }
func (a *BearerPartnerAdapter) Enabled() bool { return a.enabled }

func (a *BearerPartnerAdapter) Initialize() bool {
	a.enabled = a.cfg.BearerToken != "" && a.cfg.PartnerURL != ""
	if a.enabled && a.cfg.PageSize <= 0 {
		a.cfg.PageSize = defaultPartnerPageSize
	}
	return a.enabled
}

type partnerEntry struct {
	ExternalID   string `json:"external_id"`
	ReviewerName string `json:"reviewer_name"`
	Rating       int    `json:"rating"`
	Body         string `json:"body"`
	SubmittedAt  string `json:"submitted_at"`
	TechName     string `json:"tech_name"`
	TechPhotoURL string `json:"tech_photo_url"`
}

type partnerPayload struct {
	Items []partnerEntry `json:"items"`
}

func parseOffsetCursor(cursor string) int {
	if !strings.HasPrefix(cursor, "offset:") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(cursor, "offset:"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Fetch retrieves the next page starting at the offset in cursor, and
// returns an advanced "offset:<N>" cursor.
func (a *BearerPartnerAdapter) Fetch(ctx context.Context, cursor string) ([]review.Record, string, error) {
	offset := parseOffsetCursor(cursor)

	reqURL := fmt.Sprintf("%s?offset=%d&limit=%d", a.cfg.PartnerURL, offset, a.cfg.PageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, cursor, fmt.Errorf("bearer_partner: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.BearerToken)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, cursor, fmt.Errorf("bearer_partner: fetch: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cursor, fmt.Errorf("bearer_partner: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, cursor, fmt.Errorf("bearer_partner: status %d: %s", resp.StatusCode, string(data))
	}

	var payload partnerPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, cursor, fmt.Errorf("bearer_partner: parse response: %w", err)
	}

	out := make([]review.Record, 0, len(payload.Items))
	for _, e := range payload.Items {
		submittedAt, _ := time.Parse(time.RFC3339, e.SubmittedAt)
		rawJSON, _ := json.Marshal(e)
		r := review.Record{
			ReviewerName: e.ReviewerName,
			Rating:       e.Rating,
			ReviewText:   e.Body,
			ReviewDate:   submittedAt,
			TechName:     e.TechName,
			TechPhotoURL: e.TechPhotoURL,
			Raw:          rawJSON,
		}
		review.Normalize(a.sourceName, e.ExternalID, &r, "Anonymous")
		out = append(out, r)
	}

	newCursor := fmt.Sprintf("offset:%d", offset+len(payload.Items))
	return out, newCursor, nil
}

// Parse maps a raw partner-shaped payload for non-poll ingress.
func (a *BearerPartnerAdapter) Parse(raw []byte) ([]review.Record, error) {
	var payload partnerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("bearer_partner: parse: %w", err)
	}
	out := make([]review.Record, 0, len(payload.Items))
	for _, e := range payload.Items {
		submittedAt, _ := time.Parse(time.RFC3339, e.SubmittedAt)
		rawJSON, _ := json.Marshal(e)
		r := review.Record{
			ReviewerName: e.ReviewerName,
			Rating:       e.Rating,
			ReviewText:   e.Body,
			ReviewDate:   submittedAt,
			TechName:     e.TechName,
			TechPhotoURL: e.TechPhotoURL,
			Raw:          rawJSON,
		}
		review.Normalize(a.sourceName, e.ExternalID, &r, "Anonymous")
		out = append(out, r)
	}
	return out, nil
}
