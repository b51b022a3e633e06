package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samskrta/review-image/internal/review"
)

// starEnum maps the business-profile API's enum star strings to integers.
var starEnum = map[string]int{
	"ONE": 1, "TWO": 2, "THREE": 3, "FOUR": 4, "FIVE": 5,
}

// OAuthBusinessAdapter polls an OAuth-protected business-profile reviews
// endpoint, refreshing its access token on demand.
type OAuthBusinessAdapter struct {
	sourceName string
	cfg        Config
	client     *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time

	enabled bool
}

// NewOAuthBusinessAdapter builds the adapter for the given config.
func NewOAuthBusinessAdapter(sourceName string, cfg Config) *OAuthBusinessAdapter {
	return &OAuthBusinessAdapter{
		sourceName: sourceName,
		cfg:        cfg,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

func (a *OAuthBusinessAdapter) Name() string  { return "oauth_business" }
func (a *OAuthBusinessAdapter) Enabled() bool { return a.enabled }

func (a *OAuthBusinessAdapter) Initialize() bool {
	a.enabled = a.cfg.ClientID != "" && a.cfg.ClientSecret != "" &&
		a.cfg.RefreshToken != "" && a.cfg.TokenURL != "" && a.cfg.ReviewsURL != ""
	return a.enabled
}

// tokenRefreshMargin is how far before expiry a cached token is considered
// stale and refreshed eagerly.
const tokenRefreshMargin = 60 * time.Second

func (a *OAuthBusinessAdapter) accessTokenFor(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.accessToken != "" && time.Now().Add(tokenRefreshMargin).Before(a.expiresAt) {
		return a.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", a.cfg.ClientID)
	form.Set("client_secret", a.cfg.ClientSecret)
	form.Set("refresh_token", a.cfg.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("oauth_business: build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oauth_business: refresh token: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("oauth_business: read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("oauth_business: token refresh status %d: %s", resp.StatusCode, string(data))
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(data, &tr); err != nil {
		return "", fmt.Errorf("oauth_business: parse token response: %w", err)
	}

	a.accessToken = tr.AccessToken
	a.expiresAt = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return a.accessToken, nil
}

type oauthReview struct {
	ReviewID string `json:"reviewId"`
	Reviewer struct {
		DisplayName string `json:"displayName"`
	} `json:"reviewer"`
	StarRating string `json:"starRating"`
	Comment    string `json:"comment"`
	CreateTime string `json:"createTime"`
	UpdateTime string `json:"updateTime"`
}

type oauthReviewPayload struct {
	Reviews []oauthReview `json:"reviews"`
}

// Fetch retrieves reviews newer than cursor (an RFC3339 timestamp string,
// or "" for the first poll) and returns the new cursor: the maximum of
// update_time/create_time observed, per spec.md §4.2.
func (a *OAuthBusinessAdapter) Fetch(ctx context.Context, cursor string) ([]review.Record, string, error) {
	token, err := a.accessTokenFor(ctx)
	if err != nil {
		return nil, cursor, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.cfg.ReviewsURL, nil)
	if err != nil {
		return nil, cursor, fmt.Errorf("oauth_business: build reviews request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, cursor, fmt.Errorf("oauth_business: fetch reviews: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cursor, fmt.Errorf("oauth_business: read reviews response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, cursor, fmt.Errorf("oauth_business: reviews status %d: %s", resp.StatusCode, string(data))
	}

	var payload oauthReviewPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, cursor, fmt.Errorf("oauth_business: parse reviews response: %w", err)
	}

	cursorTime, _ := time.Parse(time.RFC3339, cursor)
	newCursor := cursorTime

	var out []review.Record
	for _, raw := range payload.Reviews {
		updateTime, uErr := time.Parse(time.RFC3339, raw.UpdateTime)
		createTime, cErr := time.Parse(time.RFC3339, raw.CreateTime)
		reviewTime := updateTime
		if uErr != nil {
			reviewTime = createTime
		}

		if !cursorTime.IsZero() && !reviewTime.After(cursorTime) {
			continue
		}

		rawJSON, _ := json.Marshal(raw)
		r := review.Record{
			ReviewerName: raw.Reviewer.DisplayName,
			Rating:       starEnum[raw.StarRating],
			ReviewText:   raw.Comment,
			ReviewDate:   reviewTime,
			Raw:          rawJSON,
		}
		review.Normalize(a.sourceName, raw.ReviewID, &r, "Anonymous")
		out = append(out, r)

		if cErr == nil && createTime.After(newCursor) {
			newCursor = createTime
		}
		if uErr == nil && updateTime.After(newCursor) {
			newCursor = updateTime
		}
	}

	if newCursor.IsZero() {
		return out, cursor, nil
	}
	return out, newCursor.Format(time.RFC3339), nil
}

// Parse is not used for poll-driven ingress but is implemented for
// completeness: it accepts the same payload shape as Fetch's response.
func (a *OAuthBusinessAdapter) Parse(raw []byte) ([]review.Record, error) {
	var payload oauthReviewPayload
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("oauth_business: parse: %w", err)
	}
	out := make([]review.Record, 0, len(payload.Reviews))
	for _, rr := range payload.Reviews {
		createTime, _ := time.Parse(time.RFC3339, rr.CreateTime)
		rawJSON, _ := json.Marshal(rr)
		r := review.Record{
			ReviewerName: rr.Reviewer.DisplayName,
			Rating:       starEnum[rr.StarRating],
			ReviewText:   rr.Comment,
			ReviewDate:   createTime,
			Raw:          rawJSON,
		}
		review.Normalize(a.sourceName, rr.ReviewID, &r, "Anonymous")
		out = append(out, r)
	}
	return out, nil
}
