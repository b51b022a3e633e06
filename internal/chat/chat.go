// Package chat implements the chat-workspace share step (spec.md §4.7): a
// multipart/form-data file upload to the chat API's black-box upload
// endpoint, composing a message with a star-glyph prefix, platform label,
// block-quoted review text, and an optional technician mention.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/samskrta/review-image/internal/apperr"
	"github.com/samskrta/review-image/internal/metrics"
	"github.com/samskrta/review-image/internal/review"
)

const filledStarGlyph = "★"

// platformLabels are the plain-text platform names used in share messages.
// Distinct from render's HTML platform badges (a different output layer);
// an unknown source simply omits the label, per spec.md §4.7.
var platformLabels = map[string]string{
	"oauth_business": "Google",
	"apikey_feed":    "Yelp",
	"bearer_partner": "Partner Network",
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func slug(name string) string {
	s := slugNonAlnum.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "review"
	}
	return s
}

// Client uploads rendered review images to a chat workspace's file-upload
// endpoint.
type Client struct {
	httpClient  *http.Client
	uploadURL   string
	botToken    string
	channel     string
	technicians map[string]string // lowercased display name -> mention id
	now         func() time.Time
}

// New builds a Client for the given workspace credentials. technicians
// maps display_name -> mention_id, looked up case-insensitively per
// spec.md §4.7.
func New(botToken, channel string, technicians map[string]string) *Client {
	lower := make(map[string]string, len(technicians))
	for k, v := range technicians {
		lower[strings.ToLower(k)] = v
	}
	return &Client{
		httpClient:  http.DefaultClient,
		uploadURL:   defaultUploadURL,
		botToken:    botToken,
		channel:     channel,
		technicians: lower,
		now:         time.Now,
	}
}

const defaultUploadURL = "https://slack.com/api/files.upload"

// uploadResponse is the subset of the chat API's upload response this
// package asserts on. The rest of the shape ("file", "shares") is opaque
// per spec.md §9 Open Questions and decoded into RawMessage only to avoid
// losing it, never inspected.
type uploadResponse struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	File   json.RawMessage `json:"file,omitempty"`
	Shares json.RawMessage `json:"shares,omitempty"`
}

// mention looks up techName in the configured technician mapping,
// case-insensitively.
func (c *Client) mention(techName string) (string, bool) {
	if techName == "" {
		return "", false
	}
	m, ok := c.technicians[strings.ToLower(techName)]
	return m, ok
}

// composeMessage builds the share message text per spec.md §4.7.
func (c *Client) composeMessage(r review.Record) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(filledStarGlyph, review.ClampStars(r.Rating)))
	if label, ok := platformLabels[r.Source]; ok {
		b.WriteString(" ")
		b.WriteString(label)
	}
	b.WriteString(" — ")
	b.WriteString(r.ReviewerName)
	b.WriteString("\n> ")
	b.WriteString(r.ReviewText)
	if mention, ok := c.mention(r.TechName); ok {
		b.WriteString("\nTechnician: ")
		b.WriteString(mention)
	}
	return b.String()
}

func extForFormat(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return "png"
}

// Share uploads image as a file to the configured channel, with a composed
// message, filename, and title. Returns success iff the remote API
// responds ok:true; otherwise the remote error is surfaced as an
// apperr.UpstreamError.
func (c *Client) Share(ctx context.Context, r review.Record, image []byte, format string) error {
	message := c.composeMessage(r)
	filename := fmt.Sprintf("review-%s-%d.%s", slug(r.ReviewerName), c.now().UnixMilli(), extForFormat(format))
	title := fmt.Sprintf("%s review from %s", strings.Repeat(filledStarGlyph, review.ClampStars(r.Rating)), r.ReviewerName)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	fields := map[string]string{
		"channels":        c.channel,
		"initial_comment": message,
		"filename":        filename,
		"title":           title,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return apperr.Wrap(apperr.Internal, "chat: write field", err)
		}
	}

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "chat: create file part", err)
	}
	if _, err := part.Write(image); err != nil {
		return apperr.Wrap(apperr.Internal, "chat: write file part", err)
	}
	if err := w.Close(); err != nil {
		return apperr.Wrap(apperr.Internal, "chat: close multipart writer", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "chat: build request", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.botToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ChatShareTotal.WithLabelValues("failure").Inc()
		return apperr.Wrap(apperr.UpstreamError, "chat: upload request failed", err)
	}
	defer resp.Body.Close()

	var uploadResp uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		metrics.ChatShareTotal.WithLabelValues("failure").Inc()
		return apperr.Wrap(apperr.UpstreamError, "chat: decode upload response", err)
	}
	if !uploadResp.OK {
		metrics.ChatShareTotal.WithLabelValues("failure").Inc()
		msg := uploadResp.Error
		if msg == "" {
			msg = "unknown error"
		}
		return apperr.New(apperr.UpstreamError, fmt.Sprintf("chat: upload rejected: %s", msg))
	}
	metrics.ChatShareTotal.WithLabelValues("success").Inc()
	return nil
}
