package web

import "github.com/samskrta/review-image/internal/pipeline"

// generateRequestDTO is the wire shape POST/GET /generate and the items of
// POST /generate/batch accept, per spec.md §3's Render request and §6.
type generateRequestDTO struct {
	ReviewerName string `json:"reviewer_name"`
	Rating       int    `json:"rating"`
	ReviewText   string `json:"review_text"`
	TechName     string `json:"tech_name,omitempty"`
	TechPhotoURL string `json:"tech_photo_url,omitempty"`
	Source       string `json:"source,omitempty"`
	Template     string `json:"template,omitempty"`
	Size         string `json:"size,omitempty"`
	Format       string `json:"format,omitempty"`
	CallbackURL  string `json:"callback_url,omitempty"`

	// BrandColor, BrandColorDark, and LogoURL override the company-wide
	// config defaults for this render only (spec.md §3).
	BrandColor     string `json:"brand_color,omitempty"`
	BrandColorDark string `json:"brand_color_dark,omitempty"`
	LogoURL        string `json:"logo_url,omitempty"`
}

// batchRequestDTO is the body of POST /generate/batch.
type batchRequestDTO struct {
	Reviews []generateRequestDTO `json:"reviews"`
}

// batchResultDTO is one entry of POST /generate/batch's response, preserving
// input order via Index.
type batchResultDTO struct {
	Index   int    `json:"index"`
	Success bool   `json:"success"`
	Image   string `json:"image,omitempty"` // base64
	Format  string `json:"format,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Error   string `json:"error,omitempty"`
}

// importJSONEnvelopeDTO peeks at the body of POST /api/ingestion/import when
// Content-Type is application/json: a bare array or {source, reviews}
// envelope, handled by the generic adapter's field mapping — this type
// exists only so the handler can peek the optional top-level "source"
// before delegating to source.GenericAdapter.Parse.
type importJSONEnvelopeDTO struct {
	Source string `json:"source"`
}

// importResultDTO is the response of POST /api/ingestion/import and the
// poll endpoints, mirroring pipeline.Summary over the wire.
type importResultDTO struct {
	New       int                  `json:"imported"`
	Duplicate int                  `json:"duplicates"`
	Generated int                  `json:"generated"`
	Shared    int                  `json:"shared"`
	Errors    []pipeline.StepError `json:"errors,omitempty"`
}

// pollResultDTO is the response of the manual poll endpoints.
type pollResultDTO struct {
	Skipped bool             `json:"skipped"`
	Summary *importResultDTO `json:"summary,omitempty"`
}

// shareChatRequestDTO is the body of POST /api/share/chat: a render
// request plus the review fields needed to compose the chat message.
type shareChatRequestDTO struct {
	generateRequestDTO
}
