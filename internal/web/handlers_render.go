package web

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/samskrta/review-image/internal/apperr"
	"github.com/samskrta/review-image/internal/render"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"uptime_seconds":    int(time.Since(s.startedAt).Seconds()),
		"browser_connected": s.render.Healthy(),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"company": s.cfg.Company,
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": s.render.TemplateNames()})
}

func (s *Server) handleSizes(w http.ResponseWriter, r *http.Request) {
	sizes := make(map[string]map[string]int)
	for name, size := range render.SizePresets() {
		sizes[name] = map[string]int{"width": size.Width, "height": size.Height}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sizes": sizes})
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"platforms": platformCatalog})
}

// handleGeneratePost implements POST /generate: synchronous unless
// callback_url is present, in which case the coordinator renders
// out-of-band and the caller gets 202 Accepted immediately (spec.md §4.4).
func (s *Server) handleGeneratePost(w http.ResponseWriter, r *http.Request) {
	var dto generateRequestDTO
	if err := decodeJSON(w, r, maxJSONBody, &dto); err != nil {
		writeAPIError(w, err)
		return
	}
	s.generate(w, r, dto)
}

// handleGenerateGet implements GET /generate with the same fields via
// query string.
func (s *Server) handleGenerateGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rating, _ := strconv.Atoi(q.Get("rating"))
	dto := generateRequestDTO{
		ReviewerName:   q.Get("reviewer_name"),
		Rating:         rating,
		ReviewText:     q.Get("review_text"),
		TechName:       q.Get("tech_name"),
		TechPhotoURL:   q.Get("tech_photo_url"),
		Source:         q.Get("source"),
		Template:       q.Get("template"),
		Size:           q.Get("size"),
		Format:         q.Get("format"),
		CallbackURL:    q.Get("callback_url"),
		BrandColor:     q.Get("brand_color"),
		BrandColorDark: q.Get("brand_color_dark"),
		LogoURL:        q.Get("logo_url"),
	}
	s.generate(w, r, dto)
}

func (s *Server) generate(w http.ResponseWriter, r *http.Request, dto generateRequestDTO) {
	if err := validateGenerateRequest(dto); err != nil {
		writeAPIError(w, err)
		return
	}

	req := dtoToRenderRequest(dto, s.requestBaseURL(r))

	if dto.CallbackURL != "" {
		w.WriteHeader(http.StatusAccepted)
		go s.deliverCallback(req, dto.CallbackURL)
		return
	}

	start := time.Now()
	result, err := s.render.Generate(r.Context(), req)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/"+result.Format)
	w.Header().Set("X-Image-Width", strconv.Itoa(result.Width))
	w.Header().Set("X-Image-Height", strconv.Itoa(result.Height))
	w.Header().Set("X-Generation-Time-Ms", strconv.FormatInt(time.Since(start).Milliseconds(), 10))
	if result.CacheHit {
		w.Header().Set("X-Cache", "HIT")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Image)
}

// maxRenderRating bounds the /generate rating field: 0 and 6+ are valid
// star-glyph *inputs* (clamped at render time per spec.md §4.4), but
// something like 99 is rejected outright per spec.md §8's worked example.
const maxRenderRating = 10

// validateGenerateRequest enforces the field-level validation spec.md §7
// describes (unknown size and format values become BadRequest details).
func validateGenerateRequest(dto generateRequestDTO) error {
	var details []apperr.FieldError
	if dto.ReviewerName == "" {
		details = append(details, apperr.FieldError{Field: "reviewer_name", Message: "required"})
	}
	if dto.Rating < 0 || dto.Rating > maxRenderRating {
		details = append(details, apperr.FieldError{Field: "rating", Message: "out of range"})
	}
	if dto.Size != "" {
		if _, ok := render.SizePresets()[dto.Size]; !ok {
			details = append(details, apperr.FieldError{Field: "size", Message: "unknown size preset"})
		}
	}
	if dto.Format != "" && dto.Format != "png" && dto.Format != "jpeg" {
		details = append(details, apperr.FieldError{Field: "format", Message: "must be png or jpeg"})
	}
	if len(details) > 0 {
		return apperr.Bad("validation failed", details...)
	}
	return nil
}

// handleGenerateBatch implements POST /generate/batch: up to 20 items,
// rendered in chunks of 3 concurrently, results returned in input order
// with base64-encoded bytes.
func (s *Server) handleGenerateBatch(w http.ResponseWriter, r *http.Request) {
	var body batchRequestDTO
	if err := decodeJSON(w, r, maxJSONBody, &body); err != nil {
		writeAPIError(w, err)
		return
	}
	if len(body.Reviews) == 0 {
		writeAPIError(w, apperr.Bad("reviews must not be empty"))
		return
	}
	if len(body.Reviews) > maxBatchSize {
		writeAPIError(w, apperr.Bad("batch exceeds maximum of 20 items"))
		return
	}

	baseURL := s.requestBaseURL(r)
	reqs := make([]render.Request, len(body.Reviews))
	for i, dto := range body.Reviews {
		reqs[i] = dtoToRenderRequest(dto, baseURL)
	}

	batchResults := s.render.GenerateBatch(r.Context(), reqs)

	results := make([]batchResultDTO, len(batchResults))
	for i, br := range batchResults {
		if br.Err != nil {
			results[i] = batchResultDTO{Index: i, Success: false, Error: br.Err.Error()}
			continue
		}
		results[i] = batchResultDTO{
			Index:   i,
			Success: true,
			Image:   base64.StdEncoding.EncodeToString(br.Result.Image),
			Format:  br.Result.Format,
			Width:   br.Result.Width,
			Height:  br.Result.Height,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
