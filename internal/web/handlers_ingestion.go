package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samskrta/review-image/internal/apperr"
	"github.com/samskrta/review-image/internal/pipeline"
	"github.com/samskrta/review-image/internal/review"
	"github.com/samskrta/review-image/internal/source"
)

// webhookSignatureHeaders are the two accepted header names carrying
// "sha256=<hex-hmac>" (spec.md §4.6 leaves the exact name unspecified
// beyond "either of the two accepted header names"; this project accepts
// both the GitHub-style and a descriptive name so adapters configured
// against either convention work unmodified).
var webhookSignatureHeaders = []string{"X-Hub-Signature-256", "X-Webhook-Signature-256"}

// handleIngestionStatus implements GET /api/ingestion/status.
func (s *Server) handleIngestionStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()

	adapters := make(map[string]bool, len(s.registry.All()))
	for name, a := range s.registry.All() {
		adapters[name] = a.Enabled()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_ingested":  stats.TotalIngested,
		"by_source":       stats.BySource,
		"last_poll_times": stats.LastPollTimes,
		"adapters":        adapters,
	})
}

// handleIngestionSources implements GET /api/ingestion/sources: lists
// configured adapter names, enabled, and kind (ADDED per SPEC_FULL.md).
func (s *Server) handleIngestionSources(w http.ResponseWriter, r *http.Request) {
	type sourceView struct {
		Name    string `json:"name"`
		Kind    string `json:"kind"`
		Enabled bool   `json:"enabled"`
	}

	views := make([]sourceView, 0, len(s.cfg.Ingestion.Sources))
	for name, cfg := range s.cfg.Ingestion.Sources {
		enabled := false
		if a, ok := s.registry.Get(name); ok {
			enabled = a.Enabled()
		}
		views = append(views, sourceView{Name: name, Kind: cfg.Kind, Enabled: enabled})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": views})
}

// handleIngestionReviews implements GET /api/ingestion/reviews?limit&source.
func (s *Server) handleIngestionReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	records := s.store.Recent(limit, q.Get("source"))
	writeJSON(w, http.StatusOK, map[string]any{"reviews": records})
}

// handleIngestionPollAll implements POST /api/ingestion/poll: fan-out to
// every enabled adapter, per spec.md §4.3's manual poll path.
func (s *Server) handleIngestionPollAll(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]pollResultDTO)
	for _, name := range s.registry.Names() {
		a, ok := s.registry.Get(name)
		if !ok || !a.Enabled() {
			continue
		}
		res, err := s.scheduler.PollOnce(r.Context(), name)
		if err != nil {
			results[name] = pollResultDTO{Summary: &importResultDTO{Errors: []pipeline.StepError{{Step: "poll", Message: err.Error()}}}}
			continue
		}
		results[name] = pollResultDTO{Skipped: res.Skipped, Summary: summaryToDTO(res.Summary)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// handleIngestionPollOne implements POST /api/ingestion/poll/{source}.
func (s *Server) handleIngestionPollOne(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("source")
	res, err := s.scheduler.PollOnce(r.Context(), name)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pollResultDTO{Skipped: res.Skipped, Summary: summaryToDTO(res.Summary)})
}

// handleWebhookVerify implements GET /api/ingestion/webhook/{source}: the
// verification handshake some platforms perform before sending real
// webhook traffic, echoing the challenge value back unchanged.
func (s *Server) handleWebhookVerify(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, r.URL.Query().Get("verification"))
}

// handleWebhookIngest implements POST /api/ingestion/webhook/{source}:
// HMAC-checked ingress per spec.md §4.6.
func (s *Server) handleWebhookIngest(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("source")

	a, ok := s.registry.Get(name)
	if !ok {
		writeAPIError(w, apperr.New(apperr.NotFound, fmt.Sprintf("source %q not found", name)))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	defer r.Body.Close()
	if err != nil {
		writeAPIError(w, apperr.Wrap(apperr.BadRequest, "read webhook body", err))
		return
	}

	if secret := s.cfg.Ingestion.Sources[name].WebhookSecret; secret != "" {
		if !verifyWebhookSignature(r, secret, body) {
			writeAPIError(w, apperr.New(apperr.Unauthorized, "webhook signature mismatch"))
			return
		}
	}

	records, err := a.Parse(body)
	if err != nil {
		writeAPIError(w, apperr.Wrap(apperr.BadRequest, "parse webhook payload", err))
		return
	}

	summary := s.pipeline.Process(r.Context(), records)
	writeJSON(w, http.StatusOK, map[string]any{"accepted": true, "summary": summaryToDTO(summary)})
}

// verifyWebhookSignature checks body's HMAC-SHA256 digest against any
// header in webhookSignatureHeaders, accepting either "sha256=<hex>" or a
// bare hex digest.
func verifyWebhookSignature(r *http.Request, secret string, body []byte) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))

	for _, header := range webhookSignatureHeaders {
		got := r.Header.Get(header)
		if got == "" {
			continue
		}
		got = strings.TrimPrefix(got, "sha256=")
		if hmac.Equal([]byte(got), []byte(want)) {
			return true
		}
	}
	return false
}

// handleImport implements POST /api/ingestion/import: JSON or CSV
// depending on Content-Type, per spec.md §6/§4.2's generic adapter path.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")

	var records []review.Record
	var err error

	switch {
	case strings.Contains(contentType, "application/json"):
		records, err = s.importJSON(w, r)
	case strings.Contains(contentType, "csv"):
		records, err = s.importCSV(w, r)
	default:
		writeAPIError(w, apperr.Bad(fmt.Sprintf("unsupported content type %q", contentType)))
		return
	}
	if err != nil {
		writeAPIError(w, err)
		return
	}

	summary := s.pipeline.Process(r.Context(), records)
	writeJSON(w, http.StatusOK, summaryToDTO(summary))
}

func (s *Server) importJSON(w http.ResponseWriter, r *http.Request) ([]review.Record, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	defer r.Body.Close()
	if err != nil {
		return nil, apperr.Wrap(apperr.BadRequest, "read import body", err)
	}

	var envelope importJSONEnvelopeDTO
	_ = json.Unmarshal(body, &envelope)
	sourceName := envelope.Source
	if sourceName == "" {
		sourceName = "import"
	}

	a := source.NewGenericAdapter(sourceName, s.genericAdapterConfig())
	a.Initialize()

	records, err := a.Parse(body)
	if err != nil {
		return nil, apperr.Wrap(apperr.BadRequest, "parse import payload", err)
	}
	return records, nil
}

// importCSVColumns are the recognised header columns, per spec.md §6.
var importCSVColumns = []string{"reviewer_name", "rating", "review_text", "review_date", "source", "tech_name", "tech_photo_url"}

func (s *Server) importCSV(w http.ResponseWriter, r *http.Request) ([]review.Record, error) {
	body := http.MaxBytesReader(w, r.Body, maxCSVBody)
	defer r.Body.Close()

	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, apperr.Wrap(apperr.BadRequest, "read CSV header", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var records []review.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.BadRequest, "read CSV row", err)
		}

		rating, _ := strconv.Atoi(field(row, "rating"))
		reviewDate, _ := parseCSVDate(field(row, "review_date"))
		sourceName := field(row, "source")
		if sourceName == "" {
			sourceName = "import"
		}

		rec := review.Record{
			ReviewerName: field(row, "reviewer_name"),
			Rating:       rating,
			ReviewText:   field(row, "review_text"),
			ReviewDate:   reviewDate,
			TechName:     field(row, "tech_name"),
			TechPhotoURL: field(row, "tech_photo_url"),
		}
		review.Normalize(sourceName, "", &rec, "Anonymous")
		records = append(records, rec)
	}
	return records, nil
}

// parseCSVDate accepts RFC3339 or a bare "2006-01-02" date, the two shapes
// a CSV export is likely to carry in the review_date column.
func parseCSVDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (s *Server) genericAdapterConfig() source.Config {
	return source.Config{
		Kind: "generic",
		FieldMapping: source.FieldMapping{
			ReviewerNameField: s.cfg.Ingestion.Generic.FieldMapping.ReviewerNameField,
			RatingField:       s.cfg.Ingestion.Generic.FieldMapping.RatingField,
			ReviewTextField:   s.cfg.Ingestion.Generic.FieldMapping.ReviewTextField,
			ReviewDateField:   s.cfg.Ingestion.Generic.FieldMapping.ReviewDateField,
			TechNameField:     s.cfg.Ingestion.Generic.FieldMapping.TechNameField,
			TechPhotoURLField: s.cfg.Ingestion.Generic.FieldMapping.TechPhotoURLField,
		},
	}
}

// handleReviewGenerate implements POST /api/ingestion/reviews/{id}/generate:
// renders a stored review using the default template/size and marks
// image_generated.
func (s *Server) handleReviewGenerate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec := s.store.Get(id)
	if rec == nil {
		writeAPIError(w, apperr.New(apperr.NotFound, fmt.Sprintf("review %q not found", id)))
		return
	}

	result, err := s.render.Generate(r.Context(), dtoToRenderRequest(recordToGenerateDTO(*rec), s.requestBaseURL(r)))
	if err != nil {
		writeAPIError(w, err)
		return
	}

	generated := true
	s.store.MarkProcessed(id, &generated, nil)

	w.Header().Set("Content-Type", "image/"+result.Format)
	w.Header().Set("X-Image-Width", strconv.Itoa(result.Width))
	w.Header().Set("X-Image-Height", strconv.Itoa(result.Height))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Image)
}

// handleReviewShare implements POST /api/ingestion/reviews/{id}/share:
// renders then shares, marking both flags.
func (s *Server) handleReviewShare(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeAPIError(w, apperr.New(apperr.BadRequest, "chat is not configured"))
		return
	}

	id := r.PathValue("id")
	rec := s.store.Get(id)
	if rec == nil {
		writeAPIError(w, apperr.New(apperr.NotFound, fmt.Sprintf("review %q not found", id)))
		return
	}

	result, err := s.render.Generate(r.Context(), dtoToRenderRequest(recordToGenerateDTO(*rec), s.requestBaseURL(r)))
	if err != nil {
		writeAPIError(w, err)
		return
	}
	generated := true
	s.store.MarkProcessed(id, &generated, nil)

	if err := s.chat.Share(r.Context(), *rec, result.Image, result.Format); err != nil {
		writeAPIError(w, err)
		return
	}
	shared := true
	s.store.MarkProcessed(id, nil, &shared)

	writeJSON(w, http.StatusOK, map[string]any{"shared": true})
}

func recordToGenerateDTO(r review.Record) generateRequestDTO {
	return generateRequestDTO{
		ReviewerName: r.ReviewerName,
		Rating:       r.Rating,
		ReviewText:   r.ReviewText,
		TechName:     r.TechName,
		TechPhotoURL: r.TechPhotoURL,
		Source:       r.Source,
	}
}
