// Package web implements the HTTP surface (spec.md §4.6/§6): thin routing
// and validation over the store, adapters, scheduler, render coordinator,
// and chat client, following the same net/http.ServeMux method+path
// pattern and http.Server wiring as the teacher's internal/web/server.go.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/samskrta/review-image/internal/apperr"
	"github.com/samskrta/review-image/internal/chat"
	"github.com/samskrta/review-image/internal/config"
	"github.com/samskrta/review-image/internal/metrics"
	"github.com/samskrta/review-image/internal/pipeline"
	"github.com/samskrta/review-image/internal/render"
	"github.com/samskrta/review-image/internal/scheduler"
	"github.com/samskrta/review-image/internal/source"
	"github.com/samskrta/review-image/internal/store"
)

const (
	maxJSONBody  = 1 << 20 // 1 MB, spec.md §5
	maxImageBody = 5 << 20 // 5 MB, spec.md §5
	maxCSVBody   = 5 << 20 // 5 MB, spec.md §5
	maxBatchSize = 20      // spec.md §5
)

// Server is the HTTP server for the review-image API.
type Server struct {
	cfg           *config.Config
	store         *store.Store
	registry      *source.Registry
	scheduler     *scheduler.Scheduler
	render        *render.Coordinator
	pipeline      *pipeline.Pipeline
	chat          *chat.Client
	technicianDir string

	mux       *http.ServeMux
	server    *http.Server
	startedAt time.Time
}

// New builds a Server wired to the given components. chatClient may be nil
// when chat.Configured() is false.
func New(cfg *config.Config, st *store.Store, registry *source.Registry, sched *scheduler.Scheduler, coord *render.Coordinator, pl *pipeline.Pipeline, chatClient *chat.Client, technicianDir string) *Server {
	s := &Server{
		cfg:           cfg,
		store:         st,
		registry:      registry,
		scheduler:     sched,
		render:        coord,
		pipeline:      pl,
		chat:          chatClient,
		technicianDir: technicianDir,
		mux:           http.NewServeMux(),
		startedAt:     time.Now(),
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", metrics.Handler())

	s.mux.HandleFunc("GET /api/config", s.handleConfig)
	s.mux.HandleFunc("GET /api/templates", s.handleTemplates)
	s.mux.HandleFunc("GET /api/sizes", s.handleSizes)
	s.mux.HandleFunc("GET /api/platforms", s.handlePlatforms)

	s.mux.HandleFunc("GET /api/technicians", s.handleTechniciansList)
	s.mux.HandleFunc("POST /api/technicians/upload", s.handleTechnicianUpload)

	s.mux.HandleFunc("POST /generate", s.handleGeneratePost)
	s.mux.HandleFunc("GET /generate", s.handleGenerateGet)
	s.mux.HandleFunc("POST /generate/batch", s.handleGenerateBatch)

	s.mux.HandleFunc("GET /api/chat/status", s.handleChatStatus)
	s.mux.HandleFunc("POST /api/share/chat", s.handleShareChat)

	s.mux.HandleFunc("GET /api/ingestion/status", s.handleIngestionStatus)
	s.mux.HandleFunc("GET /api/ingestion/sources", s.handleIngestionSources)
	s.mux.HandleFunc("GET /api/ingestion/reviews", s.handleIngestionReviews)
	s.mux.HandleFunc("POST /api/ingestion/poll", s.handleIngestionPollAll)
	s.mux.HandleFunc("POST /api/ingestion/poll/{source}", s.handleIngestionPollOne)
	s.mux.HandleFunc("GET /api/ingestion/webhook/{source}", s.handleWebhookVerify)
	s.mux.HandleFunc("POST /api/ingestion/webhook/{source}", s.handleWebhookIngest)
	s.mux.HandleFunc("POST /api/ingestion/import", s.handleImport)
	s.mux.HandleFunc("POST /api/ingestion/reviews/{id}/generate", s.handleReviewGenerate)
	s.mux.HandleFunc("POST /api/ingestion/reviews/{id}/share", s.handleReviewShare)
}

// Start begins serving HTTP requests. It blocks until the server is shut down.
func (s *Server) Start() error {
	log.Printf("[web] listening on %s", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[web] encode response: %v", err)
	}
}

// writeAPIError funnels every handler error through one kind-aware writer,
// generalizing the teacher's per-handler writeJSON/writeError helpers per
// spec.md §7's user-visible error shape.
func writeAPIError(w http.ResponseWriter, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		log.Printf("[web] internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	resp := map[string]any{"error": appErr.Message}
	if len(appErr.Details) > 0 {
		resp["details"] = appErr.Details
	}
	writeJSON(w, appErr.Kind.Status(), resp)
}

// decodeJSON reads up to limit bytes of r.Body into dst, returning a
// BadRequest apperr on any decode failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	defer r.Body.Close()
	body := http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return apperr.Wrap(apperr.BadRequest, "invalid request body", err)
	}
	return nil
}

// requestBaseURL resolves the base URL used to absolutise relative asset
// URLs in the render template, per spec.md §4.4 step 3: a configured
// BASE_URL override takes precedence over "<scheme>://<host>" of the
// inbound request.
func (s *Server) requestBaseURL(r *http.Request) string {
	if s.cfg.BaseURL != "" {
		return s.cfg.BaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}

func dtoToRenderRequest(dto generateRequestDTO, baseURL string) render.Request {
	return render.Request{
		ReviewerName:   dto.ReviewerName,
		ReviewText:     dto.ReviewText,
		Rating:         dto.Rating,
		TechName:       dto.TechName,
		TechPhotoURL:   dto.TechPhotoURL,
		Source:         dto.Source,
		Template:       dto.Template,
		Size:           dto.Size,
		Format:         dto.Format,
		RequestBaseURL: baseURL,
		BrandColor:     dto.BrandColor,
		BrandColorDark: dto.BrandColorDark,
		LogoURL:        dto.LogoURL,
	}
}

func summaryToDTO(sum pipeline.Summary) *importResultDTO {
	return &importResultDTO{
		New:       sum.New,
		Duplicate: sum.Duplicate,
		Generated: sum.Generated,
		Shared:    sum.Shared,
		Errors:    sum.Errors,
	}
}
