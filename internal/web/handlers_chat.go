package web

import (
	"net/http"

	"github.com/samskrta/review-image/internal/apperr"
	"github.com/samskrta/review-image/internal/review"
)

// handleChatStatus implements GET /api/chat/status.
func (s *Server) handleChatStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"configured": s.chat != nil,
		"channel":    s.cfg.Chat.Channel,
	})
}

// handleShareChat implements POST /api/share/chat: renders the given review
// and uploads the result to chat, per spec.md §4.7.
func (s *Server) handleShareChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		writeAPIError(w, apperr.New(apperr.BadRequest, "chat is not configured"))
		return
	}

	var dto shareChatRequestDTO
	if err := decodeJSON(w, r, maxJSONBody, &dto); err != nil {
		writeAPIError(w, err)
		return
	}
	if err := validateGenerateRequest(dto.generateRequestDTO); err != nil {
		writeAPIError(w, err)
		return
	}

	req := dtoToRenderRequest(dto.generateRequestDTO, s.requestBaseURL(r))
	result, err := s.render.Generate(r.Context(), req)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	record := review.Record{
		Source:       dto.Source,
		ReviewerName: dto.ReviewerName,
		Rating:       dto.Rating,
		ReviewText:   dto.ReviewText,
		TechName:     dto.TechName,
		TechPhotoURL: dto.TechPhotoURL,
	}

	if err := s.chat.Share(r.Context(), record, result.Image, result.Format); err != nil {
		writeAPIError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"shared": true})
}
