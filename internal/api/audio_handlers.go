package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/readalongapp/readalong-server/internal/http/response"
)

// handleParagraphAudio streams synthesized paragraph audio. This bypasses
// huma because the body is raw audio bytes, not a JSON envelope.
func (s *Server) handleParagraphAudio(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		response.BadRequest(w, "paragraph index must be an integer", s.logger)
		return
	}

	speech, err := s.sessions.GetParagraphAudio(r.Context(), sessionID, index)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	contentType := speech.Format
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(speech.Audio)))
	w.Header().Set("Cache-Control", "private, max-age=3600")

	if _, err := w.Write(speech.Audio); err != nil {
		s.logger.Debug("audio write aborted", "session_id", sessionID, "paragraph", index, "error", err)
	}
}
