package http

import (
	"log/slog"
	"net/http"
)

type refreshResponse struct {
	Status string `json:"status"`
}

// handleRefresh triggers a snapshot refresh. With a broker wired in the
// request is queued for the worker and accepted immediately; otherwise
// the refresh runs in-process before responding.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.publisher != nil {
		if err := s.publisher.PublishRefreshRequest(r.Context(), "api"); err != nil {
			slog.ErrorContext(r.Context(), "Failed to publish refresh request", "error", err)
			writeError(w, r, http.StatusServiceUnavailable, "refresh queue unavailable")
			return
		}
		writeJSON(w, r, http.StatusAccepted, refreshResponse{Status: "queued"})
		return
	}

	if s.refresher != nil {
		if err := s.refresher.Refresh(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "In-process refresh failed", "error", err)
			writeError(w, r, http.StatusBadGateway, "refresh failed")
			return
		}
		s.clearCaches()
		writeJSON(w, r, http.StatusOK, refreshResponse{Status: "refreshed"})
		return
	}

	writeError(w, r, http.StatusNotImplemented, "refresh not configured")
}
