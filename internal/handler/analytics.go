package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notebook/internal/service"
)

type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	logger    *slog.Logger
}

func NewAnalyticsHandler(analytics *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

// HandleNoteAnalytics
//
// HTTP: GET /api/notes/{id}/analytics
func (h *AnalyticsHandler) HandleNoteAnalytics(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.NoteAnalytics(r.Context(), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleDeleteNoteAnalytics
//
// HTTP: DELETE /api/notes/{id}/analytics → 204 No Content
func (h *AnalyticsHandler) HandleDeleteNoteAnalytics(w http.ResponseWriter, r *http.Request) {
	if err := h.analytics.DeleteNoteAnalytics(r.Context(), actorID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUserSummary
//
// HTTP: GET /api/users/{userID}/analytics
func (h *AnalyticsHandler) HandleUserSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.analytics.UserSummary(r.Context(), actorID(r), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
