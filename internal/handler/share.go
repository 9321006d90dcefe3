package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/service"
)

// ShareHandler serves both sides of sharing: the owner's share toggle and
// link routes, and the anonymous /api/shared routes.
type ShareHandler struct {
	shares *service.ShareService
	notes  *service.NoteService
	logger *slog.Logger
}

func NewShareHandler(shares *service.ShareService, notes *service.NoteService, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{shares: shares, notes: notes, logger: logger}
}

type trackViewRequest struct {
	UserAgent string `json:"userAgent"`
	Referrer  string `json:"referrer"`
}

// HandleToggleShare
//
// HTTP: POST /api/notes/{id}/share → {"shared": true}
func (h *ShareHandler) HandleToggleShare(w http.ResponseWriter, r *http.Request) {
	shared, err := h.shares.ToggleShare(r.Context(), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"shared": shared})
}

// HandleShareLink
//
// HTTP: POST /api/notes/{id}/share-link → {"shareUrl": "/shared/<id>", "noteId": "<id>"}
func (h *ShareHandler) HandleShareLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.shares.GenerateShareLink(r.Context(), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// HandleGetShared
//
// HTTP: GET /api/shared/{id}
//
// Missing, private and archived notes all answer the same 404.
func (h *ShareHandler) HandleGetShared(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	shared := h.shares.GetShared(r.Context(), id)
	if shared == nil {
		writeError(w, apperror.NotFound("shared note", id))
		return
	}
	writeJSON(w, http.StatusOK, shared)
}

// HandleCheckLock
//
// HTTP: GET /api/shared/{id}/lock → {"locked": true, "lockedAt": "..."}
func (h *ShareHandler) HandleCheckLock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := h.notes.CheckLock(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if status == nil {
		writeError(w, apperror.NotFound("note", id))
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleUnlockShared
//
// HTTP: POST /api/shared/{id}/unlock
// BODY: {"password": "..."}
func (h *ShareHandler) HandleUnlockShared(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	content, err := h.notes.UnlockShared(r.Context(), chi.URLParam(r, "id"), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

// HandleTrackView records one view of a shared note.
//
// HTTP: POST /api/shared/{id}/views
// BODY (optional): {"userAgent": "...", "referrer": "..."}
//
// Missing body fields fall back to the User-Agent and Referer headers.
func (h *ShareHandler) HandleTrackView(w http.ResponseWriter, r *http.Request) {
	var req trackViewRequest
	if err := decodeOptionalJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.UserAgent == "" {
		req.UserAgent = r.UserAgent()
	}
	if req.Referrer == "" {
		req.Referrer = r.Referer()
	}

	record, err := h.shares.TrackView(r.Context(), chi.URLParam(r, "id"), req.UserAgent, req.Referrer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"viewCount": record.ViewCount})
}
