package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/service"
)

// NoteHandler serves the owner-facing note API under /api/notes. Every route
// is behind RequireAuth; ownership is enforced by the service.
type NoteHandler struct {
	notes  *service.NoteService
	logger *slog.Logger
}

func NewNoteHandler(notes *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

type createNoteRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// updateNoteRequest uses pointers so an omitted field means "unchanged"
// while an explicit "" or [] still clears it.
type updateNoteRequest struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

// HandleCreate
//
// HTTP: POST /api/notes
// BODY: {"title": "...", "content": "<p>...</p>", "tags": ["work"]}
func (h *NoteHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	note, err := h.notes.Create(r.Context(), actorID(r), service.NoteInput{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// HandleList
//
// HTTP: GET /api/notes?archived=true|false&tag=work
//
// Without "archived" both active and archived notes are returned.
func (h *NoteHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var filter service.ListFilter
	if raw := r.URL.Query().Get("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, apperror.ValidationFailed("archived", "archived must be true or false"))
			return
		}
		filter.Archived = &archived
	}
	filter.Tag = r.URL.Query().Get("tag")

	notes, err := h.notes.List(r.Context(), actorID(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// HandleSearch
//
// HTTP: GET /api/notes/search?q=term
func (h *NoteHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.Search(r.Context(), actorID(r), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// HandleTags
//
// HTTP: GET /api/tags
func (h *NoteHandler) HandleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.notes.Tags(r.Context(), actorID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// HandleGet
//
// HTTP: GET /api/notes/{id}
func (h *NoteHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.Get(r.Context(), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleUpdate
//
// HTTP: PATCH /api/notes/{id}
// BODY: any subset of {"title", "content", "tags"}
func (h *NoteHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	note, err := h.notes.Update(r.Context(), actorID(r), chi.URLParam(r, "id"), service.NotePatch{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// HandleDelete
//
// HTTP: DELETE /api/notes/{id}  → 204 No Content
func (h *NoteHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Delete(r.Context(), actorID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleToggleArchive
//
// HTTP: POST /api/notes/{id}/archive → {"archived": true}
func (h *NoteHandler) HandleToggleArchive(w http.ResponseWriter, r *http.Request) {
	archived, err := h.notes.ToggleArchive(r.Context(), actorID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"archived": archived})
}

// HandleLock
//
// HTTP: POST /api/notes/{id}/lock
// BODY: {"password": "..."}
func (h *NoteHandler) HandleLock(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	status, err := h.notes.Lock(r.Context(), actorID(r), chi.URLParam(r, "id"), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleUnlock
//
// HTTP: POST /api/notes/{id}/unlock
// BODY: {"password": "..."}
func (h *NoteHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	status, err := h.notes.Unlock(r.Context(), actorID(r), chi.URLParam(r, "id"), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
