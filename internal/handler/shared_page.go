// Package handler turns HTTP requests into service calls and service
// results into HTTP responses. Handlers hold no business rules: they parse
// input, call one service method and map the outcome with writeJSON or
// writeError.
package handler

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// SharedPageHandler renders the public HTML page of a shared note.
//
// Templates are parsed once at construction. base.html defines the page
// frame with a {{template "content" .}} slot; shared.html fills it.
//
// Note bodies are editor HTML written by someone other than the visitor, so
// they are shown in a sandboxed iframe via srcdoc. html/template escapes the
// markup into the attribute; the sandbox blocks scripts and same-origin
// access inside it.
type SharedPageHandler struct {
	templates *template.Template
	shares    *service.ShareService
	notes     *service.NoteService
	baseURL   string // PUBLIC_BASE_URL; empty disables the canonical link
	logger    *slog.Logger
}

func NewSharedPageHandler(
	shares *service.ShareService,
	notes *service.NoteService,
	baseURL string,
	logger *slog.Logger,
) (*SharedPageHandler, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/shared.html")
	if err != nil {
		return nil, err
	}
	return &SharedPageHandler{templates: tmpl, shares: shares, notes: notes, baseURL: baseURL, logger: logger}, nil
}

type sharedPage struct {
	Title     string
	Canonical string
	Note      *model.SharedNote
	Content   string
	Error     string
}

// HandleSharedPage
//
// HTTP: GET /shared/{id}
//
// Every successful render counts as one view.
func (h *SharedPageHandler) HandleSharedPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note := h.shares.GetShared(r.Context(), id)
	if note == nil {
		h.render(w, http.StatusNotFound, sharedPage{Title: "Note not available"})
		return
	}

	if _, err := h.shares.TrackView(r.Context(), note.ID, r.UserAgent(), r.Referer()); err != nil {
		// The page is still worth showing; only the counter missed a beat.
		h.logger.Warn("failed to track view", slog.String("id", note.ID), slog.String("error", err.Error()))
	}

	h.render(w, http.StatusOK, sharedPage{Title: note.Title, Note: note, Content: note.Content})
}

// HandleUnlockForm
//
// HTTP: POST /shared/{id}/unlock  (form field "password")
//
// The note stays locked; only this response carries its content.
func (h *SharedPageHandler) HandleUnlockForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	note := h.shares.GetShared(r.Context(), id)
	if note == nil {
		h.render(w, http.StatusNotFound, sharedPage{Title: "Note not available"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 4<<10)
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, sharedPage{Title: note.Title, Note: note, Error: "Invalid form."})
		return
	}

	content, err := h.notes.UnlockShared(r.Context(), note.ID, r.PostForm.Get("password"))
	switch {
	case err == nil:
		h.render(w, http.StatusOK, sharedPage{Title: content.Title, Note: note, Content: content.Content})
	case errors.Is(err, apperror.ErrIncorrectPassword):
		h.render(w, http.StatusForbidden, sharedPage{Title: note.Title, Note: note, Error: "Incorrect password."})
	case errors.Is(err, apperror.ErrNotLocked):
		// Unlocked by the owner in the meantime; show the normal page.
		http.Redirect(w, r, service.SharePathPrefix+note.ID, http.StatusSeeOther)
	default:
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			h.render(w, http.StatusNotFound, sharedPage{Title: "Note not available"})
			return
		}
		h.logger.Error("shared unlock failed", slog.String("id", note.ID), slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *SharedPageHandler) render(w http.ResponseWriter, status int, page sharedPage) {
	if page.Note != nil && h.baseURL != "" {
		page.Canonical = h.baseURL + service.SharePathPrefix + page.Note.ID
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.ExecuteTemplate(w, "base", page); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
	}
}
