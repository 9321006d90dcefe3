package handler

// RESPONSE HELPERS:
// Every JSON endpoint answers through writeJSON or writeError, so error
// responses always have the same shape:
//
//	{"error": "note_locked", "message": "note d0f5... is locked"}
//
// "error" is a stable machine-readable kind; "message" is for humans.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/auth"
)

// maxBodyBytes bounds every JSON request body. Note content is capped at
// 1 MiB by the service, so leave room for the JSON envelope.
const maxBodyBytes = 2 << 20

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; logging is all that is left.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorKinds maps each domain sentinel to its status code and wire name.
// Order matters only in that the first match wins.
var errorKinds = []struct {
	err    error
	status int
	kind   string
}{
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{apperror.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperror.ErrIncorrectPassword, http.StatusForbidden, "incorrect_password"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperror.ErrNoteUnavailable, http.StatusNotFound, "note_unavailable"},
	{apperror.ErrNotShared, http.StatusNotFound, "not_shared"},
	{apperror.ErrArchived, http.StatusGone, "archived"},
	{apperror.ErrNotLocked, http.StatusConflict, "not_locked"},
	{apperror.ErrConflict, http.StatusConflict, "conflict"},
	{apperror.ErrNoteLocked, http.StatusLocked, "note_locked"},
}

// writeError translates a service error into an HTTP response.
//
// errors.As finds the *AppError anywhere in the wrap chain for the message;
// errors.Is then picks the kind. Anything that is not an AppError is an
// internal failure and its text never reaches the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, k := range errorKinds {
			if errors.Is(err, k.err) {
				writeJSON(w, k.status, ErrorResponse{
					Error:   k.kind,
					Message: appErr.Message,
					Field:   appErr.Field,
				})
				return
			}
		}
	}

	slog.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a size-limited JSON body into dst. Unknown fields are
// rejected so typos in field names surface as 400s instead of silent no-ops.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	err := decodeBody(w, r, dst)
	if errors.Is(err, io.EOF) {
		return apperror.ValidationFailed("body", "request body is required")
	}
	return err
}

// decodeOptionalJSON is decodeJSON for routes where the body may be absent.
// An empty body leaves dst untouched, whatever Content-Length said.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	err := decodeBody(w, r, dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// decodeBody returns io.EOF unchanged for an empty body.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return io.EOF
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body",
				fmt.Sprintf("request body must be %d bytes or less", maxBodyBytes))
		}
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return apperror.ValidationFailed("body", "invalid JSON body")
	}
	return nil
}

// actorID is the authenticated user, or "" on public routes. Services turn
// "" into ErrUnauthenticated where an identity is required.
func actorID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}
