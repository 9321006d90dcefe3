// Package apperror defines the domain errors shared by every layer.
//
// Each failure kind is a sentinel error. Callers build an *AppError around the
// sentinel with a human-readable message; handlers later recover the kind with
// errors.Is and map it to an HTTP status.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("Validation Error")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrNoteLocked        = errors.New("note locked")
	ErrNotLocked         = errors.New("note not locked")
	ErrIncorrectPassword = errors.New("incorrect password")
	ErrNoteUnavailable   = errors.New("note unavailable")
	ErrNotShared         = errors.New("note not shared")
	ErrArchived          = errors.New("note archived")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated is returned when an operation needs an identity and none
// was presented.
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "authentication required",
	}
}

// NoteLocked rejects a mutation of a password-locked note.
func NoteLocked(id string) *AppError {
	return &AppError{
		Err:     ErrNoteLocked,
		Message: fmt.Sprintf("note %s is locked", id),
	}
}

func NotLocked(id string) *AppError {
	return &AppError{
		Err:     ErrNotLocked,
		Message: fmt.Sprintf("note %s is not locked", id),
	}
}

func IncorrectPassword() *AppError {
	return &AppError{
		Err:     ErrIncorrectPassword,
		Message: "incorrect password",
		Field:   "password",
	}
}

// NoteUnavailable is raised by view tracking when the note is missing,
// private or archived. The message is identical in all three cases.
func NoteUnavailable() *AppError {
	return &AppError{
		Err:     ErrNoteUnavailable,
		Message: "note not available",
	}
}

func NotShared(id string) *AppError {
	return &AppError{
		Err:     ErrNotShared,
		Message: fmt.Sprintf("note %s is not shared", id),
	}
}

func Archived(id string) *AppError {
	return &AppError{
		Err:     ErrArchived,
		Message: fmt.Sprintf("note %s is archived", id),
	}
}
