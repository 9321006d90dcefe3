// Package repository declares the storage contracts the service layer depends
// on. The sqlite sub-package implements them; service tests use in-memory
// fakes.
package repository

import (
	"context"

	"github.com/sakif/notebook/internal/model"
)

// NoteFilter narrows a note listing. A nil Archived means "both".
// Tag is matched case-insensitively as a substring of any tag.
type NoteFilter struct {
	OwnerID  string
	Archived *bool
	Tag      string
}

type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) error
	GetByID(ctx context.Context, id string) (*model.Note, error)
	List(ctx context.Context, filter NoteFilter) ([]model.Note, error)
	Search(ctx context.Context, ownerID, term string, limit int) ([]model.Note, error)
	ListTags(ctx context.Context, ownerID string) ([]string, error)
	Update(ctx context.Context, note *model.Note) error
	Delete(ctx context.Context, id string) error
}

// AnalyticsRepository stores the per-note view log.
//
// RecordView must be atomic: the shared/archived check, the counter increment
// and the event append happen in one transaction so concurrent viewers never
// lose an update.
type AnalyticsRepository interface {
	Ensure(ctx context.Context, noteID, ownerID string) error
	RecordView(ctx context.Context, noteID string, view model.ViewEvent) (*model.ShareAnalytics, error)
	GetByNote(ctx context.Context, noteID string) (*model.ShareAnalytics, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.ShareAnalytics, error)
	DeleteByNote(ctx context.Context, noteID string) error
}

type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

type PreferencesRepository interface {
	Get(ctx context.Context, userID string) (*model.Preferences, error)
	Save(ctx context.Context, prefs *model.Preferences) error
}
