// Package service holds the business rules of the notebook.
//
// LAYERS:
//
//	Handler (HTTP)      → parses requests, writes responses
//	Service (this)      → validates, checks ownership and locks, orchestrates
//	Repository (SQLite) → reads and writes rows
//
// Services take the acting user's ID as a plain string argument instead of
// reading it from a request, so the same rules serve the HTTP API, the admin
// CLI and the tests. An empty actor ID means "anonymous".
//
// Every service depends on repository interfaces, never on *sqlite.DB, so
// the tests in this package run against small in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/events"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

// Validation limits for note input.
const (
	MaxTitleLength  = 200     // characters, after trimming
	MaxContentBytes = 1 << 20 // 1 MiB of editor HTML
	MaxTags         = 50
	MaxTagLength    = 50
	SearchLimit     = 100
	DefaultTitle    = "Untitled"
)

// NoteInput is the payload of Create.
type NoteInput struct {
	Title   string
	Content string
	Tags    []string
}

// NotePatch is the payload of Update. A nil field is left unchanged.
type NotePatch struct {
	Title   *string
	Content *string
	Tags    *[]string
}

// ListFilter narrows List. A nil Archived lists both active and archived
// notes.
type ListFilter struct {
	Archived *bool
	Tag      string
}

// NoteService owns note CRUD, search and the lock gate.
type NoteService struct {
	notes     repository.NoteRepository
	analytics repository.AnalyticsRepository
	passwords PasswordHasher
	events    events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// PasswordHasher is the slice of auth.PasswordService the lock gate needs.
// Verify must return auth.ErrPasswordMismatch for a wrong password.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) error
}

func NewNoteService(
	notes repository.NoteRepository,
	analytics repository.AnalyticsRepository,
	passwords PasswordHasher,
	publisher events.Publisher,
	logger *slog.Logger,
) *NoteService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &NoteService{
		notes:     notes,
		analytics: analytics,
		passwords: passwords,
		events:    publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create validates the input and stores a new note owned by actorID.
func (s *NoteService) Create(ctx context.Context, actorID string, in NoteInput) (*model.Note, error) {
	if actorID == "" {
		return nil, apperror.Unauthenticated()
	}

	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	now := s.now()
	note := &model.Note{
		OwnerID:   actorID,
		Title:     title,
		Content:   in.Content,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.notes.Create(ctx, note); err != nil {
		s.logger.Error("failed to create note",
			slog.String("owner", actorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating note: %w", err)
	}

	s.logger.Info("note created", slog.String("id", note.ID), slog.String("owner", actorID))
	s.publish(note, events.NoteCreated)
	return note, nil
}

// Get returns one of the actor's notes. The content of a locked note is
// withheld; unlocking is the only way back to it.
func (s *NoteService) Get(ctx context.Context, actorID, id string) (*model.Note, error) {
	note, err := s.loadOwned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	redacted := note.Redacted()
	return &redacted, nil
}

// List returns the actor's notes, most recently updated first.
func (s *NoteService) List(ctx context.Context, actorID string, filter ListFilter) ([]model.Note, error) {
	if actorID == "" {
		return nil, apperror.Unauthenticated()
	}
	notes, err := s.notes.List(ctx, repository.NoteFilter{
		OwnerID:  actorID,
		Archived: filter.Archived,
		Tag:      strings.TrimSpace(filter.Tag),
	})
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	return redactAll(notes), nil
}

// Search finds the actor's non-archived notes matching term. A blank term
// returns every note, like List without filters.
func (s *NoteService) Search(ctx context.Context, actorID, term string) ([]model.Note, error) {
	if actorID == "" {
		return nil, apperror.Unauthenticated()
	}
	notes, err := s.notes.Search(ctx, actorID, strings.TrimSpace(term), SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("searching notes: %w", err)
	}
	return redactAll(notes), nil
}

// Tags returns the distinct tags across the actor's notes, sorted.
func (s *NoteService) Tags(ctx context.Context, actorID string) ([]string, error) {
	if actorID == "" {
		return nil, apperror.Unauthenticated()
	}
	tags, err := s.notes.ListTags(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	return tags, nil
}

// Update applies a partial edit. Locked notes are read-only.
func (s *NoteService) Update(ctx context.Context, actorID, id string, patch NotePatch) (*model.Note, error) {
	note, err := s.loadMutable(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		title, err := normalizeTitle(*patch.Title)
		if err != nil {
			return nil, err
		}
		note.Title = title
	}
	if patch.Content != nil {
		if err := validateContent(*patch.Content); err != nil {
			return nil, err
		}
		note.Content = *patch.Content
	}
	if patch.Tags != nil {
		tags, err := normalizeTags(*patch.Tags)
		if err != nil {
			return nil, err
		}
		note.Tags = tags
	}
	note.UpdatedAt = s.now()

	if err := s.notes.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("updating note %s: %w", id, err)
	}

	s.logger.Info("note updated", slog.String("id", id))
	s.publish(note, events.NoteUpdated)
	return note, nil
}

// ToggleArchive flips the archived flag and returns the new value.
func (s *NoteService) ToggleArchive(ctx context.Context, actorID, id string) (bool, error) {
	note, err := s.loadMutable(ctx, actorID, id)
	if err != nil {
		return false, err
	}

	note.Archived = !note.Archived
	note.UpdatedAt = s.now()
	if err := s.notes.Update(ctx, note); err != nil {
		return false, fmt.Errorf("archiving note %s: %w", id, err)
	}

	s.logger.Info("note archive toggled", slog.String("id", id), slog.Bool("archived", note.Archived))
	s.publish(note, events.NoteArchived)
	return note.Archived, nil
}

// Delete removes a note together with its share analytics.
func (s *NoteService) Delete(ctx context.Context, actorID, id string) error {
	note, err := s.loadMutable(ctx, actorID, id)
	if err != nil {
		return err
	}

	if err := s.notes.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting note %s: %w", id, err)
	}
	// SQLite cascades this already; other stores may not.
	if err := s.analytics.DeleteByNote(ctx, id); err != nil {
		s.logger.Warn("failed to delete analytics of deleted note",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("note deleted", slog.String("id", id))
	s.publish(note, events.NoteDeleted)
	return nil
}

// loadOwned fetches a note and applies the ownership guard. The anonymous
// check comes first so anonymous callers cannot probe which IDs exist.
func (s *NoteService) loadOwned(ctx context.Context, actorID, id string) (*model.Note, error) {
	return loadOwnedNote(ctx, s.notes, actorID, id)
}

// loadMutable is loadOwned plus the lock gate.
func (s *NoteService) loadMutable(ctx context.Context, actorID, id string) (*model.Note, error) {
	note, err := s.loadOwned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if err := ensureUnlocked(note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *NoteService) publish(note *model.Note, kind string) {
	s.events.Publish(note.OwnerID, events.Event{Type: kind, NoteID: note.ID, At: s.now()})
}

func loadOwnedNote(ctx context.Context, notes repository.NoteRepository, actorID, id string) (*model.Note, error) {
	if actorID == "" {
		return nil, apperror.Unauthenticated()
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "note ID is required")
	}

	note, err := notes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading note %s: %w", id, err)
	}
	if err := requireOwner(actorID, note); err != nil {
		return nil, err
	}
	return note, nil
}

func redactAll(notes []model.Note) []model.Note {
	for i := range notes {
		notes[i] = notes[i].Redacted()
	}
	return notes
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle, nil
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}
	return title, nil
}

func validateContent(content string) error {
	if len(content) > MaxContentBytes {
		return apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d bytes or less", MaxContentBytes))
	}
	return nil
}

// normalizeTags trims every tag, drops empty ones and duplicates (keeping
// the first occurrence) and enforces the tag limits.
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return nil, apperror.ValidationFailed("tags",
				fmt.Sprintf("tag %q is longer than %d characters", tag, MaxTagLength))
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > MaxTags {
		return nil, apperror.ValidationFailed("tags",
			fmt.Sprintf("a note can have at most %d tags", MaxTags))
	}
	return out, nil
}
