package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/events"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

// SharePathPrefix is the public path of a shared note: /shared/<id>.
const SharePathPrefix = "/shared/"

// ShareService publishes notes and serves them to anonymous visitors.
type ShareService struct {
	notes     repository.NoteRepository
	analytics repository.AnalyticsRepository
	users     repository.UserRepository
	events    events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewShareService(
	notes repository.NoteRepository,
	analytics repository.AnalyticsRepository,
	users repository.UserRepository,
	publisher events.Publisher,
	logger *slog.Logger,
) *ShareService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &ShareService{
		notes:     notes,
		analytics: analytics,
		users:     users,
		events:    publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ToggleShare flips the shared flag and returns the new value.
//
// sharedAt is stamped every time the note becomes shared and is never
// cleared, so after un-sharing it still records the last publication.
// Analytics are left alone either way.
func (s *ShareService) ToggleShare(ctx context.Context, actorID, id string) (bool, error) {
	note, err := s.loadMutable(ctx, actorID, id)
	if err != nil {
		return false, err
	}

	note.Shared = !note.Shared
	if note.Shared {
		now := s.now()
		note.SharedAt = &now
	}
	if err := s.notes.Update(ctx, note); err != nil {
		return false, fmt.Errorf("toggling share of note %s: %w", id, err)
	}

	s.logger.Info("note share toggled", slog.String("id", id), slog.Bool("shared", note.Shared))
	s.events.Publish(note.OwnerID, events.Event{Type: events.NoteShared, NoteID: note.ID, At: s.now()})
	return note.Shared, nil
}

// GenerateShareLink makes sure the note is shared and has an analytics
// record, then returns its public path. Calling it on an already shared note
// refreshes sharedAt.
func (s *ShareService) GenerateShareLink(ctx context.Context, actorID, id string) (*model.ShareLink, error) {
	note, err := s.loadMutable(ctx, actorID, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	note.Shared = true
	note.SharedAt = &now
	if err := s.notes.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("sharing note %s: %w", id, err)
	}
	if err := s.analytics.Ensure(ctx, note.ID, note.OwnerID); err != nil {
		return nil, fmt.Errorf("creating analytics for note %s: %w", id, err)
	}

	s.logger.Info("share link generated", slog.String("id", id))
	s.events.Publish(note.OwnerID, events.Event{Type: events.NoteShared, NoteID: note.ID, At: now})
	return &model.ShareLink{ShareURL: SharePathPrefix + note.ID, NoteID: note.ID}, nil
}

// GetShared returns the public projection of a shared note, or nil when the
// note is missing, private or archived. Lookup failures also yield nil: a
// visitor must not be able to tell those cases apart.
func (s *ShareService) GetShared(ctx context.Context, id string) *model.SharedNote {
	note, err := s.notes.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("shared note lookup failed", slog.String("id", id), slog.String("error", err.Error()))
		}
		return nil
	}
	if !note.Shared || note.Archived {
		return nil
	}

	author, err := s.users.GetUserByID(ctx, note.OwnerID)
	if err != nil {
		// The note is still served; only the byline falls back.
		author = nil
	}

	shared := &model.SharedNote{
		ID:         note.ID,
		Title:      note.Title,
		Content:    note.Content,
		Tags:       note.Tags,
		Shared:     note.Shared,
		Locked:     note.Locked,
		LockedAt:   note.LockedAt,
		CreatedAt:  note.CreatedAt,
		UpdatedAt:  note.UpdatedAt,
		AuthorName: author.DisplayName(),
	}
	if note.Locked {
		shared.Content = ""
	}
	return shared
}

// TrackView records one anonymous visit. userAgent and referrer may be empty.
// The availability check and the counter update happen atomically in the
// repository.
func (s *ShareService) TrackView(ctx context.Context, id, userAgent, referrer string) (*model.ShareAnalytics, error) {
	record, err := s.analytics.RecordView(ctx, strings.TrimSpace(id), model.ViewEvent{
		ViewedAt:  s.now(),
		UserAgent: userAgent,
		Referrer:  referrer,
	})
	if err != nil {
		if errors.Is(err, apperror.ErrNoteUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("tracking view of note %s: %w", id, err)
	}

	s.logger.Debug("view tracked", slog.String("id", record.NoteID), slog.Int("count", record.ViewCount))
	s.events.Publish(record.OwnerID, events.Event{Type: events.NoteViewed, NoteID: record.NoteID, At: s.now()})
	return record, nil
}

func (s *ShareService) loadMutable(ctx context.Context, actorID, id string) (*model.Note, error) {
	note, err := loadOwnedNote(ctx, s.notes, actorID, id)
	if err != nil {
		return nil, err
	}
	if err := ensureUnlocked(note); err != nil {
		return nil, err
	}
	return note, nil
}
