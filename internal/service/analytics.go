package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/notebook/internal/analytics"
	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

// AnalyticsService serves view analytics to note owners. The arithmetic
// lives in package analytics; this type only loads records and checks who
// may see them.
type AnalyticsService struct {
	notes     repository.NoteRepository
	analytics repository.AnalyticsRepository
	logger    *slog.Logger
}

func NewAnalyticsService(
	notes repository.NoteRepository,
	analytics repository.AnalyticsRepository,
	logger *slog.Logger,
) *AnalyticsService {
	return &AnalyticsService{notes: notes, analytics: analytics, logger: logger}
}

// NoteAnalytics returns the report of one of the actor's notes. A note that
// was never viewed gets a zero report, not an error.
func (s *AnalyticsService) NoteAnalytics(ctx context.Context, actorID, noteID string) (*model.NoteAnalytics, error) {
	note, err := loadOwnedNote(ctx, s.notes, actorID, noteID)
	if err != nil {
		return nil, err
	}

	record, err := s.analytics.GetByNote(ctx, note.ID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("loading analytics of note %s: %w", note.ID, err)
		}
		record = nil
	}

	report := analytics.NoteReport(note.ID, record)
	return &report, nil
}

// UserSummary aggregates every analytics record of ownerID. Only the owner
// may ask.
func (s *AnalyticsService) UserSummary(ctx context.Context, actorID, ownerID string) (*model.AnalyticsSummary, error) {
	if actorID == "" {
		return nil, apperror.Unauthenticated()
	}
	if strings.TrimSpace(ownerID) != actorID {
		return nil, apperror.Forbidden("you can only view your own analytics")
	}

	records, err := s.analytics.ListByOwner(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("listing analytics of %s: %w", actorID, err)
	}

	summary := analytics.Summarize(records)
	return &summary, nil
}

// DeleteNoteAnalytics drops the view log of a note. Deleting something that
// does not exist succeeds.
//
// When the note itself is gone the record is orphaned; then its stored
// ownerID decides who may delete it.
func (s *AnalyticsService) DeleteNoteAnalytics(ctx context.Context, actorID, noteID string) error {
	if actorID == "" {
		return apperror.Unauthenticated()
	}
	noteID = strings.TrimSpace(noteID)

	_, err := loadOwnedNote(ctx, s.notes, actorID, noteID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		if err := s.checkOrphanOwner(ctx, actorID, noteID); err != nil {
			return err
		}
	default:
		return err
	}

	if err := s.analytics.DeleteByNote(ctx, noteID); err != nil {
		return fmt.Errorf("deleting analytics of note %s: %w", noteID, err)
	}
	s.logger.Info("note analytics deleted", slog.String("id", noteID))
	return nil
}

func (s *AnalyticsService) checkOrphanOwner(ctx context.Context, actorID, noteID string) error {
	record, err := s.analytics.GetByNote(ctx, noteID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("loading analytics of note %s: %w", noteID, err)
	}
	if record.OwnerID != actorID {
		return apperror.Forbidden("you do not own these analytics")
	}
	return nil
}
