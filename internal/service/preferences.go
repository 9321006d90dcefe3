package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

var (
	ColorThemes = []string{"blue", "green", "purple", "orange", "red", "slate"}
	FontThemes  = []string{"inter", "serif", "mono"}
)

// PreferencesPatch updates the fields that are non-nil.
type PreferencesPatch struct {
	ColorTheme *string
	FontTheme  *string
}

type PreferencesService struct {
	prefs  repository.PreferencesRepository
	logger *slog.Logger
}

func NewPreferencesService(prefs repository.PreferencesRepository, logger *slog.Logger) *PreferencesService {
	return &PreferencesService{prefs: prefs, logger: logger}
}

// Get returns the stored preferences or the defaults when the user has
// never saved any.
func (s *PreferencesService) Get(ctx context.Context, actorID string) (*model.Preferences, error) {
	if actorID == "" {
		return nil, apperror.Unauthenticated()
	}
	prefs, err := s.prefs.Get(ctx, actorID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return model.DefaultPreferences(actorID), nil
		}
		return nil, fmt.Errorf("loading preferences of %s: %w", actorID, err)
	}
	return prefs, nil
}

func (s *PreferencesService) Update(ctx context.Context, actorID string, patch PreferencesPatch) (*model.Preferences, error) {
	prefs, err := s.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if patch.ColorTheme != nil {
		color := strings.ToLower(strings.TrimSpace(*patch.ColorTheme))
		if !slices.Contains(ColorThemes, color) {
			return nil, apperror.ValidationFailed("colorTheme",
				fmt.Sprintf("colorTheme must be one of %s", strings.Join(ColorThemes, ", ")))
		}
		prefs.ColorTheme = color
	}
	if patch.FontTheme != nil {
		font := strings.ToLower(strings.TrimSpace(*patch.FontTheme))
		if !slices.Contains(FontThemes, font) {
			return nil, apperror.ValidationFailed("fontTheme",
				fmt.Sprintf("fontTheme must be one of %s", strings.Join(FontThemes, ", ")))
		}
		prefs.FontTheme = font
	}

	if err := s.prefs.Save(ctx, prefs); err != nil {
		return nil, fmt.Errorf("saving preferences of %s: %w", actorID, err)
	}
	s.logger.Debug("preferences saved", slog.String("user", actorID))
	return prefs, nil
}
