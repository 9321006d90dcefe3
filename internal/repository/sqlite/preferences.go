package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

var _ repository.PreferencesRepository = (*PreferencesDB)(nil)

type PreferencesDB struct {
	conn *sql.DB
}

// Get returns the stored preferences, or apperror.ErrNotFound when the user
// never saved any. Falling back to defaults is the service's job.
func (db *PreferencesDB) Get(ctx context.Context, userID string) (*model.Preferences, error) {
	p := model.Preferences{UserID: userID}
	err := db.conn.QueryRowContext(ctx,
		`SELECT color_theme, font_theme FROM user_preferences WHERE user_id = ?`, userID,
	).Scan(&p.ColorTheme, &p.FontTheme)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("preferences", userID)
		}
		return nil, fmt.Errorf("sqlite: getting preferences of %s: %w", userID, err)
	}
	return &p, nil
}

func (db *PreferencesDB) Save(ctx context.Context, prefs *model.Preferences) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_preferences (user_id, color_theme, font_theme, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		     color_theme = excluded.color_theme,
		     font_theme = excluded.font_theme,
		     updated_at = excluded.updated_at`,
		prefs.UserID, prefs.ColorTheme, prefs.FontTheme, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving preferences of %s: %w", prefs.UserID, err)
	}
	return nil
}
