package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
)

func TestPreferencesGet_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Preferences().Get(context.Background(), "user1")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestPreferencesSave_Upserts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	prefs := db.Preferences()

	if err := prefs.Save(ctx, &model.Preferences{UserID: "user1", ColorTheme: "green", FontTheme: "serif"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := prefs.Save(ctx, &model.Preferences{UserID: "user1", ColorTheme: "red", FontTheme: "serif"}); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := prefs.Get(ctx, "user1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ColorTheme != "red" || got.FontTheme != "serif" || got.UserID != "user1" {
		t.Errorf("Get() = %+v, want red/serif", got)
	}
}
