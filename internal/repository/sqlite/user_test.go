package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
)

func newTestUserDB(t *testing.T) *UserDB {
	t.Helper()
	return newTestDB(t).Users()
}

func upsertTestUser(t *testing.T, u *UserDB, githubID int64, login string) *model.User {
	t.Helper()
	user := &model.User{
		GitHubID:  githubID,
		Login:     login,
		Email:     login + "@example.com",
		AvatarURL: "https://avatars.githubusercontent.com/u/123",
	}
	if err := u.Upsert(context.Background(), user); err != nil {
		t.Fatalf("failed to upsert test user: %v", err)
	}
	return user
}

func TestUserUpsert_NewUser(t *testing.T) {
	u := newTestUserDB(t)

	user := &model.User{
		GitHubID:  55555,
		Login:     "new_user",
		Name:      "New User",
		Email:     "new@example.com",
		AvatarURL: "https://example.com/new.png",
	}
	if err := u.Upsert(context.Background(), user); err != nil {
		t.Fatalf("Upsert() (new) error = %v", err)
	}

	if user.ID == "" {
		t.Error("Upsert() did not set user.ID for new user")
	}
	if user.CreatedAt.IsZero() || user.LastLoggedInAt.IsZero() {
		t.Error("Upsert() did not set timestamps for new user")
	}
	if user.Role != model.DefaultRole {
		t.Errorf("Role = %q, want %q", user.Role, model.DefaultRole)
	}

	found, err := u.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() after Upsert: %v", err)
	}
	if found.Login != "new_user" || found.Name != "New User" || found.GitHubID != 55555 {
		t.Errorf("found = %+v", found)
	}
}

func TestUserUpsert_ExistingUser_UpdatesProfile(t *testing.T) {
	u := newTestUserDB(t)
	ctx := context.Background()

	first := upsertTestUser(t, u, 66666, "original_login")

	second := &model.User{
		GitHubID:  66666, // same GitHub account
		Login:     "updated_login",
		Name:      "Renamed",
		Email:     "new@example.com",
		AvatarURL: "https://example.com/new.png",
	}
	if err := u.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert() second login: %v", err)
	}

	// Same person, same internal ID: their notes stay theirs.
	if second.ID != first.ID {
		t.Errorf("Upsert() changed user ID: got %q, want %q", second.ID, first.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("Upsert() changed CreatedAt: got %v, want %v", second.CreatedAt, first.CreatedAt)
	}
	if second.LastLoggedInAt.Before(first.LastLoggedInAt) {
		t.Error("LastLoggedInAt went backwards on second login")
	}

	found, err := u.GetUserByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetUserByID() after second Upsert: %v", err)
	}
	if found.Login != "updated_login" || found.Name != "Renamed" || found.Email != "new@example.com" {
		t.Errorf("profile not refreshed: %+v", found)
	}
}

func TestUserUpsert_KeepsRole(t *testing.T) {
	db := newTestDB(t)
	u := db.Users()
	ctx := context.Background()

	user := upsertTestUser(t, u, 4242, "admin")
	if _, err := db.conn.Exec(`UPDATE users SET role = 'admin' WHERE id = ?`, user.ID); err != nil {
		t.Fatalf("promoting user: %v", err)
	}

	again := &model.User{GitHubID: 4242, Login: "admin"}
	if err := u.Upsert(ctx, again); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if again.Role != "admin" {
		t.Errorf("Role after login = %q, want admin", again.Role)
	}
}

func TestUserGetByID_NotFound(t *testing.T) {
	u := newTestUserDB(t)

	_, err := u.GetUserByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}
