package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

type UserDB struct {
	conn *sql.DB
}

// Upsert inserts or refreshes a user keyed on their GitHub ID.
//
// A returning user KEEPS their internal ID (every note's owner_id points at
// it); only the profile fields and lastLoggedInAt are refreshed. The role is
// never overwritten by a login. On return the struct holds the stored
// record, including ID, role and timestamps.
func (db *UserDB) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()

	var (
		existingID string
		createdAt  time.Time
		role       string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, created_at, role FROM users WHERE github_id = ?`, user.GitHubID,
	).Scan(&existingID, &createdAt, &role)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	user.LastLoggedInAt = now
	user.UpdatedAt = now

	if existingID != "" {
		user.ID = existingID
		user.CreatedAt = createdAt.UTC()
		user.Role = role
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users
			 SET login = ?, name = ?, email = ?, avatar_url = ?,
			     last_logged_in_at = ?, updated_at = ?
			 WHERE id = ?`,
			user.Login, user.Name, user.Email, user.AvatarURL,
			user.LastLoggedInAt, user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	user.ID = xid.New().String()
	user.CreatedAt = now
	if user.Role == "" {
		user.Role = model.DefaultRole
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, login, name, email, avatar_url, role,
		                    last_logged_in_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.GitHubID, user.Login, user.Name, user.Email, user.AvatarURL, user.Role,
		user.LastLoggedInAt, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (githubID=%d): %w", user.GitHubID, err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *UserDB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, github_id, login, name, email, avatar_url, role,
		        last_logged_in_at, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(
		&u.ID, &u.GitHubID, &u.Login, &u.Name, &u.Email, &u.AvatarURL, &u.Role,
		&u.LastLoggedInAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}
