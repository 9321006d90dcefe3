// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a GitHub-authenticated account. GitHubID is the external identity;
// ID (xid) is what notes reference as their owner. Email is empty when the
// user hides it on GitHub.
type User struct {
	ID             string    `json:"id"`
	GitHubID       int64     `json:"githubId"`      // GitHub's numeric user ID
	Login          string    `json:"login"`         // GitHub username, e.g. "sakif"
	Name           string    `json:"name"`          // Display name (may be empty)
	Email          string    `json:"email"`         // Primary public email (may be empty)
	AvatarURL      string    `json:"avatarUrl"`     // Profile picture URL
	Role           string    `json:"role"`          // "user" unless promoted
	LastLoggedInAt time.Time `json:"lastLoggedInAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// DefaultRole is assigned to every user on first sign-in.
const DefaultRole = "user"

// DisplayName is the name shown as the author of a shared note.
func (u *User) DisplayName() string {
	if u == nil {
		return "Anonymous"
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Login != "" {
		return u.Login
	}
	return "Anonymous"
}
