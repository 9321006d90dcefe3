// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data. The `json:"..."` struct tags
// control how encoding/json serialises them in API responses.
package model

import "time"

// Note is a single rich-text note owned by one user.
//
// PasswordHash is tagged `json:"-"` so it never leaves the server, even when a
// handler encodes the whole struct. Locked and PasswordHash always move
// together: a note is locked exactly when a hash is stored.
type Note struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId"`
	Title        string     `json:"title"`
	Content      string     `json:"content"` // HTML produced by the editor
	Tags         []string   `json:"tags"`
	Archived     bool       `json:"archived"`
	Locked       bool       `json:"locked"`
	PasswordHash string     `json:"-"`
	LockedAt     *time.Time `json:"lockedAt,omitempty"`
	Shared       bool       `json:"shared"`
	SharedAt     *time.Time `json:"sharedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Redacted returns a copy of the note with the content withheld when the note
// is locked. Unlocked notes are returned unchanged.
func (n Note) Redacted() Note {
	if n.Locked {
		n.Content = ""
	}
	return n
}

// LockStatus is the public answer to "is this note locked?".
type LockStatus struct {
	Locked   bool       `json:"locked"`
	LockedAt *time.Time `json:"lockedAt,omitempty"`
}

// SharedNote is the read-only projection served on a public share link.
// Content is empty while the note is locked.
type SharedNote struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Tags       []string   `json:"tags"`
	Shared     bool       `json:"shared"`
	Locked     bool       `json:"locked"`
	LockedAt   *time.Time `json:"lockedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	AuthorName string     `json:"authorName"`
}

// SharedContent is what a visitor receives after entering the right password
// for a locked shared note. The stored note stays locked.
type SharedContent struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

// ShareLink is returned when the owner publishes a note.
type ShareLink struct {
	ShareURL string `json:"shareUrl"`
	NoteID   string `json:"noteId"`
}
