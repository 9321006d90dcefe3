package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/auth"
	"github.com/sakif/notebook/internal/events"
	"github.com/sakif/notebook/internal/model"
)

// LOCK GATE:
// A note is either Unlocked or Locked. Locking stores a bcrypt hash of the
// password; the content itself is never encrypted or altered. While locked,
// every mutation (update, archive, delete, share toggle, share link) fails
// with ErrNoteLocked, and reads by the owner come back without content.
//
// Lock and unlock deliberately leave updatedAt alone: the note's text did
// not change, so it should not jump to the top of the list.

// Lock moves an unlocked note to Locked with the given password.
func (s *NoteService) Lock(ctx context.Context, actorID, id, password string) (*model.LockStatus, error) {
	note, err := s.loadOwned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if note.Locked {
		return nil, apperror.NoteLocked(note.ID)
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password of note %s: %w", id, err)
	}

	lockedAt := s.now()
	note.Locked = true
	note.PasswordHash = hash
	note.LockedAt = &lockedAt

	if err := s.notes.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("locking note %s: %w", id, err)
	}

	s.logger.Info("note locked", slog.String("id", id))
	s.publish(note, events.NoteLocked)
	return &model.LockStatus{Locked: true, LockedAt: note.LockedAt}, nil
}

// Unlock removes the lock when the password matches. A wrong password
// leaves the note exactly as it was.
func (s *NoteService) Unlock(ctx context.Context, actorID, id, password string) (*model.LockStatus, error) {
	note, err := s.loadOwned(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if !note.Locked {
		return nil, apperror.NotLocked(note.ID)
	}
	if err := s.verify(note, password); err != nil {
		return nil, err
	}

	note.Locked = false
	note.PasswordHash = ""
	note.LockedAt = nil

	if err := s.notes.Update(ctx, note); err != nil {
		return nil, fmt.Errorf("unlocking note %s: %w", id, err)
	}

	s.logger.Info("note unlocked", slog.String("id", id))
	s.publish(note, events.NoteUnlocked)
	return &model.LockStatus{Locked: false}, nil
}

// UnlockShared lets an anonymous visitor read a locked shared note. The
// note stays locked; only this response carries the content.
//
// The checks run in a fixed order (exists, shared, not archived, locked,
// password) and the first failure wins.
func (s *NoteService) UnlockShared(ctx context.Context, id, password string) (*model.SharedContent, error) {
	note, err := s.notes.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading note %s: %w", id, err)
	}
	switch {
	case !note.Shared:
		return nil, apperror.NotShared(note.ID)
	case note.Archived:
		return nil, apperror.Archived(note.ID)
	case !note.Locked:
		return nil, apperror.NotLocked(note.ID)
	}
	if err := s.verify(note, password); err != nil {
		return nil, err
	}

	s.logger.Info("shared note unlocked for viewing", slog.String("id", note.ID))
	return &model.SharedContent{
		Title:   note.Title,
		Content: note.Content,
		Tags:    note.Tags,
	}, nil
}

// CheckLock reports the lock state of any note without authentication.
// A missing note yields (nil, nil).
func (s *NoteService) CheckLock(ctx context.Context, id string) (*model.LockStatus, error) {
	note, err := s.notes.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("checking lock of note %s: %w", id, err)
	}
	return &model.LockStatus{Locked: note.Locked, LockedAt: note.LockedAt}, nil
}

func (s *NoteService) verify(note *model.Note, password string) error {
	err := s.passwords.Verify(note.PasswordHash, password)
	if err == nil {
		return nil
	}
	if errors.Is(err, auth.ErrPasswordMismatch) {
		s.logger.Info("incorrect note password", slog.String("id", note.ID))
		return apperror.IncorrectPassword()
	}
	return fmt.Errorf("verifying password of note %s: %w", note.ID, err)
}

func validatePassword(password string) error {
	if password == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	if len(password) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", auth.MaxPasswordBytes))
	}
	return nil
}
