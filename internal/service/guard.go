package service

import (
	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
)

// requireOwner is the ownership guard in front of every owner-only
// operation. It never touches storage: the caller has already loaded the
// note.
func requireOwner(actorID string, note *model.Note) error {
	if actorID == "" {
		return apperror.Unauthenticated()
	}
	if note.OwnerID != actorID {
		return apperror.Forbidden("you do not own this note")
	}
	return nil
}

// ensureUnlocked is the lock gate for mutations. It runs after the ownership
// check and before any write, so a rejected call leaves the note untouched.
func ensureUnlocked(note *model.Note) error {
	if note.Locked {
		return apperror.NoteLocked(note.ID)
	}
	return nil
}
