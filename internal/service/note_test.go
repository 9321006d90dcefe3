package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/events"
)

func TestNoteService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	note, err := f.noteSvc.Create(ctx, alice, NoteInput{
		Title:   "  Groceries  ",
		Content: "<p>milk</p>",
		Tags:    []string{" home ", "", "home", "errands"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, note.ID)
	assert.Equal(t, alice, note.OwnerID)
	assert.Equal(t, "Groceries", note.Title)
	assert.Equal(t, []string{"home", "errands"}, note.Tags)
	assert.False(t, note.Locked)
	assert.False(t, note.Shared)
	assert.Equal(t, note.CreatedAt, note.UpdatedAt)
	assert.Equal(t, []string{events.NoteCreated}, f.events.types())
}

func TestNoteService_Create_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    NoteInput
		field string
	}{
		{"title too long", NoteInput{Title: strings.Repeat("a", MaxTitleLength+1)}, "title"},
		{"content too large", NoteInput{Content: strings.Repeat("x", MaxContentBytes+1)}, "content"},
		{"tag too long", NoteInput{Tags: []string{strings.Repeat("t", MaxTagLength+1)}}, "tags"},
		{"too many tags", NoteInput{Tags: manyTags(MaxTags + 1)}, "tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.noteSvc.Create(context.Background(), alice, tt.in)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func manyTags(n int) []string {
	tags := make([]string, n)
	for i := range tags {
		tags[i] = fmt.Sprintf("tag-%d", i)
	}
	return tags
}

func TestNoteService_Create_BlankTitleBecomesUntitled(t *testing.T) {
	f := newFixture(t)
	note, err := f.noteSvc.Create(context.Background(), alice, NoteInput{Title: "   "})
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, note.Title)
}

func TestNoteService_RequiresIdentity(t *testing.T) {
	f := newFixture(t)
	note := f.createNote(t, alice, "Private")
	ctx := context.Background()

	_, err := f.noteSvc.Create(ctx, "", NoteInput{Title: "x"})
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	_, err = f.noteSvc.Get(ctx, "", note.ID)
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	_, err = f.noteSvc.List(ctx, "", ListFilter{})
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	_, err = f.noteSvc.Search(ctx, "", "x")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	_, err = f.noteSvc.Tags(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
	// Anonymous callers learn nothing about whether an ID exists.
	_, err = f.noteSvc.Get(ctx, "", "does-not-exist")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
}

func TestNoteService_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	note := f.createNote(t, alice, "Alice's")
	ctx := context.Background()
	title := "hijacked"

	checks := map[string]error{}
	_, checks["get"] = f.noteSvc.Get(ctx, bob, note.ID)
	_, checks["update"] = f.noteSvc.Update(ctx, bob, note.ID, NotePatch{Title: &title})
	_, checks["archive"] = f.noteSvc.ToggleArchive(ctx, bob, note.ID)
	checks["delete"] = f.noteSvc.Delete(ctx, bob, note.ID)
	_, checks["lock"] = f.noteSvc.Lock(ctx, bob, note.ID, "pw")
	_, checks["unlock"] = f.noteSvc.Unlock(ctx, bob, note.ID, "pw")
	_, checks["share"] = f.shareSvc.ToggleShare(ctx, bob, note.ID)
	_, checks["share link"] = f.shareSvc.GenerateShareLink(ctx, bob, note.ID)
	_, checks["analytics"] = f.analyticsSvc.NoteAnalytics(ctx, bob, note.ID)
	checks["delete analytics"] = f.analyticsSvc.DeleteNoteAnalytics(ctx, bob, note.ID)

	for op, err := range checks {
		assert.ErrorIs(t, err, apperror.ErrForbidden, op)
	}
	assert.Zero(t, f.notes.writes(), "rejected calls must not write")
	assert.Equal(t, "Alice's", f.notes.stored(t, note.ID).Title)
}

func TestNoteService_Get_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.noteSvc.Get(context.Background(), alice, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestNoteService_Update(t *testing.T) {
	f := newFixture(t)
	note := f.createNote(t, alice, "Draft")
	ctx := context.Background()

	title := "Final"
	tags := []string{"done"}
	updated, err := f.noteSvc.Update(ctx, alice, note.ID, NotePatch{Title: &title, Tags: &tags})
	require.NoError(t, err)

	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, note.Content, updated.Content, "nil patch fields stay unchanged")
	assert.Equal(t, []string{"done"}, updated.Tags)
	assert.True(t, updated.UpdatedAt.After(note.UpdatedAt))
	assert.Equal(t, note.CreatedAt, updated.CreatedAt)
}

func TestNoteService_ToggleArchive(t *testing.T) {
	f := newFixture(t)
	note := f.createNote(t, alice, "Old")
	ctx := context.Background()

	archived, err := f.noteSvc.ToggleArchive(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.True(t, archived)

	archived, err = f.noteSvc.ToggleArchive(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.False(t, archived)
}

func TestNoteService_Delete_RemovesAnalytics(t *testing.T) {
	f := newFixture(t)
	note := f.createNote(t, alice, "Shared")
	ctx := context.Background()

	_, err := f.shareSvc.GenerateShareLink(ctx, alice, note.ID)
	require.NoError(t, err)
	_, err = f.shareSvc.TrackView(ctx, note.ID, "", "")
	require.NoError(t, err)

	require.NoError(t, f.noteSvc.Delete(ctx, alice, note.ID))

	_, err = f.noteSvc.Get(ctx, alice, note.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.False(t, f.analytics.has(note.ID))
}

func TestNoteService_ListAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.createNote(t, alice, "Recipes")
	second := f.createNote(t, alice, "Meeting notes")
	f.createNote(t, bob, "Bob's recipes")

	_, err := f.noteSvc.ToggleArchive(ctx, alice, first.ID)
	require.NoError(t, err)

	all, err := f.noteSvc.List(ctx, alice, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID, "archiving bumps updatedAt")

	active := false
	onlyActive, err := f.noteSvc.List(ctx, alice, ListFilter{Archived: &active})
	require.NoError(t, err)
	require.Len(t, onlyActive, 1)
	assert.Equal(t, second.ID, onlyActive[0].ID)

	found, err := f.noteSvc.Search(ctx, alice, "recipes")
	require.NoError(t, err)
	assert.Empty(t, found, "archived notes and other owners' notes are excluded")

	found, err = f.noteSvc.Search(ctx, alice, "  ")
	require.NoError(t, err)
	assert.Len(t, found, 2, "blank term lists everything")

	tags, err := f.noteSvc.Tags(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, tags)
}

func TestNoteService_ReadsOfLockedNoteWithholdContent(t *testing.T) {
	f := newFixture(t)
	note := f.createNote(t, alice, "Diary")
	ctx := context.Background()

	_, err := f.noteSvc.Lock(ctx, alice, note.ID, "secret")
	require.NoError(t, err)

	got, err := f.noteSvc.Get(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.True(t, got.Locked)
	assert.Empty(t, got.Content)

	listed, err := f.noteSvc.List(ctx, alice, ListFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Empty(t, listed[0].Content)

	assert.NotEmpty(t, f.notes.stored(t, note.ID).Content, "stored content is untouched")
}

func TestNoteService_DeleteAnalyticsFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	note := f.createNote(t, alice, "Temp")
	f.noteSvc.analytics = failingAnalytics{f.analytics}

	err := f.noteSvc.Delete(context.Background(), alice, note.ID)
	require.NoError(t, err)
}

type failingAnalytics struct{ *fakeAnalyticsRepo }

func (failingAnalytics) DeleteByNote(context.Context, string) error {
	return errors.New("disk full")
}
