package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/auth"
	"github.com/sakif/notebook/internal/events"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

// Hand-written in-memory fakes of the repository interfaces. They store
// copies, never the caller's pointers, so a test cannot accidentally mutate
// "the database" through a returned value.

type fakeNoteRepo struct {
	mu      sync.Mutex
	notes   map[string]model.Note
	nextID  int
	updates int
	deletes int
}

func newFakeNoteRepo() *fakeNoteRepo {
	return &fakeNoteRepo{notes: make(map[string]model.Note)}
}

func cloneNote(n model.Note) model.Note {
	n.Tags = slices.Clone(n.Tags)
	return n
}

func (f *fakeNoteRepo) Create(_ context.Context, note *model.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if note.ID == "" {
		f.nextID++
		note.ID = fmt.Sprintf("note-%02d", f.nextID)
	}
	f.notes[note.ID] = cloneNote(*note)
	return nil
}

func (f *fakeNoteRepo) GetByID(_ context.Context, id string) (*model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	if !ok {
		return nil, apperror.NotFound("note", id)
	}
	c := cloneNote(n)
	return &c, nil
}

func (f *fakeNoteRepo) List(_ context.Context, filter repository.NoteFilter) ([]model.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Note{}
	for _, n := range f.notes {
		if n.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Archived != nil && n.Archived != *filter.Archived {
			continue
		}
		if filter.Tag != "" && !tagMatches(n.Tags, filter.Tag) {
			continue
		}
		out = append(out, cloneNote(n))
	}
	sortNotes(out)
	return out, nil
}

func (f *fakeNoteRepo) Search(ctx context.Context, ownerID, term string, limit int) ([]model.Note, error) {
	if term == "" {
		return f.List(ctx, repository.NoteFilter{OwnerID: ownerID})
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	needle := strings.ToLower(term)
	out := []model.Note{}
	for _, n := range f.notes {
		if n.OwnerID != ownerID || n.Archived {
			continue
		}
		if strings.Contains(strings.ToLower(n.Title), needle) ||
			strings.Contains(strings.ToLower(n.Content), needle) ||
			tagMatches(n.Tags, term) {
			out = append(out, cloneNote(n))
		}
	}
	sortNotes(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeNoteRepo) ListTags(_ context.Context, ownerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]struct{}{}
	out := []string{}
	for _, n := range f.notes {
		if n.OwnerID != ownerID {
			continue
		}
		for _, t := range n.Tags {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *fakeNoteRepo) Update(_ context.Context, note *model.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.notes[note.ID]; !ok {
		return apperror.NotFound("note", note.ID)
	}
	f.updates++
	f.notes[note.ID] = cloneNote(*note)
	return nil
}

func (f *fakeNoteRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.notes[id]; !ok {
		return apperror.NotFound("note", id)
	}
	f.deletes++
	delete(f.notes, id)
	return nil
}

// stored reads a note straight from the map, bypassing the service.
func (f *fakeNoteRepo) stored(t *testing.T, id string) model.Note {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notes[id]
	if !ok {
		t.Fatalf("note %s not stored", id)
	}
	return cloneNote(n)
}

func (f *fakeNoteRepo) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates + f.deletes
}

func tagMatches(tags []string, term string) bool {
	needle := strings.ToLower(term)
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}

func sortNotes(notes []model.Note) {
	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].UpdatedAt.Equal(notes[j].UpdatedAt) {
			return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
		}
		return notes[i].ID > notes[j].ID
	})
}

// fakeAnalyticsRepo checks availability against the note fake, the way the
// SQLite implementation joins against the notes table.
type fakeAnalyticsRepo struct {
	mu      sync.Mutex
	notes   *fakeNoteRepo
	records map[string]*model.ShareAnalytics
}

func newFakeAnalyticsRepo(notes *fakeNoteRepo) *fakeAnalyticsRepo {
	return &fakeAnalyticsRepo{notes: notes, records: make(map[string]*model.ShareAnalytics)}
}

func cloneRecord(r *model.ShareAnalytics) *model.ShareAnalytics {
	c := *r
	c.Views = slices.Clone(r.Views)
	return &c
}

func (f *fakeAnalyticsRepo) Ensure(_ context.Context, noteID, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[noteID]; !ok {
		f.records[noteID] = &model.ShareAnalytics{NoteID: noteID, OwnerID: ownerID, Views: []model.ViewEvent{}}
	}
	return nil
}

func (f *fakeAnalyticsRepo) RecordView(ctx context.Context, noteID string, view model.ViewEvent) (*model.ShareAnalytics, error) {
	note, err := f.notes.GetByID(ctx, noteID)
	if err != nil || !note.Shared || note.Archived {
		return nil, apperror.NoteUnavailable()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[noteID]
	if !ok {
		rec = &model.ShareAnalytics{NoteID: noteID, OwnerID: note.OwnerID}
		f.records[noteID] = rec
	}
	rec.ViewCount++
	viewedAt := view.ViewedAt
	rec.LastViewedAt = &viewedAt
	rec.Views = append(rec.Views, view)
	return cloneRecord(rec), nil
}

func (f *fakeAnalyticsRepo) GetByNote(_ context.Context, noteID string) (*model.ShareAnalytics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[noteID]
	if !ok {
		return nil, apperror.NotFound("share analytics", noteID)
	}
	return cloneRecord(rec), nil
}

func (f *fakeAnalyticsRepo) ListByOwner(_ context.Context, ownerID string) ([]model.ShareAnalytics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.ShareAnalytics{}
	for _, rec := range f.records {
		if rec.OwnerID == ownerID {
			c := *rec
			c.Views = nil
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NoteID < out[j].NoteID })
	return out, nil
}

func (f *fakeAnalyticsRepo) DeleteByNote(_ context.Context, noteID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, noteID)
	return nil
}

func (f *fakeAnalyticsRepo) has(noteID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[noteID]
	return ok
}

// fakeUserRepo mimics the upsert-on-GitHub-ID behaviour of the real store.
type fakeUserRepo struct {
	users  map[string]*model.User
	byGHID map[int64]*model.User
	nextID int
	// non-nil errors simulate a database failure
	upsertErr  error
	getByIDErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*model.User),
		byGHID: make(map[int64]*model.User),
	}
}

func (f *fakeUserRepo) Upsert(_ context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	now := time.Now().UTC()
	if existing, ok := f.byGHID[user.GitHubID]; ok {
		existing.Login = user.Login
		existing.Name = user.Name
		existing.Email = user.Email
		existing.AvatarURL = user.AvatarURL
		existing.LastLoggedInAt = now
		existing.UpdatedAt = now
		*user = *existing
		return nil
	}
	f.nextID++
	user.ID = fmt.Sprintf("user-%d", f.nextID)
	user.Role = model.DefaultRole
	user.CreatedAt, user.UpdatedAt, user.LastLoggedInAt = now, now, now
	stored := *user
	f.users[user.ID] = &stored
	f.byGHID[user.GitHubID] = &stored
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	c := *u
	return &c, nil
}

func (f *fakeUserRepo) add(u model.User) {
	f.users[u.ID] = &u
	f.byGHID[u.GitHubID] = &u
}

type fakePrefsRepo struct {
	prefs map[string]model.Preferences
	saves int
}

func newFakePrefsRepo() *fakePrefsRepo {
	return &fakePrefsRepo{prefs: make(map[string]model.Preferences)}
}

func (f *fakePrefsRepo) Get(_ context.Context, userID string) (*model.Preferences, error) {
	p, ok := f.prefs[userID]
	if !ok {
		return nil, apperror.NotFound("preferences", userID)
	}
	return &p, nil
}

func (f *fakePrefsRepo) Save(_ context.Context, prefs *model.Preferences) error {
	f.saves++
	f.prefs[prefs.UserID] = *prefs
	return nil
}

// recordingPublisher keeps every published event for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

type published struct {
	owner string
	event events.Event
}

func (p *recordingPublisher) Publish(ownerID string, ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{owner: ownerID, event: ev})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.event.Type)
	}
	return out
}

// fixture wires every service to one shared set of fakes.
type fixture struct {
	notes     *fakeNoteRepo
	analytics *fakeAnalyticsRepo
	users     *fakeUserRepo
	prefs     *fakePrefsRepo
	events    *recordingPublisher

	noteSvc      *NoteService
	shareSvc     *ShareService
	analyticsSvc *AnalyticsService
	prefsSvc     *PreferencesService
}

const (
	alice = "user-alice"
	bob   = "user-bob"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		notes:  newFakeNoteRepo(),
		users:  newFakeUserRepo(),
		prefs:  newFakePrefsRepo(),
		events: &recordingPublisher{},
	}
	f.analytics = newFakeAnalyticsRepo(f.notes)
	logger := quietLogger()

	f.noteSvc = NewNoteService(f.notes, f.analytics, auth.NewPasswordService(bcrypt.MinCost), f.events, logger)
	f.shareSvc = NewShareService(f.notes, f.analytics, f.users, f.events, logger)
	f.analyticsSvc = NewAnalyticsService(f.notes, f.analytics, logger)
	f.prefsSvc = NewPreferencesService(f.prefs, logger)

	// A fixed, advancing clock keeps timestamps distinct and predictable.
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Minute)
		return clock
	}
	f.noteSvc.now = now
	f.shareSvc.now = now
	return f
}

// createNote creates a note for owner through the service.
func (f *fixture) createNote(t *testing.T, owner, title string) *model.Note {
	t.Helper()
	note, err := f.noteSvc.Create(context.Background(), owner, NoteInput{
		Title:   title,
		Content: "<p>" + title + " body</p>",
		Tags:    []string{"work"},
	})
	if err != nil {
		t.Fatalf("Create(%q) error = %v", title, err)
	}
	return note
}
