package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` fails to compile if *Y stops implementing X, so a
// missing method is caught here instead of at the call site in main.go.
var _ repository.NoteRepository = (*NoteDB)(nil)

// NoteDB stores notes and keeps the notes_fts index in step with them.
//
// Every write touches two tables (notes + notes_fts), so each one runs inside
// a transaction: either both rows change or neither does.
type NoteDB struct {
	conn *sql.DB
}

const noteColumns = `id, owner_id, title, content, tags, archived, locked,
	password_hash, locked_at, shared, shared_at, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows, so one scan
// function serves GetByID and the list queries.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(s rowScanner) (*model.Note, error) {
	var (
		n        model.Note
		tagsJSON string
		hash     sql.NullString
		lockedAt sql.NullTime
		sharedAt sql.NullTime
	)
	if err := s.Scan(
		&n.ID, &n.OwnerID, &n.Title, &n.Content, &tagsJSON,
		&n.Archived, &n.Locked, &hash, &lockedAt,
		&n.Shared, &sharedAt, &n.CreatedAt, &n.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tagsJSON), &n.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of note %s: %w", n.ID, err)
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	n.PasswordHash = hash.String
	n.LockedAt = timePtr(lockedAt)
	n.SharedAt = timePtr(sharedAt)
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return &n, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}
	return string(b), nil
}

// nullString stores "" as NULL. The notes table requires password_hash to be
// NULL exactly when the note is unlocked.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Create inserts a new note. The ID is generated here (xid: 20 chars,
// URL-safe, time-sortable) unless the caller already set one; timestamps
// default to now when zero.
func (db *NoteDB) Create(ctx context.Context, note *model.Note) error {
	if note.ID == "" {
		note.ID = xid.New().String()
	}
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	if note.UpdatedAt.IsZero() {
		note.UpdatedAt = note.CreatedAt
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}

	tags, err := encodeTags(note.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: creating note: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning tx: %w", err)
	}
	// Rollback after a successful Commit is a no-op, so deferring it is the
	// usual way to make every early return undo the transaction.
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO notes (`+noteColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.ID, note.OwnerID, note.Title, note.Content, tags,
		note.Archived, note.Locked, nullString(note.PasswordHash), nullTime(note.LockedAt),
		note.Shared, nullTime(note.SharedAt), note.CreatedAt.UTC(), note.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating note: %w", err)
	}

	if err := indexNote(ctx, tx, note); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing note %s: %w", note.ID, err)
	}
	return nil
}

func (db *NoteDB) GetByID(ctx context.Context, id string) (*model.Note, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	note, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("note", id)
		}
		return nil, fmt.Errorf("sqlite: getting note %s: %w", id, err)
	}
	return note, nil
}

// List returns an owner's notes, most recently updated first.
//
// The WHERE clause is assembled from the filter, but every value still goes
// through a ? placeholder. Only fixed SQL fragments are concatenated.
func (db *NoteDB) List(ctx context.Context, filter repository.NoteFilter) ([]model.Note, error) {
	where := []string{"owner_id = ?"}
	args := []any{filter.OwnerID}

	if filter.Archived != nil {
		where = append(where, "archived = ?")
		args = append(args, *filter.Archived)
	}
	if tag := strings.TrimSpace(filter.Tag); tag != "" {
		where = append(where,
			`EXISTS (SELECT 1 FROM json_each(notes.tags) t WHERE lower(t.value) LIKE ? ESCAPE '\')`)
		args = append(args, likePattern(tag))
	}

	query := `SELECT ` + noteColumns + ` FROM notes
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY updated_at DESC, id DESC`

	return db.queryNotes(ctx, query, args...)
}

// Search matches the term against the full-text index (prefix match on title,
// body and tags) and, as a fallback for partial words inside a token, against
// title and tags by substring. Archived notes are excluded.
// A blank term lists all of the owner's notes.
func (db *NoteDB) Search(ctx context.Context, ownerID, term string, limit int) ([]model.Note, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return db.List(ctx, repository.NoteFilter{OwnerID: ownerID})
	}
	if limit <= 0 {
		limit = 100
	}

	pattern := likePattern(term)
	match := []string{
		`lower(n.title) LIKE ? ESCAPE '\'`,
		`EXISTS (SELECT 1 FROM json_each(n.tags) t WHERE lower(t.value) LIKE ? ESCAPE '\')`,
	}
	args := []any{ownerID, pattern, pattern}

	if q := ftsQuery(term); q != "" {
		match = append(match, `n.id IN (SELECT note_id FROM notes_fts WHERE notes_fts MATCH ?)`)
		args = append(args, q)
	}
	args = append(args, limit)

	query := `SELECT ` + prefixed("n", noteColumns) + ` FROM notes n
		WHERE n.owner_id = ? AND n.archived = 0
		  AND (` + strings.Join(match, " OR ") + `)
		ORDER BY n.updated_at DESC, n.id DESC
		LIMIT ?`

	return db.queryNotes(ctx, query, args...)
}

// ListTags returns the distinct tags used across an owner's notes, sorted.
// json_each expands the JSON array column into one row per tag.
func (db *NoteDB) ListTags(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT t.value
		 FROM notes n, json_each(n.tags) t
		 WHERE n.owner_id = ?
		 ORDER BY t.value`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing tags: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("sqlite: scanning tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating tags: %w", err)
	}
	return tags, nil
}

// Update writes every mutable column of the note and re-indexes it.
// The caller owns updatedAt: lock and share changes keep it, content edits
// bump it.
func (db *NoteDB) Update(ctx context.Context, note *model.Note) error {
	tags, err := encodeTags(note.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: updating note %s: %w", note.ID, err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE notes
		 SET title = ?, content = ?, tags = ?, archived = ?, locked = ?,
		     password_hash = ?, locked_at = ?, shared = ?, shared_at = ?, updated_at = ?
		 WHERE id = ?`,
		note.Title, note.Content, tags, note.Archived, note.Locked,
		nullString(note.PasswordHash), nullTime(note.LockedAt),
		note.Shared, nullTime(note.SharedAt), note.UpdatedAt.UTC(),
		note.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating note %s: %w", note.ID, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("note", note.ID)
	}

	if err := indexNote(ctx, tx, note); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing note %s: %w", note.ID, err)
	}
	return nil
}

// Delete removes a note, its index row and (through ON DELETE CASCADE) its
// share analytics and view events.
func (db *NoteDB) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting note %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("note", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM notes_fts WHERE note_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: unindexing note %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete of note %s: %w", id, err)
	}
	return nil
}

// Reindex rebuilds notes_fts from the notes table and returns how many notes
// were indexed. Used by `notesctl reindex` after a schema or tokenizer change.
func (db *NoteDB) Reindex(ctx context.Context) (int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: beginning tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notes_fts`); err != nil {
		return 0, fmt.Errorf("sqlite: clearing search index: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT `+noteColumns+` FROM notes`)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading notes for reindex: %w", err)
	}
	var notes []*model.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			rows.Close()
			return 0, fmt.Errorf("sqlite: scanning note: %w", err)
		}
		notes = append(notes, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("sqlite: iterating notes: %w", err)
	}

	for _, n := range notes {
		if err := insertIndexRow(ctx, tx, n); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: committing reindex: %w", err)
	}
	return len(notes), nil
}

func (db *NoteDB) queryNotes(ctx context.Context, query string, args ...any) ([]model.Note, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying notes: %w", err)
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning note row: %w", err)
		}
		notes = append(notes, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating notes: %w", err)
	}
	return notes, nil
}

// indexNote replaces the note's notes_fts row. FTS5 tables have no unique
// constraint on note_id, so it is delete-then-insert.
func indexNote(ctx context.Context, tx *sql.Tx, note *model.Note) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM notes_fts WHERE note_id = ?`, note.ID); err != nil {
		return fmt.Errorf("sqlite: unindexing note %s: %w", note.ID, err)
	}
	return insertIndexRow(ctx, tx, note)
}

func insertIndexRow(ctx context.Context, tx *sql.Tx, note *model.Note) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO notes_fts (note_id, title, body, tags) VALUES (?, ?, ?, ?)`,
		note.ID, note.Title, indexBody(note), strings.Join(note.Tags, " "),
	)
	if err != nil {
		return fmt.Errorf("sqlite: indexing note %s: %w", note.ID, err)
	}
	return nil
}

// prefixed qualifies a comma-separated column list with a table alias.
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
