package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/notebook/internal/apperror"
	"github.com/sakif/notebook/internal/model"
	"github.com/sakif/notebook/internal/repository"
)

var _ repository.AnalyticsRepository = (*AnalyticsDB)(nil)

// AnalyticsDB stores share analytics: one header row per shared note in
// share_analytics plus an append-only log in view_events.
type AnalyticsDB struct {
	conn *sql.DB
}

// Ensure creates an empty analytics record for the note if none exists.
// ON CONFLICT DO NOTHING makes it idempotent.
func (db *AnalyticsDB) Ensure(ctx context.Context, noteID, ownerID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO share_analytics (note_id, owner_id, view_count)
		 VALUES (?, ?, 0)
		 ON CONFLICT(note_id) DO NOTHING`,
		noteID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: ensuring analytics for note %s: %w", noteID, err)
	}
	return nil
}

// RecordView counts one visit to a shared note.
//
// ATOMICITY:
// The availability check, the counter bump and the event insert share one
// transaction. Combined with the single-connection pool, concurrent calls
// are applied one after another and none of them can read a stale count:
// view_count is incremented in SQL (view_count + 1), never read-modify-written
// in Go.
func (db *AnalyticsDB) RecordView(ctx context.Context, noteID string, view model.ViewEvent) (*model.ShareAnalytics, error) {
	if view.ViewedAt.IsZero() {
		view.ViewedAt = time.Now()
	}
	viewedAt := view.ViewedAt.UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning tx: %w", err)
	}
	defer tx.Rollback()

	var (
		ownerID          string
		shared, archived bool
	)
	err = tx.QueryRowContext(ctx,
		`SELECT owner_id, shared, archived FROM notes WHERE id = ?`, noteID,
	).Scan(&ownerID, &shared, &archived)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NoteUnavailable()
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking note %s: %w", noteID, err)
	}
	if !shared || archived {
		return nil, apperror.NoteUnavailable()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO share_analytics (note_id, owner_id, view_count, last_viewed_at)
		 VALUES (?, ?, 1, ?)
		 ON CONFLICT(note_id) DO UPDATE SET
		     view_count = view_count + 1,
		     last_viewed_at = excluded.last_viewed_at`,
		noteID, ownerID, viewedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: counting view of note %s: %w", noteID, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO view_events (note_id, viewed_at, user_agent, referrer)
		 VALUES (?, ?, ?, ?)`,
		noteID, viewedAt, view.UserAgent, view.Referrer,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: logging view of note %s: %w", noteID, err)
	}

	record, err := scanHeader(tx.QueryRowContext(ctx,
		`SELECT note_id, owner_id, view_count, last_viewed_at
		 FROM share_analytics WHERE note_id = ?`, noteID))
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading analytics of note %s: %w", noteID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing view of note %s: %w", noteID, err)
	}
	return record, nil
}

// GetByNote returns the record with its full view log, oldest view first.
func (db *AnalyticsDB) GetByNote(ctx context.Context, noteID string) (*model.ShareAnalytics, error) {
	record, err := scanHeader(db.conn.QueryRowContext(ctx,
		`SELECT note_id, owner_id, view_count, last_viewed_at
		 FROM share_analytics WHERE note_id = ?`, noteID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("analytics", noteID)
		}
		return nil, fmt.Errorf("sqlite: getting analytics of note %s: %w", noteID, err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT viewed_at, user_agent, referrer
		 FROM view_events WHERE note_id = ?
		 ORDER BY viewed_at, id`, noteID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing views of note %s: %w", noteID, err)
	}
	defer rows.Close()

	record.Views = []model.ViewEvent{}
	for rows.Next() {
		var v model.ViewEvent
		if err := rows.Scan(&v.ViewedAt, &v.UserAgent, &v.Referrer); err != nil {
			return nil, fmt.Errorf("sqlite: scanning view: %w", err)
		}
		v.ViewedAt = v.ViewedAt.UTC()
		record.Views = append(record.Views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating views: %w", err)
	}
	return record, nil
}

// ListByOwner returns every record header of an owner, without view logs.
func (db *AnalyticsDB) ListByOwner(ctx context.Context, ownerID string) ([]model.ShareAnalytics, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT note_id, owner_id, view_count, last_viewed_at
		 FROM share_analytics WHERE owner_id = ?
		 ORDER BY note_id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing analytics of %s: %w", ownerID, err)
	}
	defer rows.Close()

	records := []model.ShareAnalytics{}
	for rows.Next() {
		r, err := scanHeader(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning analytics row: %w", err)
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating analytics: %w", err)
	}
	return records, nil
}

// DeleteByNote removes the record and, by cascade, its view events.
// Deleting a record that does not exist is not an error.
func (db *AnalyticsDB) DeleteByNote(ctx context.Context, noteID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM share_analytics WHERE note_id = ?`, noteID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting analytics of note %s: %w", noteID, err)
	}
	return nil
}

func scanHeader(s rowScanner) (*model.ShareAnalytics, error) {
	var (
		r    model.ShareAnalytics
		last sql.NullTime
	)
	if err := s.Scan(&r.NoteID, &r.OwnerID, &r.ViewCount, &last); err != nil {
		return nil, err
	}
	r.LastViewedAt = timePtr(last)
	return &r, nil
}
