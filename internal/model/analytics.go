package model

import "time"

// ViewEvent is one recorded visit to a shared note. Events are append-only.
type ViewEvent struct {
	ViewedAt  time.Time `json:"viewedAt"`
	UserAgent string    `json:"userAgent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
}

// ShareAnalytics is the per-note view log. There is at most one per note and
// ViewCount always equals len(Views) when the views are loaded.
//
// Views is nil when the record was fetched as a header only (for example when
// listing every record of an owner for the summary).
type ShareAnalytics struct {
	NoteID       string      `json:"noteId"`
	OwnerID      string      `json:"ownerId"`
	ViewCount    int         `json:"viewCount"`
	LastViewedAt *time.Time  `json:"lastViewedAt,omitempty"`
	Views        []ViewEvent `json:"views,omitempty"`
}

// DayCount is one bucket of the views-by-day breakdown.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD, UTC
	Count int    `json:"count"`
}

// NoteAnalytics is the owner-facing report for a single shared note.
type NoteAnalytics struct {
	NoteID          string      `json:"noteId"`
	ViewCount       int         `json:"viewCount"`
	LastViewedAt    *time.Time  `json:"lastViewedAt"`
	Views           []ViewEvent `json:"views"`
	UniqueReferrers []string    `json:"uniqueReferrers"`
	ViewsByDay      []DayCount  `json:"viewsByDay"`
}

// RecentView is one row of the "recently viewed" list in a summary.
type RecentView struct {
	NoteID       string    `json:"noteId"`
	ViewCount    int       `json:"viewCount"`
	LastViewedAt time.Time `json:"lastViewedAt"`
}

// AnalyticsSummary aggregates every analytics record of one owner.
// MostViewedNoteID is empty when no shared note has been viewed yet.
type AnalyticsSummary struct {
	TotalViews       int          `json:"totalViews"`
	TotalSharedNotes int          `json:"totalSharedNotes"`
	MostViewedNoteID string       `json:"mostViewedNoteId,omitempty"`
	MostViewedCount  int          `json:"mostViewedCount"`
	RecentViews      []RecentView `json:"recentViews"`
}
