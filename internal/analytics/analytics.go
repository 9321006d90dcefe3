// Package analytics turns raw share analytics into the numbers shown to a
// note's owner. Everything here is a pure function of its input: no storage,
// no clock, no logging.
package analytics

import (
	"sort"

	"github.com/sakif/notebook/internal/model"
)

// RecentLimit caps the "recently viewed" list of a summary.
const RecentLimit = 10

// dayLayout is the bucket key of ViewsByDay: a calendar day in UTC.
const dayLayout = "2006-01-02"

// UniqueReferrers returns the distinct non-empty referrers in the order they
// were first seen.
func UniqueReferrers(views []model.ViewEvent) []string {
	seen := make(map[string]struct{}, len(views))
	out := []string{}
	for _, v := range views {
		if v.Referrer == "" {
			continue
		}
		if _, ok := seen[v.Referrer]; ok {
			continue
		}
		seen[v.Referrer] = struct{}{}
		out = append(out, v.Referrer)
	}
	return out
}

// ViewsByDay counts views per UTC calendar day, oldest day first.
func ViewsByDay(views []model.ViewEvent) []model.DayCount {
	counts := make(map[string]int)
	for _, v := range views {
		counts[v.ViewedAt.UTC().Format(dayLayout)]++
	}

	out := make([]model.DayCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, model.DayCount{Date: day, Count: n})
	}
	// YYYY-MM-DD sorts chronologically as a string.
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// NoteReport builds the owner-facing report of one note. A nil record yields
// a zero report for noteID.
func NoteReport(noteID string, record *model.ShareAnalytics) model.NoteAnalytics {
	if record == nil {
		return model.NoteAnalytics{
			NoteID:          noteID,
			Views:           []model.ViewEvent{},
			UniqueReferrers: []string{},
			ViewsByDay:      []model.DayCount{},
		}
	}
	views := record.Views
	if views == nil {
		views = []model.ViewEvent{}
	}
	return model.NoteAnalytics{
		NoteID:          record.NoteID,
		ViewCount:       record.ViewCount,
		LastViewedAt:    record.LastViewedAt,
		Views:           views,
		UniqueReferrers: UniqueReferrers(views),
		ViewsByDay:      ViewsByDay(views),
	}
}

// Summarize aggregates every analytics record of one owner.
//
// The most viewed note is the one with the highest count above zero; ties go
// to the smallest note ID so the answer does not depend on record order.
// RecentViews holds up to RecentLimit records that have been viewed at least
// once, most recent first (ties by note ID).
func Summarize(records []model.ShareAnalytics) model.AnalyticsSummary {
	summary := model.AnalyticsSummary{
		TotalSharedNotes: len(records),
		RecentViews:      []model.RecentView{},
	}

	for _, r := range records {
		summary.TotalViews += r.ViewCount

		if r.ViewCount > summary.MostViewedCount ||
			(r.ViewCount > 0 && r.ViewCount == summary.MostViewedCount && r.NoteID < summary.MostViewedNoteID) {
			summary.MostViewedNoteID = r.NoteID
			summary.MostViewedCount = r.ViewCount
		}

		if r.LastViewedAt != nil {
			summary.RecentViews = append(summary.RecentViews, model.RecentView{
				NoteID:       r.NoteID,
				ViewCount:    r.ViewCount,
				LastViewedAt: *r.LastViewedAt,
			})
		}
	}

	sort.Slice(summary.RecentViews, func(i, j int) bool {
		a, b := summary.RecentViews[i], summary.RecentViews[j]
		if !a.LastViewedAt.Equal(b.LastViewedAt) {
			return a.LastViewedAt.After(b.LastViewedAt)
		}
		return a.NoteID < b.NoteID
	})
	if len(summary.RecentViews) > RecentLimit {
		summary.RecentViews = summary.RecentViews[:RecentLimit]
	}

	return summary
}
