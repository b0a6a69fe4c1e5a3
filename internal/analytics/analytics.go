// Package analytics computes read-only projections from the event journal
// and response log. These are derived views: nothing here mutates state,
// and every number can be recomputed from scratch at any time.
package analytics

import (
	"context"
	"fmt"
	"time"

	"boardbot/internal/store"
)

type Service struct {
	st *store.Store
}

func New(st *store.Store) *Service { return &Service{st: st} }

// EventCounts returns the journal aggregated by event type.
func (s *Service) EventCounts(ctx context.Context) (map[string]int, error) {
	return s.st.CountEventsByType(ctx)
}

// Breakdown is the per-posting response projection.
type Breakdown struct {
	PostingID     string
	Applied       int
	NotInterested int
	Remind        int
}

// PostingBreakdown counts current responses per action for one posting.
func (s *Service) PostingBreakdown(ctx context.Context, postingID string) (Breakdown, error) {
	responses, err := s.st.ListResponsesForPosting(ctx, postingID)
	if err != nil {
		return Breakdown{}, fmt.Errorf("posting breakdown: %w", err)
	}
	b := Breakdown{PostingID: postingID}
	for _, r := range responses {
		switch r.Action {
		case store.ActionApplied:
			b.Applied++
		case store.ActionNotInterested:
			b.NotInterested++
		case store.ActionRemind:
			b.Remind++
		}
	}
	return b, nil
}

// RecipientActivity ranks accounts by journal entries, busiest first.
func (s *Service) RecipientActivity(ctx context.Context) ([]store.AccountActivity, error) {
	return s.st.EventCountsByAccount(ctx)
}

// Overview is the admin dashboard projection.
type Overview struct {
	ActivePostings     int
	HistoricalPostings int
	LinkedRecipients   int
	PostingsToday      int
}

// Overview aggregates headline counts. HistoricalPostings is derived from
// posting_created events; when the journal predates event logging it falls
// back to the live active count, so treat it as best-effort rather than an
// exact total.
func (s *Service) Overview(ctx context.Context, now time.Time) (Overview, error) {
	var o Overview
	var err error

	if o.ActivePostings, err = s.st.CountActivePostings(ctx, now); err != nil {
		return o, fmt.Errorf("overview: %w", err)
	}
	if o.LinkedRecipients, err = s.st.CountLinkedRecipients(ctx); err != nil {
		return o, fmt.Errorf("overview: %w", err)
	}

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if o.PostingsToday, err = s.st.CountPostingsSince(ctx, dayStart); err != nil {
		return o, fmt.Errorf("overview: %w", err)
	}

	created, err := s.st.CountEventsForType(ctx, store.EventPostingCreated)
	if err != nil {
		return o, fmt.Errorf("overview: %w", err)
	}
	o.HistoricalPostings = created
	if created < o.ActivePostings {
		o.HistoricalPostings = o.ActivePostings
	}
	return o, nil
}
