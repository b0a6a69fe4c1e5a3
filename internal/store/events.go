package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AppendEvent writes one audit record. The journal is append-only; every
// call produces a new row even for repeated identical actions, so duplicate
// button clicks stay visible in the audit trail.
func (s *Store) AppendEvent(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, event_type, chat_id, account, posting_id, action, metadata, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		e.ID, e.Type, e.ChatID, e.Account, e.PostingID, e.Action, e.Metadata, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append event %s: %w", e.Type, err)
	}
	return nil
}

// HasEvent reports whether at least one event of the given type exists for
// the (chat, posting) pair. The mere existence gates one-shot follow-ups.
func (s *Store) HasEvent(ctx context.Context, eventType string, chatID int64, postingID string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM events WHERE event_type = ? AND chat_id = ? AND posting_id = ?`,
		eventType, chatID, postingID)
	if err != nil {
		return false, fmt.Errorf("has event %s (%d,%s): %w", eventType, chatID, postingID, err)
	}
	return n > 0, nil
}

// CountEventsByType aggregates the journal for analytics.
func (s *Store) CountEventsByType(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx,
		`SELECT event_type, COUNT(*) AS n FROM events GROUP BY event_type`)
	if err != nil {
		return nil, fmt.Errorf("count events by type: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("count events by type: %w", err)
		}
		out[typ] = n
	}
	return out, rows.Err()
}

// CountEventsForType counts events of one type, optionally per posting.
func (s *Store) CountEventsForType(ctx context.Context, eventType string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM events WHERE event_type = ?`, eventType)
	if err != nil {
		return 0, fmt.Errorf("count events %s: %w", eventType, err)
	}
	return n, nil
}

// AccountActivity is one row of the per-recipient activity projection.
type AccountActivity struct {
	Account string `db:"account"`
	Events  int    `db:"n"`
}

// EventCountsByAccount aggregates journal entries per account, busiest
// first. Entries without an account (system events) are excluded.
func (s *Store) EventCountsByAccount(ctx context.Context) ([]AccountActivity, error) {
	var out []AccountActivity
	err := s.db.SelectContext(ctx, &out,
		`SELECT account, COUNT(*) AS n FROM events
		 WHERE account != '' GROUP BY account ORDER BY n DESC, account ASC`)
	if err != nil {
		return nil, fmt.Errorf("event counts by account: %w", err)
	}
	return out, nil
}
