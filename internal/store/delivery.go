package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AppendDelivery logs one successful reminder delivery. Entries are never
// updated; they disappear only when their posting is deleted.
func (s *Store) AppendDelivery(ctx context.Context, e DeliveryEntry) error {
	if e.SentAt.IsZero() {
		e.SentAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO delivery_log (chat_id, posting_id, sent_at) VALUES (?,?,?)`,
		e.ChatID, e.PostingID, e.SentAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append delivery (%d,%s): %w", e.ChatID, e.PostingID, err)
	}
	return nil
}

// LastDelivery returns when the pair was last reminded, if ever.
func (s *Store) LastDelivery(ctx context.Context, chatID int64, postingID string) (time.Time, bool, error) {
	var at time.Time
	err := s.db.GetContext(ctx, &at,
		`SELECT sent_at FROM delivery_log WHERE chat_id = ? AND posting_id = ?
		 ORDER BY sent_at DESC LIMIT 1`,
		chatID, postingID)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("last delivery (%d,%s): %w", chatID, postingID, err)
	}
	return at, true, nil
}

// CountDeliveries reports how many delivery log rows exist for a posting.
func (s *Store) CountDeliveries(ctx context.Context, postingID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM delivery_log WHERE posting_id = ?`, postingID)
	if err != nil {
		return 0, fmt.Errorf("count deliveries for %s: %w", postingID, err)
	}
	return n, nil
}
