package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertResponse records a recipient's current response to a posting.
// A later response for the same (chat_id, posting_id) overwrites the
// earlier one; the write is a single atomic statement.
func (s *Store) UpsertResponse(ctx context.Context, r Response) error {
	if r.RespondedAt.IsZero() {
		r.RespondedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO responses (chat_id, posting_id, action, responded_at)
		 VALUES (?,?,?,?)
		 ON CONFLICT(chat_id, posting_id) DO UPDATE SET
		   action = excluded.action,
		   responded_at = excluded.responded_at`,
		r.ChatID, r.PostingID, string(r.Action), r.RespondedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert response (%d,%s): %w", r.ChatID, r.PostingID, err)
	}
	return nil
}

func (s *Store) GetResponse(ctx context.Context, chatID int64, postingID string) (*Response, error) {
	var r Response
	err := s.db.GetContext(ctx, &r,
		`SELECT * FROM responses WHERE chat_id = ? AND posting_id = ?`, chatID, postingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get response (%d,%s): %w", chatID, postingID, err)
	}
	return &r, nil
}

// ListResponsesForPosting returns every current response for one posting.
func (s *Store) ListResponsesForPosting(ctx context.Context, postingID string) ([]Response, error) {
	var out []Response
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM responses WHERE posting_id = ?`, postingID)
	if err != nil {
		return nil, fmt.Errorf("list responses for %s: %w", postingID, err)
	}
	return out, nil
}

// ListResponsesByAction returns every current response with the given
// action, oldest first. Used by the delayed-reminder follow-up scan.
func (s *Store) ListResponsesByAction(ctx context.Context, action Action) ([]Response, error) {
	var out []Response
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM responses WHERE action = ? ORDER BY responded_at ASC`, string(action))
	if err != nil {
		return nil, fmt.Errorf("list responses by action %s: %w", action, err)
	}
	return out, nil
}
