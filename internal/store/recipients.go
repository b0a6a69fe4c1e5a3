package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UpsertRecipient creates or renames an account. The chat link is left
// untouched; use SetChat / ClearChat for link mutations.
func (s *Store) UpsertRecipient(ctx context.Context, email, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recipients (email, name) VALUES (?,?)
		 ON CONFLICT(email) DO UPDATE SET name = excluded.name`,
		email, name,
	)
	if err != nil {
		return fmt.Errorf("upsert recipient %s: %w", email, err)
	}
	return nil
}

// ListLinkedRecipients returns every account with a live chat link.
func (s *Store) ListLinkedRecipients(ctx context.Context) ([]Recipient, error) {
	var out []Recipient
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM recipients WHERE chat_id IS NOT NULL ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list linked recipients: %w", err)
	}
	return out, nil
}

func (s *Store) FindRecipientByEmail(ctx context.Context, email string) (*Recipient, error) {
	var r Recipient
	err := s.db.GetContext(ctx, &r, `SELECT * FROM recipients WHERE email = ?`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recipient %s: %w", email, err)
	}
	return &r, nil
}

func (s *Store) FindRecipientByChat(ctx context.Context, chatID int64) (*Recipient, error) {
	var r Recipient
	err := s.db.GetContext(ctx, &r, `SELECT * FROM recipients WHERE chat_id = ?`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recipient by chat %d: %w", chatID, err)
	}
	return &r, nil
}

// SetChat binds an account to a chat. The UNIQUE constraint on chat_id
// rejects binding one chat to two accounts at the store layer.
func (s *Store) SetChat(ctx context.Context, email string, chatID int64, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recipients SET chat_id = ?, linked_at = ? WHERE email = ?`,
		chatID, at.UTC(), email,
	)
	if err != nil {
		return fmt.Errorf("set chat for %s: %w", email, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearChat removes an account's chat link.
func (s *Store) ClearChat(ctx context.Context, email string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE recipients SET chat_id = NULL, linked_at = NULL WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("clear chat for %s: %w", email, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountLinkedRecipients returns the number of accounts with a live link.
func (s *Store) CountLinkedRecipients(ctx context.Context) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM recipients WHERE chat_id IS NOT NULL`)
	if err != nil {
		return 0, fmt.Errorf("count linked recipients: %w", err)
	}
	return n, nil
}
