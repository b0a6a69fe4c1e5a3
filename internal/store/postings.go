package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreatePosting inserts a new posting. The caller owns ID generation.
func (s *Store) CreatePosting(ctx context.Context, p Posting) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO postings (id, title, org, link, kind, location, source, posted_by, deadline, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Title, p.Org, p.Link, p.Kind, p.Location, p.Source, p.PostedBy,
		p.Deadline.UTC(), p.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create posting %s: %w", p.ID, err)
	}
	return nil
}

// ListActivePostings returns postings whose deadline is still in the future,
// soonest deadline first.
func (s *Store) ListActivePostings(ctx context.Context, now time.Time) ([]Posting, error) {
	var out []Posting
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM postings WHERE deadline > ? ORDER BY deadline ASC`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("list active postings: %w", err)
	}
	return out, nil
}

// ListExpiredPostings returns postings whose deadline has passed.
func (s *Store) ListExpiredPostings(ctx context.Context, now time.Time) ([]Posting, error) {
	var out []Posting
	err := s.db.SelectContext(ctx, &out,
		`SELECT * FROM postings WHERE deadline <= ? ORDER BY deadline ASC`, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("list expired postings: %w", err)
	}
	return out, nil
}

func (s *Store) GetPosting(ctx context.Context, id string) (*Posting, error) {
	var p Posting
	err := s.db.GetContext(ctx, &p, `SELECT * FROM postings WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get posting %s: %w", id, err)
	}
	return &p, nil
}

// DeletePosting removes a posting; responses and delivery log rows cascade
// via foreign keys. Events are kept.
func (s *Store) DeletePosting(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM postings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete posting %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountActivePostings is used by analytics as a fallback when the event
// journal is sparse.
func (s *Store) CountActivePostings(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM postings WHERE deadline > ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("count active postings: %w", err)
	}
	return n, nil
}

// CountPostingsSince counts postings created at or after the given instant.
func (s *Store) CountPostingsSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM postings WHERE created_at >= ?`, since.UTC())
	if err != nil {
		return 0, fmt.Errorf("count postings since: %w", err)
	}
	return n, nil
}
