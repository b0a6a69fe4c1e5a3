// Package store persists boardbot's state in a local SQLite database.
//
// All writes are single-row inserts or upserts; the uniqueness of
// (chat_id, posting_id) on responses is enforced by the schema, so
// concurrent writers cannot duplicate a response.
package store

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"boardbot/pkg/logx"
)

//go:embed schema.sql
var schemaFS embed.FS

type Config struct {
	Path        string
	BusyTimeout time.Duration
}

type Store struct {
	db  *sqlx.DB
	log logx.Logger
}

// Open opens (or creates) the database at cfg.Path, applies pragmas and
// runs the embedded schema.
func Open(cfg Config, log logx.Logger) (*Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("store: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	// _time_format=sqlite stores time.Time as sortable SQLite datetime
	// text, so deadline comparisons can happen in SQL.
	db, err := sqlx.Open("sqlite", path+"?_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds())); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: busy_timeout pragma: %w", err)
		}
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	b, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("store: read schema: %w", err)
	}
	if _, err := s.db.Exec(string(b)); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
