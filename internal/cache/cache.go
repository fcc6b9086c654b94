// Package cache stores rendered decks in SQLite, keyed by source hash, so
// unchanged decks skip the renderer on rebuild.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS renders (
	hash       TEXT PRIMARY KEY,
	html       TEXT NOT NULL,
	slides     INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_renders_created ON renders(created_at);
`

// Sentinel errors for cache operations.
var (
	ErrEmptyHash = errors.New("cache: empty hash")
	ErrOpen      = errors.New("cache: cannot open database")
)

// Entry is one cached render.
type Entry struct {
	Hash      string
	HTML      string
	Slides    int
	CreatedAt time.Time
}

// Store wraps a sql.DB holding the renders table. Safe for concurrent use.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) the SQLite database at dsn and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrOpen, err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: apply schema: %w", ErrOpen, err)
	}
	return &Store{conn: conn, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Get returns the entry for hash. ok is false on a miss.
func (s *Store) Get(ctx context.Context, hash string) (Entry, bool, error) {
	e := Entry{Hash: hash}
	err := s.conn.QueryRowContext(ctx,
		`SELECT html, slides, created_at FROM renders WHERE hash = ?`, hash,
	).Scan(&e.HTML, &e.Slides, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: get %s: %w", hash, err)
	}
	return e, true, nil
}

// Put inserts or replaces e. Callers only store successful renders.
func (s *Store) Put(ctx context.Context, e Entry) error {
	if e.Hash == "" {
		return ErrEmptyHash
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO renders (hash, html, slides, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			html = excluded.html,
			slides = excluded.slides,
			created_at = excluded.created_at
	`, e.Hash, e.HTML, e.Slides, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", e.Hash, err)
	}
	return nil
}

// Purge deletes entries older than maxAge and returns how many were removed.
// Zero or negative maxAge removes everything.
func (s *Store) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if maxAge <= 0 {
		res, err = s.conn.ExecContext(ctx, `DELETE FROM renders`)
	} else {
		res, err = s.conn.ExecContext(ctx, `DELETE FROM renders WHERE created_at < ?`, s.now().Add(-maxAge).UTC())
	}
	if err != nil {
		return 0, fmt.Errorf("cache: purge: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of cached renders.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT count(*) FROM renders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache: count: %w", err)
	}
	return n, nil
}
