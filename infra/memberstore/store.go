// Package memberstore persists resolved member profiles in SQLite so author
// lookups survive restarts.
package memberstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/coralnet/reefhub/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS members (
	id           INTEGER PRIMARY KEY,
	name         TEXT NOT NULL,
	slug         TEXT NOT NULL DEFAULT '',
	avatar_thumb TEXT NOT NULL DEFAULT '',
	avatar_full  TEXT NOT NULL DEFAULT '',
	updated_at   INTEGER NOT NULL
);`

// DefaultMaxAge is how long a cached profile is trusted.
const DefaultMaxAge = 24 * time.Hour

// Store is a SQLite-backed member cache.
type Store struct {
	db     *sql.DB
	maxAge time.Duration
	now    func() time.Time
}

// Open opens (creating if needed) the cache database at path.
func Open(path string, maxAge time.Duration) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("member cache path is empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating member cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening member cache: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating member cache schema: %w", err)
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{db: db, maxAge: maxAge, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns fresh cached profiles for ids. Missing or stale ids are absent.
func (s *Store) Get(ctx context.Context, ids []int64) (map[int64]domain.Member, error) {
	out := make(map[int64]domain.Member, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	for _, id := range ids {
		args = append(args, id)
	}
	args = append(args, s.now().Add(-s.maxAge).Unix())

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, avatar_thumb, avatar_full FROM members
		 WHERE id IN (`+placeholders+`) AND updated_at >= ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying member cache: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Slug, &m.AvatarThumb, &m.AvatarFull); err != nil {
			return nil, fmt.Errorf("scanning member cache: %w", err)
		}
		out[m.ID] = m
	}
	return out, rows.Err()
}

// Put upserts profiles.
func (s *Store) Put(ctx context.Context, members []domain.Member) error {
	if len(members) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting member cache write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO members (id, name, slug, avatar_thumb, avatar_full, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			slug = excluded.slug,
			avatar_thumb = excluded.avatar_thumb,
			avatar_full = excluded.avatar_full,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("preparing member cache write: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := s.now().Unix()
	for _, m := range members {
		if m.ID <= 0 {
			continue
		}
		if _, err := stmt.ExecContext(ctx, m.ID, m.Name, m.Slug, m.AvatarThumb, m.AvatarFull, now); err != nil {
			return fmt.Errorf("writing member %d: %w", m.ID, err)
		}
	}
	return tx.Commit()
}
