// Package postcache periodically mirrors posts from an upstream HTTP API
// into a local SQLite cache and serves the most recent entries.
package postcache

import (
	"context"
	"database/sql"
	"time"

	pkgerrors "github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// Post is one upstream post.
type Post struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"userId"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	FetchedAt string `json:"fetched_at,omitempty"`
}

// Store is the SQLite-backed post cache.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore creates (or reuses) the cache database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "postcache: open sqlite database failed")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=10000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, pkgerrors.Wrapf(err, "postcache: execute %s failed", pragma)
		}
	}
	schema := `CREATE TABLE IF NOT EXISTS posts (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pkgerrors.Wrap(err, "postcache: init schema failed")
	}
	return &Store{db: db, path: path}, nil
}

// InsertNew stores posts not yet present, keyed by upstream id, and returns
// how many were actually inserted.
func (s *Store) InsertNew(ctx context.Context, posts []Post, fetchedAt time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, pkgerrors.New("postcache: store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	stamp := fetchedAt.UTC().Format(time.RFC3339)
	inserted := 0
	for _, post := range posts {
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO posts (id, user_id, title, body, fetched_at) VALUES (?, ?, ?, ?, ?)`,
			post.ID, post.UserID, post.Title, post.Body, stamp)
		if err != nil {
			return inserted, pkgerrors.Wrapf(err, "postcache: insert post %d failed", post.ID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, pkgerrors.Wrap(err, "postcache: rows affected failed")
		}
		inserted += int(n)
	}
	return inserted, nil
}

// Recent returns the most recently fetched posts, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Post, error) {
	if s == nil || s.db == nil {
		return nil, pkgerrors.New("postcache: store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, body, fetched_at FROM posts
		 ORDER BY fetched_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "postcache: query recent posts failed")
	}
	defer rows.Close()

	var out []Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Body, &p.FetchedAt); err != nil {
			return nil, pkgerrors.Wrap(err, "postcache: scan post failed")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "postcache: iterate posts failed")
	}
	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
