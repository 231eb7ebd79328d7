// Package shortener implements a SQLite-backed URL shortener with link
// expiry and per-link visit analytics.
package shortener

import (
	"context"
	"database/sql"
	"math/rand/v2"
	"time"

	pkgerrors "github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	codeLength       = 6
	codeAlphabet     = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxCodeAttempts  = 10
	defaultExpiryDay = 30
)

// ErrNotFound reports an unknown short code.
var ErrNotFound = pkgerrors.New("shortener: code not found")

// Entry is one shortened URL with its analytics.
type Entry struct {
	Code          string     `json:"shortCode"`
	OriginalURL   string     `json:"originalUrl"`
	CreatedAt     time.Time  `json:"createdAt"`
	ExpiryDate    time.Time  `json:"expiryDate"`
	VisitCount    int64      `json:"visitCount"`
	LastVisitedAt *time.Time `json:"lastVisitedAt,omitempty"`
}

// Expired reports whether the entry's expiry has passed at the given time.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiryDate)
}

// Store owns the shortener database.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenStore creates (or reuses) the shortener database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "shortener: open sqlite database failed")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=10000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, pkgerrors.Wrapf(err, "shortener: execute %s failed", pragma)
		}
	}
	schema := `CREATE TABLE IF NOT EXISTS urls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		original_url TEXT NOT NULL,
		short_code TEXT NOT NULL UNIQUE,
		created_at INTEGER NOT NULL,
		expiry_date INTEGER NOT NULL,
		visit_count INTEGER NOT NULL DEFAULT 0,
		last_visited_at INTEGER
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pkgerrors.Wrap(err, "shortener: init schema failed")
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Create shortens originalURL with the given expiry window in days (<= 0
// falls back to 30). Code collisions are retried with fresh random codes.
func (s *Store) Create(ctx context.Context, originalURL string, expiryDays int) (Entry, error) {
	if s == nil || s.db == nil {
		return Entry{}, pkgerrors.New("shortener: store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if expiryDays <= 0 {
		expiryDays = defaultExpiryDay
	}
	now := s.now().UTC()
	expiry := now.AddDate(0, 0, expiryDays)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := randomCode()
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO urls (original_url, short_code, created_at, expiry_date) VALUES (?, ?, ?, ?)`,
			originalURL, code, now.UnixMilli(), expiry.UnixMilli())
		if err != nil {
			return Entry{}, pkgerrors.Wrap(err, "shortener: insert url failed")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return Entry{}, pkgerrors.Wrap(err, "shortener: rows affected failed")
		}
		if n == 1 {
			return Entry{
				Code:        code,
				OriginalURL: originalURL,
				CreatedAt:   now,
				ExpiryDate:  expiry,
			}, nil
		}
		// Collision with an existing code: retry with a fresh one.
	}
	return Entry{}, pkgerrors.Errorf("shortener: no free code after %d attempts", maxCodeAttempts)
}

// Get returns the entry for code, or ErrNotFound.
func (s *Store) Get(ctx context.Context, code string) (Entry, error) {
	if s == nil || s.db == nil {
		return Entry{}, pkgerrors.New("shortener: store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var (
		entry       Entry
		createdAt   int64
		expiryDate  int64
		lastVisited sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT short_code, original_url, created_at, expiry_date, visit_count, last_visited_at
		 FROM urls WHERE short_code = ?`, code).
		Scan(&entry.Code, &entry.OriginalURL, &createdAt, &expiryDate, &entry.VisitCount, &lastVisited)
	if pkgerrors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, pkgerrors.Wrap(err, "shortener: query url failed")
	}
	entry.CreatedAt = time.UnixMilli(createdAt).UTC()
	entry.ExpiryDate = time.UnixMilli(expiryDate).UTC()
	if lastVisited.Valid {
		t := time.UnixMilli(lastVisited.Int64).UTC()
		entry.LastVisitedAt = &t
	}
	return entry, nil
}

// RecordVisit bumps the visit count and stamps the visit time for code.
func (s *Store) RecordVisit(ctx context.Context, code string) error {
	if s == nil || s.db == nil {
		return pkgerrors.New("shortener: store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE urls SET visit_count = visit_count + 1, last_visited_at = ? WHERE short_code = ?`,
		s.now().UTC().UnixMilli(), code)
	if err != nil {
		return pkgerrors.Wrap(err, "shortener: record visit failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.Wrap(err, "shortener: rows affected failed")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func randomCode() string {
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(buf)
}
