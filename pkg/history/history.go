// Package history persists task lifecycle events to a local SQLite database
// so a scheduling run can be audited after the fact.
package history

import (
	"context"
	"database/sql"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const transitionsTable = "task_transitions"

// Transition is one recorded status change.
type Transition struct {
	TaskID    int64
	TaskName  string
	OldStatus string
	NewStatus string
	At        time.Time
}

// Store owns the SQLite handle and prepared statements.
type Store struct {
	db     *sql.DB
	insert *sql.Stmt
	path   string
}

// Open creates (or reuses) the database at path and prepares the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "history: open sqlite database failed")
	}
	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := prepareSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	insert, err := db.Prepare(`INSERT INTO ` + transitionsTable +
		` (task_id, task_name, old_status, new_status, at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, pkgerrors.Wrap(err, "history: prepare insert failed")
	}
	return &Store{db: db, insert: insert, path: path}, nil
}

// RecordTransition appends one status change for a task.
func (s *Store) RecordTransition(ctx context.Context, tr Transition) error {
	if s == nil || s.insert == nil {
		return pkgerrors.New("history: store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := s.insert.ExecContext(ctx,
		tr.TaskID, tr.TaskName, tr.OldStatus, tr.NewStatus, tr.At.UnixMilli())
	if err != nil {
		return pkgerrors.Wrap(err, "history: insert transition failed")
	}
	return nil
}

// Transitions returns the recorded status changes for one task, oldest first.
func (s *Store) Transitions(ctx context.Context, taskID int64) ([]Transition, error) {
	if s == nil || s.db == nil {
		return nil, pkgerrors.New("history: store not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	query := `SELECT task_id, task_name, old_status, new_status, at FROM ` +
		transitionsTable + ` WHERE task_id = ? ORDER BY id ASC`
	log.Debug().Str("query", formatSQLForLog(query, taskID)).Msg("history: load transitions")
	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "history: query transitions failed")
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var (
			tr Transition
			at int64
		)
		if err := rows.Scan(&tr.TaskID, &tr.TaskName, &tr.OldStatus, &tr.NewStatus, &at); err != nil {
			return nil, pkgerrors.Wrap(err, "history: scan transition failed")
		}
		tr.At = time.UnixMilli(at)
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "history: iterate transitions failed")
	}
	return out, nil
}

// Close releases the prepared statement and database handle.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	if s.insert != nil {
		s.insert.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=10000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return pkgerrors.Wrapf(err, "history: execute %s failed", pragma)
		}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return nil
}

func prepareSchema(db *sql.DB) error {
	createTable := `CREATE TABLE IF NOT EXISTS ` + transitionsTable + ` (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id INTEGER NOT NULL,
		task_name TEXT NOT NULL,
		old_status TEXT NOT NULL,
		new_status TEXT NOT NULL,
		at INTEGER NOT NULL
	);`
	if _, err := db.Exec(createTable); err != nil {
		return pkgerrors.Wrap(err, "history: init schema failed")
	}
	index := `CREATE INDEX IF NOT EXISTS idx_` + transitionsTable + `_task ON ` +
		transitionsTable + `(task_id);`
	if _, err := db.Exec(index); err != nil {
		return pkgerrors.Wrap(err, "history: init index failed")
	}
	return nil
}
