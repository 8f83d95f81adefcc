// Package storage provides SQLite-backed persistence for tracker
// snapshots and the append-only proposal event log.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
	tracker_id        TEXT NOT NULL,
	number            INTEGER NOT NULL,
	last_status       TEXT NOT NULL,
	last_title        TEXT NOT NULL DEFAULT '',
	last_content_hash TEXT NOT NULL DEFAULT '',
	file_path         TEXT NOT NULL DEFAULT '',
	last_seen_at      INTEGER NOT NULL,
	PRIMARY KEY (tracker_id, number)
);

CREATE TABLE IF NOT EXISTS events (
	id              TEXT PRIMARY KEY,
	tracker_id      TEXT NOT NULL,
	tracker_type    TEXT NOT NULL,
	proposal_number INTEGER NOT NULL,
	title           TEXT NOT NULL DEFAULT '',
	kind            TEXT NOT NULL,
	previous_status TEXT NOT NULL DEFAULT '',
	current_status  TEXT NOT NULL DEFAULT '',
	file_path       TEXT NOT NULL DEFAULT '',
	detected_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_tracker ON events (tracker_id, detected_at);
`

// Store wraps the SQLite database holding snapshots and events.
// Trackers are independent, so writes are serialized per tracker id
// rather than globally.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open opens (creating if necessary) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows a single writer. Pinning the pool to one connection
	// keeps concurrent tracker commits queueing instead of surfacing
	// SQLITE_BUSY, and makes the pragmas below apply to every query.
	db.SetMaxOpenConns(1)

	// WAL keeps readers unblocked while a tracker commit is in flight.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=10000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// trackerLock returns the write lock for one tracker id.
func (s *Store) trackerLock(trackerID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[trackerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[trackerID] = l
	}
	return l
}
