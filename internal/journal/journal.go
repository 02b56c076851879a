// Package journal persists an append-only audit trail of state mutations in
// SQLite. It answers "who changed what, when" for a release after the fact;
// the state document itself only holds the latest snapshot.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one recorded state mutation.
type Entry struct {
	ID        string
	Release   string
	EventType string
	Task      string
	Status    string
	Detail    string
	At        time.Time
}

// Journal is a SQLite-backed audit log.
type Journal struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open creates or opens a journal database. Use ":memory:" for an in-memory
// journal, or a file path for persistent storage.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize journal schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		release TEXT NOT NULL,
		event_type TEXT NOT NULL,
		task TEXT,
		status TEXT,
		detail TEXT,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_release ON entries(release);
	CREATE INDEX IF NOT EXISTS idx_at ON entries(at);
	CREATE INDEX IF NOT EXISTS idx_event_type ON entries(event_type);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Append records one mutation.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO entries (id, release, event_type, task, status, detail, at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.Release, e.EventType, e.Task, e.Status, e.Detail, at.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// ByRelease retrieves all entries for a release, oldest first.
func (j *Journal) ByRelease(ctx context.Context, release string) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx,
		"SELECT id, release, event_type, task, status, detail, at FROM entries WHERE release = ? ORDER BY seq",
		release,
	)
	if err != nil {
		return nil, fmt.Errorf("query journal entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Range retrieves entries within a time window, oldest first.
func (j *Journal) Range(ctx context.Context, start, end time.Time) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx,
		"SELECT id, release, event_type, task, status, detail, at FROM entries WHERE at >= ? AND at <= ? ORDER BY seq",
		start.Unix(), end.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("query journal entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var atUnix int64
		if err := rows.Scan(&e.ID, &e.Release, &e.EventType, &e.Task, &e.Status, &e.Detail, &atUnix); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.At = time.Unix(atUnix, 0).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal rows: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.db.Close()
}

// MarshalEntry renders an entry as JSON, for export tooling.
func MarshalEntry(e Entry) ([]byte, error) {
	type wire struct {
		ID        string    `json:"id"`
		Release   string    `json:"release"`
		EventType string    `json:"eventType"`
		Task      string    `json:"task,omitempty"`
		Status    string    `json:"status,omitempty"`
		Detail    string    `json:"detail,omitempty"`
		At        time.Time `json:"at"`
	}
	return json.Marshal(wire(e))
}
