// Package journal keeps an append-only history of controller events in
// SQLite so they survive restarts and can be browsed from the status page.
package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sweeney/greenhouse/internal/logic"
	"github.com/sweeney/greenhouse/internal/telemetry"
)

// Kind separates controller events from process lifecycle events.
type Kind string

const (
	KindController Kind = "controller"
	KindSystem     Kind = "system"
)

// Entry is one journal row.
type Entry struct {
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Event     string          `json:"event"`
	Timestamp time.Time       `json:"timestamp"`
	Clock     string          `json:"clock,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// Journal is an append-only event store.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the journal at path. ":memory:" gives a
// private in-memory journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// One writer; also keeps ":memory:" on a single connection.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			event TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			clock TEXT,
			payload TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_events_ts ON events(timestamp);
		CREATE INDEX IF NOT EXISTS idx_events_event_ts ON events(event, timestamp);
	`)
	if err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}
	return nil
}

// Append stores one entry and returns its id.
func (j *Journal) Append(kind Kind, event string, ts time.Time, clock string, payload []byte) (string, error) {
	id := uuid.NewString()
	_, err := j.db.Exec(
		`INSERT INTO events (id, kind, event, timestamp, clock, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(kind), event, ts.UTC().UnixMilli(), clock, string(payload))
	if err != nil {
		return "", fmt.Errorf("append %s: %w", event, err)
	}
	return id, nil
}

// Publish records a controller event.
func (j *Journal) Publish(event logic.Event) error {
	payload, err := telemetry.FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	_, err = j.Append(KindController, string(event.Type), event.Timestamp, event.Clock.String(), payload)
	return err
}

// PublishSystem records a lifecycle event.
func (j *Journal) PublishSystem(event telemetry.SystemEvent) error {
	payload, err := telemetry.FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = j.now()
	}
	_, err = j.Append(KindSystem, event.Event, ts, "", payload)
	return err
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT id, kind, event, timestamp, clock, payload
		FROM events
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByEvent returns up to limit entries of one event type, newest first.
func (j *Journal) ByEvent(event string, limit int) ([]Entry, error) {
	rows, err := j.db.Query(`
		SELECT id, kind, event, timestamp, clock, payload
		FROM events
		WHERE event = ?
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`, event, limit)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", event, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Prune deletes entries older than before and returns how many went.
func (j *Journal) Prune(before time.Time) (int64, error) {
	res, err := j.db.Exec(`DELETE FROM events WHERE timestamp < ?`, before.UTC().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			kind    string
			ms      int64
			clock   sql.NullString
			payload string
		)
		if err := rows.Scan(&e.ID, &kind, &e.Event, &ms, &clock, &payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		e.Kind = Kind(kind)
		e.Timestamp = time.UnixMilli(ms).UTC()
		e.Clock = clock.String
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	return out, rows.Err()
}
