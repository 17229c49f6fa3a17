// Package history keeps the navigation states published by the engine in
// the shared SQLite database so a later session can list and resume them.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"nathanbeddoewebdev/actionmgr/internal/database"
	"nathanbeddoewebdev/actionmgr/internal/domain"
)

// Repository defines the persistence interface for history entries.
type Repository interface {
	Save(entry *Entry) error
	Get(id int64) (*Entry, error)
	Latest() (*Entry, error)
	List(limit int) ([]Entry, error)
	ListBySession(sessionID string, limit int) ([]Entry, error)
	Prune(olderThan time.Duration) (int64, error)
	Close() error
}

// SQLiteRepository implements Repository backed by a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the history repository at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS history (
            id          INTEGER PRIMARY KEY AUTOINCREMENT,
            session_id  TEXT    NOT NULL,
            timestamp   TEXT    NOT NULL,
            title       TEXT    NOT NULL DEFAULT '',
            breadcrumbs TEXT    NOT NULL DEFAULT '',
            state       TEXT    NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_history_timestamp ON history(timestamp);
        CREATE INDEX IF NOT EXISTS idx_history_session ON history(session_id);
    `
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("history: migration failed: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, session_id, timestamp, title, breadcrumbs, state FROM history`

// Save inserts a new entry.
func (r *SQLiteRepository) Save(entry *Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	state, err := json.Marshal(entry.State)
	if err != nil {
		return fmt.Errorf("history: encode state: %w", err)
	}

	result, err := r.db.Exec(`
        INSERT INTO history (session_id, timestamp, title, breadcrumbs, state)
        VALUES (?, ?, ?, ?, ?)`,
		entry.SessionID, entry.Timestamp.Format(time.RFC3339Nano), entry.Title, entry.Breadcrumbs, string(state),
	)
	if err != nil {
		return fmt.Errorf("history: insert failed: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("history: failed to get last insert ID: %w", err)
	}
	entry.ID = id
	return nil
}

// Get returns the entry with the given id.
func (r *SQLiteRepository) Get(id int64) (*Entry, error) {
	rows, err := r.db.Query(selectColumns+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("history: query failed: %w", err)
	}
	defer rows.Close()
	return first(rows, fmt.Sprintf("entry %d", id))
}

// Latest returns the most recent entry of any session.
func (r *SQLiteRepository) Latest() (*Entry, error) {
	rows, err := r.db.Query(selectColumns + ` ORDER BY timestamp DESC, id DESC LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("history: query failed: %w", err)
	}
	defer rows.Close()
	return first(rows, "latest entry")
}

// List returns the most recent n entries.
func (r *SQLiteRepository) List(limit int) ([]Entry, error) {
	rows, err := r.db.Query(selectColumns+` ORDER BY timestamp DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// ListBySession returns the most recent n entries of one session.
func (r *SQLiteRepository) ListBySession(sessionID string, limit int) ([]Entry, error) {
	rows, err := r.db.Query(selectColumns+` WHERE session_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// Prune deletes entries older than the given duration.
func (r *SQLiteRepository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	result, err := r.db.Exec(`DELETE FROM history WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: delete failed: %w", err)
	}
	return result.RowsAffected()
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func first(rows *sql.Rows, what string) (*Entry, error) {
	entries, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("history: %s: %w", what, domain.ErrNotFound)
	}
	return &entries[0], nil
}

func scanRows(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var timestampStr, state string
		err := rows.Scan(&entry.ID, &entry.SessionID, &timestampStr, &entry.Title, &entry.Breadcrumbs, &state)
		if err != nil {
			return nil, fmt.Errorf("history: scan failed: %w", err)
		}
		entry.Timestamp, _ = time.Parse(time.RFC3339Nano, timestampStr)
		if err := json.Unmarshal([]byte(state), &entry.State); err != nil {
			return nil, fmt.Errorf("history: corrupt state in entry %d: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
