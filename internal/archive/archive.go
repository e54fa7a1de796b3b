// Package archive persists recorded session rows into a sqlite database so a
// performance can be inspected or replayed after the fact. The live telemetry
// store itself never touches disk; only the emitted rows are archived.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

type Archive struct {
	*sql.DB
}

// Open opens (creating if needed) the archive database at path.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			started_at_ns BIGINT,
			ended_at_ns BIGINT,
			notes TEXT
		);
		CREATE TABLE IF NOT EXISTS packets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT,
			composite_id INTEGER,
			row TEXT,
			timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("archive schema: %w", err)
	}

	return &Archive{db}, nil
}

// StartSession creates a new session record and returns its generated id.
func (a *Archive) StartSession(notes string) (string, error) {
	id := uuid.New().String()
	_, err := a.Exec(
		"INSERT INTO sessions (session_id, started_at_ns, notes) VALUES (?, ?, ?)",
		id, time.Now().UnixNano(), notes)
	if err != nil {
		return "", fmt.Errorf("start session: %w", err)
	}
	return id, nil
}

// AppendRow stores one emitted packet row under a session.
func (a *Archive) AppendRow(sessionID string, composite int, row string) error {
	_, err := a.Exec(
		"INSERT INTO packets (session_id, composite_id, row) VALUES (?, ?, ?)",
		sessionID, composite, row)
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// EndSession stamps the session's end time.
func (a *Archive) EndSession(sessionID string) error {
	_, err := a.Exec(
		"UPDATE sessions SET ended_at_ns = ? WHERE session_id = ?",
		time.Now().UnixNano(), sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// SessionRows returns the recorded rows of a session in insertion order.
func (a *Archive) SessionRows(sessionID string) ([]string, error) {
	rows, err := a.Query(
		"SELECT row FROM packets WHERE session_id = ? ORDER BY id", sessionID)
	if err != nil {
		return nil, fmt.Errorf("query session rows: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
