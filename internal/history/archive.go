// Copyright (c) 2025 Avelinek Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history keeps a local, searchable archive of chat exchanges.
//
// The archive is a convenience on top of the server-side history: it
// survives ClearChat and lets the user grep old conversations without
// a network round trip. Clearing server data clears the matching rows
// here too, so the archive never outlives a deletion request.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/avelinek/parley/internal/model"
)

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("archive closed")
)

const schema = `
CREATE TABLE IF NOT EXISTS exchanges (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exchanges_session ON exchanges(session_id);
CREATE INDEX IF NOT EXISTS idx_exchanges_user ON exchanges(user_id);
`

// Archive is a SQLite-backed record of sent and received messages.
//
// Record runs outside the chat controller's lock and Close runs on
// shutdown, so the closed flag needs its own guard.
type Archive struct {
	db *sql.DB

	mu     sync.Mutex
	closed bool
}

// Entry is one archived message.
type Entry struct {
	ID        int64
	SessionID string
	UserID    string
	Role      model.Role
	Content   string
	CreatedAt time.Time
}

// Open opens (or creates) the archive database at path.
func Open(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize archive schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close releases the underlying database. Safe to call twice.
func (a *Archive) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()
	return a.db.Close()
}

// isClosed reports whether Close has run.
func (a *Archive) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Record appends messages from one exchange, in order.
func (a *Archive) Record(sessionID, userID string, msgs ...model.Message) error {
	if a.isClosed() {
		return ErrClosed
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range msgs {
		_, err := tx.Exec(`
			INSERT INTO exchanges (session_id, user_id, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, sessionID, userID, string(m.Role), m.Content, m.Timestamp.Unix())
		if err != nil {
			return fmt.Errorf("failed to record message: %w", err)
		}
	}

	return tx.Commit()
}

// Recent returns the most recent messages for a session, oldest first.
func (a *Archive) Recent(sessionID string, limit int) ([]Entry, error) {
	if a.isClosed() {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := a.db.Query(`
		SELECT id, session_id, user_id, role, content, created_at
		FROM (
			SELECT id, session_id, user_id, role, content, created_at
			FROM exchanges WHERE session_id = ?
			ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Search finds archived messages whose content contains the query,
// newest first. The match is case-insensitive.
func (a *Archive) Search(query string, limit int) ([]Entry, error) {
	if a.isClosed() {
		return nil, ErrClosed
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := a.db.Query(`
		SELECT id, session_id, user_id, role, content, created_at
		FROM exchanges
		WHERE content LIKE ? ESCAPE '\'
		ORDER BY id DESC LIMIT ?
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search archive: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// CountSession returns the number of archived messages for a session.
func (a *Archive) CountSession(sessionID string) (int, error) {
	if a.isClosed() {
		return 0, ErrClosed
	}
	var n int
	err := a.db.QueryRow(`SELECT COUNT(*) FROM exchanges WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// ClearSession removes all archived messages for one session.
func (a *Archive) ClearSession(sessionID string) error {
	if a.isClosed() {
		return ErrClosed
	}
	_, err := a.db.Exec(`DELETE FROM exchanges WHERE session_id = ?`, sessionID)
	return err
}

// ClearUser removes all archived messages for a user, across sessions.
func (a *Archive) ClearUser(userID string) error {
	if a.isClosed() {
		return ErrClosed
	}
	_, err := a.db.Exec(`DELETE FROM exchanges WHERE user_id = ?`, userID)
	return err
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var role string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.UserID, &role, &e.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.Role = model.Role(role)
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// escapeLike escapes the LIKE wildcards in a user query.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
