package session

import (
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/matiasroldan/adambot/internal/validate"
)

// sqliteSchema creates the single sessions table: one row per active session,
// the full record stored as JSON alongside the columns the sweep queries.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	user_id INTEGER PRIMARY KEY,
	payload TEXT NOT NULL,
	last_activity INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_last_activity ON sessions(last_activity);
`

// SQLiteMirror stores one row per session in a local SQLite database. It is
// the alternate mirror backend; the file mirror remains the default.
type SQLiteMirror struct {
	db *sql.DB
}

// NewSQLiteMirror opens (or creates) the database at path and prepares the
// schema. WAL mode keeps the single-writer latency low.
func NewSQLiteMirror(path string) (*SQLiteMirror, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare session schema: %w", err)
	}
	return &SQLiteMirror{db: db}, nil
}

// Save upserts the session row.
func (m *SQLiteMirror) Save(sess *Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session %d: %w", sess.UserID, err)
	}

	const query = `
		INSERT INTO sessions (user_id, payload, last_activity)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			payload = excluded.payload,
			last_activity = excluded.last_activity
	`
	if _, err := m.db.Exec(query, sess.UserID, string(payload), sess.LastActivityAt.UnixMilli()); err != nil {
		return fmt.Errorf("failed to save session %d: %w", sess.UserID, err)
	}
	return nil
}

// Delete removes the session row; deleting an absent row is not an error.
func (m *SQLiteMirror) Delete(userID int64) error {
	if _, err := m.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete session %d: %w", userID, err)
	}
	return nil
}

// LoadAll reads every stored session row.
func (m *SQLiteMirror) LoadAll() (map[int64]*Session, error) {
	rows, err := m.db.Query(`SELECT payload FROM sessions`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	sessions := make(map[int64]*Session)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		var sess Session
		if err := json.Unmarshal([]byte(payload), &sess); err != nil {
			// A corrupt row is skipped; recovery must not abort on one record.
			continue
		}
		if sess.Answers == nil {
			sess.Answers = make(map[Stage][]validate.Answer)
		}
		sessions[sess.UserID] = &sess
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return sessions, nil
}

// Close closes the underlying database.
func (m *SQLiteMirror) Close() error {
	return m.db.Close()
}
