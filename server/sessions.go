package server

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrSessionNotFound indicates the requested session doesn't exist.
var ErrSessionNotFound = errors.New("session not found")

// sessionTimeLayout is fixed width, unlike RFC3339Nano, so lexicographic
// ordering on the TEXT column matches chronological ordering.
const sessionTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SessionStore persists client sessions in SQLite so they survive
// daemon restarts. Buffer handles do not survive a restart; sessions
// carry identity and usage counters, not buffer state.
type SessionStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSessionStore opens or creates the session database.
func OpenSessionStore(dbPath string) (*SessionStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		last_seen TEXT NOT NULL,
		calls INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sessions table: %w", err)
	}

	return &SessionStore{db: db}, nil
}

// Create mints a session with a fresh identifier.
func (s *SessionStore) Create(name string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(sessionTimeLayout)
	info := &SessionInfo{
		ID:       uuid.NewString(),
		Name:     name,
		Created:  now,
		LastSeen: now,
	}

	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO sessions (id, name, created_at, last_seen, calls) VALUES (?, ?, ?, ?, 0)",
		info.ID, info.Name, info.Created, info.LastSeen,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	return info, nil
}

// Touch bumps a session's last-seen time and call counter. An unknown
// identifier is adopted as a new unnamed session, so clients may mint
// their own IDs.
func (s *SessionStore) Touch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC().Format(sessionTimeLayout)
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, name, created_at, last_seen, calls) VALUES (?, '', ?, ?, 1)
		 ON CONFLICT(id) DO UPDATE SET last_seen = excluded.last_seen, calls = calls + 1`,
		id, now, now,
	)
	if err != nil {
		return fmt.Errorf("touching session %s: %w", id, err)
	}
	return nil
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(id string) (*SessionInfo, error) {
	var info SessionInfo
	err := s.db.QueryRow(
		"SELECT id, name, created_at, last_seen, calls FROM sessions WHERE id = ?", id,
	).Scan(&info.ID, &info.Name, &info.Created, &info.LastSeen, &info.Calls)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying session %s: %w", id, err)
	}
	return &info, nil
}

// List returns all sessions, most recently seen first.
func (s *SessionStore) List() ([]SessionInfo, error) {
	rows, err := s.db.Query(
		"SELECT id, name, created_at, last_seen, calls FROM sessions ORDER BY last_seen DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Created, &info.LastSeen, &info.Calls); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Destroy removes a session.
func (s *SessionStore) Destroy(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("destroying session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// Close closes the database connection.
func (s *SessionStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
