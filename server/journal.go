package server

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// ErrNoSnapshot indicates the journal holds no registry snapshot yet.
var ErrNoSnapshot = errors.New("no snapshot recorded")

// Journal records every dispatched call in DuckDB. The analytic store
// answers the stats op with per-target aggregates; argument detail is
// kept as canonical CBOR blobs.
type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenJournal opens or creates the journal database. An empty path
// keeps the journal in memory.
func OpenJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS calls (
		at TIMESTAMP NOT NULL,
		session_id VARCHAR NOT NULL,
		target VARCHAR NOT NULL,
		ok BOOLEAN NOT NULL,
		micros BIGINT NOT NULL,
		payload BLOB
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating calls table: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		at TIMESTAMP NOT NULL,
		doc BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshots table: %w", err)
	}

	return &Journal{db: db}, nil
}

// CallEvent is one dispatched call to journal.
type CallEvent struct {
	At        time.Time
	SessionID string
	Target    string
	Args      []string
	Err       error
	Elapsed   time.Duration
}

// Record appends one call event.
func (j *Journal) Record(e CallEvent) error {
	payload := &CallPayload{Args: e.Args}
	if e.Err != nil {
		payload.Error = e.Err.Error()
	}
	blob, err := MarshalCallPayload(payload)
	if err != nil {
		return fmt.Errorf("encoding call payload: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	_, err = j.db.Exec(
		"INSERT INTO calls (at, session_id, target, ok, micros, payload) VALUES (?, ?, ?, ?, ?, ?)",
		e.At, e.SessionID, e.Target, e.Err == nil, e.Elapsed.Microseconds(), blob,
	)
	if err != nil {
		return fmt.Errorf("journaling call: %w", err)
	}
	return nil
}

// Snapshot appends the registry contents, typically once at startup.
func (j *Journal) Snapshot(builtins, natives, remotes []string) error {
	blob, err := MarshalSnapshot(&RegistrySnapshot{
		Builtins: builtins,
		Natives:  natives,
		Remotes:  remotes,
	})
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.db.Exec("INSERT INTO snapshots (at, doc) VALUES (?, ?)", time.Now().UTC(), blob); err != nil {
		return fmt.Errorf("journaling snapshot: %w", err)
	}
	return nil
}

// LastSnapshot returns the most recently journaled registry snapshot.
func (j *Journal) LastSnapshot() (*RegistrySnapshot, error) {
	var blob []byte
	err := j.db.QueryRow("SELECT doc FROM snapshots ORDER BY at DESC LIMIT 1").Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}
	return UnmarshalSnapshot(blob)
}

// Stats aggregates the journal per target, busiest first.
func (j *Journal) Stats() ([]TargetStats, error) {
	rows, err := j.db.Query(`
		SELECT target,
		       count(*) AS calls,
		       count(*) FILTER (WHERE NOT ok) AS failures,
		       coalesce(avg(micros), 0) AS avg_micros
		FROM calls
		GROUP BY target
		ORDER BY calls DESC, target`)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	defer rows.Close()

	var out []TargetStats
	for rows.Next() {
		var ts TargetStats
		if err := rows.Scan(&ts.Target, &ts.Calls, &ts.Failures, &ts.AvgMicros); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
