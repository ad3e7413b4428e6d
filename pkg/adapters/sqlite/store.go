package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/clarify/pkg/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id  TEXT PRIMARY KEY,
	phase       TEXT NOT NULL,
	revision    INTEGER NOT NULL,
	state_json  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS archive (
	archive_id   TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	raw_input    TEXT NOT NULL,
	result       TEXT NOT NULL,
	iterations   INTEGER NOT NULL,
	state_json   TEXT NOT NULL,
	archived_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_archive_session ON archive(session_id);
`

// Store implements ports.SessionStore and ports.Archiver on SQLite.
type Store struct {
	db *sql.DB
}

// ArchiveRecord is one completed session kept in the archive table.
type ArchiveRecord struct {
	ArchiveID  string    `json:"archive_id"`
	SessionID  string    `json:"session_id"`
	RawInput   string    `json:"raw_input"`
	Result     string    `json:"result"`
	Iterations int       `json:"iterations"`
	ArchivedAt time.Time `json:"archived_at"`
}

// New opens a SQLite database and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// modernc's driver serializes writers badly across connections
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the snapshot of a session.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, phase, revision, state_json, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   phase = excluded.phase,
		   revision = excluded.revision,
		   state_json = excluded.state_json,
		   updated_at = excluded.updated_at`,
		sessionID, string(state.Phase), state.Revision, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// SaveIfRevision writes the snapshot only while the stored revision equals
// expected. The check and the write are a single statement.
func (s *Store) SaveIfRevision(ctx context.Context, sessionID string, state *domain.State, expected int) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var res sql.Result
	if expected == 0 {
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO sessions (session_id, phase, revision, state_json, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(session_id) DO NOTHING`,
			sessionID, string(state.Phase), state.Revision, string(data), now,
		)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE sessions SET phase = ?, revision = ?, state_json = ?, updated_at = ?
			 WHERE session_id = ? AND revision = ?`,
			string(state.Phase), state.Revision, string(data), now, sessionID, expected,
		)
	}
	if err != nil {
		return fmt.Errorf("conditional save: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("conditional save: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: session %s is not at revision %d", domain.ErrRevisionConflict, sessionID, expected)
	}
	return nil
}

// Load retrieves a session snapshot.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("query session: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &state, nil
}

// Delete removes a session snapshot. Archived copies are kept.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// List returns session IDs ordered by most recent update.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT session_id FROM sessions ORDER BY updated_at DESC, session_id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Archive stores a completed session in the archive table.
func (s *Store) Archive(ctx context.Context, state *domain.State) error {
	if !state.Done() || len(state.FinalOutput) == 0 {
		return fmt.Errorf("archive %s: session not completed", state.SessionID)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO archive (archive_id, session_id, raw_input, result, iterations, state_json, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), state.SessionID, state.RawInput, state.FinalOutput[len(state.FinalOutput)-1],
		state.IterationCount, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert archive: %w", err)
	}
	return nil
}

// Archived lists archive records, newest first. An empty sessionID lists all.
func (s *Store) Archived(ctx context.Context, sessionID string) ([]ArchiveRecord, error) {
	query := `SELECT archive_id, session_id, raw_input, result, iterations, archived_at FROM archive`
	args := []any{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY archived_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}
	defer rows.Close()

	var out []ArchiveRecord
	for rows.Next() {
		var (
			rec ArchiveRecord
			ts  string
		)
		if err := rows.Scan(&rec.ArchiveID, &rec.SessionID, &rec.RawInput, &rec.Result, &rec.Iterations, &ts); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		rec.ArchivedAt, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse archived_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
