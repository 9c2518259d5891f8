package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS handoff (
	session_id TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (session_id, key)
);
`

// SQLiteStore implements handoff.KV for one session in a SQLite file.
type SQLiteStore struct {
	db        *sql.DB
	sessionID string
}

// New opens (or creates) the database at dbPath and scopes the store to sessionID.
func New(dbPath, sessionID string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, sessionID, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath, sessionID string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	if sessionID == "" {
		return nil, errors.New("sqlite: empty session id")
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool limits before setup
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db, sessionID: sessionID}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SessionID returns the session the store is scoped to.
func (s *SQLiteStore) SessionID() string {
	return s.sessionID
}

// Set upserts key for the session.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO handoff (session_id, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, s.sessionID, key, value); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

// Get returns the value of key for the session.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM handoff WHERE session_id = ? AND key = ?`

	var value string
	err := s.db.QueryRowContext(ctx, query, s.sessionID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select %s: %w", key, err)
	}
	return value, true, nil
}

// Delete removes key for the session.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM handoff WHERE session_id = ? AND key = ?`
	if _, err := s.db.ExecContext(ctx, query, s.sessionID, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every key of the session.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	query := `DELETE FROM handoff WHERE session_id = ?`
	if _, err := s.db.ExecContext(ctx, query, s.sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Replace rewrites the session's keys inside one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, values map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM handoff WHERE session_id = ?`, s.sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	insert := `INSERT INTO handoff (session_id, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)`
	for key, value := range values {
		if _, err := tx.ExecContext(ctx, insert, s.sessionID, key, value); err != nil {
			return fmt.Errorf("insert %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
