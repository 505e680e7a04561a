package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/urlmatch/internal/models"
)

// SQLiteStore implements Store using SQLite, so sessions survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		file_name TEXT NOT NULL DEFAULT '',
		table_json TEXT,
		column_name TEXT NOT NULL DEFAULT '',
		terms_json TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the session with the given ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*models.Session, error) {
	var (
		sess      models.Session
		tableJSON sql.NullString
		termsJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, file_name, table_json, column_name, terms_json, error, updated_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.FileName, &tableJSON, &sess.Column, &termsJSON, &sess.Error, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if tableJSON.Valid && tableJSON.String != "" {
		sess.Table = &models.Table{}
		if err := json.Unmarshal([]byte(tableJSON.String), sess.Table); err != nil {
			return nil, fmt.Errorf("failed to unmarshal table: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(termsJSON), &sess.Terms); err != nil {
		return nil, fmt.Errorf("failed to unmarshal terms: %w", err)
	}
	return &sess, nil
}

// Save inserts or replaces the session and stamps UpdatedAt.
func (s *SQLiteStore) Save(ctx context.Context, sess *models.Session) error {
	var tableJSON sql.NullString
	if sess.Table != nil {
		b, err := json.Marshal(sess.Table)
		if err != nil {
			return fmt.Errorf("failed to marshal table: %w", err)
		}
		tableJSON = sql.NullString{String: string(b), Valid: true}
	}
	terms := sess.Terms
	if terms == nil {
		terms = []string{}
	}
	termsJSON, err := json.Marshal(terms)
	if err != nil {
		return fmt.Errorf("failed to marshal terms: %w", err)
	}

	// Stored in UTC so updated_at compares correctly as text.
	sess.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, file_name, table_json, column_name, terms_json, error, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   file_name = excluded.file_name,
		   table_json = excluded.table_json,
		   column_name = excluded.column_name,
		   terms_json = excluded.terms_json,
		   error = excluded.error,
		   updated_at = excluded.updated_at`,
		sess.ID, sess.FileName, tableJSON, sess.Column, string(termsJSON), sess.Error, sess.UpdatedAt,
	)
	return err
}

// Delete removes the session. Deleting an unknown ID is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// DeleteOlderThan removes sessions whose updated_at is before cutoff.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored sessions.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
