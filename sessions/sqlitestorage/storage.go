// Package sqlitestorage persists serialized sessions in a SQLite file so they
// survive frontend restarts.
package sqlitestorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	apperrors "github.com/jrsteele09/storefront-web/internal/errors"
	"github.com/jrsteele09/storefront-web/sessions"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS session_storage (
		storage_key TEXT PRIMARY KEY,
		payload     BLOB NOT NULL,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	)`

// Storage is a sessions.Storage backed by a single SQLite table.
type Storage struct {
	db *sql.DB
}

var _ sessions.Storage = (*Storage)(nil)

// Open creates the database file (and its directory) if needed and ensures the schema.
func Open(dbPath string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("[sqlitestorage Open] failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("[sqlitestorage Open] failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("[sqlitestorage Open] failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("[sqlitestorage Open] failed to create schema: %w", err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM session_storage WHERE storage_key = ?`, key,
	).Scan(&payload)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", key, err)
	}
	return payload, nil
}

func (s *Storage) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO session_storage (storage_key, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(storage_key) DO UPDATE SET payload = excluded.payload, updated_at = CURRENT_TIMESTAMP`

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set session %s: %w", key, err)
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_storage WHERE storage_key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove session %s: %w", key, err)
	}
	return nil
}
