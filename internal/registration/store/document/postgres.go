package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"outing/pkg/platform/sentinel"
)

// PostgresStore keeps each document in one row of a two-column table. It is an
// alternative backend for deployments that already run Postgres; the contract
// is identical to Redis, one whole JSON value per key.
type PostgresStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresStore wraps an open database handle. A zero timeout falls back to 5s.
func NewPostgresStore(db *sql.DB, timeout time.Duration) *PostgresStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PostgresStore{db: db, timeout: timeout}
}

// EnsureSchema creates the documents table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS outing_documents (
			key        TEXT PRIMARY KEY,
			doc        JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure documents schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM outing_documents WHERE key = $1`, key).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select document %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return doc, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, doc json.RawMessage) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outing_documents (key, doc, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		key, []byte(doc))
	if err != nil {
		return fmt.Errorf("upsert document %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `DELETE FROM outing_documents WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete document %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return nil
}
