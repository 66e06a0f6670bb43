// Package store persists uploaded documents: extracted text in Postgres and
// the original PDF bytes in a blob archive.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound reports that no extracted text exists for the given identifier.
var ErrNotFound = errors.New("pdf text not found")

type TextStore interface {
	SaveText(ctx context.Context, filename, content string) (int64, error)
	GetText(ctx context.Context, id int64) (string, error)
}

type PostgresTextStore struct {
	pool *pgxpool.Pool
}

func NewPostgresTextStore(pool *pgxpool.Pool) *PostgresTextStore {
	return &PostgresTextStore{pool: pool}
}

func (s *PostgresTextStore) SaveText(ctx context.Context, filename, content string) (int64, error) {
	hash := sha256.Sum256([]byte(content))

	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO pdf_texts (filename, content, sha256, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`, filename, content, hex.EncodeToString(hash[:])).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert pdf text: %w", err)
	}

	return id, nil
}

func (s *PostgresTextStore) GetText(ctx context.Context, id int64) (string, error) {
	var content string
	err := s.pool.QueryRow(ctx, "SELECT content FROM pdf_texts WHERE id = $1", id).Scan(&content)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("query pdf text: %w", err)
	}
	return content, nil
}

var _ TextStore = (*PostgresTextStore)(nil)
