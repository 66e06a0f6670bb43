package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the extracted-text table and the per-document chunk
// index table if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS pdf_texts (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT NOT NULL,
			content TEXT NOT NULL,
			sha256 TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS pdf_chunks (
			id UUID PRIMARY KEY,
			text_id BIGINT NOT NULL REFERENCES pdf_texts(id) ON DELETE CASCADE,
			chunk_index INT NOT NULL,
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(text_id, chunk_index)
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_pdf_chunks_text ON pdf_chunks(text_id)",
		"CREATE INDEX IF NOT EXISTS idx_pdf_chunks_embedding ON pdf_chunks USING ivfflat (embedding vector_l2_ops)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}
