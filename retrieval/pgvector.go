package retrieval

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresBuilder persists chunk embeddings in the pdf_chunks table, keyed by
// document identifier, so concurrent questions about different documents never
// touch each other's rows.
type PostgresBuilder struct {
	pool *pgxpool.Pool
}

func NewPostgresBuilder(pool *pgxpool.Pool) *PostgresBuilder {
	return &PostgresBuilder{pool: pool}
}

func (b *PostgresBuilder) Build(ctx context.Context, textID int64, chunks []string, vectors [][]float32) (idx Index, err error) {
	if b.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	tx, err := b.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM pdf_chunks WHERE text_id = $1", textID); err != nil {
		return nil, fmt.Errorf("clear existing chunks: %w", err)
	}

	for i, chunk := range chunks {
		if _, err = tx.Exec(ctx, `
			INSERT INTO pdf_chunks (id, text_id, chunk_index, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`, uuid.New(), textID, i, chunk, pgvector.NewVector(vectors[i])); err != nil {
			return nil, fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit chunks: %w", err)
	}

	return &postgresIndex{pool: b.pool, textID: textID}, nil
}

type postgresIndex struct {
	pool   *pgxpool.Pool
	textID int64
}

func (ix *postgresIndex) Search(ctx context.Context, query []float32, k int) ([]string, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if k <= 0 {
		k = 1
	}

	rows, err := ix.pool.Query(ctx, `
		SELECT content
		FROM pdf_chunks
		WHERE text_id = $1
		ORDER BY embedding <-> $2::vector
		LIMIT $3
	`, ix.textID, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]string, 0, k)
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		results = append(results, content)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

var _ Builder = (*PostgresBuilder)(nil)
