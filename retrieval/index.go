// Package retrieval maintains per-document vector indexes used to find the
// text chunks most relevant to a question.
package retrieval

import "context"

// Index answers nearest-neighbour queries over a single document's chunks.
type Index interface {
	// Search returns the text of the k chunks closest to the query vector,
	// most similar first.
	Search(ctx context.Context, query []float32, k int) ([]string, error)
}

// Builder turns a document's chunks and their embeddings into a searchable
// Index. Implementations replace any previous index for the same document.
type Builder interface {
	Build(ctx context.Context, textID int64, chunks []string, vectors [][]float32) (Index, error)
}
