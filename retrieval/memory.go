package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// MemoryBuilder builds in-process brute-force cosine-similarity indexes.
type MemoryBuilder struct{}

func NewMemoryBuilder() *MemoryBuilder {
	return &MemoryBuilder{}
}

func (MemoryBuilder) Build(_ context.Context, _ int64, chunks []string, vectors [][]float32) (Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunk/vector count mismatch: %d chunks, %d vectors", len(chunks), len(vectors))
	}

	idx := &memoryIndex{
		chunks:  append([]string(nil), chunks...),
		vectors: make([][]float32, len(vectors)),
		norms:   make([]float64, len(vectors)),
	}
	for i, vec := range vectors {
		idx.vectors[i] = append([]float32(nil), vec...)
		idx.norms[i] = norm(vec)
	}
	return idx, nil
}

type memoryIndex struct {
	chunks  []string
	vectors [][]float32
	norms   []float64
}

func (ix *memoryIndex) Search(_ context.Context, query []float32, k int) ([]string, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if k <= 0 {
		k = 1
	}

	queryNorm := norm(query)
	if queryNorm == 0 {
		return nil, fmt.Errorf("query vector has zero magnitude")
	}

	type scored struct {
		pos   int
		score float64
	}
	scores := make([]scored, 0, len(ix.vectors))
	for i, vec := range ix.vectors {
		if ix.norms[i] == 0 {
			continue
		}
		scores = append(scores, scored{pos: i, score: dot(vec, query) / (ix.norms[i] * queryNorm)})
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].score > scores[b].score
	})

	if k > len(scores) {
		k = len(scores)
	}
	results := make([]string, 0, k)
	for _, s := range scores[:k] {
		results = append(results, ix.chunks[s.pos])
	}
	return results, nil
}

var _ Builder = MemoryBuilder{}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(vec []float32) float64 {
	sum := 0.0
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
