package retrieval

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
)

// ErrEmptyDocument reports that a document's text produced no chunks.
var ErrEmptyDocument = errors.New("document produced no text chunks")

const defaultCacheCapacity = 32

// TextEmbedder is the slice of the embedding capability the cache needs.
type TextEmbedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Cache keeps at most capacity indexes, one per document. An index is built
// lazily on the first question about a document, reused until the document's
// content fingerprint changes, and evicted least-recently-used first. Builds
// for the same document are serialized so concurrent questions cannot corrupt
// each other's index.
type Cache struct {
	embedder TextEmbedder
	builder  Builder
	capacity int

	chunkSize    int
	chunkOverlap int

	mu      sync.Mutex
	entries map[int64]*cacheEntry
	order   *list.List // front = most recently used, values are text ids
}

type cacheEntry struct {
	elem *list.Element

	mu          sync.Mutex
	fingerprint string
	index       Index
}

func NewCache(embedder TextEmbedder, builder Builder, capacity int) *Cache {
	if capacity <= 0 {
		capacity = defaultCacheCapacity
	}
	return &Cache{
		embedder:     embedder,
		builder:      builder,
		capacity:     capacity,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		entries:      map[int64]*cacheEntry{},
		order:        list.New(),
	}
}

// Ensure returns a ready index for the document, building one if none exists
// or if text no longer matches the cached fingerprint.
func (c *Cache) Ensure(ctx context.Context, textID int64, text string) (Index, error) {
	fingerprint := Fingerprint(text)

	c.mu.Lock()
	entry, ok := c.entries[textID]
	if ok {
		c.order.MoveToFront(entry.elem)
	} else {
		entry = &cacheEntry{}
		entry.elem = c.order.PushFront(textID)
		c.entries[textID] = entry
		c.evictLocked()
	}
	c.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.index != nil && entry.fingerprint == fingerprint {
		return entry.index, nil
	}

	chunks := SplitText(text, c.chunkSize, c.chunkOverlap)
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	vectors, err := c.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: have %d chunks, %d vectors", len(chunks), len(vectors))
	}

	index, err := c.builder.Build(ctx, textID, chunks, vectors)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	entry.index = index
	entry.fingerprint = fingerprint
	return index, nil
}

// Len reports how many documents currently have a cache entry.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) evictLocked() {
	for c.order.Len() > c.capacity {
		back := c.order.Back()
		if back == nil {
			return
		}
		c.order.Remove(back)
		delete(c.entries, back.Value.(int64))
	}
}

// Fingerprint identifies a document revision for cache invalidation.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
