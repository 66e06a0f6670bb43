package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// BlobStore archives the original uploaded PDF bytes.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
}

// FileBlobStore keeps blobs on the local filesystem, one file per key.
type FileBlobStore struct {
	dir string
}

func NewFileBlobStore(dir string) *FileBlobStore {
	return &FileBlobStore{dir: dir}
}

func (s *FileBlobStore) Put(_ context.Context, key string, data []byte) error {
	if s.dir == "" {
		return fmt.Errorf("blob directory is not configured")
	}

	// Keys come from client-supplied filenames; strip any path components.
	name := filepath.Base(filepath.Clean(key))
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid blob key %q", key)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create blob directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	return nil
}

var _ BlobStore = (*FileBlobStore)(nil)
